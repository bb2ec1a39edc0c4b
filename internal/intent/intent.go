// Package intent classifies concierge turns and resolves the next module to
// render.
package intent

import "strings"

type Kind string

const (
	KindUnknown        Kind = "unknown"
	KindFindProduct    Kind = "find_product"
	KindTrackOrder     Kind = "track_order"
	KindStylistContact Kind = "stylist_contact"
)

// ParseKind maps a wire intent value to a Kind, treating anything outside the
// closed set as unknown.
func ParseKind(s string) Kind {
	switch Kind(strings.TrimSpace(s)) {
	case KindFindProduct:
		return KindFindProduct
	case KindTrackOrder:
		return KindTrackOrder
	case KindStylistContact:
		return KindStylistContact
	}
	return KindUnknown
}

// Detect performs keyword heuristics over a free-text turn. It is the
// fallback when no LLM inferrer is configured.
func Detect(message string) Kind {
	m := strings.ToLower(strings.TrimSpace(message))
	if m == "" {
		return KindUnknown
	}
	if containsAny(m, []string{
		"where is my order", "track my order", "track order", "order status",
		"my delivery", "when will it arrive", "shipping update", "my package",
		"hasn't arrived", "has not arrived",
	}) {
		return KindTrackOrder
	}
	if containsAny(m, []string{
		"speak to someone", "talk to a person", "talk to a human", "real person",
		"stylist", "complaint", "resize", "repair", "return my", "refund",
	}) {
		return KindStylistContact
	}
	if containsAny(m, []string{
		"looking for", "browse", "show me", "ring", "rings", "necklace",
		"necklaces", "earring", "earrings", "bracelet", "pendant", "gift",
		"engagement", "anniversary", "gold", "diamond", "sapphire",
	}) {
		return KindFindProduct
	}
	return KindUnknown
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
