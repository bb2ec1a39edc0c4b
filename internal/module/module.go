// Package module defines the closed set of concierge UI modules the server
// can ask the widget to render next. Each payload carries a string tag plus
// exactly the fields its UI needs; the tag uniquely determines which variant
// state is populated.
package module

type Kind string

const (
	KindIntentChooser      Kind = "intent-chooser"
	KindProductFilter      Kind = "product-filter"
	KindProductCarousel    Kind = "product-carousel"
	KindShortlist          Kind = "shortlist"
	KindOrderLookup        Kind = "order-lookup"
	KindOrderTimeline      Kind = "order-timeline"
	KindEscalationForm     Kind = "escalation-form"
	KindEscalationReceived Kind = "escalation-received"
	KindCSATPrompt         Kind = "csat-prompt"
	KindMessage            Kind = "message"
)

// Kinds lists every module type the renderer knows about.
func Kinds() []Kind {
	return []Kind{
		KindIntentChooser,
		KindProductFilter,
		KindProductCarousel,
		KindShortlist,
		KindOrderLookup,
		KindOrderTimeline,
		KindEscalationForm,
		KindEscalationReceived,
		KindCSATPrompt,
		KindMessage,
	}
}

type IntentOption struct {
	Intent string `json:"intent"`
	Label  string `json:"label"`
}

type IntentChooserState struct {
	Heading string         `json:"heading"`
	Options []IntentOption `json:"options"`
}

type PriceBand struct {
	Label    string `json:"label"`
	MinCents int64  `json:"minCents"`
	MaxCents int64  `json:"maxCents"`
}

type FilterFacets struct {
	Categories []string    `json:"categories"`
	Metals     []string    `json:"metals"`
	Gemstones  []string    `json:"gemstones"`
	PriceBands []PriceBand `json:"priceBands,omitempty"`
}

type AppliedFilters struct {
	Categories    []string `json:"categories,omitempty"`
	Metals        []string `json:"metals,omitempty"`
	Gemstones     []string `json:"gemstones,omitempty"`
	MaxPriceCents int64    `json:"maxPriceCents,omitempty"`
}

type ProductFilterState struct {
	Heading string         `json:"heading"`
	Facets  FilterFacets   `json:"facets"`
	Applied AppliedFilters `json:"applied"`
	Error   string         `json:"error,omitempty"`
}

type ProductCard struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PriceCents  int64  `json:"priceCents"`
	Currency    string `json:"currency"`
	ImageURL    string `json:"imageUrl,omitempty"`
	Shortlisted bool   `json:"shortlisted"`
}

type ProductCarouselState struct {
	Heading  string        `json:"heading"`
	Products []ProductCard `json:"products"`
}

type ShortlistState struct {
	Heading string        `json:"heading"`
	Items   []ProductCard `json:"items"`
}

type OrderLookupState struct {
	Heading     string `json:"heading"`
	OrderNumber string `json:"orderNumber,omitempty"`
	Email       string `json:"email,omitempty"`
	Error       string `json:"error,omitempty"`
}

type OrderEvent struct {
	Label string `json:"label"`
	At    string `json:"at"`
}

type OrderTimelineState struct {
	OrderNumber string       `json:"orderNumber"`
	Status      string       `json:"status"`
	Events      []OrderEvent `json:"events"`
}

type EscalationFormState struct {
	Heading     string `json:"heading"`
	Description string `json:"description"`
	SubmitLabel string `json:"submitLabel"`
	Name        string `json:"name,omitempty"`
	Email       string `json:"email,omitempty"`
	Notes       string `json:"notes,omitempty"`
	Error       string `json:"error,omitempty"`
}

type EscalationReceivedState struct {
	Heading   string `json:"heading"`
	TicketRef string `json:"ticketRef"`
	Body      string `json:"body"`
}

type CSATOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type CSATPromptState struct {
	Question string       `json:"question"`
	Options  []CSATOption `json:"options"`
}

// MessageState is plain concierge text. Tone "error" marks the dead-end
// variant rendered when a flow cannot continue.
type MessageState struct {
	Text string `json:"text"`
	Tone string `json:"tone,omitempty"`
}

// Module is the tagged union sent to the widget. Exactly one variant pointer
// is non-nil and it always corresponds to Kind. An unknown Kind (newer server
// talking to an older client, or vice versa) carries no variant at all; the
// renderer treats that as "render nothing".
type Module struct {
	Kind               Kind
	IntentChooser      *IntentChooserState
	ProductFilter      *ProductFilterState
	ProductCarousel    *ProductCarouselState
	Shortlist          *ShortlistState
	OrderLookup        *OrderLookupState
	OrderTimeline      *OrderTimelineState
	EscalationForm     *EscalationFormState
	EscalationReceived *EscalationReceivedState
	CSATPrompt         *CSATPromptState
	Message            *MessageState
}
