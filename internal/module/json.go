package module

import (
	"encoding/json"
	"fmt"
)

// Wire form is flat: {"type": "...", ...variant fields}. The codec folds the
// variant struct into the top-level object on the way out and picks the
// variant from the tag on the way in. Unrecognized tags decode to a Module
// with just the Kind set, which downstream code treats as a no-op.

func (m Module) MarshalJSON() ([]byte, error) {
	var variant any
	switch m.Kind {
	case KindIntentChooser:
		if m.IntentChooser != nil {
			variant = m.IntentChooser
		}
	case KindProductFilter:
		if m.ProductFilter != nil {
			variant = m.ProductFilter
		}
	case KindProductCarousel:
		if m.ProductCarousel != nil {
			variant = m.ProductCarousel
		}
	case KindShortlist:
		if m.Shortlist != nil {
			variant = m.Shortlist
		}
	case KindOrderLookup:
		if m.OrderLookup != nil {
			variant = m.OrderLookup
		}
	case KindOrderTimeline:
		if m.OrderTimeline != nil {
			variant = m.OrderTimeline
		}
	case KindEscalationForm:
		if m.EscalationForm != nil {
			variant = m.EscalationForm
		}
	case KindEscalationReceived:
		if m.EscalationReceived != nil {
			variant = m.EscalationReceived
		}
	case KindCSATPrompt:
		if m.CSATPrompt != nil {
			variant = m.CSATPrompt
		}
	case KindMessage:
		if m.Message != nil {
			variant = m.Message
		}
	}

	out := map[string]json.RawMessage{}
	if variant != nil {
		b, err := json.Marshal(variant)
		if err != nil {
			return nil, fmt.Errorf("marshal %s state: %w", m.Kind, err)
		}
		if err := json.Unmarshal(b, &out); err != nil {
			return nil, fmt.Errorf("flatten %s state: %w", m.Kind, err)
		}
	}
	tag, err := json.Marshal(string(m.Kind))
	if err != nil {
		return nil, err
	}
	out["type"] = tag
	return json.Marshal(out)
}

func (m *Module) UnmarshalJSON(data []byte) error {
	var probe struct {
		Type Kind `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	*m = Module{Kind: probe.Type}
	switch probe.Type {
	case KindIntentChooser:
		m.IntentChooser = &IntentChooserState{}
		return json.Unmarshal(data, m.IntentChooser)
	case KindProductFilter:
		m.ProductFilter = &ProductFilterState{}
		return json.Unmarshal(data, m.ProductFilter)
	case KindProductCarousel:
		m.ProductCarousel = &ProductCarouselState{}
		return json.Unmarshal(data, m.ProductCarousel)
	case KindShortlist:
		m.Shortlist = &ShortlistState{}
		return json.Unmarshal(data, m.Shortlist)
	case KindOrderLookup:
		m.OrderLookup = &OrderLookupState{}
		return json.Unmarshal(data, m.OrderLookup)
	case KindOrderTimeline:
		m.OrderTimeline = &OrderTimelineState{}
		return json.Unmarshal(data, m.OrderTimeline)
	case KindEscalationForm:
		m.EscalationForm = &EscalationFormState{}
		return json.Unmarshal(data, m.EscalationForm)
	case KindEscalationReceived:
		m.EscalationReceived = &EscalationReceivedState{}
		return json.Unmarshal(data, m.EscalationReceived)
	case KindCSATPrompt:
		m.CSATPrompt = &CSATPromptState{}
		return json.Unmarshal(data, m.CSATPrompt)
	case KindMessage:
		m.Message = &MessageState{}
		return json.Unmarshal(data, m.Message)
	}
	// Unknown module type: tolerated for server/client version skew.
	return nil
}
