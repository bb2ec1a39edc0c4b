package module

// Builders are the only way payloads get constructed, so the tag/variant
// invariant holds everywhere downstream.

const (
	IntentFindProduct    = "find_product"
	IntentTrackOrder     = "track_order"
	IntentStylistContact = "stylist_contact"
)

// DefaultIntentChooser is the disambiguation module shown whenever the
// conversation has no usable intent.
func DefaultIntentChooser() Module {
	return NewIntentChooser("How can I help you today?", []IntentOption{
		{Intent: IntentFindProduct, Label: "Browse jewelry"},
		{Intent: IntentTrackOrder, Label: "Track an order"},
		{Intent: IntentStylistContact, Label: "Talk to a stylist"},
	})
}

func NewIntentChooser(heading string, options []IntentOption) Module {
	return Module{
		Kind:          KindIntentChooser,
		IntentChooser: &IntentChooserState{Heading: heading, Options: options},
	}
}

func NewProductFilter(heading string, facets FilterFacets, applied AppliedFilters) Module {
	return Module{
		Kind:          KindProductFilter,
		ProductFilter: &ProductFilterState{Heading: heading, Facets: facets, Applied: applied},
	}
}

func NewProductCarousel(heading string, products []ProductCard) Module {
	return Module{
		Kind:            KindProductCarousel,
		ProductCarousel: &ProductCarouselState{Heading: heading, Products: products},
	}
}

func NewShortlist(heading string, items []ProductCard) Module {
	return Module{
		Kind:      KindShortlist,
		Shortlist: &ShortlistState{Heading: heading, Items: items},
	}
}

func NewOrderLookup(heading, orderNumber, email string) Module {
	return Module{
		Kind:        KindOrderLookup,
		OrderLookup: &OrderLookupState{Heading: heading, OrderNumber: orderNumber, Email: email},
	}
}

func NewOrderTimeline(orderNumber, status string, events []OrderEvent) Module {
	return Module{
		Kind:          KindOrderTimeline,
		OrderTimeline: &OrderTimelineState{OrderNumber: orderNumber, Status: status, Events: events},
	}
}

func NewEscalationForm(name, email, notes string) Module {
	return Module{
		Kind: KindEscalationForm,
		EscalationForm: &EscalationFormState{
			Heading:     "Reach our stylist team",
			Description: "Leave your details and a stylist will get back to you within one business day.",
			SubmitLabel: "Send to a stylist",
			Name:        name,
			Email:       email,
			Notes:       notes,
		},
	}
}

func NewEscalationReceived(ticketRef string) Module {
	return Module{
		Kind: KindEscalationReceived,
		EscalationReceived: &EscalationReceivedState{
			Heading:   "A stylist is on it",
			TicketRef: ticketRef,
			Body:      "We received your request. Keep your reference handy in case you want to follow up.",
		},
	}
}

func NewCSATPrompt() Module {
	return Module{
		Kind: KindCSATPrompt,
		CSATPrompt: &CSATPromptState{
			Question: "How was your concierge experience today?",
			Options: []CSATOption{
				{Value: "great", Label: "Great"},
				{Value: "okay", Label: "Okay"},
				{Value: "poor", Label: "Poor"},
			},
		},
	}
}

func NewMessage(text string) Module {
	return Module{Kind: KindMessage, Message: &MessageState{Text: text}}
}

// NewErrorMessage is the dead-end module: the client renders it inline and
// the user decides whether to retry.
func NewErrorMessage(text string) Module {
	return Module{Kind: KindMessage, Message: &MessageState{Text: text, Tone: "error"}}
}

// WithError returns a copy of a form module with an inline error attached,
// keeping every field the user already filled in.
func (m Module) WithError(msg string) Module {
	switch m.Kind {
	case KindProductFilter:
		if m.ProductFilter != nil {
			st := *m.ProductFilter
			st.Error = msg
			m.ProductFilter = &st
		}
	case KindOrderLookup:
		if m.OrderLookup != nil {
			st := *m.OrderLookup
			st.Error = msg
			m.OrderLookup = &st
		}
	case KindEscalationForm:
		if m.EscalationForm != nil {
			st := *m.EscalationForm
			st.Error = msg
			m.EscalationForm = &st
		}
	}
	return m
}
