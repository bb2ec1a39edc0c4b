package intent

import (
	"context"
	"errors"
	"time"

	"seraphine-concierge-backend/internal/catalog"
	"seraphine-concierge-backend/internal/module"
)

// Snapshot is the read-only slice of conversation state the resolver routes
// on. The dispatcher builds it after applying the turn's action.
type Snapshot struct {
	SessionID string
	Intent    Kind
	// Explicit is true when the user picked the intent themselves (chooser
	// select). Explicit intent always overrides anything inferred from text.
	Explicit    bool
	Filters     catalog.Filters
	OrderNumber string
	Email       string
	DraftName   string
	DraftEmail  string
	DraftNotes  string
}

// Resolve is the decision table mapping conversation state to the next
// module. It is stateless and deterministic: identical snapshots against
// identical provider contents yield identical modules.
func Resolve(ctx context.Context, snap Snapshot, reader catalog.Reader) (module.Module, error) {
	switch snap.Intent {
	case KindFindProduct:
		if snap.Filters.Empty() {
			return filterModule(ctx, snap, reader)
		}
		return carouselModule(ctx, snap, reader)
	case KindTrackOrder:
		if snap.OrderNumber == "" || snap.Email == "" {
			if !snap.Explicit {
				// Inferred intent without identifying fields is ambiguous;
				// ask the user to confirm what they want first.
				return module.DefaultIntentChooser(), nil
			}
			return module.NewOrderLookup("Let's find your order", snap.OrderNumber, snap.Email), nil
		}
		return timelineModule(ctx, snap, reader)
	case KindStylistContact:
		return module.NewEscalationForm(snap.DraftName, snap.DraftEmail, snap.DraftNotes), nil
	}
	return module.DefaultIntentChooser(), nil
}

func filterModule(ctx context.Context, snap Snapshot, reader catalog.Reader) (module.Module, error) {
	facets, err := reader.Facets(ctx)
	if err != nil {
		return module.Module{}, err
	}
	return module.NewProductFilter("What are you shopping for?", toFacets(facets), toApplied(snap.Filters)), nil
}

func carouselModule(ctx context.Context, snap Snapshot, reader catalog.Reader) (module.Module, error) {
	products, err := reader.SearchProducts(ctx, snap.Filters)
	if err != nil {
		return module.Module{}, err
	}
	shortlisted, err := reader.Shortlist(ctx, snap.SessionID)
	if err != nil {
		return module.Module{}, err
	}
	if len(products) == 0 {
		m := module.NewProductFilter("What are you shopping for?", module.FilterFacets{}, toApplied(snap.Filters))
		if facets, ferr := reader.Facets(ctx); ferr == nil {
			m.ProductFilter.Facets = toFacets(facets)
		}
		return m.WithError("Nothing matches those filters yet. Try loosening one."), nil
	}
	return module.NewProductCarousel("Picked for you", toCards(products, shortlisted)), nil
}

func timelineModule(ctx context.Context, snap Snapshot, reader catalog.Reader) (module.Module, error) {
	order, err := reader.LookupOrder(ctx, snap.OrderNumber, snap.Email)
	if errors.Is(err, catalog.ErrNotFound) {
		m := module.NewOrderLookup("Let's find your order", snap.OrderNumber, snap.Email)
		return m.WithError("We couldn't find an order with that number and email. Double-check and try again."), nil
	}
	if err != nil {
		return module.Module{}, err
	}
	events, err := reader.OrderEvents(ctx, order.Number)
	if err != nil && !errors.Is(err, catalog.ErrNotFound) {
		return module.Module{}, err
	}
	out := make([]module.OrderEvent, 0, len(events))
	for _, ev := range events {
		out = append(out, module.OrderEvent{Label: ev.Label, At: ev.At.Format(time.RFC3339)})
	}
	return module.NewOrderTimeline(order.Number, order.Status, out), nil
}

func toFacets(f catalog.Facets) module.FilterFacets {
	bands := make([]module.PriceBand, 0, len(f.PriceBands))
	for _, b := range f.PriceBands {
		bands = append(bands, module.PriceBand{Label: b.Label, MinCents: b.MinCents, MaxCents: b.MaxCents})
	}
	return module.FilterFacets{
		Categories: f.Categories,
		Metals:     f.Metals,
		Gemstones:  f.Gemstones,
		PriceBands: bands,
	}
}

func toApplied(f catalog.Filters) module.AppliedFilters {
	return module.AppliedFilters{
		Categories:    f.Categories,
		Metals:        f.Metals,
		Gemstones:     f.Gemstones,
		MaxPriceCents: f.MaxPriceCents,
	}
}

func toCards(products []catalog.Product, shortlisted []catalog.Product) []module.ProductCard {
	marked := make(map[string]bool, len(shortlisted))
	for _, s := range shortlisted {
		marked[s.ID] = true
	}
	cards := make([]module.ProductCard, 0, len(products))
	for _, p := range products {
		cards = append(cards, module.ProductCard{
			ID:          p.ID,
			Name:        p.Name,
			PriceCents:  p.PriceCents,
			Currency:    p.Currency,
			ImageURL:    p.ImageURL,
			Shortlisted: marked[p.ID],
		})
	}
	return cards
}

// ShortlistModule builds the shortlist view; shared by the dispatcher's
// view-shortlist and mutation actions.
func ShortlistModule(ctx context.Context, sessionID string, reader catalog.Reader) (module.Module, error) {
	items, err := reader.Shortlist(ctx, sessionID)
	if err != nil {
		return module.Module{}, err
	}
	return module.NewShortlist("Your shortlist", toCards(items, items)), nil
}
