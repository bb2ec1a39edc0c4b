package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryProvider is the in-process provider used in dev mode (no DB_URL) and
// in tests. It ships with a small seeded catalog.
type MemoryProvider struct {
	mu          sync.RWMutex
	products    []Product
	orders      map[string]Order
	orderEvents map[string][]OrderEvent
	shortlists  map[string][]string
	escalations []Escalation
	csat        []CSATResponse
}

func NewMemoryProvider() *MemoryProvider {
	p := &MemoryProvider{
		orders:      make(map[string]Order),
		orderEvents: make(map[string][]OrderEvent),
		shortlists:  make(map[string][]string),
	}
	p.seed()
	return p
}

func (p *MemoryProvider) seed() {
	p.products = []Product{
		{ID: "p-aurelia-ring", Name: "Aurelia Solitaire Ring", Category: "rings", Metal: "yellow gold", Gemstone: "diamond", PriceCents: 189000, Currency: "USD", ImageURL: "/img/aurelia-ring.jpg"},
		{ID: "p-lumen-band", Name: "Lumen Pavé Band", Category: "rings", Metal: "platinum", Gemstone: "diamond", PriceCents: 142500, Currency: "USD", ImageURL: "/img/lumen-band.jpg"},
		{ID: "p-selene-pendant", Name: "Selene Pendant", Category: "necklaces", Metal: "white gold", Gemstone: "moonstone", PriceCents: 68000, Currency: "USD", ImageURL: "/img/selene-pendant.jpg"},
		{ID: "p-vesper-hoops", Name: "Vesper Hoops", Category: "earrings", Metal: "yellow gold", Gemstone: "", PriceCents: 39500, Currency: "USD", ImageURL: "/img/vesper-hoops.jpg"},
		{ID: "p-iris-studs", Name: "Iris Sapphire Studs", Category: "earrings", Metal: "white gold", Gemstone: "sapphire", PriceCents: 87000, Currency: "USD", ImageURL: "/img/iris-studs.jpg"},
		{ID: "p-calla-bracelet", Name: "Calla Link Bracelet", Category: "bracelets", Metal: "rose gold", Gemstone: "", PriceCents: 52000, Currency: "USD", ImageURL: "/img/calla-bracelet.jpg"},
	}
	placed := time.Date(2026, 8, 10, 14, 32, 0, 0, time.UTC)
	p.orders["SR-10412"] = Order{
		Number: "SR-10412", Email: "ada@example.com", Status: "shipped",
		PlacedAt: placed, TotalCents: 189000, Currency: "USD",
		Items: []LineItem{{SKU: "p-aurelia-ring", Name: "Aurelia Solitaire Ring", Quantity: 1, PriceCents: 189000}},
	}
	p.orderEvents["SR-10412"] = []OrderEvent{
		{Label: "Order placed", At: placed},
		{Label: "Payment confirmed", At: placed.Add(4 * time.Minute)},
		{Label: "Shipped with FedEx", At: placed.Add(42 * time.Hour)},
	}
}

func (p *MemoryProvider) Facets(ctx context.Context) (Facets, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	cats := map[string]bool{}
	metals := map[string]bool{}
	stones := map[string]bool{}
	for _, pr := range p.products {
		cats[pr.Category] = true
		metals[pr.Metal] = true
		if pr.Gemstone != "" {
			stones[pr.Gemstone] = true
		}
	}
	return Facets{
		Categories: sortedKeys(cats),
		Metals:     sortedKeys(metals),
		Gemstones:  sortedKeys(stones),
		PriceBands: []PriceBand{
			{Label: "Under $500", MinCents: 0, MaxCents: 50000},
			{Label: "$500 – $1,000", MinCents: 50000, MaxCents: 100000},
			{Label: "Over $1,000", MinCents: 100000, MaxCents: 0},
		},
	}, nil
}

func (p *MemoryProvider) SearchProducts(ctx context.Context, f Filters) ([]Product, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Product, 0, len(p.products))
	for _, pr := range p.products {
		if !matchesFilters(pr, f) {
			continue
		}
		out = append(out, pr)
	}
	return out, nil
}

func matchesFilters(pr Product, f Filters) bool {
	if len(f.Categories) > 0 && !containsFold(f.Categories, pr.Category) {
		return false
	}
	if len(f.Metals) > 0 && !containsFold(f.Metals, pr.Metal) {
		return false
	}
	if len(f.Gemstones) > 0 && !containsFold(f.Gemstones, pr.Gemstone) {
		return false
	}
	if f.MaxPriceCents > 0 && pr.PriceCents > f.MaxPriceCents {
		return false
	}
	return true
}

func (p *MemoryProvider) LookupOrder(ctx context.Context, number, email string) (*Order, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	o, ok := p.orders[strings.ToUpper(strings.TrimSpace(number))]
	if !ok || !strings.EqualFold(o.Email, strings.TrimSpace(email)) {
		return nil, ErrNotFound
	}
	cp := o
	cp.Items = append([]LineItem(nil), o.Items...)
	return &cp, nil
}

func (p *MemoryProvider) OrderEvents(ctx context.Context, number string) ([]OrderEvent, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	evs, ok := p.orderEvents[strings.ToUpper(strings.TrimSpace(number))]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]OrderEvent(nil), evs...), nil
}

func (p *MemoryProvider) Shortlist(ctx context.Context, sessionID string) ([]Product, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Product, 0, len(p.shortlists[sessionID]))
	for _, id := range p.shortlists[sessionID] {
		for _, pr := range p.products {
			if pr.ID == id {
				out = append(out, pr)
				break
			}
		}
	}
	return out, nil
}

func (p *MemoryProvider) AddToShortlist(ctx context.Context, sessionID, productID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	found := false
	for _, pr := range p.products {
		if pr.ID == productID {
			found = true
			break
		}
	}
	if !found {
		return ErrNotFound
	}
	for _, id := range p.shortlists[sessionID] {
		if id == productID {
			return nil
		}
	}
	p.shortlists[sessionID] = append(p.shortlists[sessionID], productID)
	return nil
}

func (p *MemoryProvider) RemoveFromShortlist(ctx context.Context, sessionID, productID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := p.shortlists[sessionID]
	for i, id := range ids {
		if id == productID {
			p.shortlists[sessionID] = append(ids[:i], ids[i+1:]...)
			return nil
		}
	}
	return nil
}

func (p *MemoryProvider) CreateEscalation(ctx context.Context, e Escalation) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e.TicketRef == "" {
		e.TicketRef = "SER-" + strings.ToUpper(uuid.NewString()[:8])
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	p.escalations = append(p.escalations, e)
	return e.TicketRef, nil
}

func (p *MemoryProvider) RecordCSAT(ctx context.Context, r CSATResponse) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	p.csat = append(p.csat, r)
	return nil
}

// CSATCount reports how many ratings a session has recorded. Test hook.
func (p *MemoryProvider) CSATCount(sessionID string) int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	n := 0
	for _, r := range p.csat {
		if r.SessionID == sessionID {
			n++
		}
	}
	return n
}

// Escalations returns filed tickets for a session. Test hook.
func (p *MemoryProvider) Escalations(sessionID string) []Escalation {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []Escalation
	for _, e := range p.escalations {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func containsFold(haystack []string, needle string) bool {
	for _, h := range haystack {
		if strings.EqualFold(h, needle) {
			return true
		}
	}
	return false
}
