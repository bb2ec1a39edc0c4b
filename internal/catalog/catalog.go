// Package catalog is the data provider behind the concierge: product search,
// order lookup, shortlist mutation, escalations, and CSAT responses.
package catalog

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when an order or product does not exist (or the
// email on file does not match the order).
var ErrNotFound = errors.New("catalog: not found")

// Amounts are integer cents throughout; currency is an ISO 4217 code.

type Product struct {
	ID         string
	Name       string
	Category   string
	Metal      string
	Gemstone   string
	PriceCents int64
	Currency   string
	ImageURL   string
}

type Filters struct {
	Categories    []string
	Metals        []string
	Gemstones     []string
	MaxPriceCents int64
}

func (f Filters) Empty() bool {
	return len(f.Categories) == 0 && len(f.Metals) == 0 && len(f.Gemstones) == 0 && f.MaxPriceCents == 0
}

type PriceBand struct {
	Label    string
	MinCents int64
	MaxCents int64
}

// Facets are the filter options the product-filter module offers.
type Facets struct {
	Categories []string
	Metals     []string
	Gemstones  []string
	PriceBands []PriceBand
}

type LineItem struct {
	SKU        string
	Name       string
	Quantity   int
	PriceCents int64
}

type Order struct {
	Number     string
	Email      string
	Status     string
	PlacedAt   time.Time
	TotalCents int64
	Currency   string
	Items      []LineItem
}

type OrderEvent struct {
	Label string
	At    time.Time
}

type Escalation struct {
	TicketRef string
	SessionID string
	Name      string
	Email     string
	Notes     string
	CreatedAt time.Time
}

type CSATResponse struct {
	SessionID string
	Rating    string
	CreatedAt time.Time
}

// Reader is the read-only view the intent resolver works against.
type Reader interface {
	Facets(ctx context.Context) (Facets, error)
	SearchProducts(ctx context.Context, f Filters) ([]Product, error)
	// LookupOrder matches both order number and the email on file.
	LookupOrder(ctx context.Context, number, email string) (*Order, error)
	OrderEvents(ctx context.Context, number string) ([]OrderEvent, error)
	Shortlist(ctx context.Context, sessionID string) ([]Product, error)
}

// Provider adds the mutations the action dispatcher needs.
type Provider interface {
	Reader
	AddToShortlist(ctx context.Context, sessionID, productID string) error
	RemoveFromShortlist(ctx context.Context, sessionID, productID string) error
	// CreateEscalation files a stylist ticket and returns its reference.
	CreateEscalation(ctx context.Context, e Escalation) (string, error)
	RecordCSAT(ctx context.Context, r CSATResponse) error
}
