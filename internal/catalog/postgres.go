package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"seraphine-concierge-backend/internal/db"
)

// PostgresProvider backs the concierge with the storefront database.
// Schema lives under migrations/.
type PostgresProvider struct {
	db *db.DB
}

func NewPostgresProvider(database *db.DB) *PostgresProvider {
	return &PostgresProvider{db: database}
}

func (p *PostgresProvider) Facets(ctx context.Context) (Facets, error) {
	f := Facets{
		PriceBands: []PriceBand{
			{Label: "Under $500", MinCents: 0, MaxCents: 50000},
			{Label: "$500 – $1,000", MinCents: 50000, MaxCents: 100000},
			{Label: "Over $1,000", MinCents: 100000, MaxCents: 0},
		},
	}
	var err error
	if f.Categories, err = p.distinct(ctx, "category"); err != nil {
		return Facets{}, err
	}
	if f.Metals, err = p.distinct(ctx, "metal"); err != nil {
		return Facets{}, err
	}
	if f.Gemstones, err = p.distinct(ctx, "gemstone"); err != nil {
		return Facets{}, err
	}
	return f, nil
}

func (p *PostgresProvider) distinct(ctx context.Context, column string) ([]string, error) {
	// column names come from a fixed call-site set, never from input
	query := fmt.Sprintf("SELECT DISTINCT %s FROM products WHERE %s <> '' ORDER BY %s", column, column, column)
	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s facet: %w", column, err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (p *PostgresProvider) SearchProducts(ctx context.Context, f Filters) ([]Product, error) {
	query := `
		SELECT id, name, category, metal, gemstone, price_cents, currency, image_url
		FROM products
		WHERE (cardinality($1::text[]) = 0 OR category = ANY($1::text[]))
		  AND (cardinality($2::text[]) = 0 OR metal = ANY($2::text[]))
		  AND (cardinality($3::text[]) = 0 OR gemstone = ANY($3::text[]))
		  AND ($4 = 0 OR price_cents <= $4)
		ORDER BY price_cents DESC
		LIMIT 24
	`
	rows, err := p.db.QueryContext(ctx, query,
		pq.Array(orEmpty(f.Categories)), pq.Array(orEmpty(f.Metals)), pq.Array(orEmpty(f.Gemstones)), f.MaxPriceCents)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}
	defer rows.Close()
	return scanProducts(rows)
}

// orEmpty keeps nil slices from arriving as SQL NULL arrays.
func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func scanProducts(rows *sql.Rows) ([]Product, error) {
	var out []Product
	for rows.Next() {
		var pr Product
		if err := rows.Scan(&pr.ID, &pr.Name, &pr.Category, &pr.Metal, &pr.Gemstone,
			&pr.PriceCents, &pr.Currency, &pr.ImageURL); err != nil {
			return nil, err
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}

func (p *PostgresProvider) LookupOrder(ctx context.Context, number, email string) (*Order, error) {
	var o Order
	err := p.db.QueryRowContext(ctx, `
		SELECT number, email, status, placed_at, total_cents, currency
		FROM orders
		WHERE number = $1 AND lower(email) = lower($2)
	`, strings.ToUpper(strings.TrimSpace(number)), strings.TrimSpace(email)).Scan(
		&o.Number, &o.Email, &o.Status, &o.PlacedAt, &o.TotalCents, &o.Currency,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up order: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT sku, name, quantity, price_cents FROM order_items WHERE order_number = $1
	`, o.Number)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var li LineItem
		if err := rows.Scan(&li.SKU, &li.Name, &li.Quantity, &li.PriceCents); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, li)
	}
	return &o, rows.Err()
}

func (p *PostgresProvider) OrderEvents(ctx context.Context, number string) ([]OrderEvent, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT label, occurred_at FROM order_events
		WHERE order_number = $1 ORDER BY occurred_at
	`, strings.ToUpper(strings.TrimSpace(number)))
	if err != nil {
		return nil, fmt.Errorf("failed to load order events: %w", err)
	}
	defer rows.Close()
	var out []OrderEvent
	for rows.Next() {
		var ev OrderEvent
		if err := rows.Scan(&ev.Label, &ev.At); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, rows.Err()
}

func (p *PostgresProvider) Shortlist(ctx context.Context, sessionID string) ([]Product, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT pr.id, pr.name, pr.category, pr.metal, pr.gemstone, pr.price_cents, pr.currency, pr.image_url
		FROM shortlist_items si
		JOIN products pr ON pr.id = si.product_id
		WHERE si.session_id = $1
		ORDER BY si.created_at
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load shortlist: %w", err)
	}
	defer rows.Close()
	return scanProducts(rows)
}

func (p *PostgresProvider) AddToShortlist(ctx context.Context, sessionID, productID string) error {
	res, err := p.db.ExecContext(ctx, `
		INSERT INTO shortlist_items (session_id, product_id, created_at)
		SELECT $1, id, NOW() FROM products WHERE id = $2
		ON CONFLICT (session_id, product_id) DO NOTHING
	`, sessionID, productID)
	if err != nil {
		return fmt.Errorf("failed to add to shortlist: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Either unknown product or already shortlisted; only the former is an error.
		var exists bool
		if err := p.db.QueryRowContext(ctx,
			"SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)", productID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
	}
	return nil
}

func (p *PostgresProvider) RemoveFromShortlist(ctx context.Context, sessionID, productID string) error {
	_, err := p.db.ExecContext(ctx,
		"DELETE FROM shortlist_items WHERE session_id = $1 AND product_id = $2", sessionID, productID)
	if err != nil {
		return fmt.Errorf("failed to remove from shortlist: %w", err)
	}
	return nil
}

func (p *PostgresProvider) CreateEscalation(ctx context.Context, e Escalation) (string, error) {
	if e.TicketRef == "" {
		e.TicketRef = "SER-" + strings.ToUpper(uuid.NewString()[:8])
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO escalations (ticket_ref, session_id, name, email, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, e.TicketRef, e.SessionID, e.Name, e.Email, e.Notes, e.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("failed to create escalation: %w", err)
	}
	return e.TicketRef, nil
}

func (p *PostgresProvider) RecordCSAT(ctx context.Context, r CSATResponse) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO csat_responses (session_id, rating, created_at) VALUES ($1, $2, $3)
	`, r.SessionID, r.Rating, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to record csat response: %w", err)
	}
	return nil
}
