package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Simplici0/hvacquote/internal/pricing"
)

const timestampLayout = "2006-01-02 15:04:05"

// likeEscaper makes LIKE wildcards in a search term match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// QuoteMeta is the context kept next to a quote snapshot.
type QuoteMeta struct {
	Title      string             `json:"title"`
	Notes      string             `json:"notes"`
	Complexity pricing.Complexity `json:"complexity"`
	Urgency    pricing.Urgency    `json:"urgency"`
}

// SavedQuote is a persisted quote. Its lines are the ones computed at save time;
// loading it never reprices against the current catalog.
type SavedQuote struct {
	ID        string        `json:"id"`
	CreatedAt time.Time     `json:"created_at"`
	Meta      QuoteMeta     `json:"meta"`
	Quote     pricing.Quote `json:"quote"`
}

// QuoteSummary is one row of the saved quotes list.
type QuoteSummary struct {
	ID         string          `json:"id"`
	CreatedAt  time.Time       `json:"created_at"`
	Title      string          `json:"title"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

// SaveQuote stores a snapshot of q with a new ID.
func (s *Store) SaveQuote(ctx context.Context, q pricing.Quote, meta QuoteMeta) (SavedQuote, error) {
	saved := SavedQuote{
		ID:        uuid.New().String(),
		CreatedAt: s.now().UTC().Truncate(time.Second),
		Meta:      meta,
		Quote:     q,
	}
	if saved.Meta.Urgency == "" {
		saved.Meta.Urgency = pricing.UrgencyStandard
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return SavedQuote{}, fmt.Errorf("begin save quote transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO quotes (id, created_at, title, notes, complexity, urgency, grand_total_cents)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		saved.ID,
		saved.CreatedAt.Format(timestampLayout),
		nullableText(meta.Title),
		nullableText(meta.Notes),
		string(saved.Meta.Complexity),
		string(saved.Meta.Urgency),
		pricing.ToCents(q.GrandTotal()),
	)
	if err != nil {
		return SavedQuote{}, fmt.Errorf("insert quote: %w", err)
	}

	for i, line := range q.Items() {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO quote_lines (quote_id, position, kind, name, quantity, unit_price)
			VALUES (?, ?, ?, ?, ?, ?)
		`, saved.ID, i, string(line.Kind()), line.Name(), line.Quantity().String(), line.UnitPrice().String())
		if err != nil {
			return SavedQuote{}, fmt.Errorf("insert quote line %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return SavedQuote{}, fmt.Errorf("commit save quote transaction: %w", err)
	}

	return saved, nil
}

// GetQuote loads a saved quote. Unknown IDs return pricing.ErrNotFound.
func (s *Store) GetQuote(ctx context.Context, id string) (SavedQuote, error) {
	var (
		saved      SavedQuote
		createdAt  string
		totalCents int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT
			id,
			strftime('%Y-%m-%d %H:%M:%S', created_at),
			COALESCE(title, ''),
			COALESCE(notes, ''),
			complexity,
			urgency,
			grand_total_cents
		FROM quotes
		WHERE id = ?
	`, id).Scan(&saved.ID, &createdAt, &saved.Meta.Title, &saved.Meta.Notes, &saved.Meta.Complexity, &saved.Meta.Urgency, &totalCents)
	if errors.Is(err, sql.ErrNoRows) {
		return SavedQuote{}, fmt.Errorf("%w: quote %s", pricing.ErrNotFound, id)
	}
	if err != nil {
		return SavedQuote{}, fmt.Errorf("query quote %s: %w", id, err)
	}

	if saved.CreatedAt, err = time.Parse(timestampLayout, createdAt); err != nil {
		return SavedQuote{}, fmt.Errorf("quote %s: parse created_at %q: %w", id, createdAt, err)
	}

	lines, err := s.quoteLines(ctx, id)
	if err != nil {
		return SavedQuote{}, err
	}
	saved.Quote = pricing.NewQuote(lines)

	if got := pricing.ToCents(saved.Quote.GrandTotal()); got != totalCents {
		return SavedQuote{}, fmt.Errorf("quote %s: lines total %d cents, stored total is %d cents", id, got, totalCents)
	}

	return saved, nil
}

func (s *Store) quoteLines(ctx context.Context, quoteID string) ([]pricing.LineItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, name, quantity, unit_price
		FROM quote_lines
		WHERE quote_id = ?
		ORDER BY position ASC
	`, quoteID)
	if err != nil {
		return nil, fmt.Errorf("query quote lines: %w", err)
	}
	defer rows.Close()

	lines := make([]pricing.LineItem, 0)
	for rows.Next() {
		var (
			kind                   pricing.LineKind
			name, rawQty, rawPrice string
		)
		if err := rows.Scan(&kind, &name, &rawQty, &rawPrice); err != nil {
			return nil, fmt.Errorf("scan quote line: %w", err)
		}
		qty, err := decimal.NewFromString(rawQty)
		if err != nil {
			return nil, fmt.Errorf("quote line %q: parse quantity %q: %w", name, rawQty, err)
		}
		unitPrice, err := decimal.NewFromString(rawPrice)
		if err != nil {
			return nil, fmt.Errorf("quote line %q: parse unit price %q: %w", name, rawPrice, err)
		}
		lines = append(lines, pricing.NewLineItem(kind, name, qty, unitPrice))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quote lines: %w", err)
	}
	return lines, nil
}

// ListQuotes returns saved quotes newest first. A non-empty query keeps only
// quotes whose title or notes contain it.
func (s *Store) ListQuotes(ctx context.Context, query string) ([]QuoteSummary, error) {
	search := "%" + likeEscaper.Replace(query) + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			id,
			strftime('%Y-%m-%d %H:%M:%S', created_at),
			COALESCE(title, ''),
			grand_total_cents
		FROM quotes
		WHERE (? = '' OR COALESCE(title, '') LIKE ? ESCAPE '\' OR COALESCE(notes, '') LIKE ? ESCAPE '\')
		ORDER BY datetime(created_at) DESC, rowid DESC
	`, query, search, search)
	if err != nil {
		return nil, fmt.Errorf("query quotes: %w", err)
	}
	defer rows.Close()

	quotes := make([]QuoteSummary, 0)
	for rows.Next() {
		var (
			item       QuoteSummary
			createdAt  string
			totalCents int64
		)
		if err := rows.Scan(&item.ID, &createdAt, &item.Title, &totalCents); err != nil {
			return nil, fmt.Errorf("scan quote: %w", err)
		}
		if item.CreatedAt, err = time.Parse(timestampLayout, createdAt); err != nil {
			return nil, fmt.Errorf("quote %s: parse created_at %q: %w", item.ID, createdAt, err)
		}
		item.GrandTotal = pricing.FromCents(totalCents)
		quotes = append(quotes, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quotes: %w", err)
	}

	return quotes, nil
}

func nullableText(s string) any {
	if s == "" {
		return nil
	}
	return s
}
