// Package store reads the pricing tables from SQLite and keeps snapshots of
// the quotes handed to customers.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/hvacquote/internal/pricing"
)

// Store is the SQLite-backed source of catalogs, rebate tables and saved quotes.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New wraps an open database. Migrations must already be applied.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// CatalogItem is a catalog row as stored, including inactive entries.
type CatalogItem struct {
	pricing.PricedItem
	SortOrder int  `json:"sort_order"`
	Active    bool `json:"active"`
}

// LoadEngine builds a fresh engine from the current database contents.
func (s *Store) LoadEngine(ctx context.Context, opts ...pricing.Option) (*pricing.Engine, error) {
	catalog, err := s.LoadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	rebates, err := s.LoadRebates(ctx)
	if err != nil {
		return nil, err
	}
	return pricing.NewEngine(catalog, rebates, opts...), nil
}

// LoadCatalog reads active items and every labor rule into an immutable catalog.
func (s *Store) LoadCatalog(ctx context.Context) (*pricing.Catalog, error) {
	rows, err := s.ListItems(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]pricing.PricedItem, 0, len(rows))
	for _, row := range rows {
		if row.Active {
			items = append(items, row.PricedItem)
		}
	}

	rules, err := s.laborRules(ctx)
	if err != nil {
		return nil, err
	}

	catalog, err := pricing.NewCatalog(items, rules)
	if err != nil {
		return nil, fmt.Errorf("build catalog: %w", err)
	}
	return catalog, nil
}

// ListItems returns every catalog row in display order.
func (s *Store) ListItems(ctx context.Context) ([]CatalogItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, display_name, category, match_key, unit_price_cents, unit, size, sort_order, active
		FROM catalog_items
		ORDER BY sort_order ASC, id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query catalog items: %w", err)
	}
	defer rows.Close()

	items := make([]CatalogItem, 0)
	for rows.Next() {
		var (
			item       CatalogItem
			priceCents int64
			size       string
		)
		if err := rows.Scan(
			&item.ID,
			&item.DisplayName,
			&item.Category,
			&item.MatchKey,
			&priceCents,
			&item.Unit,
			&size,
			&item.SortOrder,
			&item.Active,
		); err != nil {
			return nil, fmt.Errorf("scan catalog item: %w", err)
		}
		item.UnitPrice = pricing.FromCents(priceCents)
		item.Size, err = decimal.NewFromString(size)
		if err != nil {
			return nil, fmt.Errorf("catalog item %s: parse size %q: %w", item.ID, size, err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate catalog items: %w", err)
	}

	return items, nil
}

func (s *Store) laborRules(ctx context.Context) ([]pricing.LaborRule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, base_install_cost, per_unit_rate
		FROM labor_rules
		ORDER BY category
	`)
	if err != nil {
		return nil, fmt.Errorf("query labor rules: %w", err)
	}
	defer rows.Close()

	var rules []pricing.LaborRule
	for rows.Next() {
		var (
			rule          pricing.LaborRule
			base, perUnit string
		)
		if err := rows.Scan(&rule.Category, &base, &perUnit); err != nil {
			return nil, fmt.Errorf("scan labor rule: %w", err)
		}
		if rule.BaseInstallCost, err = decimal.NewFromString(base); err != nil {
			return nil, fmt.Errorf("labor rule %s: parse base install cost %q: %w", rule.Category, base, err)
		}
		if rule.PerUnitRate, err = decimal.NewFromString(perUnit); err != nil {
			return nil, fmt.Errorf("labor rule %s: parse per unit rate %q: %w", rule.Category, perUnit, err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate labor rules: %w", err)
	}

	factors, err := s.complexityFactors(ctx)
	if err != nil {
		return nil, err
	}
	for i := range rules {
		rules[i].ComplexityMultipliers = factors[rules[i].Category]
	}

	return rules, nil
}

func (s *Store) complexityFactors(ctx context.Context) (map[pricing.Category]map[pricing.Complexity]decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT category, level, factor FROM labor_complexity_factors`)
	if err != nil {
		return nil, fmt.Errorf("query complexity factors: %w", err)
	}
	defer rows.Close()

	out := make(map[pricing.Category]map[pricing.Complexity]decimal.Decimal)
	for rows.Next() {
		var (
			category pricing.Category
			level    pricing.Complexity
			raw      string
		)
		if err := rows.Scan(&category, &level, &raw); err != nil {
			return nil, fmt.Errorf("scan complexity factor: %w", err)
		}
		factor, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("complexity factor %s/%s: parse %q: %w", category, level, raw, err)
		}
		if out[category] == nil {
			out[category] = make(map[pricing.Complexity]decimal.Decimal)
		}
		out[category][level] = factor
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate complexity factors: %w", err)
	}
	return out, nil
}

// LoadRebates reads the active rebate programs. Each program qualifies equipment
// of its category rated at or above its minimum efficiency.
func (s *Store) LoadRebates(ctx context.Context) (*pricing.RebateTable, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, amount_cents, category, min_efficiency, description
		FROM rebate_programs
		WHERE active = TRUE
		ORDER BY sort_order ASC, name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query rebate programs: %w", err)
	}
	defer rows.Close()

	var programs []pricing.RebateProgram
	for rows.Next() {
		var (
			p           pricing.RebateProgram
			amountCents int64
			category    pricing.Category
			rawMin      string
		)
		if err := rows.Scan(&p.Name, &amountCents, &category, &rawMin, &p.Description); err != nil {
			return nil, fmt.Errorf("scan rebate program: %w", err)
		}
		threshold, err := decimal.NewFromString(rawMin)
		if err != nil {
			return nil, fmt.Errorf("rebate program %q: parse minimum efficiency %q: %w", p.Name, rawMin, err)
		}
		p.Amount = pricing.FromCents(amountCents)
		p.Eligibility = pricing.MinEfficiency(category, threshold)
		programs = append(programs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rebate programs: %w", err)
	}

	table, err := pricing.NewRebateTable(programs)
	if err != nil {
		return nil, fmt.Errorf("build rebate table: %w", err)
	}
	return table, nil
}
