package pricing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Category classifies a catalog entry.
type Category string

const (
	CategoryFurnace  Category = "furnace"
	CategoryAC       Category = "ac"
	CategoryMaterial Category = "material"
	CategoryFitting  Category = "fitting"
	CategoryLabor    Category = "labor"
)

var categories = []Category{CategoryFurnace, CategoryAC, CategoryMaterial, CategoryFitting, CategoryLabor}

// ParseCategory validates a raw category string.
func ParseCategory(raw string) (Category, error) {
	for _, c := range categories {
		if string(c) == raw {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: unknown category %q", ErrValidation, raw)
}

// IsEquipment reports whether items of this category carry an install labor line.
func (c Category) IsEquipment() bool {
	return c == CategoryFurnace || c == CategoryAC
}

// Unit is the pricing unit of a catalog entry.
type Unit string

const (
	UnitEach       Unit = "each"
	UnitLinearFoot Unit = "linear-foot"
	UnitTon        Unit = "ton"
	UnitBTU        Unit = "BTU"
)

func parseUnit(raw Unit) error {
	switch raw {
	case UnitEach, UnitLinearFoot, UnitTon, UnitBTU:
		return nil
	}
	return fmt.Errorf("%w: unknown unit %q", ErrValidation, raw)
}

// PricedItem is a single catalog entry.
type PricedItem struct {
	ID          string          `json:"id"`
	DisplayName string          `json:"display_name"`
	Category    Category        `json:"category"`
	MatchKey    string          `json:"match_key"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Unit        Unit            `json:"unit"`
	// Size is the rated BTU (furnaces) or tonnage (AC) of equipment; zero otherwise.
	Size decimal.Decimal `json:"size"`
}

// LaborRule prices installation work for one category.
type LaborRule struct {
	Category        Category        `json:"category"`
	BaseInstallCost decimal.Decimal `json:"base_install_cost"`
	// PerUnitRate is charged per BTU, per ton or per linear foot depending on the category.
	PerUnitRate           decimal.Decimal                `json:"per_unit_rate"`
	ComplexityMultipliers map[Complexity]decimal.Decimal `json:"complexity_multipliers,omitempty"`
}

// ComplexityFactor returns the rule-specific factor for a level, if the rule defines one.
func (r LaborRule) ComplexityFactor(level Complexity) (decimal.Decimal, bool) {
	f, ok := r.ComplexityMultipliers[level]
	return f, ok
}

func (r LaborRule) clone() LaborRule {
	factors := make(map[Complexity]decimal.Decimal, len(r.ComplexityMultipliers))
	for level, f := range r.ComplexityMultipliers {
		factors[level] = f
	}
	r.ComplexityMultipliers = factors
	return r
}

// EquipmentKey builds the match key used for sized equipment, e.g. "60000/92% AFUE".
func EquipmentKey(size decimal.Decimal, tier string) string {
	return size.String() + "/" + strings.TrimSpace(tier)
}

type catalogKey struct {
	category Category
	matchKey string
}

// Catalog is an immutable snapshot of priced items and labor rules. It is safe
// to share between goroutines; replacing prices means building a new Catalog.
type Catalog struct {
	items map[catalogKey]PricedItem
	order []catalogKey
	labor map[Category]LaborRule
}

// NewCatalog validates and indexes the given records.
func NewCatalog(items []PricedItem, rules []LaborRule) (*Catalog, error) {
	c := &Catalog{
		items: make(map[catalogKey]PricedItem, len(items)),
		order: make([]catalogKey, 0, len(items)),
		labor: make(map[Category]LaborRule, len(rules)),
	}

	for _, item := range items {
		if _, err := ParseCategory(string(item.Category)); err != nil {
			return nil, fmt.Errorf("item %q: %w", item.ID, err)
		}
		if err := parseUnit(item.Unit); err != nil {
			return nil, fmt.Errorf("item %q: %w", item.ID, err)
		}
		if item.MatchKey == "" {
			return nil, fmt.Errorf("%w: item %q has an empty match key", ErrValidation, item.ID)
		}
		if item.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("%w: item %q has a negative price", ErrValidation, item.ID)
		}
		key := catalogKey{category: item.Category, matchKey: item.MatchKey}
		if _, dup := c.items[key]; dup {
			return nil, fmt.Errorf("%w: duplicate %s item %q", ErrValidation, item.Category, item.MatchKey)
		}
		c.items[key] = item
		c.order = append(c.order, key)
	}

	for _, rule := range rules {
		if _, err := ParseCategory(string(rule.Category)); err != nil {
			return nil, fmt.Errorf("labor rule: %w", err)
		}
		if _, dup := c.labor[rule.Category]; dup {
			return nil, fmt.Errorf("%w: duplicate labor rule for %s", ErrValidation, rule.Category)
		}
		if rule.BaseInstallCost.IsNegative() || rule.PerUnitRate.IsNegative() {
			return nil, fmt.Errorf("%w: labor rule for %s has a negative rate", ErrValidation, rule.Category)
		}

		if err := validateRuleFactors(rule); err != nil {
			return nil, err
		}
		c.labor[rule.Category] = rule.clone()
	}

	return c, nil
}

// validateRuleFactors checks that a rule either leaves complexity to the
// multiplier table or defines every level with non-decreasing factors >= 1.0.
func validateRuleFactors(rule LaborRule) error {
	if len(rule.ComplexityMultipliers) == 0 {
		return nil
	}
	for level := range rule.ComplexityMultipliers {
		if _, err := ParseComplexity(string(level)); err != nil {
			return fmt.Errorf("labor rule for %s: %w", rule.Category, err)
		}
	}

	prev := decimal.NewFromInt(1)
	for _, raw := range Levels(KindInstallComplexity) {
		f, ok := rule.ComplexityMultipliers[Complexity(raw)]
		if !ok {
			return fmt.Errorf("%w: labor rule for %s is missing the %s complexity factor", ErrValidation, rule.Category, raw)
		}
		if f.LessThan(prev) {
			return fmt.Errorf("%w: %s complexity factor for %s must be at least %s", ErrValidation, raw, rule.Category, prev)
		}
		prev = f
	}
	return nil
}

// FindItem returns the entry whose match key equals matchKey exactly. There is
// no nearest-size fallback.
func (c *Catalog) FindItem(category Category, matchKey string) (PricedItem, error) {
	item, ok := c.items[catalogKey{category: category, matchKey: matchKey}]
	if !ok {
		return PricedItem{}, fmt.Errorf("%w: no %s item matches %q", ErrNotFound, category, matchKey)
	}
	return item, nil
}

// LaborRule returns the labor rule for a category.
func (c *Catalog) LaborRule(category Category) (LaborRule, error) {
	rule, ok := c.labor[category]
	if !ok {
		return LaborRule{}, fmt.Errorf("%w: no labor rule for %s", ErrNotFound, category)
	}
	return rule.clone(), nil
}

// Items returns every entry in load order.
func (c *Catalog) Items() []PricedItem {
	out := make([]PricedItem, 0, len(c.order))
	for _, key := range c.order {
		out = append(out, c.items[key])
	}
	return out
}

// ItemsByCategory returns the entries of one category in load order.
func (c *Catalog) ItemsByCategory(category Category) []PricedItem {
	var out []PricedItem
	for _, key := range c.order {
		if key.category == category {
			out = append(out, c.items[key])
		}
	}
	return out
}

// LaborRules returns the labor rules sorted by category.
func (c *Catalog) LaborRules() []LaborRule {
	out := make([]LaborRule, 0, len(c.labor))
	for _, rule := range c.labor {
		out = append(out, rule.clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}
