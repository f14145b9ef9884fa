package pricing

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// LineKind classifies a quote line.
type LineKind string

const (
	LineEquipment LineKind = "equipment"
	LineLabor     LineKind = "labor"
	LineMaterial  LineKind = "material"
)

// LineItem is one priced row of a quote. Its total is always the rounded
// product of quantity and unit price and cannot be set independently.
type LineItem struct {
	kind       LineKind
	name       string
	quantity   decimal.Decimal
	unitPrice  decimal.Decimal
	totalPrice decimal.Decimal
}

// NewLineItem builds a line item and computes its total.
func NewLineItem(kind LineKind, name string, quantity, unitPrice decimal.Decimal) LineItem {
	return LineItem{
		kind:       kind,
		name:       name,
		quantity:   quantity,
		unitPrice:  unitPrice,
		totalPrice: RoundCurrency(quantity.Mul(unitPrice)),
	}
}

func (l LineItem) Kind() LineKind              { return l.kind }
func (l LineItem) Name() string                { return l.name }
func (l LineItem) Quantity() decimal.Decimal   { return l.quantity }
func (l LineItem) UnitPrice() decimal.Decimal  { return l.unitPrice }
func (l LineItem) TotalPrice() decimal.Decimal { return l.totalPrice }

type lineItemJSON struct {
	Kind       LineKind        `json:"kind"`
	Name       string          `json:"name"`
	Quantity   decimal.Decimal `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

func (l LineItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(lineItemJSON{
		Kind:       l.kind,
		Name:       l.name,
		Quantity:   l.quantity,
		UnitPrice:  l.unitPrice,
		TotalPrice: l.totalPrice,
	})
}

// Quote is an ordered, immutable list of line items.
type Quote struct {
	items      []LineItem
	grandTotal decimal.Decimal
}

// NewQuote copies items and computes the grand total once from their totals.
func NewQuote(items []LineItem) Quote {
	copied := append([]LineItem(nil), items...)
	sum := decimal.Zero
	for _, item := range copied {
		sum = sum.Add(item.totalPrice)
	}
	return Quote{items: copied, grandTotal: RoundCurrency(sum)}
}

// Items returns a copy of the line items in quote order.
func (q Quote) Items() []LineItem {
	return append([]LineItem(nil), q.items...)
}

func (q Quote) Len() int                    { return len(q.items) }
func (q Quote) GrandTotal() decimal.Decimal { return q.grandTotal }

func (q Quote) MarshalJSON() ([]byte, error) {
	items := q.items
	if items == nil {
		items = []LineItem{}
	}
	return json.Marshal(struct {
		Items      []LineItem      `json:"items"`
		GrandTotal decimal.Decimal `json:"grand_total"`
	}{Items: items, GrandTotal: q.grandTotal})
}

// Selection is one user choice from the catalog. Equipment may be picked either
// by MatchKey or by Size and Tier. A zero Quantity on equipment means one unit.
type Selection struct {
	Category Category        `json:"category"`
	MatchKey string          `json:"match_key,omitempty"`
	Size     decimal.Decimal `json:"size"`
	Tier     string          `json:"tier,omitempty"`
	Quantity decimal.Decimal `json:"quantity"`
}

// QuoteRequest is the full input of a quote build.
type QuoteRequest struct {
	Selections   []Selection     `json:"selections"`
	Complexity   Complexity      `json:"complexity"`
	Urgency      Urgency         `json:"urgency,omitempty"`
	DuctworkFeet decimal.Decimal `json:"ductwork_feet"`
}

// resolvedSelection is a Selection after validation.
type resolvedSelection struct {
	Selection
	key      string
	quantity decimal.Decimal
}

// QuoteBuilder assembles quotes from a catalog and a multiplier table.
type QuoteBuilder struct {
	catalog     *Catalog
	multipliers *MultiplierTable
}

// NewQuoteBuilder returns a builder. A nil table means DefaultMultipliers.
func NewQuoteBuilder(catalog *Catalog, multipliers *MultiplierTable) *QuoteBuilder {
	if multipliers == nil {
		multipliers = DefaultMultipliers()
	}
	return &QuoteBuilder{catalog: catalog, multipliers: multipliers}
}

// Build prices a request. Lines are ordered as: each equipment item followed by
// its install labor, then ductwork, then materials and other ad-hoc items.
// Any lookup or validation failure aborts the whole build.
func (b *QuoteBuilder) Build(req QuoteRequest) (Quote, error) {
	complexity, err := ParseComplexity(string(req.Complexity))
	if err != nil {
		return Quote{}, err
	}
	urgency, err := ParseUrgency(string(req.Urgency))
	if err != nil {
		return Quote{}, err
	}
	if req.DuctworkFeet.IsNegative() {
		return Quote{}, fmt.Errorf("%w: ductwork length must not be negative, got %s", ErrValidation, req.DuctworkFeet)
	}

	equipment, adHoc, err := resolveSelections(req.Selections)
	if err != nil {
		return Quote{}, err
	}

	urgencyFactor, err := b.multipliers.Urgency(urgency)
	if err != nil {
		return Quote{}, err
	}

	lines := make([]LineItem, 0, 2*len(equipment)+len(adHoc)+1)

	for _, sel := range equipment {
		item, err := b.catalog.FindItem(sel.Category, sel.key)
		if err != nil {
			return Quote{}, err
		}
		labor, err := b.installLabor(sel, item, complexity, urgencyFactor)
		if err != nil {
			return Quote{}, err
		}
		lines = append(lines,
			NewLineItem(LineEquipment, item.DisplayName, sel.quantity, item.UnitPrice),
			NewLineItem(LineLabor, "Installation: "+item.DisplayName, sel.quantity, labor),
		)
	}

	if req.DuctworkFeet.IsPositive() {
		perFoot, err := b.ductworkRate(complexity)
		if err != nil {
			return Quote{}, err
		}
		lines = append(lines, NewLineItem(LineLabor, "Ductwork installation", req.DuctworkFeet, perFoot))
	}

	for _, sel := range adHoc {
		item, err := b.catalog.FindItem(sel.Category, sel.key)
		if err != nil {
			return Quote{}, err
		}
		kind := LineMaterial
		if sel.Category == CategoryLabor {
			kind = LineLabor
		}
		lines = append(lines, NewLineItem(kind, item.DisplayName, sel.quantity, item.UnitPrice))
	}

	return NewQuote(lines), nil
}

// resolveSelections validates every selection before any pricing runs and
// splits them into equipment and ad-hoc groups, keeping input order.
func resolveSelections(selections []Selection) (equipment, adHoc []resolvedSelection, err error) {
	for i, sel := range selections {
		if _, err := ParseCategory(string(sel.Category)); err != nil {
			return nil, nil, fmt.Errorf("selection %d: %w", i, err)
		}

		r := resolvedSelection{Selection: sel, key: sel.MatchKey, quantity: sel.Quantity}
		if sel.Category.IsEquipment() && r.quantity.IsZero() {
			r.quantity = decimal.NewFromInt(1)
		}
		if !r.quantity.IsPositive() {
			return nil, nil, fmt.Errorf("%w: selection %d: quantity must be positive, got %s", ErrValidation, i, sel.Quantity)
		}
		if sel.Size.IsNegative() {
			return nil, nil, fmt.Errorf("%w: selection %d: size must not be negative, got %s", ErrValidation, i, sel.Size)
		}

		if r.key == "" {
			if !sel.Category.IsEquipment() || !sel.Size.IsPositive() || sel.Tier == "" {
				return nil, nil, fmt.Errorf("%w: selection %d: a match key or a size and tier is required", ErrValidation, i)
			}
			r.key = EquipmentKey(sel.Size, sel.Tier)
		}

		if sel.Category.IsEquipment() {
			equipment = append(equipment, r)
		} else {
			adHoc = append(adHoc, r)
		}
	}
	return equipment, adHoc, nil
}

func (b *QuoteBuilder) complexityFactor(rule LaborRule, level Complexity) (decimal.Decimal, error) {
	if f, ok := rule.ComplexityFactor(level); ok {
		return f, nil
	}
	return b.multipliers.Complexity(level)
}

// installLabor computes round((base + rate × size) × complexity × urgency, 2)
// for one unit of equipment.
func (b *QuoteBuilder) installLabor(sel resolvedSelection, item PricedItem, complexity Complexity, urgencyFactor decimal.Decimal) (decimal.Decimal, error) {
	rule, err := b.catalog.LaborRule(sel.Category)
	if err != nil {
		return decimal.Decimal{}, err
	}
	complexityFactor, err := b.complexityFactor(rule, complexity)
	if err != nil {
		return decimal.Decimal{}, err
	}

	size, err := laborSize(sel, item)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if !size.IsPositive() {
		return decimal.Decimal{}, fmt.Errorf("%w: %s item %q has no size to price labor from", ErrValidation, item.Category, item.MatchKey)
	}

	base := rule.BaseInstallCost.Add(rule.PerUnitRate.Mul(size))
	return RoundCurrency(base.Mul(complexityFactor).Mul(urgencyFactor)), nil
}

// laborSize is the size that found the item and prices its labor. A selection
// size that disagrees with the rated size of the item it resolved to is rejected.
func laborSize(sel resolvedSelection, item PricedItem) (decimal.Decimal, error) {
	switch {
	case !item.Size.IsPositive():
		return sel.Size, nil
	case sel.Size.IsPositive() && !sel.Size.Equal(item.Size):
		return decimal.Decimal{}, fmt.Errorf("%w: %s item %q is rated %s, selection asks for size %s",
			ErrValidation, item.Category, item.MatchKey, item.Size, sel.Size)
	default:
		return item.Size, nil
	}
}

// ductworkRate is the per-foot ductwork price after the complexity factor.
func (b *QuoteBuilder) ductworkRate(complexity Complexity) (decimal.Decimal, error) {
	rule, err := b.catalog.LaborRule(CategoryLabor)
	if err != nil {
		return decimal.Decimal{}, err
	}
	complexityFactor, err := b.complexityFactor(rule, complexity)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return rule.PerUnitRate.Mul(complexityFactor), nil
}
