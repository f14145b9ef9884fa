package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// EquipmentSnapshot describes one piece of equipment for rebate and ROI purposes.
// EfficiencyRating is AFUE percent for furnaces and SEER for air conditioners.
type EquipmentSnapshot struct {
	Category         Category        `json:"category"`
	EfficiencyRating decimal.Decimal `json:"efficiency_rating"`
	Price            decimal.Decimal `json:"price"`
}

// Eligibility decides whether a proposed piece of equipment qualifies for a
// program. It must be pure.
type Eligibility func(proposed EquipmentSnapshot) bool

// MinEfficiency qualifies equipment of the given category whose rating is at
// least threshold.
func MinEfficiency(category Category, threshold decimal.Decimal) Eligibility {
	return func(proposed EquipmentSnapshot) bool {
		return proposed.Category == category && proposed.EfficiencyRating.GreaterThanOrEqual(threshold)
	}
}

// RebateProgram is a named, independently evaluated discount.
type RebateProgram struct {
	Name        string          `json:"name"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Eligibility Eligibility     `json:"-"`
}

// RebateTable is a read-only set of programs.
type RebateTable struct {
	programs []RebateProgram
}

// NewRebateTable validates programs. Names must be unique and non-empty,
// amounts non-negative, and every program needs an eligibility predicate.
func NewRebateTable(programs []RebateProgram) (*RebateTable, error) {
	seen := make(map[string]struct{}, len(programs))
	for _, p := range programs {
		if p.Name == "" {
			return nil, fmt.Errorf("%w: rebate program has an empty name", ErrValidation)
		}
		if _, dup := seen[p.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate rebate program %q", ErrValidation, p.Name)
		}
		seen[p.Name] = struct{}{}
		if p.Amount.IsNegative() {
			return nil, fmt.Errorf("%w: rebate program %q has a negative amount", ErrValidation, p.Name)
		}
		if p.Eligibility == nil {
			return nil, fmt.Errorf("%w: rebate program %q has no eligibility rule", ErrValidation, p.Name)
		}
	}
	return &RebateTable{programs: append([]RebateProgram(nil), programs...)}, nil
}

// Programs returns every program in table order.
func (t *RebateTable) Programs() []RebateProgram {
	return append([]RebateProgram(nil), t.programs...)
}

// Find returns the program with the given name.
func (t *RebateTable) Find(name string) (RebateProgram, error) {
	for _, p := range t.programs {
		if p.Name == name {
			return p, nil
		}
	}
	return RebateProgram{}, fmt.Errorf("%w: no rebate program named %q", ErrNotFound, name)
}

// ApplicableRebates evaluates every program against the proposed equipment.
// Programs stack: every matching program is returned and none excludes another.
func (t *RebateTable) ApplicableRebates(proposed EquipmentSnapshot) []RebateProgram {
	matched := make([]RebateProgram, 0, len(t.programs))
	for _, p := range t.programs {
		if p.Eligibility(proposed) {
			matched = append(matched, p)
		}
	}
	return matched
}

// TotalRebateAmount sums the amounts of the given programs.
func TotalRebateAmount(programs []RebateProgram) decimal.Decimal {
	total := decimal.Zero
	for _, p := range programs {
		total = total.Add(p.Amount)
	}
	return RoundCurrency(total)
}
