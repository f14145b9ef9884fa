// Package pricing is the quote and rebate engine shared by every page and tool
// that prices HVAC work. It is pure: all inputs are explicit, the catalog and
// rebate tables are read-only, and nothing here performs I/O.
package pricing

import "github.com/shopspring/decimal"

// Engine bundles one catalog, one multiplier table and one rebate table.
// It is safe for concurrent use.
type Engine struct {
	catalog     *Catalog
	rebates     *RebateTable
	multipliers *MultiplierTable
	quotes      *QuoteBuilder
	roi         *ROICalculator
}

// Option configures an Engine.
type Option func(*Engine)

// WithMultipliers replaces the default multiplier table.
func WithMultipliers(table *MultiplierTable) Option {
	return func(e *Engine) {
		if table != nil {
			e.multipliers = table
		}
	}
}

// NewEngine wires the components together. A nil rebate table behaves as an
// empty one.
func NewEngine(catalog *Catalog, rebates *RebateTable, opts ...Option) *Engine {
	if rebates == nil {
		rebates = &RebateTable{}
	}
	e := &Engine{
		catalog:     catalog,
		rebates:     rebates,
		multipliers: DefaultMultipliers(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.quotes = NewQuoteBuilder(e.catalog, e.multipliers)
	e.roi = NewROICalculator(e.rebates, e.multipliers)
	return e
}

func (e *Engine) Catalog() *Catalog             { return e.catalog }
func (e *Engine) Rebates() *RebateTable         { return e.rebates }
func (e *Engine) Multipliers() *MultiplierTable { return e.multipliers }

// BuildQuote prices a request against the engine's catalog.
func (e *Engine) BuildQuote(req QuoteRequest) (Quote, error) {
	return e.quotes.Build(req)
}

// ApplicableRebates returns the matching programs and their stacked total.
func (e *Engine) ApplicableRebates(proposed EquipmentSnapshot) ([]RebateProgram, decimal.Decimal) {
	programs := e.rebates.ApplicableRebates(proposed)
	return programs, TotalRebateAmount(programs)
}

// ComputeROI runs a payback analysis with the engine's rebate table.
func (e *Engine) ComputeROI(req ROIRequest) (ROIResult, error) {
	return e.roi.Compute(req)
}
