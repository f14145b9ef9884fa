package pricing

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// dampeningFactor discounts theoretical efficiency gains toward real-world
	// savings. It is fixed and not exposed for configuration.
	dampeningFactor = decimal.RequireFromString("0.8")

	// baselineMonthlyBill is the medium-home bill used when only floor area is known.
	baselineMonthlyBill = decimal.NewFromInt(150)

	monthsPerYear = decimal.NewFromInt(12)
	horizonYears  = decimal.NewFromInt(10)
	gainPlaces    = int32(4)
	paybackPlaces = int32(2)
)

// Payback is either a number of years or the no-payback state. It never
// carries a sentinel number for "never".
type Payback struct {
	years       decimal.Decimal
	recoverable bool
}

// PaybackIn returns a recoverable payback horizon.
func PaybackIn(years decimal.Decimal) Payback {
	return Payback{years: years, recoverable: true}
}

// NoPayback is the state where savings never offset the investment.
func NoPayback() Payback {
	return Payback{}
}

// Years returns the horizon and whether it exists.
func (p Payback) Years() (decimal.Decimal, bool) {
	return p.years, p.recoverable
}

func (p Payback) Recoverable() bool { return p.recoverable }

func (p Payback) String() string {
	if !p.recoverable {
		return "no payback"
	}
	return p.years.StringFixed(paybackPlaces) + " years"
}

func (p Payback) MarshalJSON() ([]byte, error) {
	if !p.recoverable {
		return json.Marshal(struct {
			Status string `json:"status"`
		}{Status: "none"})
	}
	return json.Marshal(struct {
		Status string          `json:"status"`
		Years  decimal.Decimal `json:"years"`
	}{Status: "payback", Years: p.years})
}

// ROIRequest is the input of a payback analysis. HomeSizeSqFt is optional and
// only used to estimate the bill when MonthlyBill is zero.
type ROIRequest struct {
	Current      EquipmentSnapshot `json:"current"`
	Proposed     EquipmentSnapshot `json:"proposed"`
	MonthlyBill  decimal.Decimal   `json:"monthly_bill"`
	HomeSizeSqFt decimal.Decimal   `json:"home_size_sq_ft"`
}

// ROIResult is recomputed in full on every call.
type ROIResult struct {
	GrossCost         decimal.Decimal `json:"gross_cost"`
	TotalRebates      decimal.Decimal `json:"total_rebates"`
	NetCost           decimal.Decimal `json:"net_cost"`
	MonthlyBill       decimal.Decimal `json:"monthly_bill"`
	HomeSize          HomeSize        `json:"home_size,omitempty"`
	EfficiencyGain    decimal.Decimal `json:"efficiency_gain"`
	AnnualSavings     decimal.Decimal `json:"annual_savings"`
	Payback           Payback         `json:"payback"`
	TenYearNetSavings decimal.Decimal `json:"ten_year_net_savings"`
	ApplicableRebates []RebateProgram `json:"applicable_rebates"`
}

// ROICalculator turns an upgrade scenario into a payback analysis.
type ROICalculator struct {
	rebates     *RebateTable
	multipliers *MultiplierTable
}

// NewROICalculator returns a calculator. A nil table means DefaultMultipliers.
func NewROICalculator(rebates *RebateTable, multipliers *MultiplierTable) *ROICalculator {
	if multipliers == nil {
		multipliers = DefaultMultipliers()
	}
	return &ROICalculator{rebates: rebates, multipliers: multipliers}
}

// Compute runs the analysis. Non-positive ratings and mismatched equipment
// categories are rejected with ErrInvalidInput.
func (c *ROICalculator) Compute(req ROIRequest) (ROIResult, error) {
	current, proposed := req.Current, req.Proposed

	if !current.EfficiencyRating.IsPositive() {
		return ROIResult{}, fmt.Errorf("%w: current efficiency rating must be positive, got %s", ErrInvalidInput, current.EfficiencyRating)
	}
	if !proposed.EfficiencyRating.IsPositive() {
		return ROIResult{}, fmt.Errorf("%w: proposed efficiency rating must be positive, got %s", ErrInvalidInput, proposed.EfficiencyRating)
	}
	if !proposed.Category.IsEquipment() {
		return ROIResult{}, fmt.Errorf("%w: %q is not an equipment category", ErrInvalidInput, proposed.Category)
	}
	if current.Category != proposed.Category {
		return ROIResult{}, fmt.Errorf("%w: cannot compare %s ratings with %s ratings", ErrInvalidInput, current.Category, proposed.Category)
	}
	if proposed.Price.IsNegative() {
		return ROIResult{}, fmt.Errorf("%w: proposed price must not be negative, got %s", ErrInvalidInput, proposed.Price)
	}

	bill, homeSize, err := c.monthlyBill(req)
	if err != nil {
		return ROIResult{}, err
	}

	gain := proposed.EfficiencyRating.Sub(current.EfficiencyRating).Div(current.EfficiencyRating)
	annualSavings := RoundCurrency(bill.Mul(monthsPerYear).Mul(gain).Mul(dampeningFactor))

	rebates := c.rebates.ApplicableRebates(proposed)
	totalRebates := TotalRebateAmount(rebates)
	grossCost := RoundCurrency(proposed.Price)
	netCost := grossCost.Sub(totalRebates)

	payback := NoPayback()
	if annualSavings.IsPositive() {
		payback = PaybackIn(netCost.DivRound(annualSavings, paybackPlaces))
	}

	return ROIResult{
		GrossCost:         grossCost,
		TotalRebates:      totalRebates,
		NetCost:           netCost,
		MonthlyBill:       bill,
		HomeSize:          homeSize,
		EfficiencyGain:    gain.Round(gainPlaces),
		AnnualSavings:     annualSavings,
		Payback:           payback,
		TenYearNetSavings: annualSavings.Mul(horizonYears).Sub(netCost),
		ApplicableRebates: rebates,
	}, nil
}

// monthlyBill returns the bill to use. A zero bill is estimated from the home
// size when one is given and stays zero otherwise, which yields no savings.
func (c *ROICalculator) monthlyBill(req ROIRequest) (decimal.Decimal, HomeSize, error) {
	if req.MonthlyBill.IsNegative() {
		return decimal.Decimal{}, "", fmt.Errorf("%w: monthly bill must not be negative, got %s", ErrInvalidInput, req.MonthlyBill)
	}

	var homeSize HomeSize
	if !req.HomeSizeSqFt.IsZero() {
		size, err := HomeSizeFromSqFt(req.HomeSizeSqFt)
		if err != nil {
			return decimal.Decimal{}, "", err
		}
		homeSize = size
	}

	if req.MonthlyBill.IsPositive() {
		return RoundCurrency(req.MonthlyBill), homeSize, nil
	}
	if homeSize == "" {
		return decimal.Zero, "", nil
	}

	factor, err := c.multipliers.HomeSize(homeSize)
	if err != nil {
		return decimal.Decimal{}, "", err
	}
	return RoundCurrency(baselineMonthlyBill.Mul(factor)), homeSize, nil
}
