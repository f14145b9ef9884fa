package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MultiplierKind names one family of qualitative options.
type MultiplierKind string

const (
	KindInstallComplexity MultiplierKind = "install-complexity"
	KindUrgency           MultiplierKind = "urgency"
	KindHomeSize          MultiplierKind = "home-size"
)

// Complexity is the installation difficulty level.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// Urgency is the scheduling priority level.
type Urgency string

const (
	UrgencyStandard  Urgency = "standard"
	UrgencyPriority  Urgency = "priority"
	UrgencyEmergency Urgency = "emergency"
)

// HomeSize buckets a home by conditioned floor area.
type HomeSize string

const (
	HomeSizeSmall  HomeSize = "small"
	HomeSizeMedium HomeSize = "medium"
	HomeSizeLarge  HomeSize = "large"
	HomeSizeXLarge HomeSize = "xlarge"
)

var levels = map[MultiplierKind][]string{
	KindInstallComplexity: {string(ComplexitySimple), string(ComplexityModerate), string(ComplexityComplex)},
	KindUrgency:           {string(UrgencyStandard), string(UrgencyPriority), string(UrgencyEmergency)},
	KindHomeSize:          {string(HomeSizeSmall), string(HomeSizeMedium), string(HomeSizeLarge), string(HomeSizeXLarge)},
}

// Levels returns the closed set of levels for a kind, in ascending order.
func Levels(kind MultiplierKind) []string {
	return append([]string(nil), levels[kind]...)
}

func knownLevel(kind MultiplierKind, level string) error {
	known, ok := levels[kind]
	if !ok {
		return fmt.Errorf("%w: unknown multiplier kind %q", ErrValidation, kind)
	}
	for _, l := range known {
		if l == level {
			return nil
		}
	}
	return fmt.Errorf("%w: unknown %s level %q", ErrValidation, kind, level)
}

// ParseComplexity validates a raw complexity level.
func ParseComplexity(raw string) (Complexity, error) {
	if err := knownLevel(KindInstallComplexity, raw); err != nil {
		return "", err
	}
	return Complexity(raw), nil
}

// ParseUrgency validates a raw urgency level. An empty string means standard.
func ParseUrgency(raw string) (Urgency, error) {
	if raw == "" {
		return UrgencyStandard, nil
	}
	if err := knownLevel(KindUrgency, raw); err != nil {
		return "", err
	}
	return Urgency(raw), nil
}

// ParseHomeSize validates a raw home size level.
func ParseHomeSize(raw string) (HomeSize, error) {
	if err := knownLevel(KindHomeSize, raw); err != nil {
		return "", err
	}
	return HomeSize(raw), nil
}

var (
	sqFtSmall  = decimal.NewFromInt(1500)
	sqFtMedium = decimal.NewFromInt(2500)
	sqFtLarge  = decimal.NewFromInt(3500)
)

// HomeSizeFromSqFt buckets a floor area into a home size level.
func HomeSizeFromSqFt(sqFt decimal.Decimal) (HomeSize, error) {
	switch {
	case !sqFt.IsPositive():
		return "", fmt.Errorf("%w: home size must be positive, got %s sq ft", ErrInvalidInput, sqFt)
	case sqFt.LessThan(sqFtSmall):
		return HomeSizeSmall, nil
	case sqFt.LessThan(sqFtMedium):
		return HomeSizeMedium, nil
	case sqFt.LessThan(sqFtLarge):
		return HomeSizeLarge, nil
	default:
		return HomeSizeXLarge, nil
	}
}

// MultiplierTable maps every (kind, level) pair to a factor.
type MultiplierTable struct {
	factors map[MultiplierKind]map[string]decimal.Decimal
}

func defaultFactors() map[MultiplierKind]map[string]decimal.Decimal {
	return map[MultiplierKind]map[string]decimal.Decimal{
		KindInstallComplexity: {
			string(ComplexitySimple):   decimal.RequireFromString("1.0"),
			string(ComplexityModerate): decimal.RequireFromString("1.3"),
			string(ComplexityComplex):  decimal.RequireFromString("1.6"),
		},
		KindUrgency: {
			string(UrgencyStandard):  decimal.RequireFromString("1.0"),
			string(UrgencyPriority):  decimal.RequireFromString("1.25"),
			string(UrgencyEmergency): decimal.RequireFromString("1.5"),
		},
		KindHomeSize: {
			string(HomeSizeSmall):  decimal.RequireFromString("0.8"),
			string(HomeSizeMedium): decimal.RequireFromString("1.0"),
			string(HomeSizeLarge):  decimal.RequireFromString("1.25"),
			string(HomeSizeXLarge): decimal.RequireFromString("1.5"),
		},
	}
}

// DefaultMultipliers returns the standard factor table.
func DefaultMultipliers() *MultiplierTable {
	return &MultiplierTable{factors: defaultFactors()}
}

// NewMultiplierTable returns the default table with the given factors replaced.
// Overrides may only name existing levels. Complexity and urgency factors must
// be at least 1.0 and non-decreasing from the mildest level up; home size
// factors must be positive.
func NewMultiplierTable(overrides map[MultiplierKind]map[string]decimal.Decimal) (*MultiplierTable, error) {
	factors := defaultFactors()
	one := decimal.NewFromInt(1)

	for kind, byLevel := range overrides {
		for level, f := range byLevel {
			if err := knownLevel(kind, level); err != nil {
				return nil, err
			}
			switch {
			case kind == KindHomeSize && !f.IsPositive():
				return nil, fmt.Errorf("%w: %s factor for %q must be positive", ErrValidation, kind, level)
			case kind != KindHomeSize && f.LessThan(one):
				return nil, fmt.Errorf("%w: %s factor for %q must be at least 1.0", ErrValidation, kind, level)
			}
			factors[kind][level] = f
		}
	}

	for _, kind := range []MultiplierKind{KindInstallComplexity, KindUrgency} {
		prev := one
		for _, level := range levels[kind] {
			if factors[kind][level].LessThan(prev) {
				return nil, fmt.Errorf("%w: %s factors must not decrease, %q is below %s", ErrValidation, kind, level, prev)
			}
			prev = factors[kind][level]
		}
	}

	return &MultiplierTable{factors: factors}, nil
}

// Resolve returns the factor for a level. Unknown kinds and levels are errors;
// nothing falls back to a default factor.
func (t *MultiplierTable) Resolve(kind MultiplierKind, level string) (decimal.Decimal, error) {
	if err := knownLevel(kind, level); err != nil {
		return decimal.Decimal{}, err
	}
	return t.factors[kind][level], nil
}

// Complexity resolves an installation complexity factor.
func (t *MultiplierTable) Complexity(level Complexity) (decimal.Decimal, error) {
	return t.Resolve(KindInstallComplexity, string(level))
}

// Urgency resolves a scheduling urgency factor.
func (t *MultiplierTable) Urgency(level Urgency) (decimal.Decimal, error) {
	return t.Resolve(KindUrgency, string(level))
}

// HomeSize resolves a home size factor.
func (t *MultiplierTable) HomeSize(level HomeSize) (decimal.Decimal, error) {
	return t.Resolve(KindHomeSize, string(level))
}
