package pricing

import "github.com/shopspring/decimal"

// currencyPlaces is the number of decimal places kept on every priced amount.
const currencyPlaces = 2

// RoundCurrency rounds an amount half away from zero to whole cents.
func RoundCurrency(d decimal.Decimal) decimal.Decimal {
	return d.Round(currencyPlaces)
}

// FromCents converts an amount held in minor units into a decimal amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -currencyPlaces)
}

// ToCents converts a decimal amount into minor units after currency rounding.
func ToCents(d decimal.Decimal) int64 {
	return RoundCurrency(d).Shift(currencyPlaces).IntPart()
}
