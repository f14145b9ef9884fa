package main

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/hvacquote/internal/pricing"
	"github.com/Simplici0/hvacquote/internal/store"
)

const checkoutCurrency = "CAD"

// checkoutPayload is what the payment page needs to charge a saved quote.
type checkoutPayload struct {
	QuoteID     string `json:"quote_id"`
	Description string `json:"description"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
}

func newCheckoutPayload(saved store.SavedQuote) checkoutPayload {
	return checkoutPayload{
		QuoteID:     saved.ID,
		Description: describeQuote(saved.Quote),
		Amount:      pricing.ToCents(saved.Quote.GrandTotal()),
		Currency:    checkoutCurrency,
	}
}

// describeQuote renders one "<name> x<qty> @ <unit> = <total>" line per item.
func describeQuote(q pricing.Quote) string {
	items := q.Items()
	lines := make([]string, 0, len(items))
	for _, item := range items {
		lines = append(lines, fmt.Sprintf("%s x%s @ %s = %s",
			item.Name(),
			item.Quantity().String(),
			formatUnitPrice(item.UnitPrice()),
			item.TotalPrice().StringFixed(2),
		))
	}
	return strings.Join(lines, "\n")
}

// formatUnitPrice prints cents, or every digit of a rate finer than a cent.
func formatUnitPrice(d decimal.Decimal) string {
	if d.Equal(pricing.RoundCurrency(d)) {
		return d.StringFixed(2)
	}
	return d.String()
}
