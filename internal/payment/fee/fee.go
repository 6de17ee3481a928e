// Package fee holds the per-gateway processing fee formulas. All amounts are minor currency units.
package fee

import (
	"math"

	"github.com/railzwaylabs/orderpay/internal/payment/domain"
)

// Schedule is a percentage rate plus a fixed amount.
type Schedule struct {
	Rate  float64
	Fixed int64
}

var (
	// PayPlusSchedule: 2.9% + 1.50 in the charge currency.
	PayPlusSchedule = Schedule{Rate: 0.029, Fixed: 150}
	// StripeStandardSchedule: 2.9% + 0.30.
	StripeStandardSchedule = Schedule{Rate: 0.029, Fixed: 30}
	// StripeEuropeanSchedule: 1.4% + 0.25 for European currencies.
	StripeEuropeanSchedule = Schedule{Rate: 0.014, Fixed: 25}
)

var europeanCurrencies = map[string]struct{}{
	"EUR": {}, "GBP": {}, "CHF": {}, "SEK": {}, "DKK": {}, "NOK": {}, "PLN": {}, "CZK": {},
}

func (s Schedule) Quote(amount int64, currency string) domain.FeeQuote {
	f := int64(math.Round(float64(amount)*s.Rate)) + s.Fixed
	return domain.FeeQuote{
		Amount:   amount,
		Currency: domain.NormalizeCurrency(currency),
		Fee:      f,
		Total:    amount + f,
		Rate:     s.Rate,
		Fixed:    s.Fixed,
	}
}

func PayPlus(amount int64, currency string) domain.FeeQuote {
	return PayPlusSchedule.Quote(amount, currency)
}

func Stripe(amount int64, currency string) domain.FeeQuote {
	if _, ok := europeanCurrencies[domain.NormalizeCurrency(currency)]; ok {
		return StripeEuropeanSchedule.Quote(amount, currency)
	}
	return StripeStandardSchedule.Quote(amount, currency)
}
