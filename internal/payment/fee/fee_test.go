package fee

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPayPlusFee(t *testing.T) {
	q := PayPlus(26060, "ils")

	// round(26060 * 0.029) = 756, plus 150 fixed
	assert.Equal(t, int64(906), q.Fee)
	assert.Equal(t, int64(26966), q.Total)
	assert.Equal(t, "ILS", q.Currency)
}

func TestStripeFeeByCurrencyClass(t *testing.T) {
	usd := Stripe(10000, "USD")
	assert.Equal(t, int64(320), usd.Fee)
	assert.Equal(t, 0.029, usd.Rate)

	eur := Stripe(10000, "eur")
	assert.Equal(t, int64(165), eur.Fee)
	assert.Equal(t, int64(25), eur.Fixed)
}

func TestFeesAreDeterministic(t *testing.T) {
	amounts := []int64{0, 1, 99, 26060, 1_000_000}
	for _, amount := range amounts {
		for _, calc := range []func(int64, string) any{
			func(a int64, c string) any { return PayPlus(a, c) },
			func(a int64, c string) any { return Stripe(a, c) },
		} {
			assert.Equal(t, calc(amount, "ILS"), calc(amount, "ILS"))
		}

		p := PayPlus(amount, "ILS")
		assert.Equal(t, p.Amount+p.Fee, p.Total)
		s := Stripe(amount, "EUR")
		assert.Equal(t, s.Amount+s.Fee, s.Total)
	}
}
