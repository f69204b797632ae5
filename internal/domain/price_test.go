package domain

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustPrice(t *testing.T, amount float64, currency Currency) Price {
	t.Helper()
	p, err := NewPrice(amount, currency)
	require.NoError(t, err)
	return p
}

func TestNewPrice(t *testing.T) {
	cases := []struct {
		name     string
		amount   float64
		currency Currency
		want     float64
		wantCur  Currency
		wantErr  bool
	}{
		{"rounds to cents", 19.999, CurrencyUSD, 20, CurrencyUSD, false},
		{"keeps two decimals", 12.34, CurrencyEUR, 12.34, CurrencyEUR, false},
		{"zero is allowed", 0, CurrencyGBP, 0, CurrencyGBP, false},
		{"empty currency defaults to USD", 5, "", 5, CurrencyUSD, false},
		{"lowercase currency is normalized", 5, "mxn", 5, CurrencyMXN, false},
		{"negative amount", -0.01, CurrencyUSD, 0, "", true},
		{"NaN amount", math.NaN(), CurrencyUSD, 0, "", true},
		{"infinite amount", math.Inf(1), CurrencyUSD, 0, "", true},
		{"unsupported currency", 10, "JPY", 0, "", true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := NewPrice(tc.amount, tc.currency)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidValue))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, p.Amount())
			assert.Equal(t, tc.wantCur, p.Currency())
		})
	}
}

func TestPriceArithmetic(t *testing.T) {
	a := mustPrice(t, 100, CurrencyUSD)
	b := mustPrice(t, 30.5, CurrencyUSD)
	eur := mustPrice(t, 1, CurrencyEUR)

	t.Run("add", func(t *testing.T) {
		sum, err := a.Add(b)
		require.NoError(t, err)
		assert.Equal(t, 130.5, sum.Amount())
		assert.Equal(t, 100.0, a.Amount(), "receiver must not change")
	})

	t.Run("subtract self yields zero", func(t *testing.T) {
		diff, err := a.Subtract(a)
		require.NoError(t, err)
		assert.True(t, diff.IsZero())
	})

	t.Run("subtract larger fails", func(t *testing.T) {
		_, err := b.Subtract(a)
		assert.ErrorIs(t, err, ErrInvalidValue)
	})

	t.Run("currency mismatch", func(t *testing.T) {
		_, err := a.Add(eur)
		assert.ErrorIs(t, err, ErrCurrencyMismatch)
		_, err = a.IsGreaterThan(eur)
		assert.ErrorIs(t, err, ErrCurrencyMismatch)
	})

	t.Run("multiply", func(t *testing.T) {
		p, err := b.Multiply(3)
		require.NoError(t, err)
		assert.Equal(t, 91.5, p.Amount())
		_, err = b.Multiply(-1)
		assert.ErrorIs(t, err, ErrInvalidValue)
	})

	t.Run("divide", func(t *testing.T) {
		p, err := a.Divide(3)
		require.NoError(t, err)
		assert.Equal(t, 33.33, p.Amount())
		for _, d := range []float64{0, -2, math.Inf(1), math.NaN()} {
			_, err := a.Divide(d)
			assert.ErrorIs(t, err, ErrInvalidValue, "divisor %v", d)
		}
	})

	t.Run("discount", func(t *testing.T) {
		p, err := a.ApplyDiscount(15)
		require.NoError(t, err)
		assert.Equal(t, 85.0, p.Amount())
		_, err = a.ApplyDiscount(101)
		assert.ErrorIs(t, err, ErrInvalidValue)
		_, err = a.ApplyDiscount(-1)
		assert.ErrorIs(t, err, ErrInvalidValue)
	})

	t.Run("tax", func(t *testing.T) {
		p, err := a.ApplyTax(16)
		require.NoError(t, err)
		assert.Equal(t, 116.0, p.Amount())
		_, err = a.ApplyTax(-5)
		assert.ErrorIs(t, err, ErrInvalidValue)
	})
}

func TestPriceComparison(t *testing.T) {
	low := mustPrice(t, 10, CurrencyUSD)
	high := mustPrice(t, 20, CurrencyUSD)

	gt, err := high.IsGreaterThan(low)
	require.NoError(t, err)
	assert.True(t, gt)

	lt, err := low.IsLessThan(high)
	require.NoError(t, err)
	assert.True(t, lt)

	gte, err := low.IsGreaterThanOrEqual(low)
	require.NoError(t, err)
	assert.True(t, gte)

	lte, err := high.IsLessThanOrEqual(low)
	require.NoError(t, err)
	assert.False(t, lte)

	assert.True(t, low.Equals(mustPrice(t, 10.001, CurrencyUSD)))
}

func TestPriceFormatting(t *testing.T) {
	assert.Equal(t, "$20.00", mustPrice(t, 20, CurrencyUSD).Formatted())
	assert.Equal(t, "€19.99", mustPrice(t, 19.99, CurrencyEUR).Formatted())
	assert.Equal(t, "C$5.50", mustPrice(t, 5.5, CurrencyCAD).Formatted())
	assert.Equal(t, "EUR 19.99", mustPrice(t, 19.99, CurrencyEUR).FormattedWithCurrency())
}
