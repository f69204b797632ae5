package domain

import (
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency is an ISO 4217 code accepted by the catalog
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyMXN Currency = "MXN"
	CurrencyCAD Currency = "CAD"
	CurrencyAUD Currency = "AUD"
)

// DefaultCurrency is used when a price is created without an explicit currency
const DefaultCurrency = CurrencyUSD

var currencySymbols = map[Currency]string{
	CurrencyUSD: "$",
	CurrencyEUR: "€",
	CurrencyGBP: "£",
	CurrencyMXN: "$",
	CurrencyCAD: "C$",
	CurrencyAUD: "A$",
}

var hundred = decimal.NewFromInt(100)

func priceDecimal(amount float64) decimal.Decimal {
	return decimal.NewFromFloat(amount).Round(2)
}

// ParseCurrency normalizes and validates a currency code. An empty code yields DefaultCurrency.
func ParseCurrency(code string) (Currency, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return DefaultCurrency, nil
	}
	c := Currency(code)
	if !c.IsSupported() {
		return "", fmt.Errorf("%w: unsupported currency %q", ErrInvalidValue, code)
	}
	return c, nil
}

// IsSupported reports whether the currency belongs to the accepted set
func (c Currency) IsSupported() bool {
	_, ok := currencySymbols[c]
	return ok
}

// Symbol returns the display symbol of the currency
func (c Currency) Symbol() string {
	return currencySymbols[c]
}

// Price is an immutable monetary amount rounded to two fractional digits.
type Price struct {
	amount   decimal.Decimal
	currency Currency
}

// NewPrice validates amount and currency. An empty currency means DefaultCurrency.
func NewPrice(amount float64, currency Currency) (Price, error) {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return Price{}, fmt.Errorf("%w: price amount must be finite", ErrInvalidValue)
	}
	if amount < 0 {
		return Price{}, fmt.Errorf("%w: price amount must be non-negative, got %v", ErrInvalidValue, amount)
	}
	c, err := ParseCurrency(string(currency))
	if err != nil {
		return Price{}, err
	}
	return Price{amount: priceDecimal(amount), currency: c}, nil
}

// ZeroPrice returns a zero amount in the given currency
func ZeroPrice(currency Currency) (Price, error) {
	return NewPrice(0, currency)
}

func (p Price) with(amount decimal.Decimal) Price {
	return Price{amount: amount.Round(2), currency: p.currency}
}

func (p Price) requireSameCurrency(other Price) error {
	if p.currency != other.currency {
		return fmt.Errorf("%w: %s vs %s", ErrCurrencyMismatch, p.currency, other.currency)
	}
	return nil
}

func checkFactor(name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s must be finite", ErrInvalidValue, name)
	}
	return nil
}

// Amount returns the rounded amount as a float
func (p Price) Amount() float64 {
	return p.amount.InexactFloat64()
}

// Decimal returns the exact rounded amount
func (p Price) Decimal() decimal.Decimal {
	return p.amount
}

func (p Price) Currency() Currency {
	return p.currency
}

func (p Price) IsZero() bool {
	return p.amount.IsZero()
}

// Equals reports value equality: same currency and same rounded amount
func (p Price) Equals(other Price) bool {
	return p.currency == other.currency && p.amount.Equal(other.amount)
}

// Add returns p + other
func (p Price) Add(other Price) (Price, error) {
	if err := p.requireSameCurrency(other); err != nil {
		return Price{}, err
	}
	return p.with(p.amount.Add(other.amount)), nil
}

// Subtract returns p - other; a negative result is rejected
func (p Price) Subtract(other Price) (Price, error) {
	if err := p.requireSameCurrency(other); err != nil {
		return Price{}, err
	}
	result := p.amount.Sub(other.amount)
	if result.IsNegative() {
		return Price{}, fmt.Errorf("%w: subtraction would produce a negative price", ErrInvalidValue)
	}
	return p.with(result), nil
}

// Multiply scales the amount by a non-negative factor
func (p Price) Multiply(factor float64) (Price, error) {
	if err := checkFactor("factor", factor); err != nil {
		return Price{}, err
	}
	if factor < 0 {
		return Price{}, fmt.Errorf("%w: factor must be non-negative, got %v", ErrInvalidValue, factor)
	}
	return p.with(p.amount.Mul(decimal.NewFromFloat(factor))), nil
}

// Divide splits the amount by a strictly positive divisor
func (p Price) Divide(divisor float64) (Price, error) {
	if err := checkFactor("divisor", divisor); err != nil {
		return Price{}, err
	}
	if divisor <= 0 {
		return Price{}, fmt.Errorf("%w: divisor must be greater than zero, got %v", ErrInvalidValue, divisor)
	}
	return p.with(p.amount.Div(decimal.NewFromFloat(divisor))), nil
}

// ApplyDiscount removes percentage (0-100) of the amount
func (p Price) ApplyDiscount(percentage float64) (Price, error) {
	if err := checkFactor("discount", percentage); err != nil {
		return Price{}, err
	}
	if percentage < 0 || percentage > 100 {
		return Price{}, fmt.Errorf("%w: discount must be between 0 and 100, got %v", ErrInvalidValue, percentage)
	}
	rate := hundred.Sub(decimal.NewFromFloat(percentage)).Div(hundred)
	return p.with(p.amount.Mul(rate)), nil
}

// ApplyTax adds percentage (>= 0) of the amount
func (p Price) ApplyTax(percentage float64) (Price, error) {
	if err := checkFactor("tax", percentage); err != nil {
		return Price{}, err
	}
	if percentage < 0 {
		return Price{}, fmt.Errorf("%w: tax must be non-negative, got %v", ErrInvalidValue, percentage)
	}
	rate := hundred.Add(decimal.NewFromFloat(percentage)).Div(hundred)
	return p.with(p.amount.Mul(rate)), nil
}

func (p Price) compare(other Price) (int, error) {
	if err := p.requireSameCurrency(other); err != nil {
		return 0, err
	}
	return p.amount.Cmp(other.amount), nil
}

func (p Price) IsGreaterThan(other Price) (bool, error) {
	c, err := p.compare(other)
	return c > 0, err
}

func (p Price) IsLessThan(other Price) (bool, error) {
	c, err := p.compare(other)
	return c < 0, err
}

func (p Price) IsGreaterThanOrEqual(other Price) (bool, error) {
	c, err := p.compare(other)
	return c >= 0, err
}

func (p Price) IsLessThanOrEqual(other Price) (bool, error) {
	c, err := p.compare(other)
	return c <= 0, err
}

// Formatted renders the amount prefixed by the currency symbol, e.g. "$19.99"
func (p Price) Formatted() string {
	return p.currency.Symbol() + p.amount.StringFixed(2)
}

// FormattedWithCurrency renders "<CODE> <amount>", e.g. "EUR 19.99"
func (p Price) FormattedWithCurrency() string {
	return string(p.currency) + " " + p.amount.StringFixed(2)
}

func (p Price) String() string {
	return p.FormattedWithCurrency()
}
