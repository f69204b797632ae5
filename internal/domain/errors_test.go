package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"not found", NewProductNotFoundError("prod-1", IdentifierID), "product not found: id=prod-1"},
		{"duplicate", NewDuplicateProductCodeError("ABC-123", IdentifierSKU), "duplicate product code: sku=ABC-123 already exists"},
		{"invalid with field", NewNegativeValueError("price", -10.5), "invalid product data: field=price, reason=must be non-negative, value=-10.5"},
		{"invalid without field", NewInvalidProductDataError("bad input", "", nil), "invalid product data: bad input"},
		{"insufficient stock", NewInsufficientStockError("prod-2", 10, 5), "insufficient stock: product=prod-2, requested=10, available=5"},
		{"not available", NewProductNotAvailableError("prod-3", ReasonDiscontinued), "product not available: id=prod-3, reason=discontinued"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.err.Error())
		})
	}
}

func TestErrorTypeDiscrimination(t *testing.T) {
	notFound := fmt.Errorf("wrapped: %w", NewProductNotFoundError("p", IdentifierID))
	duplicate := NewDuplicateProductCodeError("ABC-123", IdentifierSKU)
	invalid := NewEmptyFieldError("name")
	insufficient := NewInsufficientStockError("p", 3, 1)
	unavailable := NewProductNotAvailableError("p", ReasonInactive)

	assert.True(t, IsProductNotFoundError(notFound))
	assert.True(t, errors.Is(notFound, &ProductNotFoundError{}))
	assert.False(t, IsDuplicateProductCodeError(notFound))

	assert.True(t, IsDuplicateProductCodeError(duplicate))
	assert.False(t, IsInvalidProductDataError(duplicate))

	assert.True(t, IsInvalidProductDataError(invalid))
	assert.False(t, IsInsufficientStockError(invalid))

	assert.True(t, IsInsufficientStockError(insufficient))
	assert.False(t, IsProductNotAvailableError(insufficient))

	assert.True(t, IsProductNotAvailableError(unavailable))
	assert.False(t, IsProductNotFoundError(unavailable))
}

func TestIsValidationError(t *testing.T) {
	assert.True(t, IsValidationError(NewEmptyFieldError("sku")))
	assert.True(t, IsValidationError(fmt.Errorf("%w: x", ErrInvalidValue)))
	assert.True(t, IsValidationError(fmt.Errorf("%w: x", ErrInvalidFormat)))
	assert.True(t, IsValidationError(fmt.Errorf("%w: x", ErrCurrencyMismatch)))
	assert.False(t, IsValidationError(NewProductNotFoundError("p", IdentifierID)))
	assert.False(t, IsValidationError(errors.New("boom")))
}

func TestMissingQuantityNeverNegative(t *testing.T) {
	err := &InsufficientStockError{RequestedQuantity: 2, AvailableStock: 5}
	assert.Equal(t, 0, err.MissingQuantity())
}
