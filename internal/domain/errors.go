package domain

import (
	"errors"
	"fmt"
)

// Value object sentinels. Callers wrap them with details via fmt.Errorf("%w: ...").
var (
	ErrInvalidValue     = errors.New("invalid value")
	ErrInvalidFormat    = errors.New("invalid format")
	ErrCurrencyMismatch = errors.New("currency mismatch")
)

// ErrPersistenceIntegrity signals that a row loaded by a use case disappeared before the
// write that followed. It is not a business rule violation.
var ErrPersistenceIntegrity = errors.New("product vanished between read and write")

// Identifier types used by ProductNotFoundError and DuplicateProductCodeError.
const (
	IdentifierID  = "id"
	IdentifierSKU = "sku"
)

// Reasons carried by ProductNotAvailableError.
type UnavailableReason string

const (
	ReasonInactive     UnavailableReason = "inactive"
	ReasonOutOfStock   UnavailableReason = "out-of-stock"
	ReasonDiscontinued UnavailableReason = "discontinued"
)

// ProductNotFoundError is returned when a requested product does not exist
type ProductNotFoundError struct {
	Identifier     string
	IdentifierType string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product not found: %s=%s", e.IdentifierType, e.Identifier)
}

// Is allows errors.Is(err, &ProductNotFoundError{})
func (e *ProductNotFoundError) Is(target error) bool {
	_, ok := target.(*ProductNotFoundError)
	return ok
}

// DuplicateProductCodeError is returned when a SKU is already taken
type DuplicateProductCodeError struct {
	Code     string
	CodeType string
}

func (e *DuplicateProductCodeError) Error() string {
	return fmt.Sprintf("duplicate product code: %s=%s already exists", e.CodeType, e.Code)
}

// Is allows errors.Is(err, &DuplicateProductCodeError{})
func (e *DuplicateProductCodeError) Is(target error) bool {
	_, ok := target.(*DuplicateProductCodeError)
	return ok
}

// InvalidProductDataError is returned when a field fails validation
type InvalidProductDataError struct {
	Message string
	Field   string
	Value   interface{}
}

func (e *InvalidProductDataError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid product data: %s", e.Message)
	}
	return fmt.Sprintf("invalid product data: field=%s, reason=%s, value=%v", e.Field, e.Message, e.Value)
}

// Is allows errors.Is(err, &InvalidProductDataError{})
func (e *InvalidProductDataError) Is(target error) bool {
	_, ok := target.(*InvalidProductDataError)
	return ok
}

// InsufficientStockError is returned when a decrement would drive stock below zero
type InsufficientStockError struct {
	ProductID         string
	RequestedQuantity int
	AvailableStock    int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: product=%s, requested=%d, available=%d",
		e.ProductID, e.RequestedQuantity, e.AvailableStock)
}

// Is allows errors.Is(err, &InsufficientStockError{})
func (e *InsufficientStockError) Is(target error) bool {
	_, ok := target.(*InsufficientStockError)
	return ok
}

// MissingQuantity returns how many units are lacking to satisfy the request
func (e *InsufficientStockError) MissingQuantity() int {
	missing := e.RequestedQuantity - e.AvailableStock
	if missing < 0 {
		return 0
	}
	return missing
}

// ProductNotAvailableError is returned when a product cannot be purchased
type ProductNotAvailableError struct {
	ProductID string
	Reason    UnavailableReason
}

func (e *ProductNotAvailableError) Error() string {
	return fmt.Sprintf("product not available: id=%s, reason=%s", e.ProductID, e.Reason)
}

// Is allows errors.Is(err, &ProductNotAvailableError{})
func (e *ProductNotAvailableError) Is(target error) bool {
	_, ok := target.(*ProductNotAvailableError)
	return ok
}

// NewProductNotFoundError creates a new ProductNotFoundError
func NewProductNotFoundError(identifier, identifierType string) error {
	return &ProductNotFoundError{Identifier: identifier, IdentifierType: identifierType}
}

// NewDuplicateProductCodeError creates a new DuplicateProductCodeError
func NewDuplicateProductCodeError(code, codeType string) error {
	return &DuplicateProductCodeError{Code: code, CodeType: codeType}
}

// NewInvalidProductDataError creates a new InvalidProductDataError
func NewInvalidProductDataError(message, field string, value interface{}) error {
	return &InvalidProductDataError{Message: message, Field: field, Value: value}
}

// NewEmptyFieldError reports a required field that is blank
func NewEmptyFieldError(field string) error {
	return &InvalidProductDataError{Message: "cannot be empty", Field: field, Value: ""}
}

// NewNegativeValueError reports a numeric field below zero
func NewNegativeValueError(field string, value interface{}) error {
	return &InvalidProductDataError{Message: "must be non-negative", Field: field, Value: value}
}

// NewNonPositiveValueError reports a numeric field that must be strictly positive
func NewNonPositiveValueError(field string, value interface{}) error {
	return &InvalidProductDataError{Message: "must be greater than zero", Field: field, Value: value}
}

// NewStockOverflowError rejects an increment that would push stock past MaxStock
func NewStockOverflowError(amount int) error {
	return NewInvalidProductDataError("would exceed the maximum stock level", "quantity", amount)
}

// NewInvalidFieldFormatError reports a field whose shape is wrong
func NewInvalidFieldFormatError(field string, value interface{}, expected string) error {
	return &InvalidProductDataError{Message: "invalid format, expected " + expected, Field: field, Value: value}
}

// NewInsufficientStockError creates a new InsufficientStockError
func NewInsufficientStockError(productID string, requested, available int) error {
	return &InsufficientStockError{
		ProductID:         productID,
		RequestedQuantity: requested,
		AvailableStock:    available,
	}
}

// NewProductNotAvailableError creates a new ProductNotAvailableError
func NewProductNotAvailableError(productID string, reason UnavailableReason) error {
	return &ProductNotAvailableError{ProductID: productID, Reason: reason}
}

// IsProductNotFoundError checks if an error is a ProductNotFoundError
func IsProductNotFoundError(err error) bool {
	var target *ProductNotFoundError
	return errors.As(err, &target)
}

// IsDuplicateProductCodeError checks if an error is a DuplicateProductCodeError
func IsDuplicateProductCodeError(err error) bool {
	var target *DuplicateProductCodeError
	return errors.As(err, &target)
}

// IsInvalidProductDataError checks if an error is an InvalidProductDataError
func IsInvalidProductDataError(err error) bool {
	var target *InvalidProductDataError
	return errors.As(err, &target)
}

// IsInsufficientStockError checks if an error is an InsufficientStockError
func IsInsufficientStockError(err error) bool {
	var target *InsufficientStockError
	return errors.As(err, &target)
}

// IsProductNotAvailableError checks if an error is a ProductNotAvailableError
func IsProductNotAvailableError(err error) bool {
	var target *ProductNotAvailableError
	return errors.As(err, &target)
}

// IsValidationError reports whether err is any input-shaped failure: invalid product data
// or one of the value object sentinels.
func IsValidationError(err error) bool {
	return IsInvalidProductDataError(err) ||
		errors.Is(err, ErrInvalidValue) ||
		errors.Is(err, ErrInvalidFormat) ||
		errors.Is(err, ErrCurrencyMismatch)
}
