package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// DefaultLowStockThreshold is the stock level at or below which a product counts as low
	DefaultLowStockThreshold = 10
	// DefaultExpensiveThreshold is the price above which a product counts as expensive
	DefaultExpensiveThreshold = 1000.0
	// MaxStock is the largest stock level a product can hold
	MaxStock = math.MaxInt
)

// Field length limits, in characters. They match the products table columns.
const (
	MaxNameLength       = 255
	MaxSKULength        = 32
	MaxCategoryIDLength = 64
)

var now = func() time.Time { return time.Now().UTC() }

// Product is the catalog entity. It is immutable: every mutation returns a new *Product
// and leaves the receiver untouched, so earlier snapshots stay valid.
type Product struct {
	id          string
	name        string
	description string
	price       float64
	stock       int
	sku         string
	categoryID  string
	isActive    bool
	createdAt   time.Time
	updatedAt   time.Time
}

// NewProductParams holds the data needed to create a product
type NewProductParams struct {
	ID          string
	Name        string
	Description string
	Price       float64
	Stock       int
	SKU         string
	CategoryID  string
}

// ProductSnapshot is the persisted shape of a product
type ProductSnapshot struct {
	ID          string
	Name        string
	Description string
	Price       float64
	Stock       int
	SKU         string
	CategoryID  string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewProduct validates the input and creates an active product stamped with the current time.
// Checks run in order name, price, stock, sku, category; the first failure is returned.
func NewProduct(params NewProductParams) (*Product, error) {
	if strings.TrimSpace(params.ID) == "" {
		return nil, NewEmptyFieldError("id")
	}
	name, err := validateName(params.Name)
	if err != nil {
		return nil, err
	}
	price, err := validatePrice(params.Price)
	if err != nil {
		return nil, err
	}
	if err := validateStock(params.Stock); err != nil {
		return nil, err
	}
	sku, err := validateSKU(params.SKU)
	if err != nil {
		return nil, err
	}
	categoryID, err := validateCategoryID(params.CategoryID)
	if err != nil {
		return nil, err
	}

	ts := now()
	return &Product{
		id:          params.ID,
		name:        name,
		description: strings.TrimSpace(params.Description),
		price:       price,
		stock:       params.Stock,
		sku:         sku,
		categoryID:  categoryID,
		isActive:    true,
		createdAt:   ts,
		updatedAt:   ts,
	}, nil
}

// RestoreProduct rehydrates a product from storage without re-stamping timestamps
func RestoreProduct(s ProductSnapshot) *Product {
	return &Product{
		id:          s.ID,
		name:        s.Name,
		description: s.Description,
		price:       s.Price,
		stock:       s.Stock,
		sku:         s.SKU,
		categoryID:  s.CategoryID,
		isActive:    s.IsActive,
		createdAt:   s.CreatedAt,
		updatedAt:   s.UpdatedAt,
	}
}

// NormalizeSKU trims and uppercases a SKU
func NormalizeSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", NewEmptyFieldError("name")
	}
	if err := checkLength("name", name, MaxNameLength); err != nil {
		return "", err
	}
	return name, nil
}

func validatePrice(price float64) (float64, error) {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, NewInvalidProductDataError("must be a finite number", "price", price)
	}
	if price < 0 {
		return 0, NewNegativeValueError("price", price)
	}
	p, err := NewPrice(price, DefaultCurrency)
	if err != nil {
		return 0, NewInvalidProductDataError(err.Error(), "price", price)
	}
	return p.Amount(), nil
}

func validateStock(stock int) error {
	if stock < 0 {
		return NewNegativeValueError("stock", stock)
	}
	return nil
}

func validateSKU(sku string) (string, error) {
	sku = NormalizeSKU(sku)
	if sku == "" {
		return "", NewEmptyFieldError("sku")
	}
	if err := checkLength("sku", sku, MaxSKULength); err != nil {
		return "", err
	}
	return sku, nil
}

func validateCategoryID(categoryID string) (string, error) {
	categoryID = strings.TrimSpace(categoryID)
	if categoryID == "" {
		return "", NewEmptyFieldError("categoryId")
	}
	if err := checkLength("categoryId", categoryID, MaxCategoryIDLength); err != nil {
		return "", err
	}
	return categoryID, nil
}

func checkLength(field, value string, limit int) error {
	if utf8.RuneCountInString(value) > limit {
		return NewInvalidProductDataError(fmt.Sprintf("must be at most %d characters", limit), field, value)
	}
	return nil
}

func (p *Product) ID() string           { return p.id }
func (p *Product) Name() string         { return p.name }
func (p *Product) Description() string  { return p.description }
func (p *Product) Price() float64       { return p.price }
func (p *Product) Stock() int           { return p.stock }
func (p *Product) SKU() string          { return p.sku }
func (p *Product) CategoryID() string   { return p.categoryID }
func (p *Product) IsActive() bool       { return p.isActive }
func (p *Product) CreatedAt() time.Time { return p.createdAt }
func (p *Product) UpdatedAt() time.Time { return p.updatedAt }

// Snapshot exports the persisted shape
func (p *Product) Snapshot() ProductSnapshot {
	return ProductSnapshot{
		ID:          p.id,
		Name:        p.name,
		Description: p.description,
		Price:       p.price,
		Stock:       p.stock,
		SKU:         p.sku,
		CategoryID:  p.categoryID,
		IsActive:    p.isActive,
		CreatedAt:   p.createdAt,
		UpdatedAt:   p.updatedAt,
	}
}

// touched returns a copy with updatedAt refreshed
func (p *Product) touched() *Product {
	cp := *p
	cp.updatedAt = now()
	return &cp
}

func (p *Product) UpdateName(name string) (*Product, error) {
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}
	next := p.touched()
	next.name = name
	return next, nil
}

func (p *Product) UpdateDescription(description string) *Product {
	next := p.touched()
	next.description = strings.TrimSpace(description)
	return next
}

func (p *Product) UpdatePrice(price float64) (*Product, error) {
	price, err := validatePrice(price)
	if err != nil {
		return nil, err
	}
	next := p.touched()
	next.price = price
	return next, nil
}

// UpdateStock replaces the stock level with an absolute value
func (p *Product) UpdateStock(stock int) (*Product, error) {
	if err := validateStock(stock); err != nil {
		return nil, err
	}
	next := p.touched()
	next.stock = stock
	return next, nil
}

func (p *Product) IncrementStock(amount int) (*Product, error) {
	if amount <= 0 {
		return nil, NewNonPositiveValueError("quantity", amount)
	}
	if amount > MaxStock-p.stock {
		return nil, NewStockOverflowError(amount)
	}
	next := p.touched()
	next.stock = p.stock + amount
	return next, nil
}

// DecrementStock removes amount units. Going below zero yields an InsufficientStockError.
func (p *Product) DecrementStock(amount int) (*Product, error) {
	if amount <= 0 {
		return nil, NewNonPositiveValueError("quantity", amount)
	}
	if amount > p.stock {
		return nil, NewInsufficientStockError(p.id, amount, p.stock)
	}
	next := p.touched()
	next.stock = p.stock - amount
	return next, nil
}

func (p *Product) UpdateCategory(categoryID string) (*Product, error) {
	categoryID, err := validateCategoryID(categoryID)
	if err != nil {
		return nil, err
	}
	next := p.touched()
	next.categoryID = categoryID
	return next, nil
}

// UpdateSKU replaces the SKU. Uniqueness is checked by the caller against the repository.
func (p *Product) UpdateSKU(sku string) (*Product, error) {
	sku, err := validateSKU(sku)
	if err != nil {
		return nil, err
	}
	next := p.touched()
	next.sku = sku
	return next, nil
}

// Activate returns the receiver itself when already active
func (p *Product) Activate() *Product {
	if p.isActive {
		return p
	}
	next := p.touched()
	next.isActive = true
	return next
}

// Deactivate returns the receiver itself when already inactive
func (p *Product) Deactivate() *Product {
	if !p.isActive {
		return p
	}
	next := p.touched()
	next.isActive = false
	return next
}

func (p *Product) IsInStock() bool {
	return p.stock > 0
}

func (p *Product) IsOutOfStock() bool {
	return p.stock == 0
}

// IsLowStock is true only when 0 < stock <= threshold
func (p *Product) IsLowStock(threshold int) bool {
	return p.stock > 0 && p.stock <= threshold
}

func (p *Product) IsExpensive(threshold float64) bool {
	return p.price > threshold
}

// CanBePurchased requires the product to be active with at least quantity units
func (p *Product) CanBePurchased(quantity int) bool {
	return p.isActive && p.stock >= quantity
}

// CheckAvailability explains why CanBePurchased would be false
func (p *Product) CheckAvailability(quantity int) error {
	if quantity <= 0 {
		return NewNonPositiveValueError("quantity", quantity)
	}
	if !p.isActive {
		return NewProductNotAvailableError(p.id, ReasonInactive)
	}
	if p.IsOutOfStock() {
		return NewProductNotAvailableError(p.id, ReasonOutOfStock)
	}
	if p.stock < quantity {
		return NewInsufficientStockError(p.id, quantity, p.stock)
	}
	return nil
}

// PriceValue returns the price as a value object in the default currency
func (p *Product) PriceValue() Price {
	return Price{amount: priceDecimal(p.price), currency: DefaultCurrency}
}

// FormattedPrice renders the price with its currency symbol, e.g. "$20.00"
func (p *Product) FormattedPrice() string {
	return p.PriceValue().Formatted()
}
