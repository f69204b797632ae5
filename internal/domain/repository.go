package domain

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// SortField names a column products can be ordered by
type SortField string

const (
	SortByName      SortField = "name"
	SortByPrice     SortField = "price"
	SortByCreatedAt SortField = "createdAt"
	SortByStock     SortField = "stock"
)

// SortOrder is ASC or DESC
type SortOrder string

const (
	SortAsc  SortOrder = "ASC"
	SortDesc SortOrder = "DESC"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100
	// MaxPage keeps (page-1)*pageSize within int
	MaxPage = math.MaxInt / MaxPageSize
)

// ProductFilters narrows and pages a product listing. Nil pointers mean "no constraint".
type ProductFilters struct {
	Search     string
	CategoryID string
	MinPrice   *float64
	MaxPrice   *float64
	IsActive   *bool
	InStock    *bool
	Page       int
	PageSize   int
	SortBy     SortField
	SortOrder  SortOrder
}

// Normalize applies paging and sorting defaults and rejects unknown sort options.
func (f ProductFilters) Normalize() (ProductFilters, error) {
	f.Search = strings.TrimSpace(f.Search)
	f.CategoryID = strings.TrimSpace(f.CategoryID)
	if f.Page < 1 {
		f.Page = DefaultPage
	}
	if f.Page > MaxPage {
		return f, NewInvalidProductDataError(fmt.Sprintf("must be at most %d", MaxPage), "page", f.Page)
	}
	if f.PageSize < 1 {
		f.PageSize = DefaultPageSize
	}
	if f.PageSize > MaxPageSize {
		f.PageSize = MaxPageSize
	}

	switch f.SortBy {
	case "":
		f.SortBy = SortByCreatedAt
	case SortByName, SortByPrice, SortByCreatedAt, SortByStock:
	default:
		return f, NewInvalidFieldFormatError("sortBy", f.SortBy, "one of name, price, createdAt, stock")
	}

	order := SortOrder(strings.ToUpper(string(f.SortOrder)))
	switch order {
	case "":
		f.SortOrder = SortDesc
	case SortAsc, SortDesc:
		f.SortOrder = order
	default:
		return f, NewInvalidFieldFormatError("sortOrder", f.SortOrder, "ASC or DESC")
	}

	if f.MinPrice != nil && *f.MinPrice < 0 {
		return f, NewNegativeValueError("minPrice", *f.MinPrice)
	}
	if f.MaxPrice != nil && *f.MaxPrice < 0 {
		return f, NewNegativeValueError("maxPrice", *f.MaxPrice)
	}
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return f, NewInvalidProductDataError("minPrice cannot exceed maxPrice", "minPrice", *f.MinPrice)
	}
	return f, nil
}

// Offset returns the number of rows to skip for the current page
func (f ProductFilters) Offset() int {
	return (f.Page - 1) * f.PageSize
}

// Matches applies every non-paging filter to a single product
func (f ProductFilters) Matches(p *Product) bool {
	if f.CategoryID != "" && p.CategoryID() != f.CategoryID {
		return false
	}
	if f.MinPrice != nil && p.Price() < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.Price() > *f.MaxPrice {
		return false
	}
	if f.IsActive != nil && p.IsActive() != *f.IsActive {
		return false
	}
	if f.InStock != nil && p.IsInStock() != *f.InStock {
		return false
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(p.Name()), needle) &&
			!strings.Contains(strings.ToLower(p.Description()), needle) &&
			!strings.Contains(strings.ToLower(p.SKU()), needle) {
			return false
		}
	}
	return true
}

// PageMeta describes where a page sits in the full result set
type PageMeta struct {
	Page            int
	PageSize        int
	TotalItems      int64
	TotalPages      int
	HasNextPage     bool
	HasPreviousPage bool
}

// NewPageMeta computes paging metadata for total items
func NewPageMeta(page, pageSize int, totalItems int64) PageMeta {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int(math.Ceil(float64(totalItems) / float64(pageSize)))
	}
	return PageMeta{
		Page:            page,
		PageSize:        pageSize,
		TotalItems:      totalItems,
		TotalPages:      totalPages,
		HasNextPage:     page < totalPages,
		HasPreviousPage: page > 1,
	}
}

// ProductPage is one page of a filtered listing
type ProductPage struct {
	Items []*Product
	Meta  PageMeta
}

// ProductRepository defines the contract for product storage.
//
// FindByID and FindBySKU return (nil, nil) when nothing matches. Mutations keyed by id
// return a ProductNotFoundError when the row is gone at write time.
type ProductRepository interface {
	Create(ctx context.Context, product *Product) (*Product, error)
	FindByID(ctx context.Context, id string) (*Product, error)
	FindBySKU(ctx context.Context, sku string) (*Product, error)
	FindAll(ctx context.Context, filters ProductFilters) (*ProductPage, error)
	Update(ctx context.Context, id string, product *Product) (*Product, error)
	Delete(ctx context.Context, id string) error

	ExistsBySKU(ctx context.Context, sku string) (bool, error)
	ExistsBySKUExcludingID(ctx context.Context, sku, excludeID string) (bool, error)

	FindByCategory(ctx context.Context, categoryID string) ([]*Product, error)
	FindByCategoryPaginated(ctx context.Context, categoryID string, filters ProductFilters) (*ProductPage, error)
	CountByCategory(ctx context.Context, categoryID string) (int64, error)
	BulkUpdatePrices(ctx context.Context, categoryID string, percentageChange float64) (int64, error)

	UpdateStock(ctx context.Context, id string, quantity int) (*Product, error)
	IncrementStock(ctx context.Context, id string, amount int) (*Product, error)
	DecrementStock(ctx context.Context, id string, amount int) (*Product, error)
	FindLowStockProducts(ctx context.Context, threshold int) ([]*Product, error)
	FindOutOfStockProducts(ctx context.Context) ([]*Product, error)

	ActivateProduct(ctx context.Context, id string) (*Product, error)
	DeactivateProduct(ctx context.Context, id string) (*Product, error)
	CountActiveProducts(ctx context.Context) (int64, error)
}

// ValidatePercentageChange checks a bulk price change; prices may not drop to zero or below.
func ValidatePercentageChange(pct float64) error {
	if math.IsNaN(pct) || math.IsInf(pct, 0) {
		return NewInvalidProductDataError("must be a finite number", "percentageChange", pct)
	}
	if pct <= -100 {
		return NewInvalidProductDataError("must be greater than -100", "percentageChange", pct)
	}
	return nil
}

// ApplyPercentageChange returns price adjusted by pct percent, rounded to cents
func ApplyPercentageChange(price, pct float64) float64 {
	factor := hundred.Add(decimal.NewFromFloat(pct)).Div(hundred)
	return priceDecimal(price).Mul(factor).Round(2).InexactFloat64()
}
