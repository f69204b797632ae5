package dto

import (
	"time"

	"github.com/mrops-br/product-catalog-api/internal/domain"
)

// Stock operations accepted by UpdateStockRequest
const (
	StockIncrement = "increment"
	StockDecrement = "decrement"
)

// CreateProductRequest represents the request to create a product
type CreateProductRequest struct {
	Name        string   `json:"name" validate:"required,max=255"`
	Description string   `json:"description" validate:"required"`
	Price       *float64 `json:"price" validate:"required,gte=0"`
	Stock       *int     `json:"stock" validate:"required,gte=0"`
	SKU         string   `json:"sku" validate:"required,max=32"`
	CategoryID  string   `json:"categoryId" validate:"required,max=64"`
}

// UpdateProductRequest carries a partial update; nil fields are left untouched
type UpdateProductRequest struct {
	Name        *string  `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Description *string  `json:"description,omitempty"`
	Price       *float64 `json:"price,omitempty" validate:"omitempty,gte=0"`
	Stock       *int     `json:"stock,omitempty" validate:"omitempty,gte=0"`
	SKU         *string  `json:"sku,omitempty" validate:"omitempty,min=1,max=32"`
	CategoryID  *string  `json:"categoryId,omitempty" validate:"omitempty,min=1,max=64"`
	IsActive    *bool    `json:"isActive,omitempty"`
}

// UpdateStockRequest adjusts stock relative to its current level
type UpdateStockRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,gt=0"`
	Operation string `json:"operation" validate:"required,oneof=increment decrement"`
}

// BulkPriceUpdateRequest changes every price in a category by a percentage
type BulkPriceUpdateRequest struct {
	PercentageChange float64 `json:"percentageChange" validate:"gt=-100"`
}

// ProductFiltersRequest mirrors the listing query parameters. Paging and sorting are
// normalized by domain.ProductFilters rather than rejected here.
type ProductFiltersRequest struct {
	Search     string   `json:"search,omitempty"`
	CategoryID string   `json:"categoryId,omitempty"`
	MinPrice   *float64 `json:"minPrice,omitempty" validate:"omitempty,gte=0"`
	MaxPrice   *float64 `json:"maxPrice,omitempty" validate:"omitempty,gte=0"`
	IsActive   *bool    `json:"isActive,omitempty"`
	InStock    *bool    `json:"inStock,omitempty"`
	Page       int      `json:"page,omitempty"`
	PageSize   int      `json:"pageSize,omitempty"`
	SortBy     string   `json:"sortBy,omitempty"`
	SortOrder  string   `json:"sortOrder,omitempty"`
}

// ToDomain converts the request to repository filters (defaults are applied later)
func (r ProductFiltersRequest) ToDomain() domain.ProductFilters {
	return domain.ProductFilters{
		Search:     r.Search,
		CategoryID: r.CategoryID,
		MinPrice:   r.MinPrice,
		MaxPrice:   r.MaxPrice,
		IsActive:   r.IsActive,
		InStock:    r.InStock,
		Page:       r.Page,
		PageSize:   r.PageSize,
		SortBy:     domain.SortField(r.SortBy),
		SortOrder:  domain.SortOrder(r.SortOrder),
	}
}

// ProductResponse represents the product response
type ProductResponse struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Description    string  `json:"description"`
	SKU            string  `json:"sku"`
	Price          float64 `json:"price"`
	FormattedPrice string  `json:"formattedPrice"`
	Stock          int     `json:"stock"`
	CategoryID     string  `json:"categoryId"`
	IsActive       bool    `json:"isActive"`
	IsInStock      bool    `json:"isInStock"`
	IsLowStock     bool    `json:"isLowStock"`
	CreatedAt      string  `json:"createdAt"`
	UpdatedAt      string  `json:"updatedAt"`
}

// PaginationMeta is the paging block of a listing response
type PaginationMeta struct {
	Page            int   `json:"page"`
	PageSize        int   `json:"pageSize"`
	TotalItems      int64 `json:"totalItems"`
	TotalPages      int   `json:"totalPages"`
	HasNextPage     bool  `json:"hasNextPage"`
	HasPreviousPage bool  `json:"hasPreviousPage"`
}

// PaginatedProductResponse wraps one page of products
type PaginatedProductResponse struct {
	Data []*ProductResponse `json:"data"`
	Meta PaginationMeta     `json:"meta"`
}

// CategorySummaryResponse aggregates catalog figures for one category
type CategorySummaryResponse struct {
	CategoryID     string `json:"categoryId"`
	TotalProducts  int64  `json:"totalProducts"`
	ActiveProducts int64  `json:"activeProducts"`
	NextSKU        string `json:"nextSku"`
}

// BulkPriceUpdateResponse reports how many products were repriced
type BulkPriceUpdateResponse struct {
	CategoryID       string  `json:"categoryId"`
	PercentageChange float64 `json:"percentageChange"`
	UpdatedCount     int64   `json:"updatedCount"`
}

// AvailabilityResponse answers whether a quantity can be purchased
type AvailabilityResponse struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ToProductResponse converts a domain Product to ProductResponse
func ToProductResponse(p *domain.Product, lowStockThreshold int) *ProductResponse {
	return &ProductResponse{
		ID:             p.ID(),
		Name:           p.Name(),
		Description:    p.Description(),
		SKU:            p.SKU(),
		Price:          p.Price(),
		FormattedPrice: p.FormattedPrice(),
		Stock:          p.Stock(),
		CategoryID:     p.CategoryID(),
		IsActive:       p.IsActive(),
		IsInStock:      p.IsInStock(),
		IsLowStock:     p.IsLowStock(lowStockThreshold),
		CreatedAt:      formatTimestamp(p.CreatedAt()),
		UpdatedAt:      formatTimestamp(p.UpdatedAt()),
	}
}

// ToProductResponseList converts a list of domain Products to ProductResponse list
func ToProductResponseList(products []*domain.Product, lowStockThreshold int) []*ProductResponse {
	responses := make([]*ProductResponse, len(products))
	for i, p := range products {
		responses[i] = ToProductResponse(p, lowStockThreshold)
	}
	return responses
}

// ToPaginatedProductResponse converts a repository page
func ToPaginatedProductResponse(page *domain.ProductPage, lowStockThreshold int) *PaginatedProductResponse {
	return &PaginatedProductResponse{
		Data: ToProductResponseList(page.Items, lowStockThreshold),
		Meta: PaginationMeta{
			Page:            page.Meta.Page,
			PageSize:        page.Meta.PageSize,
			TotalItems:      page.Meta.TotalItems,
			TotalPages:      page.Meta.TotalPages,
			HasNextPage:     page.Meta.HasNextPage,
			HasPreviousPage: page.Meta.HasPreviousPage,
		},
	}
}
