package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mrops-br/product-catalog-api/internal/app/dto"
	"github.com/mrops-br/product-catalog-api/internal/domain"
	"go.opentelemetry.io/otel/attribute"
)

// maxSKUSuggestionAttempts bounds the probing done by SuggestSKU
const maxSKUSuggestionAttempts = 1000

// GetProductBySKU retrieves a product by its SKU
func (s *ProductService) GetProductBySKU(ctx context.Context, sku string) (*dto.ProductResponse, error) {
	const op = "read_by_sku"
	ctx, span := s.tracer.Start(ctx, "ProductService.GetProductBySKU")
	defer span.End()

	sku = domain.NormalizeSKU(sku)
	span.SetAttributes(attribute.String("product.sku", sku))

	product, err := s.repo.FindBySKU(ctx, sku)
	if err != nil {
		return nil, s.fail(ctx, span, op, "Product lookup failed", fmt.Errorf("failed to load product by sku %s: %w", sku, err))
	}
	if product == nil {
		return nil, s.fail(ctx, span, op, "Product not found", domain.NewProductNotFoundError(sku, domain.IdentifierSKU))
	}

	s.succeed(ctx, span, op, "Product retrieved successfully",
		slog.String("product_id", product.ID()),
		slog.String("sku", sku),
	)
	return s.toResponse(product), nil
}

// ListCategoryProducts pages through the products of one category
func (s *ProductService) ListCategoryProducts(ctx context.Context, categoryID string, req dto.ProductFiltersRequest) (*dto.PaginatedProductResponse, error) {
	const op = "list_category"
	ctx, span := s.tracer.Start(ctx, "ProductService.ListCategoryProducts")
	defer span.End()

	span.SetAttributes(attribute.String("product.category_id", categoryID))

	if strings.TrimSpace(categoryID) == "" {
		return nil, s.fail(ctx, span, op, "Validation failed", domain.NewEmptyFieldError("categoryId"))
	}

	filters, err := req.ToDomain().Normalize()
	if err != nil {
		return nil, s.fail(ctx, span, op, "Invalid filters", err)
	}

	page, err := s.repo.FindByCategoryPaginated(ctx, categoryID, filters)
	if err != nil {
		return nil, s.fail(ctx, span, op, "Failed to list category products", err)
	}

	s.succeed(ctx, span, op, "Category products listed successfully",
		slog.String("category_id", categoryID),
		slog.Int("count", len(page.Items)),
	)
	return dto.ToPaginatedProductResponse(page, s.lowStockThreshold), nil
}

// SuggestSKU proposes the first free generated code for a category, starting right after
// the current number of products in it.
func (s *ProductService) SuggestSKU(ctx context.Context, categoryID string) (string, error) {
	const op = "suggest_sku"
	ctx, span := s.tracer.Start(ctx, "ProductService.SuggestSKU")
	defer span.End()

	span.SetAttributes(attribute.String("product.category_id", categoryID))

	code, err := s.nextFreeCode(ctx, categoryID)
	if err != nil {
		return "", s.fail(ctx, span, op, "Failed to suggest SKU", err)
	}

	s.succeed(ctx, span, op, "SKU suggested",
		slog.String("category_id", categoryID),
		slog.String("sku", code.String()),
	)
	return code.String(), nil
}

func (s *ProductService) nextFreeCode(ctx context.Context, categoryID string) (domain.ProductCode, error) {
	count, err := s.repo.CountByCategory(ctx, categoryID)
	if err != nil {
		return domain.ProductCode{}, fmt.Errorf("failed to count category products: %w", err)
	}

	code, err := domain.GenerateProductCode(categoryID, int(count)+1)
	if err != nil {
		return domain.ProductCode{}, err
	}
	for i := 0; i < maxSKUSuggestionAttempts; i++ {
		taken, err := s.repo.ExistsBySKU(ctx, code.String())
		if err != nil {
			return domain.ProductCode{}, fmt.Errorf("failed to check sku: %w", err)
		}
		if !taken {
			return code, nil
		}
		if code, err = code.Next(); err != nil {
			return domain.ProductCode{}, err
		}
	}
	return domain.ProductCode{}, fmt.Errorf("%w: no free code for category %q after %d attempts",
		domain.ErrInvalidFormat, categoryID, maxSKUSuggestionAttempts)
}

// GetCategorySummary reports product counts for a category along with a suggested SKU
func (s *ProductService) GetCategorySummary(ctx context.Context, categoryID string) (*dto.CategorySummaryResponse, error) {
	const op = "category_summary"
	ctx, span := s.tracer.Start(ctx, "ProductService.GetCategorySummary")
	defer span.End()

	span.SetAttributes(attribute.String("product.category_id", categoryID))

	if strings.TrimSpace(categoryID) == "" {
		return nil, s.fail(ctx, span, op, "Validation failed", domain.NewEmptyFieldError("categoryId"))
	}

	total, err := s.repo.CountByCategory(ctx, categoryID)
	if err != nil {
		return nil, s.fail(ctx, span, op, "Failed to count category products", err)
	}
	active, err := s.repo.CountActiveProducts(ctx)
	if err != nil {
		return nil, s.fail(ctx, span, op, "Failed to count active products", err)
	}
	code, err := s.nextFreeCode(ctx, categoryID)
	if err != nil {
		return nil, s.fail(ctx, span, op, "Failed to suggest SKU", err)
	}

	s.succeed(ctx, span, op, "Category summary computed",
		slog.String("category_id", categoryID),
		slog.Int64("total", total),
	)
	return &dto.CategorySummaryResponse{
		CategoryID:     categoryID,
		TotalProducts:  total,
		ActiveProducts: active,
		NextSKU:        code.String(),
	}, nil
}

// BulkUpdateCategoryPrices changes every price in a category by percentageChange percent
func (s *ProductService) BulkUpdateCategoryPrices(ctx context.Context, categoryID string, req *dto.BulkPriceUpdateRequest) (*dto.BulkPriceUpdateResponse, error) {
	const op = "bulk_price_update"
	ctx, span := s.tracer.Start(ctx, "ProductService.BulkUpdateCategoryPrices")
	defer span.End()

	span.SetAttributes(
		attribute.String("product.category_id", categoryID),
		attribute.Float64("price.percentage_change", req.PercentageChange),
	)

	if strings.TrimSpace(categoryID) == "" {
		return nil, s.fail(ctx, span, op, "Validation failed", domain.NewEmptyFieldError("categoryId"))
	}
	if err := domain.ValidatePercentageChange(req.PercentageChange); err != nil {
		return nil, s.fail(ctx, span, op, "Validation failed", err)
	}

	affected, err := s.repo.BulkUpdatePrices(ctx, categoryID, req.PercentageChange)
	if err != nil {
		return nil, s.fail(ctx, span, op, "Failed to update prices", err)
	}

	span.SetAttributes(attribute.Int64("product.count", affected))
	s.succeed(ctx, span, op, "Category prices updated",
		slog.String("category_id", categoryID),
		slog.Float64("percentage_change", req.PercentageChange),
		slog.Int64("updated", affected),
	)
	return &dto.BulkPriceUpdateResponse{
		CategoryID:       categoryID,
		PercentageChange: req.PercentageChange,
		UpdatedCount:     affected,
	}, nil
}

// ListLowStockProducts returns products with 0 < stock <= threshold.
// A non-positive threshold falls back to the configured one.
func (s *ProductService) ListLowStockProducts(ctx context.Context, threshold int) ([]*dto.ProductResponse, error) {
	const op = "low_stock_report"
	ctx, span := s.tracer.Start(ctx, "ProductService.ListLowStockProducts")
	defer span.End()

	if threshold <= 0 {
		threshold = s.lowStockThreshold
	}
	span.SetAttributes(attribute.Int("stock.threshold", threshold))

	products, err := s.repo.FindLowStockProducts(ctx, threshold)
	if err != nil {
		return nil, s.fail(ctx, span, op, "Failed to list low stock products", err)
	}

	s.succeed(ctx, span, op, "Low stock products listed",
		slog.Int("threshold", threshold),
		slog.Int("count", len(products)),
	)
	return dto.ToProductResponseList(products, s.lowStockThreshold), nil
}

// ListOutOfStockProducts returns products with zero stock
func (s *ProductService) ListOutOfStockProducts(ctx context.Context) ([]*dto.ProductResponse, error) {
	const op = "out_of_stock_report"
	ctx, span := s.tracer.Start(ctx, "ProductService.ListOutOfStockProducts")
	defer span.End()

	products, err := s.repo.FindOutOfStockProducts(ctx)
	if err != nil {
		return nil, s.fail(ctx, span, op, "Failed to list out of stock products", err)
	}

	s.succeed(ctx, span, op, "Out of stock products listed",
		slog.Int("count", len(products)),
	)
	return dto.ToProductResponseList(products, s.lowStockThreshold), nil
}

// ActivateProduct marks a product as active
func (s *ProductService) ActivateProduct(ctx context.Context, id string) (*dto.ProductResponse, error) {
	return s.setActive(ctx, id, true)
}

// DeactivateProduct marks a product as inactive
func (s *ProductService) DeactivateProduct(ctx context.Context, id string) (*dto.ProductResponse, error) {
	return s.setActive(ctx, id, false)
}

func (s *ProductService) setActive(ctx context.Context, id string, active bool) (*dto.ProductResponse, error) {
	op, spanName := "activate", "ProductService.ActivateProduct"
	if !active {
		op, spanName = "deactivate", "ProductService.DeactivateProduct"
	}
	ctx, span := s.tracer.Start(ctx, spanName)
	defer span.End()

	span.SetAttributes(attribute.String("product.id", id))

	current, err := s.loadProduct(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, span, op, "Product lookup failed", err)
	}
	if current.IsActive() == active {
		s.succeed(ctx, span, op, "Product status unchanged", slog.String("product_id", id))
		return s.toResponse(current), nil
	}

	var saved *domain.Product
	if active {
		saved, err = s.repo.ActivateProduct(ctx, id)
	} else {
		saved, err = s.repo.DeactivateProduct(ctx, id)
	}
	if err != nil {
		return nil, s.fail(ctx, span, op, "Failed to change product status", integrityError(err))
	}

	s.succeed(ctx, span, op, "Product status changed",
		slog.String("product_id", id),
		slog.Bool("is_active", saved.IsActive()),
	)
	return s.toResponse(saved), nil
}

// CheckAvailability reports whether quantity units can be purchased. Business reasons for
// refusal are part of the response; only lookup and input failures are returned as errors.
func (s *ProductService) CheckAvailability(ctx context.Context, id string, quantity int) (*dto.AvailabilityResponse, error) {
	const op = "availability"
	ctx, span := s.tracer.Start(ctx, "ProductService.CheckAvailability")
	defer span.End()

	span.SetAttributes(
		attribute.String("product.id", id),
		attribute.Int("stock.quantity", quantity),
	)

	product, err := s.loadProduct(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, span, op, "Product lookup failed", err)
	}

	resp := &dto.AvailabilityResponse{ProductID: id, Quantity: quantity, Available: true}
	if err := product.CheckAvailability(quantity); err != nil {
		if domain.IsInvalidProductDataError(err) {
			return nil, s.fail(ctx, span, op, "Validation failed", err)
		}
		resp.Available = false
		resp.Reason = err.Error()
	}

	s.succeed(ctx, span, op, "Availability checked",
		slog.String("product_id", id),
		slog.Bool("available", resp.Available),
	)
	return resp, nil
}
