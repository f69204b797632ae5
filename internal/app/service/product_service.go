package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/mrops-br/product-catalog-api/internal/app/dto"
	"github.com/mrops-br/product-catalog-api/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ProductService handles product use cases
type ProductService struct {
	repo                  domain.ProductRepository
	tracer                trace.Tracer
	logger                *slog.Logger
	productCreatedCounter metric.Int64Counter
	productOperations     metric.Int64Counter
	stockAdjustments      metric.Int64Counter
	lowStockThreshold     int
	newID                 func() string
}

// Option customizes a ProductService
type Option func(*ProductService)

// WithLowStockThreshold sets the threshold used for isLowStock and low-stock reports
func WithLowStockThreshold(threshold int) Option {
	return func(s *ProductService) {
		if threshold > 0 {
			s.lowStockThreshold = threshold
		}
	}
}

// WithIDGenerator replaces the uuid-based identity generator
func WithIDGenerator(fn func() string) Option {
	return func(s *ProductService) {
		if fn != nil {
			s.newID = fn
		}
	}
}

// NewProductService creates a new product service
func NewProductService(
	repo domain.ProductRepository,
	tracer trace.Tracer,
	meter metric.Meter,
	logger *slog.Logger,
	opts ...Option,
) *ProductService {
	productCreatedCounter, _ := meter.Int64Counter(
		"products.created.total",
		metric.WithDescription("Total number of products created"),
	)

	productOperations, _ := meter.Int64Counter(
		"products.operations",
		metric.WithDescription("Total number of product operations"),
	)

	stockAdjustments, _ := meter.Int64Counter(
		"products.stock.adjusted.units",
		metric.WithDescription("Units added to or removed from stock"),
		metric.WithUnit("{unit}"),
	)

	s := &ProductService{
		repo:                  repo,
		tracer:                tracer,
		logger:                logger,
		productCreatedCounter: productCreatedCounter,
		productOperations:     productOperations,
		stockAdjustments:      stockAdjustments,
		lowStockThreshold:     domain.DefaultLowStockThreshold,
		newID:                 func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LowStockThreshold returns the threshold applied to responses
func (s *ProductService) LowStockThreshold() int {
	return s.lowStockThreshold
}

func (s *ProductService) recordOperation(ctx context.Context, operation, result string) {
	s.productOperations.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("result", result),
		),
	)
}

// resultLabel classifies an error for the operations counter
func resultLabel(err error) string {
	switch {
	case domain.IsProductNotFoundError(err):
		return "not_found"
	case domain.IsDuplicateProductCodeError(err):
		return "duplicate"
	case domain.IsInsufficientStockError(err):
		return "insufficient_stock"
	case domain.IsProductNotAvailableError(err):
		return "not_available"
	case domain.IsValidationError(err):
		return "invalid"
	default:
		return "failure"
	}
}

// fail records err on the span, logs it and counts the failed operation.
// Business rejections log at warn, everything else at error.
func (s *ProductService) fail(ctx context.Context, span trace.Span, operation, msg string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, msg)

	result := resultLabel(err)
	if result == "failure" {
		s.logger.ErrorContext(ctx, msg,
			slog.String("operation", operation),
			slog.String("error", err.Error()),
		)
	} else {
		s.logger.WarnContext(ctx, msg,
			slog.String("operation", operation),
			slog.String("result", result),
			slog.String("error", err.Error()),
		)
	}
	s.recordOperation(ctx, operation, result)
	return err
}

func (s *ProductService) succeed(ctx context.Context, span trace.Span, operation, msg string, attrs ...any) {
	s.recordOperation(ctx, operation, "success")
	s.logger.InfoContext(ctx, msg, attrs...)
	span.SetStatus(codes.Ok, msg)
}

// integrityError turns a not-found from a write that follows a successful read into
// ErrPersistenceIntegrity.
func integrityError(err error) error {
	if domain.IsProductNotFoundError(err) {
		return fmt.Errorf("%w: %v", domain.ErrPersistenceIntegrity, err)
	}
	return err
}

// loadProduct fetches a product by id, mapping absence to ProductNotFoundError
func (s *ProductService) loadProduct(ctx context.Context, id string) (*domain.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load product %s: %w", id, err)
	}
	if product == nil {
		return nil, domain.NewProductNotFoundError(id, domain.IdentifierID)
	}
	return product, nil
}

func (s *ProductService) toResponse(p *domain.Product) *dto.ProductResponse {
	return dto.ToProductResponse(p, s.lowStockThreshold)
}

// CreateProduct creates a new product
func (s *ProductService) CreateProduct(ctx context.Context, req *dto.CreateProductRequest) (*dto.ProductResponse, error) {
	const op = "create"
	ctx, span := s.tracer.Start(ctx, "ProductService.CreateProduct")
	defer span.End()

	sku := domain.NormalizeSKU(req.SKU)
	span.SetAttributes(
		attribute.String("product.name", req.Name),
		attribute.String("product.sku", sku),
		attribute.String("product.category_id", req.CategoryID),
	)

	s.logger.InfoContext(ctx, "Creating product",
		slog.String("name", req.Name),
		slog.String("sku", sku),
	)

	exists, err := s.repo.ExistsBySKU(ctx, sku)
	if err != nil {
		return nil, s.fail(ctx, span, op, "Failed to check SKU uniqueness", fmt.Errorf("failed to check sku: %w", err))
	}
	if exists {
		return nil, s.fail(ctx, span, op, "Duplicate SKU", domain.NewDuplicateProductCodeError(sku, domain.IdentifierSKU))
	}

	if req.Price == nil {
		return nil, s.fail(ctx, span, op, "Validation failed", domain.NewEmptyFieldError("price"))
	}
	if req.Stock == nil {
		return nil, s.fail(ctx, span, op, "Validation failed", domain.NewEmptyFieldError("stock"))
	}

	product, err := domain.NewProduct(domain.NewProductParams{
		ID:          s.newID(),
		Name:        req.Name,
		Description: req.Description,
		Price:       *req.Price,
		Stock:       *req.Stock,
		SKU:         sku,
		CategoryID:  req.CategoryID,
	})
	if err != nil {
		return nil, s.fail(ctx, span, op, "Validation failed", err)
	}

	span.SetAttributes(attribute.String("product.id", product.ID()))

	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return nil, s.fail(ctx, span, op, "Failed to store product", err)
	}

	s.productCreatedCounter.Add(ctx, 1)
	s.succeed(ctx, span, op, "Product created successfully",
		slog.String("product_id", created.ID()),
	)
	return s.toResponse(created), nil
}

// GetProductByID retrieves a product by ID
func (s *ProductService) GetProductByID(ctx context.Context, id string) (*dto.ProductResponse, error) {
	const op = "read"
	ctx, span := s.tracer.Start(ctx, "ProductService.GetProductByID")
	defer span.End()

	span.SetAttributes(attribute.String("product.id", id))

	s.logger.InfoContext(ctx, "Getting product by ID",
		slog.String("product_id", id),
	)

	product, err := s.loadProduct(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, span, op, "Product lookup failed", err)
	}

	s.succeed(ctx, span, op, "Product retrieved successfully",
		slog.String("product_id", id),
	)
	return s.toResponse(product), nil
}

// GetProducts lists products page by page
func (s *ProductService) GetProducts(ctx context.Context, req dto.ProductFiltersRequest) (*dto.PaginatedProductResponse, error) {
	const op = "list"
	ctx, span := s.tracer.Start(ctx, "ProductService.GetProducts")
	defer span.End()

	filters, err := req.ToDomain().Normalize()
	if err != nil {
		return nil, s.fail(ctx, span, op, "Invalid filters", err)
	}

	span.SetAttributes(
		attribute.Int("page", filters.Page),
		attribute.Int("page_size", filters.PageSize),
		attribute.String("sort_by", string(filters.SortBy)),
		attribute.String("sort_order", string(filters.SortOrder)),
	)

	s.logger.InfoContext(ctx, "Listing products",
		slog.Int("page", filters.Page),
		slog.Int("page_size", filters.PageSize),
	)

	page, err := s.repo.FindAll(ctx, filters)
	if err != nil {
		return nil, s.fail(ctx, span, op, "Failed to list products", err)
	}

	span.SetAttributes(attribute.Int("product.count", len(page.Items)))
	s.succeed(ctx, span, op, "Products listed successfully",
		slog.Int("count", len(page.Items)),
		slog.Int64("total", page.Meta.TotalItems),
	)
	return dto.ToPaginatedProductResponse(page, s.lowStockThreshold), nil
}

// UpdateProduct applies the fields present in req and leaves the rest untouched
func (s *ProductService) UpdateProduct(ctx context.Context, id string, req *dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	const op = "update"
	ctx, span := s.tracer.Start(ctx, "ProductService.UpdateProduct")
	defer span.End()

	span.SetAttributes(attribute.String("product.id", id))

	s.logger.InfoContext(ctx, "Updating product",
		slog.String("product_id", id),
	)

	current, err := s.loadProduct(ctx, id)
	if err != nil {
		return nil, s.fail(ctx, span, op, "Product lookup failed", err)
	}

	updated, err := s.applyUpdate(ctx, current, req)
	if err != nil {
		return nil, s.fail(ctx, span, op, "Update rejected", err)
	}

	if updated == current {
		s.succeed(ctx, span, op, "Product unchanged", slog.String("product_id", id))
		return s.toResponse(current), nil
	}

	saved, err := s.repo.Update(ctx, id, updated)
	if err != nil {
		return nil, s.fail(ctx, span, op, "Failed to store product", integrityError(err))
	}

	s.succeed(ctx, span, op, "Product updated successfully",
		slog.String("product_id", id),
	)
	return s.toResponse(saved), nil
}

func (s *ProductService) applyUpdate(ctx context.Context, p *domain.Product, req *dto.UpdateProductRequest) (*domain.Product, error) {
	var err error
	if req.Name != nil {
		if p, err = p.UpdateName(*req.Name); err != nil {
			return nil, err
		}
	}
	if req.Description != nil {
		p = p.UpdateDescription(*req.Description)
	}
	if req.Price != nil {
		if p, err = p.UpdatePrice(*req.Price); err != nil {
			return nil, err
		}
	}
	if req.Stock != nil {
		if p, err = p.UpdateStock(*req.Stock); err != nil {
			return nil, err
		}
	}
	if req.CategoryID != nil {
		if p, err = p.UpdateCategory(*req.CategoryID); err != nil {
			return nil, err
		}
	}
	if req.SKU != nil && domain.NormalizeSKU(*req.SKU) != p.SKU() {
		sku := domain.NormalizeSKU(*req.SKU)
		taken, err := s.repo.ExistsBySKUExcludingID(ctx, sku, p.ID())
		if err != nil {
			return nil, fmt.Errorf("failed to check sku: %w", err)
		}
		if taken {
			return nil, domain.NewDuplicateProductCodeError(sku, domain.IdentifierSKU)
		}
		if p, err = p.UpdateSKU(sku); err != nil {
			return nil, err
		}
	}
	if req.IsActive != nil {
		if *req.IsActive {
			p = p.Activate()
		} else {
			p = p.Deactivate()
		}
	}
	return p, nil
}

// DeleteProduct physically removes a product
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	const op = "delete"
	ctx, span := s.tracer.Start(ctx, "ProductService.DeleteProduct")
	defer span.End()

	span.SetAttributes(attribute.String("product.id", id))

	s.logger.InfoContext(ctx, "Deleting product",
		slog.String("product_id", id),
	)

	if _, err := s.loadProduct(ctx, id); err != nil {
		return s.fail(ctx, span, op, "Product lookup failed", err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return s.fail(ctx, span, op, "Failed to delete product", integrityError(err))
	}

	s.succeed(ctx, span, op, "Product deleted successfully",
		slog.String("product_id", id),
	)
	return nil
}

// UpdateStock increments or decrements stock and persists the new absolute level.
//
// The read and the write are separate repository calls; concurrent decrements can race.
// Callers needing a guarded decrement should use the repository's DecrementStock.
func (s *ProductService) UpdateStock(ctx context.Context, req *dto.UpdateStockRequest) (*dto.ProductResponse, error) {
	const op = "update_stock"
	ctx, span := s.tracer.Start(ctx, "ProductService.UpdateStock")
	defer span.End()

	span.SetAttributes(
		attribute.String("product.id", req.ProductID),
		attribute.Int("stock.quantity", req.Quantity),
		attribute.String("stock.operation", req.Operation),
	)

	s.logger.InfoContext(ctx, "Updating stock",
		slog.String("product_id", req.ProductID),
		slog.String("operation", req.Operation),
		slog.Int("quantity", req.Quantity),
	)

	product, err := s.loadProduct(ctx, req.ProductID)
	if err != nil {
		return nil, s.fail(ctx, span, op, "Product lookup failed", err)
	}

	if req.Quantity <= 0 {
		return nil, s.fail(ctx, span, op, "Validation failed", domain.NewNonPositiveValueError("quantity", req.Quantity))
	}

	var adjusted *domain.Product
	switch req.Operation {
	case dto.StockIncrement:
		adjusted, err = product.IncrementStock(req.Quantity)
	case dto.StockDecrement:
		adjusted, err = product.DecrementStock(req.Quantity)
	default:
		err = domain.NewInvalidFieldFormatError("operation", req.Operation, "increment or decrement")
	}
	if err != nil {
		return nil, s.fail(ctx, span, op, "Stock adjustment rejected", err)
	}

	saved, err := s.repo.UpdateStock(ctx, req.ProductID, adjusted.Stock())
	if err != nil {
		return nil, s.fail(ctx, span, op, "Failed to store stock", integrityError(err))
	}

	s.stockAdjustments.Add(ctx, int64(req.Quantity),
		metric.WithAttributes(attribute.String("operation", req.Operation)),
	)
	span.SetAttributes(attribute.Int("stock.new", saved.Stock()))
	s.succeed(ctx, span, op, "Stock updated successfully",
		slog.String("product_id", req.ProductID),
		slog.Int("previous_stock", product.Stock()),
		slog.Int("new_stock", saved.Stock()),
	)
	return s.toResponse(saved), nil
}
