package memory

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mrops-br/product-catalog-api/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ProductRepository is an in-memory implementation of domain.ProductRepository
type ProductRepository struct {
	mu       sync.RWMutex
	products map[string]domain.ProductSnapshot
	skuIndex map[string]string
	tracer   trace.Tracer
	logger   *slog.Logger
}

var _ domain.ProductRepository = (*ProductRepository)(nil)

// NewProductRepository creates a new in-memory product repository
func NewProductRepository(tracer trace.Tracer, logger *slog.Logger) *ProductRepository {
	return &ProductRepository{
		products: make(map[string]domain.ProductSnapshot),
		skuIndex: make(map[string]string),
		tracer:   tracer,
		logger:   logger,
	}
}

func (r *ProductRepository) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository."+name)
	span.SetAttributes(attrs...)
	return ctx, span
}

func (r *ProductRepository) failed(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// Create stores a new product
func (r *ProductRepository) Create(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	ctx, span := r.start(ctx, "Create",
		attribute.String("product.id", product.ID()),
		attribute.String("product.sku", product.SKU()),
	)
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, r.failed(span, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.skuIndex[product.SKU()]; exists {
		return nil, r.failed(span, domain.NewDuplicateProductCodeError(product.SKU(), domain.IdentifierSKU))
	}
	if _, exists := r.products[product.ID()]; exists {
		return nil, r.failed(span, domain.NewDuplicateProductCodeError(product.ID(), domain.IdentifierID))
	}

	snap := product.Snapshot()
	r.products[snap.ID] = snap
	r.skuIndex[snap.SKU] = snap.ID

	r.logger.InfoContext(ctx, "Product created in repository",
		slog.String("product_id", snap.ID),
		slog.String("sku", snap.SKU),
	)

	span.SetStatus(codes.Ok, "Product created successfully")
	return domain.RestoreProduct(snap), nil
}

// FindByID retrieves a product by ID; (nil, nil) when absent
func (r *ProductRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	ctx, span := r.start(ctx, "FindByID", attribute.String("product.id", id))
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, r.failed(span, err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	snap, ok := r.products[id]
	if !ok {
		r.logger.DebugContext(ctx, "Product not found in repository", slog.String("product_id", id))
		return nil, nil
	}
	return domain.RestoreProduct(snap), nil
}

// FindBySKU retrieves a product by SKU; (nil, nil) when absent
func (r *ProductRepository) FindBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	sku = domain.NormalizeSKU(sku)
	ctx, span := r.start(ctx, "FindBySKU", attribute.String("product.sku", sku))
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, r.failed(span, err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.skuIndex[sku]
	if !ok {
		return nil, nil
	}
	return domain.RestoreProduct(r.products[id]), nil
}

// FindAll filters, sorts and pages every stored product
func (r *ProductRepository) FindAll(ctx context.Context, filters domain.ProductFilters) (*domain.ProductPage, error) {
	ctx, span := r.start(ctx, "FindAll")
	defer span.End()

	page, err := r.page(ctx, filters)
	if err != nil {
		return nil, r.failed(span, err)
	}

	span.SetAttributes(attribute.Int("product.count", len(page.Items)))
	r.logger.DebugContext(ctx, "Products retrieved from repository",
		slog.Int("count", len(page.Items)),
		slog.Int64("total", page.Meta.TotalItems),
	)
	return page, nil
}

func (r *ProductRepository) page(ctx context.Context, filters domain.ProductFilters) (*domain.ProductPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	filters, err := filters.Normalize()
	if err != nil {
		return nil, err
	}

	matched := r.collect(filters.Matches)
	sortProducts(matched, filters.SortBy, filters.SortOrder)

	total := len(matched)
	start := filters.Offset()
	if start < 0 || start > total {
		start = total
	}
	end := start + filters.PageSize
	if end > total {
		end = total
	}

	return &domain.ProductPage{
		Items: matched[start:end],
		Meta:  domain.NewPageMeta(filters.Page, filters.PageSize, int64(total)),
	}, nil
}

// collect returns every product accepted by keep, ordered by creation time
func (r *ProductRepository) collect(keep func(*domain.Product) bool) []*domain.Product {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Product, 0, len(r.products))
	for _, snap := range r.products {
		p := domain.RestoreProduct(snap)
		if keep(p) {
			out = append(out, p)
		}
	}
	sortProducts(out, domain.SortByCreatedAt, domain.SortAsc)
	return out
}

func sortProducts(products []*domain.Product, by domain.SortField, order domain.SortOrder) {
	less := func(a, b *domain.Product) int {
		switch by {
		case domain.SortByName:
			return strings.Compare(strings.ToLower(a.Name()), strings.ToLower(b.Name()))
		case domain.SortByPrice:
			return compareOrdered(a.Price(), b.Price())
		case domain.SortByStock:
			return compareOrdered(a.Stock(), b.Stock())
		default:
			return a.CreatedAt().Compare(b.CreatedAt())
		}
	}
	sort.SliceStable(products, func(i, j int) bool {
		c := less(products[i], products[j])
		if c == 0 {
			c = strings.Compare(products[i].ID(), products[j].ID())
		}
		if order == domain.SortAsc {
			return c < 0
		}
		return c > 0
	})
}

func compareOrdered[T int | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Update replaces the stored state of a product
func (r *ProductRepository) Update(ctx context.Context, id string, product *domain.Product) (*domain.Product, error) {
	ctx, span := r.start(ctx, "Update", attribute.String("product.id", id))
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, r.failed(span, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.products[id]
	if !ok {
		return nil, r.failed(span, domain.NewProductNotFoundError(id, domain.IdentifierID))
	}

	snap := product.Snapshot()
	snap.ID = id
	snap.CreatedAt = current.CreatedAt
	if snap.SKU != current.SKU {
		if owner, taken := r.skuIndex[snap.SKU]; taken && owner != id {
			return nil, r.failed(span, domain.NewDuplicateProductCodeError(snap.SKU, domain.IdentifierSKU))
		}
		delete(r.skuIndex, current.SKU)
		r.skuIndex[snap.SKU] = id
	}
	r.products[id] = snap

	r.logger.InfoContext(ctx, "Product updated in repository", slog.String("product_id", id))
	span.SetStatus(codes.Ok, "Product updated successfully")
	return domain.RestoreProduct(snap), nil
}

// Delete physically removes a product
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	ctx, span := r.start(ctx, "Delete", attribute.String("product.id", id))
	defer span.End()

	if err := ctx.Err(); err != nil {
		return r.failed(span, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	snap, ok := r.products[id]
	if !ok {
		return r.failed(span, domain.NewProductNotFoundError(id, domain.IdentifierID))
	}
	delete(r.products, id)
	delete(r.skuIndex, snap.SKU)

	r.logger.InfoContext(ctx, "Product deleted from repository", slog.String("product_id", id))
	span.SetStatus(codes.Ok, "Product deleted successfully")
	return nil
}

// ExistsBySKU reports whether any product owns sku
func (r *ProductRepository) ExistsBySKU(ctx context.Context, sku string) (bool, error) {
	return r.ExistsBySKUExcludingID(ctx, sku, "")
}

// ExistsBySKUExcludingID reports whether a product other than excludeID owns sku
func (r *ProductRepository) ExistsBySKUExcludingID(ctx context.Context, sku, excludeID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	owner, ok := r.skuIndex[domain.NormalizeSKU(sku)]
	return ok && owner != excludeID, nil
}

// FindByCategory returns every product of a category ordered by creation time
func (r *ProductRepository) FindByCategory(ctx context.Context, categoryID string) ([]*domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.collect(func(p *domain.Product) bool { return p.CategoryID() == categoryID }), nil
}

// FindByCategoryPaginated pages through a category using the remaining filters
func (r *ProductRepository) FindByCategoryPaginated(ctx context.Context, categoryID string, filters domain.ProductFilters) (*domain.ProductPage, error) {
	ctx, span := r.start(ctx, "FindByCategoryPaginated", attribute.String("product.category_id", categoryID))
	defer span.End()

	filters.CategoryID = categoryID
	page, err := r.page(ctx, filters)
	if err != nil {
		return nil, r.failed(span, err)
	}
	return page, nil
}

// CountByCategory counts the products of a category
func (r *ProductRepository) CountByCategory(ctx context.Context, categoryID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return r.count(func(s domain.ProductSnapshot) bool { return s.CategoryID == categoryID }), nil
}

// CountActiveProducts counts active products across the catalog
func (r *ProductRepository) CountActiveProducts(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return r.count(func(s domain.ProductSnapshot) bool { return s.IsActive }), nil
}

func (r *ProductRepository) count(keep func(domain.ProductSnapshot) bool) int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, snap := range r.products {
		if keep(snap) {
			n++
		}
	}
	return n
}

// BulkUpdatePrices applies a percentage change to every price in a category
func (r *ProductRepository) BulkUpdatePrices(ctx context.Context, categoryID string, percentageChange float64) (int64, error) {
	ctx, span := r.start(ctx, "BulkUpdatePrices",
		attribute.String("product.category_id", categoryID),
		attribute.Float64("price.percentage_change", percentageChange),
	)
	defer span.End()

	if err := ctx.Err(); err != nil {
		return 0, r.failed(span, err)
	}
	if err := domain.ValidatePercentageChange(percentageChange); err != nil {
		return 0, r.failed(span, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ts := time.Now().UTC()
	var affected int64
	for id, snap := range r.products {
		if snap.CategoryID != categoryID {
			continue
		}
		snap.Price = domain.ApplyPercentageChange(snap.Price, percentageChange)
		snap.UpdatedAt = ts
		r.products[id] = snap
		affected++
	}

	r.logger.InfoContext(ctx, "Category prices updated in repository",
		slog.String("category_id", categoryID),
		slog.Int64("affected", affected),
	)
	span.SetAttributes(attribute.Int64("product.count", affected))
	return affected, nil
}

// mutate applies fn to the stored product under the write lock
func (r *ProductRepository) mutate(ctx context.Context, name, id string, fn func(*domain.Product) (*domain.Product, error)) (*domain.Product, error) {
	ctx, span := r.start(ctx, name, attribute.String("product.id", id))
	defer span.End()

	if err := ctx.Err(); err != nil {
		return nil, r.failed(span, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	snap, ok := r.products[id]
	if !ok {
		return nil, r.failed(span, domain.NewProductNotFoundError(id, domain.IdentifierID))
	}

	next, err := fn(domain.RestoreProduct(snap))
	if err != nil {
		return nil, r.failed(span, err)
	}
	r.products[id] = next.Snapshot()

	r.logger.DebugContext(ctx, "Product mutated in repository",
		slog.String("operation", name),
		slog.String("product_id", id),
	)
	span.SetStatus(codes.Ok, name+" succeeded")
	return next, nil
}

// UpdateStock sets an absolute stock level
func (r *ProductRepository) UpdateStock(ctx context.Context, id string, quantity int) (*domain.Product, error) {
	return r.mutate(ctx, "UpdateStock", id, func(p *domain.Product) (*domain.Product, error) {
		return p.UpdateStock(quantity)
	})
}

// IncrementStock adds amount units atomically
func (r *ProductRepository) IncrementStock(ctx context.Context, id string, amount int) (*domain.Product, error) {
	return r.mutate(ctx, "IncrementStock", id, func(p *domain.Product) (*domain.Product, error) {
		return p.IncrementStock(amount)
	})
}

// DecrementStock removes amount units atomically, refusing to go below zero
func (r *ProductRepository) DecrementStock(ctx context.Context, id string, amount int) (*domain.Product, error) {
	return r.mutate(ctx, "DecrementStock", id, func(p *domain.Product) (*domain.Product, error) {
		return p.DecrementStock(amount)
	})
}

// ActivateProduct marks a product active
func (r *ProductRepository) ActivateProduct(ctx context.Context, id string) (*domain.Product, error) {
	return r.mutate(ctx, "ActivateProduct", id, func(p *domain.Product) (*domain.Product, error) {
		return p.Activate(), nil
	})
}

// DeactivateProduct marks a product inactive
func (r *ProductRepository) DeactivateProduct(ctx context.Context, id string) (*domain.Product, error) {
	return r.mutate(ctx, "DeactivateProduct", id, func(p *domain.Product) (*domain.Product, error) {
		return p.Deactivate(), nil
	})
}

// FindLowStockProducts returns products with 0 < stock <= threshold, lowest stock first
func (r *ProductRepository) FindLowStockProducts(ctx context.Context, threshold int) ([]*domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if threshold <= 0 {
		threshold = domain.DefaultLowStockThreshold
	}
	out := r.collect(func(p *domain.Product) bool { return p.IsLowStock(threshold) })
	sortProducts(out, domain.SortByStock, domain.SortAsc)
	return out, nil
}

// FindOutOfStockProducts returns products with zero stock
func (r *ProductRepository) FindOutOfStockProducts(ctx context.Context) ([]*domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.collect((*domain.Product).IsOutOfStock), nil
}
