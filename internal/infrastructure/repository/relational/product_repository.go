package relational

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mrops-br/product-catalog-api/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// ProductRepository implements domain.ProductRepository on top of GORM
type ProductRepository struct {
	db     *gorm.DB
	tracer trace.Tracer
	logger *slog.Logger
}

var _ domain.ProductRepository = (*ProductRepository)(nil)

// NewProductRepository creates a repository backed by db. Migrate must have run.
func NewProductRepository(db *gorm.DB, tracer trace.Tracer, logger *slog.Logger) *ProductRepository {
	return &ProductRepository{db: db, tracer: tracer, logger: logger}
}

// sortColumns whitelists ORDER BY expressions
var sortColumns = map[domain.SortField]string{
	domain.SortByName:      "LOWER(name)",
	domain.SortByPrice:     "price",
	domain.SortByStock:     "stock",
	domain.SortByCreatedAt: "created_at",
}

func (r *ProductRepository) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := r.tracer.Start(ctx, "ProductRepository."+name,
		trace.WithSpanKind(trace.SpanKindClient),
	)
	span.SetAttributes(append(attrs, attribute.String("db.system", r.db.Dialector.Name()))...)
	return ctx, span
}

func (r *ProductRepository) failed(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func now() time.Time {
	return time.Now().UTC()
}

// Create inserts a new product
func (r *ProductRepository) Create(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	ctx, span := r.start(ctx, "Create",
		attribute.String("product.id", product.ID()),
		attribute.String("product.sku", product.SKU()),
	)
	defer span.End()

	model := toModel(product.Snapshot())
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taken, err := skuTaken(tx, model.SKU, "")
		if err != nil {
			return err
		}
		if taken {
			return domain.NewDuplicateProductCodeError(model.SKU, domain.IdentifierSKU)
		}
		return tx.Create(&model).Error
	})
	if err != nil {
		return nil, r.failed(span, writeError(err, "create product", model.SKU))
	}

	r.logger.InfoContext(ctx, "Product created in repository",
		slog.String("product_id", model.ID),
		slog.String("sku", model.SKU),
	)
	span.SetStatus(codes.Ok, "Product created successfully")
	return model.toDomain(), nil
}

// writeError maps unique violations to DuplicateProductCodeError and wraps the rest
func writeError(err error, op, sku string) error {
	var dup *domain.DuplicateProductCodeError
	switch {
	case errors.As(err, &dup), domain.IsProductNotFoundError(err), domain.IsValidationError(err),
		domain.IsInsufficientStockError(err):
		return err
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return domain.NewDuplicateProductCodeError(sku, domain.IdentifierSKU)
	default:
		return fmt.Errorf("failed to %s: %w", op, err)
	}
}

func skuTaken(db *gorm.DB, sku, excludeID string) (bool, error) {
	q := db.Model(&productModel{}).Where("sku = ?", domain.NormalizeSKU(sku))
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// first loads one row; (nil, nil) when absent
func first(db *gorm.DB, query string, arg any) (*productModel, error) {
	var m productModel
	err := db.Where(query, arg).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// FindByID retrieves a product by ID; (nil, nil) when absent
func (r *ProductRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	ctx, span := r.start(ctx, "FindByID", attribute.String("product.id", id))
	defer span.End()

	m, err := first(r.db.WithContext(ctx), "id = ?", id)
	if err != nil {
		return nil, r.failed(span, fmt.Errorf("failed to find product %s: %w", id, err))
	}
	if m == nil {
		r.logger.DebugContext(ctx, "Product not found in repository", slog.String("product_id", id))
		return nil, nil
	}
	return m.toDomain(), nil
}

// FindBySKU retrieves a product by SKU; (nil, nil) when absent
func (r *ProductRepository) FindBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	sku = domain.NormalizeSKU(sku)
	ctx, span := r.start(ctx, "FindBySKU", attribute.String("product.sku", sku))
	defer span.End()

	m, err := first(r.db.WithContext(ctx), "sku = ?", sku)
	if err != nil {
		return nil, r.failed(span, fmt.Errorf("failed to find product by sku %s: %w", sku, err))
	}
	if m == nil {
		return nil, nil
	}
	return m.toDomain(), nil
}

// FindAll filters, sorts and pages the catalog
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
	filters, err := filters.Normalize()
	if err != nil {
		return nil, err
	}

	query := func() *gorm.DB {
		return applyFilters(r.db.WithContext(ctx).Model(&productModel{}), filters)
	}

	var total int64
	if err := query().Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	var models []productModel
	err = query().Order(orderClause(filters.SortBy, filters.SortOrder)).
		Offset(filters.Offset()).
		Limit(filters.PageSize).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	return &domain.ProductPage{
		Items: toDomainList(models),
		Meta:  domain.NewPageMeta(filters.Page, filters.PageSize, total),
	}, nil
}

func applyFilters(q *gorm.DB, f domain.ProductFilters) *gorm.DB {
	if f.CategoryID != "" {
		q = q.Where("category_id = ?", f.CategoryID)
	}
	if f.MinPrice != nil {
		q = q.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("price <= ?", *f.MaxPrice)
	}
	if f.IsActive != nil {
		q = q.Where("is_active = ?", *f.IsActive)
	}
	if f.InStock != nil {
		if *f.InStock {
			q = q.Where("stock > 0")
		} else {
			q = q.Where("stock = 0")
		}
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		q = q.Where("(LOWER(name) LIKE ? OR LOWER(description) LIKE ? OR LOWER(sku) LIKE ?)", like, like, like)
	}
	return q
}

// orderClause builds ORDER BY from whitelisted values only; id breaks ties
func orderClause(by domain.SortField, order domain.SortOrder) string {
	column, ok := sortColumns[by]
	if !ok {
		column = sortColumns[domain.SortByCreatedAt]
	}
	dir := "DESC"
	if order == domain.SortAsc {
		dir = "ASC"
	}
	return column + " " + dir + ", id " + dir
}

// Update replaces the stored state of a product, keeping its creation time
func (r *ProductRepository) Update(ctx context.Context, id string, product *domain.Product) (*domain.Product, error) {
	ctx, span := r.start(ctx, "Update", attribute.String("product.id", id))
	defer span.End()

	model := toModel(product.Snapshot())
	model.ID = id

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := first(tx, "id = ?", id)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.NewProductNotFoundError(id, domain.IdentifierID)
		}
		model.CreatedAt = current.CreatedAt

		if model.SKU != current.SKU {
			taken, err := skuTaken(tx, model.SKU, id)
			if err != nil {
				return err
			}
			if taken {
				return domain.NewDuplicateProductCodeError(model.SKU, domain.IdentifierSKU)
			}
		}

		return tx.Model(&productModel{ID: id}).
			Select("name", "description", "price", "stock", "sku", "category_id", "is_active", "updated_at").
			Updates(&model).Error
	})
	if err != nil {
		return nil, r.failed(span, writeError(err, "update product", model.SKU))
	}

	r.logger.InfoContext(ctx, "Product updated in repository", slog.String("product_id", id))
	span.SetStatus(codes.Ok, "Product updated successfully")
	return model.toDomain(), nil
}

// Delete physically removes a product
func (r *ProductRepository) Delete(ctx context.Context, id string) error {
	ctx, span := r.start(ctx, "Delete", attribute.String("product.id", id))
	defer span.End()

	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&productModel{})
	if res.Error != nil {
		return r.failed(span, fmt.Errorf("failed to delete product %s: %w", id, res.Error))
	}
	if res.RowsAffected == 0 {
		return r.failed(span, domain.NewProductNotFoundError(id, domain.IdentifierID))
	}

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
	taken, err := skuTaken(r.db.WithContext(ctx), sku, excludeID)
	if err != nil {
		return false, fmt.Errorf("failed to check sku %s: %w", sku, err)
	}
	return taken, nil
}

func (r *ProductRepository) list(ctx context.Context, q func(*gorm.DB) *gorm.DB, order string) ([]*domain.Product, error) {
	var models []productModel
	if err := q(r.db.WithContext(ctx)).Order(order).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return toDomainList(models), nil
}

// FindByCategory returns every product of a category ordered by creation time
func (r *ProductRepository) FindByCategory(ctx context.Context, categoryID string) ([]*domain.Product, error) {
	return r.list(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("category_id = ?", categoryID)
	}, "created_at ASC, id ASC")
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

func (r *ProductRepository) count(ctx context.Context, query string, arg any) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&productModel{}).Where(query, arg).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return n, nil
}

// CountByCategory counts the products of a category
func (r *ProductRepository) CountByCategory(ctx context.Context, categoryID string) (int64, error) {
	return r.count(ctx, "category_id = ?", categoryID)
}

// CountActiveProducts counts active products across the catalog
func (r *ProductRepository) CountActiveProducts(ctx context.Context) (int64, error) {
	return r.count(ctx, "is_active = ?", true)
}

// BulkUpdatePrices applies a percentage change to every price in a category. Prices are
// recomputed with the domain's decimal rounding inside one transaction so every dialect
// produces the same amounts.
func (r *ProductRepository) BulkUpdatePrices(ctx context.Context, categoryID string, percentageChange float64) (int64, error) {
	ctx, span := r.start(ctx, "BulkUpdatePrices",
		attribute.String("product.category_id", categoryID),
		attribute.Float64("price.percentage_change", percentageChange),
	)
	defer span.End()

	if err := domain.ValidatePercentageChange(percentageChange); err != nil {
		return 0, r.failed(span, err)
	}

	var affected int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rows []productModel
		if err := tx.Select("id", "price").Where("category_id = ?", categoryID).Find(&rows).Error; err != nil {
			return err
		}

		ts := now()
		for _, row := range rows {
			res := tx.Model(&productModel{}).Where("id = ?", row.ID).Updates(map[string]any{
				"price":      domain.ApplyPercentageChange(row.Price, percentageChange),
				"updated_at": ts,
			})
			if res.Error != nil {
				return res.Error
			}
			affected += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, r.failed(span, fmt.Errorf("failed to update category prices: %w", err))
	}

	r.logger.InfoContext(ctx, "Category prices updated in repository",
		slog.String("category_id", categoryID),
		slog.Int64("affected", affected),
	)
	span.SetAttributes(attribute.Int64("product.count", affected))
	return affected, nil
}

// mutate loads a product, applies fn and writes the changed columns in one transaction
func (r *ProductRepository) mutate(ctx context.Context, name, id string, fn func(*domain.Product) (*domain.Product, error)) (*domain.Product, error) {
	ctx, span := r.start(ctx, name, attribute.String("product.id", id))
	defer span.End()

	var next *domain.Product
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := first(tx, "id = ?", id)
		if err != nil {
			return err
		}
		if current == nil {
			return domain.NewProductNotFoundError(id, domain.IdentifierID)
		}

		if next, err = fn(current.toDomain()); err != nil {
			return err
		}

		snap := next.Snapshot()
		return tx.Model(&productModel{}).Where("id = ?", id).Updates(map[string]any{
			"stock":      snap.Stock,
			"is_active":  snap.IsActive,
			"updated_at": snap.UpdatedAt.UTC(),
		}).Error
	})
	if err != nil {
		return nil, r.failed(span, writeError(err, strings.ToLower(name), ""))
	}

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

// IncrementStock adds amount units with a single conditional UPDATE bounded by MaxStock
func (r *ProductRepository) IncrementStock(ctx context.Context, id string, amount int) (*domain.Product, error) {
	ctx, span := r.start(ctx, "IncrementStock", attribute.String("product.id", id), attribute.Int("stock.amount", amount))
	defer span.End()

	if amount <= 0 {
		return nil, r.failed(span, domain.NewNonPositiveValueError("quantity", amount))
	}

	res := r.db.WithContext(ctx).Model(&productModel{}).
		Where("id = ? AND stock <= ?", id, domain.MaxStock-amount).
		Updates(map[string]any{
			"stock":      gorm.Expr("stock + ?", amount),
			"updated_at": now(),
		})
	if res.Error != nil {
		return nil, r.failed(span, fmt.Errorf("failed to increment stock: %w", res.Error))
	}
	if res.RowsAffected == 0 {
		current, err := first(r.db.WithContext(ctx), "id = ?", id)
		if err != nil {
			return nil, r.failed(span, fmt.Errorf("failed to load product %s: %w", id, err))
		}
		if current == nil {
			return nil, r.failed(span, domain.NewProductNotFoundError(id, domain.IdentifierID))
		}
		return nil, r.failed(span, domain.NewStockOverflowError(amount))
	}
	return r.reload(ctx, span, id)
}

// DecrementStock removes amount units with a single conditional UPDATE, so concurrent
// decrements can never take stock below zero
func (r *ProductRepository) DecrementStock(ctx context.Context, id string, amount int) (*domain.Product, error) {
	ctx, span := r.start(ctx, "DecrementStock", attribute.String("product.id", id), attribute.Int("stock.amount", amount))
	defer span.End()

	if amount <= 0 {
		return nil, r.failed(span, domain.NewNonPositiveValueError("quantity", amount))
	}

	res := r.db.WithContext(ctx).Model(&productModel{}).
		Where("id = ? AND stock >= ?", id, amount).
		Updates(map[string]any{
			"stock":      gorm.Expr("stock - ?", amount),
			"updated_at": now(),
		})
	if res.Error != nil {
		return nil, r.failed(span, fmt.Errorf("failed to decrement stock: %w", res.Error))
	}
	if res.RowsAffected == 0 {
		current, err := first(r.db.WithContext(ctx), "id = ?", id)
		if err != nil {
			return nil, r.failed(span, fmt.Errorf("failed to load product %s: %w", id, err))
		}
		if current == nil {
			return nil, r.failed(span, domain.NewProductNotFoundError(id, domain.IdentifierID))
		}
		return nil, r.failed(span, domain.NewInsufficientStockError(id, amount, current.Stock))
	}
	return r.reload(ctx, span, id)
}

func (r *ProductRepository) reload(ctx context.Context, span trace.Span, id string) (*domain.Product, error) {
	m, err := first(r.db.WithContext(ctx), "id = ?", id)
	if err != nil {
		return nil, r.failed(span, fmt.Errorf("failed to reload product %s: %w", id, err))
	}
	if m == nil {
		return nil, r.failed(span, domain.NewProductNotFoundError(id, domain.IdentifierID))
	}
	span.SetAttributes(attribute.Int("stock.new", m.Stock))
	return m.toDomain(), nil
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
	if threshold <= 0 {
		threshold = domain.DefaultLowStockThreshold
	}
	return r.list(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("stock > 0 AND stock <= ?", threshold)
	}, "stock ASC, id ASC")
}

// FindOutOfStockProducts returns products with zero stock
func (r *ProductRepository) FindOutOfStockProducts(ctx context.Context) ([]*domain.Product, error) {
	return r.list(ctx, func(db *gorm.DB) *gorm.DB {
		return db.Where("stock = 0")
	}, "created_at ASC, id ASC")
}
