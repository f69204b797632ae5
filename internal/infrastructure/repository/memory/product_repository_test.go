package memory

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/mrops-br/product-catalog-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

var baseTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func newRepo() *ProductRepository {
	return NewProductRepository(
		noop.NewTracerProvider().Tracer("test"),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
}

type seed struct {
	name     string
	price    float64
	stock    int
	category string
	active   bool
}

// seedProducts stores products with creation times one minute apart, in slice order
func seedProducts(t *testing.T, repo *ProductRepository, seeds ...seed) []*domain.Product {
	t.Helper()
	out := make([]*domain.Product, 0, len(seeds))
	for i, s := range seeds {
		ts := baseTime.Add(time.Duration(i) * time.Minute)
		p := domain.RestoreProduct(domain.ProductSnapshot{
			ID:         fmt.Sprintf("p-%02d", i),
			Name:       s.name,
			Price:      s.price,
			Stock:      s.stock,
			SKU:        fmt.Sprintf("SKU-%03d", i),
			CategoryID: s.category,
			IsActive:   s.active,
			CreatedAt:  ts,
			UpdatedAt:  ts,
		})
		created, err := repo.Create(context.Background(), p)
		require.NoError(t, err)
		out = append(out, created)
	}
	return out
}

func ids(products []*domain.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.ID()
	}
	return out
}

func ptr[T any](v T) *T { return &v }

func TestCreateAndFind(t *testing.T) {
	repo := newRepo()
	ctx := context.Background()
	seeded := seedProducts(t, repo, seed{"Mouse", 20, 5, "electronics", true})

	found, err := repo.FindByID(ctx, seeded[0].ID())
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "Mouse", found.Name())

	bySKU, err := repo.FindBySKU(ctx, "sku-000")
	require.NoError(t, err)
	require.NotNil(t, bySKU)
	assert.Equal(t, seeded[0].ID(), bySKU.ID())

	missing, err := repo.FindByID(ctx, "nope")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	missing, err = repo.FindBySKU(ctx, "NOPE-000")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	_, err = repo.Create(ctx, seeded[0])
	assert.True(t, domain.IsDuplicateProductCodeError(err))
}

func TestExistsBySKU(t *testing.T) {
	repo := newRepo()
	ctx := context.Background()
	seeded := seedProducts(t, repo, seed{"Mouse", 20, 5, "electronics", true})

	exists, err := repo.ExistsBySKU(ctx, " sku-000 ")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsBySKUExcludingID(ctx, "SKU-000", seeded[0].ID())
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = repo.ExistsBySKU(ctx, "SKU-999")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFindAllFiltersAndDefaults(t *testing.T) {
	repo := newRepo()
	ctx := context.Background()
	seedProducts(t, repo,
		seed{"Cheap cable", 5, 10, "electronics", true},
		seed{"Monitor", 300, 2, "electronics", true},
		seed{"Laptop", 1200, 0, "electronics", true},
		seed{"Desk", 150, 4, "furniture", false},
		seed{"Headphones", 100, 7, "electronics", true},
	)

	page, err := repo.FindAll(ctx, domain.ProductFilters{InStock: ptr(true), MinPrice: ptr(100.0)})
	require.NoError(t, err)
	assert.Equal(t, []string{"p-04", "p-03", "p-01"}, ids(page.Items), "createdAt DESC by default")
	assert.Equal(t, int64(3), page.Meta.TotalItems)
	assert.Equal(t, 1, page.Meta.Page)
	assert.Equal(t, 10, page.Meta.PageSize)

	page, err = repo.FindAll(ctx, domain.ProductFilters{Search: "LAP"})
	require.NoError(t, err)
	assert.Equal(t, []string{"p-02"}, ids(page.Items))

	page, err = repo.FindAll(ctx, domain.ProductFilters{IsActive: ptr(false)})
	require.NoError(t, err)
	assert.Equal(t, []string{"p-03"}, ids(page.Items))

	page, err = repo.FindAll(ctx, domain.ProductFilters{InStock: ptr(false)})
	require.NoError(t, err)
	assert.Equal(t, []string{"p-02"}, ids(page.Items))

	page, err = repo.FindAll(ctx, domain.ProductFilters{CategoryID: "electronics", MaxPrice: ptr(300.0), SortBy: domain.SortByPrice, SortOrder: domain.SortAsc})
	require.NoError(t, err)
	assert.Equal(t, []string{"p-00", "p-04", "p-01"}, ids(page.Items))

	page, err = repo.FindAll(ctx, domain.ProductFilters{SortBy: domain.SortByName, SortOrder: "asc"})
	require.NoError(t, err)
	assert.Equal(t, []string{"p-00", "p-03", "p-04", "p-02", "p-01"}, ids(page.Items))

	_, err = repo.FindAll(ctx, domain.ProductFilters{SortBy: "color"})
	assert.True(t, domain.IsInvalidProductDataError(err))
}

func TestFindAllPagination(t *testing.T) {
	repo := newRepo()
	ctx := context.Background()
	seeds := make([]seed, 25)
	for i := range seeds {
		seeds[i] = seed{fmt.Sprintf("item %02d", i), float64(i), i, "bulk", true}
	}
	seedProducts(t, repo, seeds...)

	page, err := repo.FindAll(ctx, domain.ProductFilters{Page: 3, PageSize: 10, SortBy: domain.SortByStock, SortOrder: domain.SortAsc})
	require.NoError(t, err)
	assert.Len(t, page.Items, 5)
	assert.Equal(t, 20, page.Items[0].Stock())
	assert.Equal(t, 3, page.Meta.TotalPages)
	assert.False(t, page.Meta.HasNextPage)
	assert.True(t, page.Meta.HasPreviousPage)

	page, err = repo.FindAll(ctx, domain.ProductFilters{Page: 9})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, int64(25), page.Meta.TotalItems)

	page, err = repo.FindAll(ctx, domain.ProductFilters{Page: domain.MaxPage, PageSize: domain.MaxPageSize})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, domain.MaxPage, page.Meta.Page)

	_, err = repo.FindAll(ctx, domain.ProductFilters{Page: 922337203685477582})
	assert.True(t, domain.IsInvalidProductDataError(err))
}

func TestUpdateAndDelete(t *testing.T) {
	repo := newRepo()
	ctx := context.Background()
	seeded := seedProducts(t, repo,
		seed{"Mouse", 20, 5, "electronics", true},
		seed{"Keyboard", 40, 5, "electronics", true},
	)

	renamed, err := seeded[0].UpdateName("Trackball")
	require.NoError(t, err)
	saved, err := repo.Update(ctx, seeded[0].ID(), renamed)
	require.NoError(t, err)
	assert.Equal(t, "Trackball", saved.Name())
	assert.Equal(t, seeded[0].CreatedAt(), saved.CreatedAt())

	resku, err := seeded[0].UpdateSKU("SKU-001")
	require.NoError(t, err)
	_, err = repo.Update(ctx, seeded[0].ID(), resku)
	assert.True(t, domain.IsDuplicateProductCodeError(err))

	resku, err = seeded[0].UpdateSKU("NEW-001")
	require.NoError(t, err)
	_, err = repo.Update(ctx, seeded[0].ID(), resku)
	require.NoError(t, err)
	exists, err := repo.ExistsBySKU(ctx, "SKU-000")
	require.NoError(t, err)
	assert.False(t, exists, "old sku must be released")

	_, err = repo.Update(ctx, "ghost", renamed)
	assert.True(t, domain.IsProductNotFoundError(err))

	require.NoError(t, repo.Delete(ctx, seeded[1].ID()))
	found, err := repo.FindByID(ctx, seeded[1].ID())
	require.NoError(t, err)
	assert.Nil(t, found)
	assert.True(t, domain.IsProductNotFoundError(repo.Delete(ctx, seeded[1].ID())))
}

func TestStockOperations(t *testing.T) {
	repo := newRepo()
	ctx := context.Background()
	seeded := seedProducts(t, repo,
		seed{"Mouse", 20, 5, "electronics", true},
		seed{"Cable", 5, 0, "electronics", true},
		seed{"Monitor", 300, 12, "electronics", true},
		seed{"Adapter", 8, 1, "electronics", true},
	)
	id := seeded[0].ID()

	p, err := repo.UpdateStock(ctx, id, 9)
	require.NoError(t, err)
	assert.Equal(t, 9, p.Stock())

	p, err = repo.IncrementStock(ctx, id, 3)
	require.NoError(t, err)
	assert.Equal(t, 12, p.Stock())

	p, err = repo.DecrementStock(ctx, id, 12)
	require.NoError(t, err)
	assert.Equal(t, 0, p.Stock())

	_, err = repo.DecrementStock(ctx, id, 1)
	assert.True(t, domain.IsInsufficientStockError(err))

	_, err = repo.UpdateStock(ctx, id, -1)
	assert.True(t, domain.IsInvalidProductDataError(err))

	_, err = repo.IncrementStock(ctx, "ghost", 1)
	assert.True(t, domain.IsProductNotFoundError(err))

	_, err = repo.IncrementStock(ctx, seeded[2].ID(), math.MaxInt)
	assert.True(t, domain.IsInvalidProductDataError(err))
	monitor, err := repo.FindByID(ctx, seeded[2].ID())
	require.NoError(t, err)
	assert.Equal(t, 12, monitor.Stock())

	low, err := repo.FindLowStockProducts(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"p-03"}, ids(low))

	out, err := repo.FindOutOfStockProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"p-00", "p-01"}, ids(out))
}

func TestCategoryAndStatusOperations(t *testing.T) {
	repo := newRepo()
	ctx := context.Background()
	seeded := seedProducts(t, repo,
		seed{"Mouse", 20, 5, "electronics", true},
		seed{"Keyboard", 9.99, 5, "electronics", false},
		seed{"Desk", 150, 4, "furniture", true},
	)

	products, err := repo.FindByCategory(ctx, "electronics")
	require.NoError(t, err)
	assert.Equal(t, []string{"p-00", "p-01"}, ids(products))

	count, err := repo.CountByCategory(ctx, "electronics")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	page, err := repo.FindByCategoryPaginated(ctx, "electronics", domain.ProductFilters{PageSize: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"p-01"}, ids(page.Items))
	assert.True(t, page.Meta.HasNextPage)

	affected, err := repo.BulkUpdatePrices(ctx, "electronics", 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)
	kb, err := repo.FindByID(ctx, seeded[1].ID())
	require.NoError(t, err)
	assert.Equal(t, 10.99, kb.Price())
	desk, err := repo.FindByID(ctx, seeded[2].ID())
	require.NoError(t, err)
	assert.Equal(t, 150.0, desk.Price())

	_, err = repo.BulkUpdatePrices(ctx, "electronics", -100)
	assert.True(t, domain.IsInvalidProductDataError(err))

	active, err := repo.CountActiveProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), active)

	p, err := repo.ActivateProduct(ctx, seeded[1].ID())
	require.NoError(t, err)
	assert.True(t, p.IsActive())

	p, err = repo.DeactivateProduct(ctx, seeded[0].ID())
	require.NoError(t, err)
	assert.False(t, p.IsActive())

	_, err = repo.ActivateProduct(ctx, "ghost")
	assert.True(t, domain.IsProductNotFoundError(err))
}

func TestCanceledContext(t *testing.T) {
	repo := newRepo()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.FindByID(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
	_, err = repo.FindAll(ctx, domain.ProductFilters{})
	assert.ErrorIs(t, err, context.Canceled)
}
