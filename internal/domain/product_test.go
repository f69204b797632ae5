package domain

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validParams() NewProductParams {
	return NewProductParams{
		ID:          "prod-1",
		Name:        "  Mouse ",
		Description: " wireless ",
		Price:       20,
		Stock:       5,
		SKU:         "mse-001",
		CategoryID:  "electronics",
	}
}

func newTestProduct(t *testing.T, mutate func(*NewProductParams)) *Product {
	t.Helper()
	params := validParams()
	if mutate != nil {
		mutate(&params)
	}
	p, err := NewProduct(params)
	require.NoError(t, err)
	return p
}

func TestNewProduct(t *testing.T) {
	p := newTestProduct(t, nil)

	assert.Equal(t, "prod-1", p.ID())
	assert.Equal(t, "Mouse", p.Name())
	assert.Equal(t, "wireless", p.Description())
	assert.Equal(t, "MSE-001", p.SKU())
	assert.Equal(t, "electronics", p.CategoryID())
	assert.Equal(t, 20.0, p.Price())
	assert.Equal(t, 5, p.Stock())
	assert.True(t, p.IsActive())
	assert.False(t, p.CreatedAt().IsZero())
	assert.Equal(t, p.CreatedAt(), p.UpdatedAt())
	assert.Equal(t, "$20.00", p.FormattedPrice())
}

func TestNewProductValidation(t *testing.T) {
	cases := []struct {
		name      string
		mutate    func(*NewProductParams)
		wantField string
	}{
		{"empty name", func(p *NewProductParams) { p.Name = "   " }, "name"},
		{"negative price", func(p *NewProductParams) { p.Price = -1 }, "price"},
		{"NaN price", func(p *NewProductParams) { p.Price = math.NaN() }, "price"},
		{"negative stock", func(p *NewProductParams) { p.Stock = -3 }, "stock"},
		{"empty sku", func(p *NewProductParams) { p.SKU = "" }, "sku"},
		{"empty category", func(p *NewProductParams) { p.CategoryID = " " }, "categoryId"},
		{"name too long", func(p *NewProductParams) { p.Name = strings.Repeat("n", MaxNameLength+1) }, "name"},
		{"sku too long", func(p *NewProductParams) { p.SKU = strings.Repeat("S", MaxSKULength+1) }, "sku"},
		{"category too long", func(p *NewProductParams) { p.CategoryID = strings.Repeat("c", MaxCategoryIDLength+1) }, "categoryId"},
		{"name checked before price", func(p *NewProductParams) { p.Name = ""; p.Price = -1 }, "name"},
		{"price checked before stock", func(p *NewProductParams) { p.Price = -1; p.Stock = -1 }, "price"},
		{"stock checked before sku", func(p *NewProductParams) { p.Stock = -1; p.SKU = "" }, "stock"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params := validParams()
			tc.mutate(&params)
			_, err := NewProduct(params)
			require.Error(t, err)

			var ipe *InvalidProductDataError
			require.ErrorAs(t, err, &ipe)
			assert.Equal(t, tc.wantField, ipe.Field)
		})
	}
}

func TestProductMutationsReturnNewInstances(t *testing.T) {
	original := newTestProduct(t, nil)
	time.Sleep(time.Millisecond)

	renamed, err := original.UpdateName(" Trackball ")
	require.NoError(t, err)
	assert.Equal(t, "Trackball", renamed.Name())
	assert.Equal(t, "Mouse", original.Name())
	assert.True(t, renamed.UpdatedAt().After(original.UpdatedAt()))
	assert.Equal(t, original.CreatedAt(), renamed.CreatedAt())

	described := original.UpdateDescription("  ergonomic ")
	assert.Equal(t, "ergonomic", described.Description())
	assert.Equal(t, "wireless", original.Description())

	repriced, err := original.UpdatePrice(1500.499)
	require.NoError(t, err)
	assert.Equal(t, 1500.5, repriced.Price())
	assert.True(t, repriced.IsExpensive(DefaultExpensiveThreshold))
	assert.False(t, original.IsExpensive(DefaultExpensiveThreshold))

	restocked, err := original.UpdateStock(0)
	require.NoError(t, err)
	assert.True(t, restocked.IsOutOfStock())
	assert.Equal(t, 5, original.Stock())

	moved, err := original.UpdateCategory("peripherals")
	require.NoError(t, err)
	assert.Equal(t, "peripherals", moved.CategoryID())

	resku, err := original.UpdateSKU(" kbd-002 ")
	require.NoError(t, err)
	assert.Equal(t, "KBD-002", resku.SKU())

	_, err = original.UpdateName("")
	assert.True(t, IsInvalidProductDataError(err))
	_, err = original.UpdatePrice(-5)
	assert.True(t, IsInvalidProductDataError(err))
	_, err = original.UpdateStock(-1)
	assert.True(t, IsInvalidProductDataError(err))
	_, err = original.UpdateCategory("")
	assert.True(t, IsInvalidProductDataError(err))
	_, err = original.UpdateSKU(" ")
	assert.True(t, IsInvalidProductDataError(err))
}

func TestProductStockAdjustments(t *testing.T) {
	p := newTestProduct(t, nil)

	t.Run("increment", func(t *testing.T) {
		next, err := p.IncrementStock(3)
		require.NoError(t, err)
		assert.Equal(t, 8, next.Stock())
		assert.Equal(t, 5, p.Stock())
	})

	t.Run("decrement", func(t *testing.T) {
		next, err := p.DecrementStock(5)
		require.NoError(t, err)
		assert.Equal(t, 0, next.Stock())
		assert.Equal(t, 5, p.Stock())
	})

	t.Run("non-positive amounts are invalid", func(t *testing.T) {
		for _, n := range []int{0, -1} {
			_, err := p.IncrementStock(n)
			assert.True(t, IsInvalidProductDataError(err))
			_, err = p.DecrementStock(n)
			assert.True(t, IsInvalidProductDataError(err))
		}
	})

	t.Run("increment past the maximum stock", func(t *testing.T) {
		_, err := p.IncrementStock(math.MaxInt)
		var ipe *InvalidProductDataError
		require.ErrorAs(t, err, &ipe)
		assert.Equal(t, "quantity", ipe.Field)

		full, err := p.IncrementStock(MaxStock - 5)
		require.NoError(t, err)
		assert.Equal(t, MaxStock, full.Stock())
		_, err = full.IncrementStock(1)
		assert.True(t, IsInvalidProductDataError(err))
	})

	t.Run("decrement beyond stock", func(t *testing.T) {
		_, err := p.DecrementStock(6)
		var ise *InsufficientStockError
		require.ErrorAs(t, err, &ise)
		assert.Equal(t, "prod-1", ise.ProductID)
		assert.Equal(t, 6, ise.RequestedQuantity)
		assert.Equal(t, 5, ise.AvailableStock)
		assert.Equal(t, 1, ise.MissingQuantity())
	})
}

func TestProductActivation(t *testing.T) {
	p := newTestProduct(t, nil)

	assert.Same(t, p, p.Activate(), "activating an active product is a no-op")

	inactive := p.Deactivate()
	assert.NotSame(t, p, inactive)
	assert.False(t, inactive.IsActive())
	assert.True(t, p.IsActive())
	assert.Same(t, inactive, inactive.Deactivate())

	active := inactive.Activate()
	assert.True(t, active.IsActive())
}

func TestProductStockQueries(t *testing.T) {
	cases := []struct {
		stock   int
		inStock bool
		low     bool
	}{
		{0, false, false},
		{1, true, true},
		{10, true, true},
		{11, true, false},
	}

	for _, tc := range cases {
		p := newTestProduct(t, func(np *NewProductParams) { np.Stock = tc.stock })
		assert.Equal(t, tc.inStock, p.IsInStock(), "stock=%d", tc.stock)
		assert.Equal(t, !tc.inStock, p.IsOutOfStock(), "stock=%d", tc.stock)
		assert.Equal(t, tc.low, p.IsLowStock(DefaultLowStockThreshold), "stock=%d", tc.stock)
	}
}

func TestProductAvailability(t *testing.T) {
	p := newTestProduct(t, nil)

	assert.True(t, p.CanBePurchased(5))
	assert.False(t, p.CanBePurchased(6))
	assert.NoError(t, p.CheckAvailability(5))

	err := p.CheckAvailability(6)
	assert.True(t, IsInsufficientStockError(err))

	inactive := p.Deactivate()
	assert.False(t, inactive.CanBePurchased(1))
	var pna *ProductNotAvailableError
	require.ErrorAs(t, inactive.CheckAvailability(1), &pna)
	assert.Equal(t, ReasonInactive, pna.Reason)

	empty, err := p.UpdateStock(0)
	require.NoError(t, err)
	require.ErrorAs(t, empty.CheckAvailability(1), &pna)
	assert.Equal(t, ReasonOutOfStock, pna.Reason)

	assert.True(t, IsInvalidProductDataError(p.CheckAvailability(0)))
}

func TestRestoreProductRoundTrip(t *testing.T) {
	p := newTestProduct(t, nil)
	snap := p.Snapshot()

	restored := RestoreProduct(snap)
	assert.Equal(t, snap, restored.Snapshot())
	assert.Equal(t, p.CreatedAt(), restored.CreatedAt())
}
