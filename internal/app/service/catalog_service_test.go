package service

import (
	"context"
	"testing"

	"github.com/mrops-br/product-catalog-api/internal/app/dto"
	"github.com/mrops-br/product-catalog-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetProductBySKU(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	created := mustCreate(t, svc, createRequest("Mouse", "MSE-001", 20, 5))

	got, err := svc.GetProductBySKU(ctx, " mse-001 ")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = svc.GetProductBySKU(ctx, "NOP-000")
	var nf *domain.ProductNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, domain.IdentifierSKU, nf.IdentifierType)
}

func TestListCategoryProducts(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	mustCreate(t, svc, createRequest("Mouse", "MSE-001", 20, 5))
	mustCreate(t, svc, createRequest("Keyboard", "KBD-001", 40, 5))

	other := createRequest("Desk", "DSK-001", 200, 1)
	other.CategoryID = "furniture"
	mustCreate(t, svc, other)

	resp, err := svc.ListCategoryProducts(ctx, "electronics", dto.ProductFiltersRequest{SortBy: "name", SortOrder: "asc"})
	require.NoError(t, err)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "Keyboard", resp.Data[0].Name)
	assert.Equal(t, "Mouse", resp.Data[1].Name)
	assert.Equal(t, int64(2), resp.Meta.TotalItems)

	_, err = svc.ListCategoryProducts(ctx, "  ", dto.ProductFiltersRequest{})
	assert.True(t, domain.IsInvalidProductDataError(err))
}

func TestSuggestSKU(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	sku, err := svc.SuggestSKU(ctx, "electronics")
	require.NoError(t, err)
	assert.Equal(t, "ELEC-000001", sku)

	// two products in the category and the count+1 code already taken
	mustCreate(t, svc, createRequest("Mouse", "MSE-001", 20, 5))
	mustCreate(t, svc, createRequest("Cable", "ELEC-000003", 2, 5))

	sku, err = svc.SuggestSKU(ctx, "electronics")
	require.NoError(t, err)
	assert.Equal(t, "ELEC-000004", sku)
}

func TestGetCategorySummary(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	mustCreate(t, svc, createRequest("Mouse", "MSE-001", 20, 5))
	second := mustCreate(t, svc, createRequest("Keyboard", "KBD-001", 40, 5))
	_, err := svc.DeactivateProduct(ctx, second.ID)
	require.NoError(t, err)

	summary, err := svc.GetCategorySummary(ctx, "electronics")
	require.NoError(t, err)
	assert.Equal(t, "electronics", summary.CategoryID)
	assert.Equal(t, int64(2), summary.TotalProducts)
	assert.Equal(t, int64(1), summary.ActiveProducts)
	assert.Equal(t, "ELEC-000003", summary.NextSKU)
}

func TestBulkUpdateCategoryPrices(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	mouse := mustCreate(t, svc, createRequest("Mouse", "MSE-001", 20, 5))
	other := createRequest("Desk", "DSK-001", 200, 1)
	other.CategoryID = "furniture"
	desk := mustCreate(t, svc, other)

	resp, err := svc.BulkUpdateCategoryPrices(ctx, "electronics", &dto.BulkPriceUpdateRequest{PercentageChange: -25})
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.UpdatedCount)

	got, err := svc.GetProductByID(ctx, mouse.ID)
	require.NoError(t, err)
	assert.Equal(t, 15.0, got.Price)

	got, err = svc.GetProductByID(ctx, desk.ID)
	require.NoError(t, err)
	assert.Equal(t, 200.0, got.Price)

	_, err = svc.BulkUpdateCategoryPrices(ctx, "electronics", &dto.BulkPriceUpdateRequest{PercentageChange: -100})
	assert.True(t, domain.IsValidationError(err))
}

func TestStockReports(t *testing.T) {
	svc, _ := newTestService(t, WithLowStockThreshold(5))
	ctx := context.Background()
	mustCreate(t, svc, createRequest("Empty", "EMP-001", 1, 0))
	mustCreate(t, svc, createRequest("Few", "FEW-001", 1, 3))
	mustCreate(t, svc, createRequest("Some", "SOM-001", 1, 8))
	mustCreate(t, svc, createRequest("Plenty", "PLN-001", 1, 50))

	low, err := svc.ListLowStockProducts(ctx, 0)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "Few", low[0].Name)

	low, err = svc.ListLowStockProducts(ctx, 10)
	require.NoError(t, err)
	require.Len(t, low, 2)
	assert.Equal(t, "Few", low[0].Name)
	assert.Equal(t, "Some", low[1].Name)

	out, err := svc.ListOutOfStockProducts(ctx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Empty", out[0].Name)
}

func TestActivateDeactivate(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	created := mustCreate(t, svc, createRequest("Mouse", "MSE-001", 20, 5))

	resp, err := svc.DeactivateProduct(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, resp.IsActive)

	again, err := svc.DeactivateProduct(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, resp, again)

	resp, err = svc.ActivateProduct(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, resp.IsActive)

	_, err = svc.ActivateProduct(ctx, "ghost")
	assert.True(t, domain.IsProductNotFoundError(err))
}

func TestCheckAvailability(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	created := mustCreate(t, svc, createRequest("Mouse", "MSE-001", 20, 5))
	empty := mustCreate(t, svc, createRequest("Cable", "CBL-001", 2, 0))

	resp, err := svc.CheckAvailability(ctx, created.ID, 5)
	require.NoError(t, err)
	assert.True(t, resp.Available)
	assert.Empty(t, resp.Reason)

	resp, err = svc.CheckAvailability(ctx, created.ID, 6)
	require.NoError(t, err)
	assert.False(t, resp.Available)
	assert.Contains(t, resp.Reason, "insufficient stock")

	resp, err = svc.CheckAvailability(ctx, empty.ID, 1)
	require.NoError(t, err)
	assert.False(t, resp.Available)
	assert.Contains(t, resp.Reason, string(domain.ReasonOutOfStock))

	_, err = svc.DeactivateProduct(ctx, created.ID)
	require.NoError(t, err)
	resp, err = svc.CheckAvailability(ctx, created.ID, 1)
	require.NoError(t, err)
	assert.False(t, resp.Available)
	assert.Contains(t, resp.Reason, string(domain.ReasonInactive))

	_, err = svc.CheckAvailability(ctx, created.ID, 0)
	assert.True(t, domain.IsInvalidProductDataError(err))
}
