package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mrops-br/product-catalog-api/internal/app/dto"
	"github.com/mrops-br/product-catalog-api/internal/infrastructure/http/response"
)

// SKUSuggestionResponse carries a generated, currently unused SKU
type SKUSuggestionResponse struct {
	CategoryID string `json:"categoryId"`
	SKU        string `json:"sku"`
}

// ListCategoryProducts handles GET /categories/{categoryId}/products
func (h *ProductHandler) ListCategoryProducts(w http.ResponseWriter, r *http.Request) {
	filters, ok := h.filters(w, r)
	if !ok {
		return
	}

	products, err := h.service.ListCategoryProducts(r.Context(), chi.URLParam(r, "categoryId"), filters)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, products)
}

// CategorySummary handles GET /categories/{categoryId}/summary
func (h *ProductHandler) CategorySummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.GetCategorySummary(r.Context(), chi.URLParam(r, "categoryId"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, summary)
}

// SuggestSKU handles GET /categories/{categoryId}/sku-suggestion
func (h *ProductHandler) SuggestSKU(w http.ResponseWriter, r *http.Request) {
	categoryID := chi.URLParam(r, "categoryId")

	sku, err := h.service.SuggestSKU(r.Context(), categoryID)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, SKUSuggestionResponse{CategoryID: categoryID, SKU: sku})
}

// BulkUpdatePrices handles POST /categories/{categoryId}/prices
func (h *ProductHandler) BulkUpdatePrices(w http.ResponseWriter, r *http.Request) {
	var req dto.BulkPriceUpdateRequest
	if !h.bind(w, r, &req) {
		return
	}

	result, err := h.service.BulkUpdateCategoryPrices(r.Context(), chi.URLParam(r, "categoryId"), &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, result)
}
