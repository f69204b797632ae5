package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/mrops-br/product-catalog-api/internal/app/dto"
	"github.com/mrops-br/product-catalog-api/internal/app/service"
	"github.com/mrops-br/product-catalog-api/internal/domain"
	"github.com/mrops-br/product-catalog-api/internal/infrastructure/http/response"
)

// ProductHandler handles HTTP requests for products
type ProductHandler struct {
	service  *service.ProductService
	logger   *slog.Logger
	validate *validator.Validate
}

// NewProductHandler creates a new product handler
func NewProductHandler(service *service.ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		service:  service,
		logger:   logger,
		validate: newValidator(),
	}
}

// bind decodes and validates a request body, writing the 400 response itself on failure
func (h *ProductHandler) bind(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(w, r, dst); err != nil {
		h.logger.WarnContext(r.Context(), "Failed to decode request body",
			slog.String("error", err.Error()),
		)
		response.Error(w, http.StatusBadRequest, err)
		return false
	}
	return h.check(w, r, dst)
}

func (h *ProductHandler) check(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := h.validate.Struct(dst); err != nil {
		h.fail(w, r, validationError(err))
		return false
	}
	return true
}

// fail writes the error envelope; unexpected failures are logged here as well
func (h *ProductHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if response.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "Request failed",
			slog.String("error", err.Error()),
		)
	}
	response.DomainError(w, err)
}

// CreateProduct handles POST /products
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateProductRequest
	if !h.bind(w, r, &req) {
		return
	}

	product, err := h.service.CreateProduct(r.Context(), &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.JSON(w, http.StatusCreated, product)
}

// GetProduct handles GET /products/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetProductByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, product)
}

// GetProductBySKU handles GET /products/sku/{sku}
func (h *ProductHandler) GetProductBySKU(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetProductBySKU(r.Context(), chi.URLParam(r, "sku"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, product)
}

// ListProducts handles GET /products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filters, ok := h.filters(w, r)
	if !ok {
		return
	}

	products, err := h.service.GetProducts(r.Context(), filters)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, products)
}

func (h *ProductHandler) filters(w http.ResponseWriter, r *http.Request) (dto.ProductFiltersRequest, bool) {
	filters, err := parseFilters(r)
	if err != nil {
		h.fail(w, r, err)
		return filters, false
	}
	return filters, h.check(w, r, &filters)
}

// UpdateProduct handles PATCH and PUT /products/{id}; absent fields are left untouched
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateProductRequest
	if !h.bind(w, r, &req) {
		return
	}

	product, err := h.service.UpdateProduct(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, product)
}

// DeleteProduct handles DELETE /products/{id}
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}

	response.NoContent(w)
}

// UpdateStock handles PATCH /products/{id}/stock
func (h *ProductHandler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateStockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		response.Error(w, http.StatusBadRequest, err)
		return
	}
	req.ProductID = chi.URLParam(r, "id")
	if !h.check(w, r, &req) {
		return
	}

	product, err := h.service.UpdateStock(r.Context(), &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, product)
}

// ActivateProduct handles POST /products/{id}/activate
func (h *ProductHandler) ActivateProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.ActivateProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, product)
}

// DeactivateProduct handles POST /products/{id}/deactivate
func (h *ProductHandler) DeactivateProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.DeactivateProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, product)
}

// CheckAvailability handles GET /products/{id}/availability?quantity=n (n defaults to 1)
func (h *ProductHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	quantity, err := queryInt(r, "quantity")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if r.URL.Query().Get("quantity") == "" {
		quantity = 1
	}

	availability, err := h.service.CheckAvailability(r.Context(), chi.URLParam(r, "id"), quantity)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, availability)
}

// LowStockReport handles GET /products/reports/low-stock?threshold=n
func (h *ProductHandler) LowStockReport(w http.ResponseWriter, r *http.Request) {
	threshold, err := queryInt(r, "threshold")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if threshold < 0 {
		h.fail(w, r, domain.NewNegativeValueError("threshold", threshold))
		return
	}

	products, err := h.service.ListLowStockProducts(r.Context(), threshold)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, products)
}

// OutOfStockReport handles GET /products/reports/out-of-stock
func (h *ProductHandler) OutOfStockReport(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListOutOfStockProducts(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	response.JSON(w, http.StatusOK, products)
}
