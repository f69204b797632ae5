package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mrops-br/product-catalog-api/internal/domain"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// InsufficientStockResponse adds the stock figures to the error envelope
type InsufficientStockResponse struct {
	ErrorResponse
	Requested int `json:"requested"`
	Available int `json:"available"`
	Missing   int `json:"missing"`
}

// JSON sends a JSON response
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// NoContent sends an empty response with the given status
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

func errorType(status int) string {
	switch status {
	case http.StatusNotFound:
		return "not_found"
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusConflict:
		return "conflict"
	case http.StatusInternalServerError:
		return "internal_server_error"
	default:
		return "error"
	}
}

// Error sends an error response
func Error(w http.ResponseWriter, status int, err error) {
	JSON(w, status, ErrorResponse{
		Error:   errorType(status),
		Message: err.Error(),
	})
}

// StatusFor maps an application error to its HTTP status
func StatusFor(err error) int {
	switch {
	case domain.IsDuplicateProductCodeError(err):
		return http.StatusConflict
	case domain.IsProductNotFoundError(err):
		return http.StatusNotFound
	case domain.IsInsufficientStockError(err),
		domain.IsProductNotAvailableError(err),
		domain.IsValidationError(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// DomainError sends the error envelope for err. Unexpected failures are reported
// without their internal details.
func DomainError(w http.ResponseWriter, err error) {
	status := StatusFor(err)

	var ise *domain.InsufficientStockError
	switch {
	case errors.As(err, &ise):
		JSON(w, status, InsufficientStockResponse{
			ErrorResponse: ErrorResponse{Error: "insufficient_stock", Message: ise.Error()},
			Requested:     ise.RequestedQuantity,
			Available:     ise.AvailableStock,
			Missing:       ise.MissingQuantity(),
		})
	case domain.IsProductNotAvailableError(err):
		JSON(w, status, ErrorResponse{Error: "product_not_available", Message: err.Error()})
	case status == http.StatusInternalServerError:
		JSON(w, status, ErrorResponse{Error: errorType(status), Message: "internal server error"})
	default:
		Error(w, status, err)
	}
}
