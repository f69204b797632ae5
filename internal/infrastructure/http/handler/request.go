package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mrops-br/product-catalog-api/internal/app/dto"
	"github.com/mrops-br/product-catalog-api/internal/domain"
)

// maxBodyBytes caps request bodies
const maxBodyBytes = 1 << 20

// newValidator reports struct fields by their JSON names
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationError turns the first validator failure into InvalidProductDataError
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err
	}
	fe := verrs[0]

	reason := "failed on the '" + fe.Tag() + "' rule"
	switch fe.Tag() {
	case "required":
		reason = "is required"
	case "gt":
		reason = "must be greater than " + fe.Param()
	case "gte":
		reason = "must be greater than or equal to " + fe.Param()
	case "min":
		reason = "must be at least " + fe.Param()
	case "max":
		reason = "must be at most " + fe.Param()
	case "oneof":
		reason = "must be one of: " + fe.Param()
	}
	return domain.NewInvalidProductDataError(reason, fe.Field(), fe.Value())
}

// decodeJSON reads a JSON body into dst, rejecting unknown fields
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.NewInvalidFieldFormatError(key, raw, "an integer")
	}
	return v, nil
}

func queryFloat(r *http.Request, key string) (*float64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, domain.NewInvalidFieldFormatError(key, raw, "a number")
	}
	return &v, nil
}

func queryBool(r *http.Request, key string) (*bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, domain.NewInvalidFieldFormatError(key, raw, "true or false")
	}
	return &v, nil
}

// parseFilters reads listing filters from the query string
func parseFilters(r *http.Request) (dto.ProductFiltersRequest, error) {
	q := r.URL.Query()
	req := dto.ProductFiltersRequest{
		Search:     q.Get("search"),
		CategoryID: q.Get("categoryId"),
		SortBy:     q.Get("sortBy"),
		SortOrder:  q.Get("sortOrder"),
	}

	var err error
	if req.Page, err = queryInt(r, "page"); err != nil {
		return req, err
	}
	if req.PageSize, err = queryInt(r, "pageSize"); err != nil {
		return req, err
	}
	if req.MinPrice, err = queryFloat(r, "minPrice"); err != nil {
		return req, err
	}
	if req.MaxPrice, err = queryFloat(r, "maxPrice"); err != nil {
		return req, err
	}
	if req.IsActive, err = queryBool(r, "isActive"); err != nil {
		return req, err
	}
	if req.InStock, err = queryBool(r, "inStock"); err != nil {
		return req, err
	}
	return req, nil
}
