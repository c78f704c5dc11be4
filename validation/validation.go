// Package validation is the schema layer for untrusted input. Each endpoint
// declares a typed DTO with validate tags; this package parses the raw source
// (JSON body, query string or URL parameter) into the DTO and either returns
// a normalized value or a single ValidationError listing every violated field
// as "field: message" pairs. Validation failures never reach the service
// layer.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/user/exthub-go/apperror"
)

// Defaults applied when pagination parameters are absent.
const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// validate is the shared validator instance. validator/v10 instances cache
// struct metadata and are safe for concurrent use.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report violations under the JSON field names clients actually send.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldMessage renders a human-readable message for a single violation.
func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s: is required", fe.Field())
	case "email":
		return fmt.Sprintf("%s: must be a valid email address", fe.Field())
	case "min":
		return fmt.Sprintf("%s: must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s: must not exceed %s characters", fe.Field(), fe.Param())
	case "url":
		return fmt.Sprintf("%s: must be a valid URL", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s: must be one of %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return fmt.Sprintf("%s: is invalid", fe.Field())
	}
}

// Struct validates dst against its validate tags. On failure it returns a
// ValidationError whose underlying error lists all violations, not just the
// first one.
func Struct(dst interface{}) error {
	err := validate.Struct(dst)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		// InvalidValidationError: dst was not a struct. Programmer error.
		return apperror.NewInternalError("validation failed", err)
	}

	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		messages = append(messages, fieldMessage(fe))
	}
	return apperror.NewValidationError("Validation failed", errors.New(strings.Join(messages, ", ")))
}

// DecodeAndValidate decodes the JSON request body into dst and validates it.
// Unknown fields are rejected so typos surface instead of being silently
// dropped.
func DecodeAndValidate(r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return apperror.NewBadRequestError("invalid request body", err)
	}
	return Struct(dst)
}

// Pagination is the normalized form of the page/limit query parameters.
type Pagination struct {
	Page  int
	Limit int
}

// Offset returns the row offset for the current page.
func (p Pagination) Offset() int {
	return (p.Page - 1) * p.Limit
}

// ParsePagination normalizes the page and limit query parameters, defaulting
// to page=1 and limit=10 when absent. Non-numeric or non-positive values are
// validation failures; both parameters are checked before reporting.
func ParsePagination(r *http.Request) (Pagination, error) {
	p := Pagination{Page: DefaultPage, Limit: DefaultLimit}
	var messages []string

	if raw := r.URL.Query().Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			messages = append(messages, "page: must be a positive integer")
		} else {
			p.Page = page
		}
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			messages = append(messages, "limit: must be a positive integer")
		} else {
			p.Limit = limit
		}
	}

	if len(messages) > 0 {
		return Pagination{}, apperror.NewValidationError("Validation failed", errors.New(strings.Join(messages, ", ")))
	}
	return p, nil
}

// RequireParam returns the named chi URL parameter, failing with a
// ValidationError when it is empty.
func RequireParam(r *http.Request, name string) (string, error) {
	value := chi.URLParam(r, name)
	if value == "" {
		return "", apperror.NewValidationError("Validation failed", fmt.Errorf("%s: is required", name))
	}
	return value, nil
}
