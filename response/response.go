// Package response implements the uniform API envelope and the single
// error-translation point. Every outcome leaving the service layer passes
// through here: successes are wrapped as {success, message, data}, paginated
// results additionally carry page metadata, and failures are classified by
// the apperror taxonomy into an HTTP status plus an error envelope. No
// handler formats its own error body.
package response

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/user/exthub-go/apperror"
)

// Envelope is the uniform response wrapper returned by every endpoint.
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Pagination carries page metadata for list responses.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
	Pages int `json:"pages"`
}

// PaginatedEnvelope is the envelope for paginated list responses.
type PaginatedEnvelope struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message"`
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

// NewPagination computes page metadata, with pages = ceil(total/limit).
func NewPagination(total, page, limit int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{
		Page:  page,
		Limit: limit,
		Total: total,
		Pages: pages,
	}
}

// writeJSON serializes v to JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		if err := json.NewEncoder(w).Encode(v); err != nil {
			http.Error(w, `{"success":false,"message":"failed to encode response"}`, http.StatusInternalServerError)
		}
	}
}

// Success writes a success envelope with the given status code.
func Success(w http.ResponseWriter, status int, message string, data interface{}) {
	writeJSON(w, status, Envelope{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// OK writes a 200 success envelope.
func OK(w http.ResponseWriter, message string, data interface{}) {
	Success(w, http.StatusOK, message, data)
}

// Created writes a 201 success envelope.
func Created(w http.ResponseWriter, message string, data interface{}) {
	Success(w, http.StatusCreated, message, data)
}

// Paginated writes a 200 paginated envelope.
func Paginated(w http.ResponseWriter, message string, data interface{}, p Pagination) {
	writeJSON(w, http.StatusOK, PaginatedEnvelope{
		Success:    true,
		Message:    message,
		Data:       data,
		Pagination: p,
	})
}

// ErrorWriter translates failures into error envelopes. The production flag
// is fixed at construction time from the server configuration: in production
// the underlying error detail is suppressed for 500-class responses.
type ErrorWriter struct {
	production bool
}

// NewErrorWriter creates an ErrorWriter for the given environment.
func NewErrorWriter(production bool) *ErrorWriter {
	return &ErrorWriter{production: production}
}

// WriteError classifies err via the apperror taxonomy and writes the error
// envelope. Errors that are not *AppError are treated as internal.
func (ew *ErrorWriter) WriteError(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperror.FromError(err)
	if !ok {
		appErr = apperror.NewInternalError("an unexpected error occurred", err)
	}

	status := appErr.StatusCode()
	if status >= http.StatusInternalServerError {
		log.Printf("error processing %s %s: %v", r.Method, r.URL.Path, appErr)
	}

	detail := ""
	if appErr.Err != nil {
		detail = appErr.Err.Error()
	}
	if ew.production && status >= http.StatusInternalServerError {
		detail = ""
	}

	writeJSON(w, status, Envelope{
		Success: false,
		Message: appErr.Message,
		Error:   detail,
	})
}
