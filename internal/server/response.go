package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mattsblocklist/countrypicker/internal/alpha"
	"github.com/mattsblocklist/countrypicker/internal/catalog"
	"github.com/mattsblocklist/countrypicker/internal/picker"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err onto a status and error code. Internal errors omit the
// description.
func writeError(w http.ResponseWriter, err error) {
	status, code := classify(err)
	resp := ErrorResponse{Error: code}
	if status != http.StatusInternalServerError {
		resp.ErrorDescription = err.Error()
	}
	writeJSON(w, status, resp)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, catalog.ErrCountryNotFound):
		return http.StatusNotFound, "country_not_found"
	case errors.Is(err, alpha.ErrInvalidLetterTarget):
		return http.StatusUnprocessableEntity, "invalid_letter_target"
	case errors.Is(err, picker.ErrStaleGeneration):
		return http.StatusConflict, "stale_generation"
	case errors.Is(err, picker.ErrNavigationSuppressed):
		return http.StatusConflict, "navigation_suppressed"
	case errors.Is(err, picker.ErrSuperseded):
		return http.StatusConflict, "superseded"
	case errors.Is(err, catalog.ErrCatalogUnavailable):
		return http.StatusServiceUnavailable, "catalog_unavailable"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "request_cancelled"
	}
	return http.StatusInternalServerError, "internal_error"
}
