package billing

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fieldvine/billing/pkg/export"
	"github.com/fieldvine/billing/pkg/limits"
	"github.com/fieldvine/billing/pkg/payment"
	"github.com/fieldvine/billing/pkg/subscription"
)

// jsonResponse is the standard response envelope.
type jsonResponse struct {
	Code  string       `json:"code,omitempty"`
	Data  any          `json:"data,omitempty"`
	Error *errorDetail `json:"error,omitempty"`
}

// errorDetail contains error information.
type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

func respond(w http.ResponseWriter, status int, body jsonResponse) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondData(w http.ResponseWriter, code string, data any) {
	respond(w, http.StatusOK, jsonResponse{Code: code, Data: data})
}

// respondError maps domain sentinels onto HTTP status codes. Unknown
// errors are reported as 500 without leaking internals.
func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	code := "internal_error"
	message := http.StatusText(status)

	var quotaErr *limits.QuotaExceededError

	switch {
	case errors.As(err, &quotaErr):
		status = http.StatusForbidden
		code = "quota_exceeded"
		message = quotaErr.Error()
	case errors.Is(err, limits.ErrNotEligible):
		status = http.StatusForbidden
		code = "subscription_inactive"
		message = "subscription is not eligible for this operation"
	case errors.Is(err, payment.ErrSignatureInvalid):
		status = http.StatusBadRequest
		code = "invalid_signature"
		message = "webhook signature verification failed"
	case errors.Is(err, subscription.ErrTenantNotFound),
		errors.Is(err, export.ErrExportNotFound):
		status = http.StatusNotFound
		code = "not_found"
		message = http.StatusText(status)
	case errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
		code = "bad_request"
		message = err.Error()
	case errors.Is(err, errNotImplemented):
		status = http.StatusNotImplemented
		code = "not_implemented"
		message = err.Error()
	}

	respond(w, status, jsonResponse{
		Code:  code,
		Error: &errorDetail{Code: code, Message: message},
	})
}

var (
	errBadRequest     = errors.New("bad request")
	errNotImplemented = errors.New("not implemented")
)
