package api

import (
	"errors"
	"net/http"

	"github.com/hugo-lorenzo-mato/travel-buddy/internal/core"
	"github.com/hugo-lorenzo-mato/travel-buddy/internal/service/report"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error       string `json:"error"`
	Code        string `json:"code,omitempty"`
	Category    string `json:"category,omitempty"`
	Rendered    string `json:"rendered,omitempty"`
	RateLimited bool   `json:"rate_limited,omitempty"`
}

func httpStatusForDomainError(err error) (int, bool) {
	var domErr *core.DomainError
	if !errors.As(err, &domErr) || domErr == nil {
		return 0, false
	}

	switch domErr.Category {
	case core.ErrCatValidation:
		return http.StatusUnprocessableEntity, true
	case core.ErrCatNotFound:
		return http.StatusNotFound, true
	case core.ErrCatConflict:
		return http.StatusConflict, true
	case core.ErrCatRateLimit:
		return http.StatusTooManyRequests, true
	case core.ErrCatFatal, core.ErrCatTransient:
		return http.StatusBadGateway, true
	default:
		return http.StatusInternalServerError, true
	}
}

func respondDomainError(w http.ResponseWriter, err error) {
	status, ok := httpStatusForDomainError(err)
	if !ok {
		status = http.StatusInternalServerError
	}
	body := ErrorResponse{
		Error:       report.ErrorMessage(err),
		Rendered:    report.RenderError(err),
		RateLimited: core.IsRateLimit(err),
	}
	var domErr *core.DomainError
	if errors.As(err, &domErr) {
		body.Code = domErr.Code
		body.Category = string(domErr.Category)
	}
	respondJSON(w, status, body)
}
