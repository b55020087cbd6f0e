package genai

import (
	"errors"
	"net/http"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"

	"github.com/hugo-lorenzo-mato/travel-buddy/internal/core"
)

// mapError converts SDK API errors into *core.ServiceError. Transport errors
// and context errors are returned unchanged.
func mapError(provider string, err error) error {
	if err == nil {
		return nil
	}

	var anthErr *anthropic.Error
	if errors.As(err, &anthErr) {
		return &core.ServiceError{
			Provider:   provider,
			StatusCode: anthErr.StatusCode,
			Message:    statusMessage(anthErr.StatusCode),
			Cause:      err,
		}
	}

	var oaiErr *openai.Error
	if errors.As(err, &oaiErr) {
		msg := oaiErr.Message
		if msg == "" {
			msg = statusMessage(oaiErr.StatusCode)
		}
		return &core.ServiceError{
			Provider:   provider,
			StatusCode: oaiErr.StatusCode,
			Code:       oaiErr.Code,
			Message:    msg,
			Cause:      err,
		}
	}

	return err
}

func statusMessage(code int) string {
	if code == 529 {
		return "overloaded"
	}
	if text := http.StatusText(code); text != "" {
		return text
	}
	return "request failed"
}
