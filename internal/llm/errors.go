package llm

import (
	"errors"
	"net/http"

	"github.com/kdduha/storyteller/internal/apperr"
	"github.com/openai/openai-go/v3"
)

const (
	statusOK        = "ok"
	statusError     = "error"
	statusTimeout   = "timeout"
	statusMalformed = "malformed"
)

func providerError(kind apperr.ProviderKind, provider string, err error) *apperr.ProviderError {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = http.StatusText(apiErr.StatusCode)
		}
		return &apperr.ProviderError{
			Kind:       kind,
			Provider:   provider,
			StatusCode: apiErr.StatusCode,
			Message:    msg,
		}
	}
	return &apperr.ProviderError{
		Kind:     kind,
		Provider: provider,
		Message:  "request failed",
		Err:      err,
	}
}

func malformed(kind apperr.ProviderKind, provider, detail string) *apperr.ProviderError {
	return &apperr.ProviderError{
		Kind:       kind,
		Provider:   provider,
		StatusCode: http.StatusOK,
		Message:    "malformed response: " + detail,
	}
}
