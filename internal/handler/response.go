package handler

import (
	"errors"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/kdduha/storyteller/internal/apperr"
	"github.com/kdduha/storyteller/internal/models"
	"github.com/rs/zerolog"
)

const internalErrorMessage = "Internal server error"

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, internalErrorMessage, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.ErrorResponse{Error: msg})
}

// writeServiceError maps a service failure to a status code. Only validation
// failures are echoed back; everything else is logged and hidden behind a
// generic message.
func writeServiceError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	var verr *apperr.ValidationError
	if errors.As(err, &verr) {
		writeError(w, http.StatusBadRequest, verr.Error())
		return
	}

	event := logger.Error().Err(err)
	var cerr *apperr.ConfigurationError
	if errors.As(err, &cerr) {
		event = event.Str("provider", cerr.Provider).Str("setting", cerr.Setting)
	}
	var perr *apperr.ProviderError
	if errors.As(err, &perr) {
		event = event.Str("provider", perr.Provider).Int("provider_status", perr.StatusCode).Bool("retryable", apperr.IsRetryable(err))
	}
	event.Msg("request failed")

	writeError(w, http.StatusInternalServerError, internalErrorMessage)
}

func decodeJSON(r *http.Request, v any) error {
	return sonic.ConfigDefault.NewDecoder(r.Body).Decode(v)
}
