// Package auth admits requests that carry a user id verified by the identity
// provider sitting in front of this service.
package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/kdduha/storyteller/internal/models"
	"github.com/rs/zerolog"
)

type contextKey string

const userIDKey contextKey = "user_id"

var ErrNoUser = errors.New("user id not found in context")

type Gate struct {
	logger   zerolog.Logger
	header   string
	disabled bool
}

// NewGate builds a gate reading the verified user id from header. A disabled
// gate admits every request as the anonymous user.
func NewGate(logger zerolog.Logger, header string, disabled bool) *Gate {
	return &Gate{
		logger:   logger.With().Str("component", "auth").Logger(),
		header:   header,
		disabled: disabled,
	}
}

func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(g.header))
		if userID == "" && g.disabled {
			userID = "anonymous"
		}
		if userID == "" {
			g.logger.Debug().Str("path", r.URL.Path).Msg("request without verified user")
			writeUnauthorized(w)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserID returns the verified user id stored by the gate.
func UserID(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(userIDKey).(string)
	if !ok || userID == "" {
		return "", ErrNoUser
	}
	return userID, nil
}

func writeUnauthorized(w http.ResponseWriter) {
	body, _ := sonic.Marshal(models.ErrorResponse{Error: "Unauthorized"})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write(body)
}
