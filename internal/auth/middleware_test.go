package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoUser(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, err := UserID(r.Context())
		require.NoError(t, err)
		_, _ = w.Write([]byte(userID))
	})
}

func TestGate_RejectsMissingUser(t *testing.T) {
	g := NewGate(zerolog.Nop(), "X-User-Id", false)

	rec := httptest.NewRecorder()
	g.Middleware(echoUser(t)).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/conversation", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
}

func TestGate_PassesUserID(t *testing.T) {
	g := NewGate(zerolog.Nop(), "X-User-Id", false)

	req := httptest.NewRequest(http.MethodPost, "/api/conversation", nil)
	req.Header.Set("X-User-Id", "user_2abc")
	rec := httptest.NewRecorder()
	g.Middleware(echoUser(t)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user_2abc", rec.Body.String())
}

func TestGate_Disabled(t *testing.T) {
	g := NewGate(zerolog.Nop(), "X-User-Id", true)

	rec := httptest.NewRecorder()
	g.Middleware(echoUser(t)).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/code", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anonymous", rec.Body.String())
}

func TestUserID_Missing(t *testing.T) {
	_, err := UserID(context.Background())
	assert.ErrorIs(t, err, ErrNoUser)
}
