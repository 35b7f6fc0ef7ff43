// Package logging builds the service logger and its HTTP access log.
package logging

import (
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/kdduha/storyteller/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// New returns a logger writing JSON to out, or colored console lines when
// cfg.Pretty is set. An unknown level falls back to info.
func New(cfg config.LogConfig, out io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out}
	}

	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// Middleware puts logger into every request context and writes one access
// line per request. It expects chi's RequestID middleware to run first.
func Middleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	access := hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		event := hlog.FromRequest(r).Info()
		if status >= http.StatusInternalServerError {
			event = hlog.FromRequest(r).Warn()
		}
		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	})

	return func(next http.Handler) http.Handler {
		withID := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if id := middleware.GetReqID(r.Context()); id != "" {
				zerolog.Ctx(r.Context()).UpdateContext(func(c zerolog.Context) zerolog.Context {
					return c.Str("request_id", id)
				})
			}
			next.ServeHTTP(w, r)
		})
		return hlog.NewHandler(logger)(access(withID))
	}
}
