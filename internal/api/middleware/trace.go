package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gatherly/gatherly-api/internal/api/shared"
)

// NewTraceMiddleware returns middleware that stamps every request with a
// trace ID. Applied early in the chain so all downstream handlers and
// error responses can correlate with the logs.
func NewTraceMiddleware(log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := shared.SetTraceID(r.Context())

			log.Debug("request started",
				slog.String("trace_id", shared.GetTraceID(ctx)),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("remote_addr", r.RemoteAddr))

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
