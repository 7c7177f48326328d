package http

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"popquiz-service/internal/logging"
)

// NewRouter mounts health, metrics, the JSON API and the WebSocket endpoint.
func NewRouter(api *APIHandler, ws *WSHandler, gatherer prometheus.Gatherer, logger zerolog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	if gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	api.Register(mux)
	mux.HandleFunc("/ws", ws.ServeWS)
	return withRequestLogger(logger, mux)
}

// withRequestLogger stores a request-scoped logger in the request context.
func withRequestLogger(logger zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqLogger := logger.With().
			Str("request_id", uuid.NewString()).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Logger()
		start := time.Now()
		next.ServeHTTP(w, r.WithContext(logging.IntoContext(r.Context(), reqLogger)))
		reqLogger.Debug().Dur("elapsed", time.Since(start)).Msg("request served")
	})
}
