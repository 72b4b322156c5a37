package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/dittodrive/internal/logger"
	"github.com/marmos91/dittodrive/pkg/drive"
	"github.com/marmos91/dittodrive/pkg/metrics"
	"github.com/marmos91/dittodrive/pkg/registry"
)

// NewRouter creates the chi router serving the browse API.
//
// Routes:
//   - GET /health
//   - GET /metrics (when metrics are enabled)
//   - GET /api/v1/drives
//   - GET /api/v1/drives/{name}/ping
//   - GET /api/v1/drives/{name}/entries?path=
//   - DELETE /api/v1/drives/{name}/entries?path=&dir=
//   - GET /api/v1/drives/{name}/content?path=
func NewRouter(reg *registry.Registry, policy drive.Policy, version string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	h := newHandler(reg, policy, version)

	r.Get("/health", h.health)
	if metrics.IsEnabled() {
		r.Method(http.MethodGet, "/metrics", metrics.Handler())
	}

	r.Route("/api/v1/drives", func(r chi.Router) {
		r.Get("/", h.listDrives)
		r.Route("/{name}", func(r chi.Router) {
			r.Get("/ping", h.ping)
			r.Get("/entries", h.listEntries)
			r.Delete("/entries", h.deleteEntry)
			r.Get("/content", h.content)
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/health", http.StatusTemporaryRedirect)
	})

	return r
}

// requestLogger logs request start at DEBUG and completion at INFO.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetReqID(r.Context())

		logger.Debug("API request started",
			logger.KeyRequestID, requestID,
			logger.Method(r.Method),
			logger.Path(r.URL.Path),
			"remote_addr", r.RemoteAddr,
		)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		logger.Info("API request completed",
			logger.KeyRequestID, requestID,
			logger.Method(r.Method),
			logger.Path(r.URL.Path),
			logger.Status(ww.Status()),
			"bytes", ww.BytesWritten(),
			logger.DurationMs(start),
		)
	})
}
