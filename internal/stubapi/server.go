// Package stubapi is a local stand-in for the real-estate REST backend. It
// accepts the seeding endpoints, validates payload shape and records what it
// receives.
package stubapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/estatehub/seeder/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the stub backend's routes.
func NewRouter(st store.Store, opts Options, logger *slog.Logger) (http.Handler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	h, err := newHandler(st, opts, logger)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(requestLogger(logger), middleware.Recoverer)

	r.Get("/healthcheck", h.Healthcheck)
	r.Get("/stats", h.Stats)

	r.Route("/owners", func(r chi.Router) {
		r.Get("/", h.ListOwners)
		r.Post("/", h.CreateOwner)
		r.Get("/{ownerID}", h.GetOwner)
		r.Post("/{ownerID}/photo", h.UploadOwnerPhoto)
	})
	r.Route("/properties", func(r chi.Router) {
		r.Get("/", h.ListProperties)
		r.Post("/", h.CreateProperty)
		r.Post("/{propertyID}/images", h.UploadPropertyImage)
	})

	return r, nil
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("Request handled",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start))
		})
	}
}
