package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/MikeSquared-Agency/ClearHead/internal/batch"
	"github.com/MikeSquared-Agency/ClearHead/internal/metrics"
	"github.com/MikeSquared-Agency/ClearHead/internal/store"
)

type RouterOptions struct {
	AdminToken     string
	AllowedOrigins []string
	// RequestsPerMinute per client; zero uses 120.
	RequestsPerMinute int
}

// NewRouter builds the public API. runs may be nil, in which case the
// run history routes are not mounted.
func NewRouter(d *batch.Driver, runs store.Store, m *metrics.Metrics, opts RouterOptions, logger *slog.Logger) http.Handler {
	rpm := opts.RequestsPerMinute
	if rpm <= 0 {
		rpm = 120
	}

	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Authorization", "Content-Type", ClientIDHeader},
	}).Handler)
	r.Use(RequestLogger(logger))
	if m != nil {
		r.Use(MetricsMiddleware(m))
	}
	r.Use(RateLimitMiddleware(rpm))

	recs := NewRecommendationsHandler(d)
	mdl := NewModelHandler(d)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/recommendations", recs.Create)
		r.Get("/model", mdl.Get)

		if runs != nil {
			h := NewRunsHandler(runs)
			r.Get("/runs", h.List)
			r.Get("/runs/stats", h.Stats)
			r.Get("/runs/{id}", h.Get)
		}

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(opts.AdminToken))
			r.Post("/model/train", mdl.Train)
		})
	})

	return r
}

func NewMetricsRouter(m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", m.Handler())
	return r
}
