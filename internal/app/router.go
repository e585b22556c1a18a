package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/librisys/librisys/internal/catalog"
	"github.com/librisys/librisys/internal/circulation"
	"github.com/librisys/librisys/internal/fines"
	"github.com/librisys/librisys/internal/reservation"
	"github.com/librisys/librisys/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	CatalogHandler     *catalog.Handler
	ReservationHandler *reservation.Handler
	CirculationHandler *circulation.Handler
	FinesHandler       *fines.Handler
	JobsHandler        *jobs.Handler
}

// NewRouter constructs the chi.Router with librisys defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.CatalogHandler != nil {
		r.Route("/catalog", params.CatalogHandler.MountRoutes)
	}
	if params.ReservationHandler != nil {
		r.Route("/reservations", params.ReservationHandler.MountRoutes)
	}
	if params.CirculationHandler != nil {
		r.Route("/circulation", params.CirculationHandler.MountRoutes)
	}
	if params.FinesHandler != nil {
		r.Route("/fines", params.FinesHandler.MountRoutes)
	}
	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}

	return r
}
