package devserver

import (
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"golang.org/x/exp/slog"

	"careline/internal/app/devserver/http/health"
	"careline/internal/app/devserver/http/visits"
	"careline/internal/app/devserver/middleware"
	loggerMW "careline/internal/app/devserver/middleware/logger"
)

type Handlers struct {
	Health *health.Handler
	Visits *visits.Handler
}

// NewRouter builds a *chi.Mux with all operations registered through
// huma.Register.
func NewRouter(store *visits.Store, log *slog.Logger) *chi.Mux {
	mux := chi.NewMux()

	config := huma.DefaultConfig("CareLine Dev API", "1.0.0")
	API := humachi.New(mux, config)

	h := handlers(store, log)
	h.Health.SetupRoutes(API)
	h.Visits.SetupRoutes(API)

	return mux
}

func handlers(store *visits.Store, log *slog.Logger) *Handlers {
	requestLogger := loggerMW.New(log)
	middlewares := middleware.NewContainer()

	middlewares.Add(requestLogger.Middleware())
	healthHandler := health.NewHandler(log, middlewares.GetAllAndClear())

	middlewares.Add(requestLogger.Middleware())
	visitsHandler := visits.NewHandler(store, log, middlewares.GetAllAndClear())

	return &Handlers{
		Health: healthHandler,
		Visits: visitsHandler,
	}
}
