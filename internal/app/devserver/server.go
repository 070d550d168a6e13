package devserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/exp/slog"

	"careline/internal/app/devserver/http/visits"
	"careline/internal/config"
)

// App is the development backend the agent syncs against: the real agency
// API surface on top of an in-memory versioned store.
type App struct {
	config *config.Config
	log    *slog.Logger
	store  *visits.Store
	server *http.Server
}

func New(cfg *config.Config, log *slog.Logger) *App {
	store := visits.NewStore()

	return &App{
		config: cfg,
		log:    log,
		store:  store,
		server: &http.Server{
			Addr:              cfg.ServerAddress,
			Handler:           NewRouter(store, log),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

func (a *App) Store() *visits.Store {
	return a.store
}

// Run serves until the context is canceled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.log.Info("dev server listening", "address", a.config.ServerAddress)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	a.log.Info("dev server stopped")
	return nil
}
