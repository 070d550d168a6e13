package health

import (
	"context"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"golang.org/x/exp/slog"
)

const serviceName = "careline-dev"

type Handler struct {
	log        *slog.Logger
	middleware huma.Middlewares
	startedAt  time.Time
}

func NewHandler(log *slog.Logger, middleware huma.Middlewares) *Handler {
	return &Handler{
		log:        log,
		middleware: middleware,
		startedAt:  time.Now(),
	}
}

func (h *Handler) SetupRoutes(api huma.API) {
	huma.Register(api, h.healthCheckOp(), h.healthCheck)
}

func (h *Handler) healthCheck(_ context.Context, _ *Input) (*Output, error) {
	h.log.Debug("connectivity probe received")

	return &Output{
		Body: Response{
			Status:  "OK",
			Service: serviceName,
			Uptime:  time.Since(h.startedAt).Round(time.Second).String(),
		},
	}, nil
}
