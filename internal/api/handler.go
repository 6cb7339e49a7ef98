package api

import (
	"context"
	"log/slog"

	"github.com/llubimov/discord-bot-uvd-sub000/internal/domain"
	"github.com/llubimov/discord-bot-uvd-sub000/internal/reconciler"
)

// Coordinator — операции координатора, доступные через API.
type Coordinator interface {
	Register(ctx context.Context, req *domain.Request) (domain.Phase, error)
	TryAction(ctx context.Context, kind domain.Kind, key domain.Key, action domain.Action) (domain.Phase, error)
	Phase(kind domain.Kind, key domain.Key) (domain.Phase, bool)
	Pending(kind domain.Kind) []*domain.Request
	Sweep(ctx context.Context, kind domain.Kind, dryRun bool) (reconciler.Result, error)
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	coord  Coordinator
	logger *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Coordinator Coordinator
	Logger      *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		coord:  cfg.Coordinator,
		logger: logger.With("component", "api"),
	}
}
