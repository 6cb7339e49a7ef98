package mq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/llubimov/discord-bot-uvd-sub000/internal/coordinator"
	"github.com/llubimov/discord-bot-uvd-sub000/internal/domain"
	"github.com/llubimov/discord-bot-uvd-sub000/internal/lifecycle"
)

// ActionHandler выполняет действие над заявкой (coordinator.Coordinator).
type ActionHandler interface {
	TryAction(ctx context.Context, kind domain.Kind, key domain.Key, action domain.Action) (domain.Phase, error)
}

// ResultPublisher отправляет исход нажатия слою представления.
type ResultPublisher interface {
	PublishResult(ctx context.Context, result InteractionResult) error
}

// InteractionHandler принимает нажатия из очереди interactions.actions.
type InteractionHandler struct {
	actions ActionHandler
	results ResultPublisher
	logger  *slog.Logger
}

// NewInteractionHandler создаёт обработчик нажатий.
// results может быть nil: тогда исход только логируется.
func NewInteractionHandler(actions ActionHandler, results ResultPublisher, logger *slog.Logger) *InteractionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &InteractionHandler{
		actions: actions,
		results: results,
		logger:  logger.With("component", "interactions"),
	}
}

// Handle — Handler для Consumer.
//
// Нажатие подтверждается при любом определённом исходе, включая
// "уже обрабатывается" и недопустимый переход: повтор доставки
// не должен повторять эффекты. В очередь возвращаются только
// неклассифицированные ошибки, случившиеся до эффектов.
func (h *InteractionHandler) Handle(ctx context.Context, d *Delivery) error {
	if d.Message.Type != MessageTypeInteractionAction {
		return fmt.Errorf("%w: unexpected type %q", ErrBadMessage, d.Message.Type)
	}

	in, err := ParsePayload[InteractionAction](&d.Message)
	if err != nil {
		return err
	}

	result := InteractionResult{
		InteractionID: in.InteractionID,
		Kind:          in.Kind,
		Key:           in.Key,
		Action:        in.Action,
	}

	kind, action, err := in.decode()
	if err != nil {
		result.Status = ResultInvalid
		result.Message = err.Error()
		h.reply(ctx, result)
		return nil
	}

	phase, err := h.actions.TryAction(ctx, kind, domain.Key(in.Key), action)
	status, requeue := Outcome(err)
	if requeue {
		return err
	}

	result.Status = status
	result.Phase = phase.String()
	if err != nil {
		result.Message = err.Error()
	}
	h.reply(ctx, result)
	return nil
}

// decode проверяет тип заявки и действие.
func (in InteractionAction) decode() (domain.Kind, domain.Action, error) {
	kind, err := domain.ParseKind(in.Kind)
	if err != nil {
		return "", domain.Action{}, err
	}
	actionType, ok := domain.ParseActionType(in.Action)
	if !ok {
		return "", domain.Action{}, fmt.Errorf("unknown action %q", in.Action)
	}
	if in.Key == 0 {
		return "", domain.Action{}, errors.New("request key is required")
	}
	return kind, domain.Action{Type: actionType, ActorID: in.ActorID, Reason: in.Reason}, nil
}

func (h *InteractionHandler) reply(ctx context.Context, result InteractionResult) {
	logger := h.logger.With(
		"interaction_id", result.InteractionID,
		"kind", result.Kind,
		"request_key", result.Key,
		"action", result.Action,
		"status", result.Status,
	)
	logger.Info("interaction handled")

	if h.results == nil {
		return
	}
	if err := h.results.PublishResult(ctx, result); err != nil {
		logger.Warn("failed to publish interaction result", "error", err)
	}
}

// Outcome сопоставляет ошибку TryAction исходу нажатия.
// requeue=true — исход не определён, сообщение нужно доставить повторно.
func Outcome(err error) (status ResultStatus, requeue bool) {
	switch {
	case err == nil:
		return ResultApplied, false
	case errors.Is(err, coordinator.ErrAlreadyInProgress):
		return ResultInProgress, false
	case errors.Is(err, coordinator.ErrIllegalTransition):
		return ResultIllegal, false
	case errors.Is(err, coordinator.ErrPersistenceFailure):
		return ResultUnsaved, false
	case errors.Is(err, coordinator.ErrExternalFailure):
		return ResultFailed, false
	case errors.Is(err, lifecycle.ErrNoWorkflow), errors.Is(err, domain.ErrInvalidRequest):
		return ResultInvalid, false
	default:
		return "", true
	}
}
