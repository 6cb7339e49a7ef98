package lifecycle

import (
	"context"
	"fmt"

	"github.com/llubimov/discord-bot-uvd-sub000/internal/domain"
	"github.com/llubimov/discord-bot-uvd-sub000/internal/platform"
)

// Transition — спланированный переход заявки.
type Transition struct {
	// From — фаза до перехода.
	From domain.Phase

	// To — фаза после перехода.
	To domain.Phase

	// Action — действие, вызвавшее переход.
	Action domain.Action

	// Gate — новое состояние согласований (только для перевода).
	Gate *domain.TransferGate
}

// Terminal возвращает true, если после перехода запись удаляется.
func (t Transition) Terminal() bool {
	return t.To.IsTerminal()
}

// Workflow — автомат конкретного типа заявки.
type Workflow interface {
	// Kind возвращает обслуживаемый тип заявки.
	Kind() domain.Kind

	// Plan проверяет действие и вычисляет переход. Запись не меняет.
	// rec == nil означает, что заявка уже завершена.
	Plan(rec *domain.Request, action domain.Action) (Transition, error)

	// Apply выполняет внешние эффекты перехода.
	Apply(ctx context.Context, api platform.API, rec *domain.Request, tr Transition) error
}

// Registry — набор workflow по типам заявок.
type Registry struct {
	workflows map[domain.Kind]Workflow
}

// NewRegistry создаёт реестр из переданных workflow.
func NewRegistry(workflows ...Workflow) *Registry {
	r := &Registry{workflows: make(map[domain.Kind]Workflow, len(workflows))}
	for _, wf := range workflows {
		r.workflows[wf.Kind()] = wf
	}
	return r
}

// DefaultRegistry возвращает реестр со всеми типами заявок.
func DefaultRegistry() *Registry {
	return NewRegistry(
		ApplicationWorkflow{},
		TerminationWorkflow{},
		PromotionWorkflow{},
		IssuanceWorkflow{},
		TransferWorkflow{},
	)
}

// Get возвращает workflow для типа.
func (r *Registry) Get(kind domain.Kind) (Workflow, error) {
	wf, ok := r.workflows[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoWorkflow, kind)
	}
	return wf, nil
}

// Kinds возвращает зарегистрированные типы в порядке domain.Kinds.
func (r *Registry) Kinds() []domain.Kind {
	out := make([]domain.Kind, 0, len(r.workflows))
	for _, k := range domain.Kinds() {
		if _, ok := r.workflows[k]; ok {
			out = append(out, k)
		}
	}
	return out
}
