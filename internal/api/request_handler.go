package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/llubimov/discord-bot-uvd-sub000/internal/coordinator"
	"github.com/llubimov/discord-bot-uvd-sub000/internal/domain"
	"github.com/llubimov/discord-bot-uvd-sub000/internal/telemetry"
)

// ListRequests возвращает ожидающие заявки типа.
// GET /api/v1/requests?kind=...
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	kind, err := domain.ParseKind(r.URL.Query().Get("kind"))
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	recs := h.coord.Pending(kind)
	result := make([]RequestResponse, len(recs))
	for i, rec := range recs {
		result[i] = RequestFromDomain(rec)
	}

	List(w, result, len(result))
}

// CreateRequest регистрирует новую заявку.
// POST /api/v1/requests
func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var req CreateRequestRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	rec := req.ToDomain()
	phase, err := h.coord.Register(r.Context(), rec)
	if HandleCoordinatorError(w, telemetry.FromContext(r.Context()), err, phase) {
		return
	}

	Created(w, PhaseResponse{
		Key:   strconv.FormatInt(req.Key, 10),
		Kind:  req.Kind,
		Phase: phase.String(),
	})
}

// GetRequest возвращает фазу заявки.
// GET /api/v1/requests/{kind}/{key}
func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	kind, key, ok := parseRequestPath(w, r)
	if !ok {
		return
	}

	phase, found := h.coord.Phase(kind, key)
	if !found {
		NotFound(w, "request not found or already decided")
		return
	}

	Success(w, PhaseResponse{
		Key:   strconv.FormatInt(int64(key), 10),
		Kind:  kind.String(),
		Phase: phase.String(),
	})
}

// ApplyAction выполняет действие над заявкой.
// POST /api/v1/requests/{kind}/{key}/actions
func (h *Handler) ApplyAction(w http.ResponseWriter, r *http.Request) {
	kind, key, ok := parseRequestPath(w, r)
	if !ok {
		return
	}

	var req ActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	actionType, ok := domain.ParseActionType(req.Action)
	if !ok {
		BadRequest(w, "unknown action "+strconv.Quote(req.Action))
		return
	}

	phase, err := h.coord.TryAction(r.Context(), kind, key, domain.Action{
		Type:    actionType,
		ActorID: req.ActorID,
		Reason:  req.Reason,
	})
	if HandleCoordinatorError(w, telemetry.FromContext(r.Context()), err, phase) {
		return
	}

	Success(w, PhaseResponse{
		Key:   strconv.FormatInt(int64(key), 10),
		Kind:  kind.String(),
		Phase: phase.String(),
	})
}

// RunSweep запускает сверку вне расписания.
// POST /api/v1/sweeps
func (h *Handler) RunSweep(w http.ResponseWriter, r *http.Request) {
	var req SweepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	kind, err := domain.ParseKind(req.Kind)
	if err != nil {
		BadRequest(w, err.Error())
		return
	}

	res, err := h.coord.Sweep(r.Context(), kind, req.DryRun)
	if errors.Is(err, coordinator.ErrSweepsDisabled) {
		HandleCoordinatorError(w, telemetry.FromContext(r.Context()), err, "")
		return
	}
	if err != nil {
		// частичный результат полезен: ошибки отдельных записей не прерывают обход
		telemetry.FromContext(r.Context()).Warn("sweep finished with errors", "kind", kind, "error", err)
	}

	Success(w, SweepFromResult(res))
}

// parseRequestPath разбирает {kind}/{key}; при ошибке отвечает 400.
func parseRequestPath(w http.ResponseWriter, r *http.Request) (domain.Kind, domain.Key, bool) {
	kind, err := domain.ParseKind(r.PathValue("kind"))
	if err != nil {
		BadRequest(w, err.Error())
		return "", 0, false
	}

	key, err := strconv.ParseInt(r.PathValue("key"), 10, 64)
	if err != nil || key == 0 {
		BadRequest(w, "invalid request key")
		return "", 0, false
	}

	return kind, domain.Key(key), true
}
