package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/llubimov/discord-bot-uvd-sub000/internal/coordinator"
	"github.com/llubimov/discord-bot-uvd-sub000/internal/domain"
	"github.com/llubimov/discord-bot-uvd-sub000/internal/lifecycle"
	"github.com/llubimov/discord-bot-uvd-sub000/internal/store"
)

// ErrorCode — код ошибки API.
type ErrorCode string

const (
	ErrCodeBadRequest      ErrorCode = "BAD_REQUEST"
	ErrCodeNotFound        ErrorCode = "NOT_FOUND"
	ErrCodeConflict        ErrorCode = "CONFLICT"
	ErrCodeInProgress      ErrorCode = "IN_PROGRESS"
	ErrCodeInvalidState    ErrorCode = "INVALID_STATE"
	ErrCodeExternalFailure ErrorCode = "EXTERNAL_FAILURE"
	ErrCodeNotPersisted    ErrorCode = "NOT_PERSISTED"
	ErrCodeUnavailable     ErrorCode = "UNAVAILABLE"
	ErrCodeInternalError   ErrorCode = "INTERNAL_ERROR"
)

// ErrorResponse — структура ответа с ошибкой.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail — детали ошибки.
type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Phase   string    `json:"phase,omitempty"`
}

// DataResponse — структура успешного ответа.
type DataResponse struct {
	Data any `json:"data"`
}

// ListResponse — структура ответа со списком.
type ListResponse struct {
	Data  any `json:"data"`
	Total int `json:"total"`
}

// JSON отправляет JSON ответ.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Success отправляет успешный ответ с данными.
func Success(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, DataResponse{Data: data})
}

// Created отправляет ответ о создании ресурса.
func Created(w http.ResponseWriter, data any) {
	JSON(w, http.StatusCreated, DataResponse{Data: data})
}

// List отправляет ответ со списком.
func List(w http.ResponseWriter, data any, total int) {
	JSON(w, http.StatusOK, ListResponse{Data: data, Total: total})
}

// Error отправляет ответ с ошибкой.
func Error(w http.ResponseWriter, status int, code ErrorCode, message string) {
	JSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// BadRequest отправляет ошибку 400.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// NotFound отправляет ошибку 404.
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// InternalError отправляет ошибку 500.
func InternalError(w http.ResponseWriter, logger *slog.Logger, err error) {
	if err != nil {
		logger.Error("internal error", "error", err)
	}
	Error(w, http.StatusInternalServerError, ErrCodeInternalError, "internal server error")
}

// HandleCoordinatorError преобразует ошибку координатора в HTTP ответ.
// phase — фаза, которую вернул координатор вместе с ошибкой.
func HandleCoordinatorError(w http.ResponseWriter, logger *slog.Logger, err error, phase domain.Phase) bool {
	if err == nil {
		return false
	}

	status, code := http.StatusInternalServerError, ErrCodeInternalError
	switch {
	case errors.Is(err, domain.ErrInvalidRequest),
		errors.Is(err, domain.ErrUnknownKind),
		errors.Is(err, lifecycle.ErrNoWorkflow):
		status, code = http.StatusBadRequest, ErrCodeBadRequest
	case errors.Is(err, store.ErrAlreadyExists):
		status, code = http.StatusConflict, ErrCodeConflict
	case errors.Is(err, coordinator.ErrAlreadyInProgress):
		status, code = http.StatusConflict, ErrCodeInProgress
	case errors.Is(err, coordinator.ErrIllegalTransition):
		status, code = http.StatusUnprocessableEntity, ErrCodeInvalidState
	case errors.Is(err, coordinator.ErrExternalFailure):
		status, code = http.StatusBadGateway, ErrCodeExternalFailure
	case errors.Is(err, coordinator.ErrSweepsDisabled):
		status, code = http.StatusServiceUnavailable, ErrCodeUnavailable
	case errors.Is(err, coordinator.ErrPersistenceFailure):
		// эффекты уже выполнены: клиент должен видеть новую фазу
		status, code = http.StatusInternalServerError, ErrCodeNotPersisted
	default:
		InternalError(w, logger, err)
		return true
	}

	JSON(w, status, ErrorResponse{Error: ErrorDetail{
		Code:    code,
		Message: err.Error(),
		Phase:   phase.String(),
	}})
	return true
}
