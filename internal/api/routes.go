package api

import (
	"net/http"
)

// RegisterRoutes регистрирует все маршруты API.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	chain := Chain(
		RequestID(h.logger),
		Recovery(),
		Logging(),
	)

	// Requests
	mux.Handle("GET /api/v1/requests", chain(http.HandlerFunc(h.ListRequests)))
	mux.Handle("POST /api/v1/requests", chain(http.HandlerFunc(h.CreateRequest)))
	mux.Handle("GET /api/v1/requests/{kind}/{key}", chain(http.HandlerFunc(h.GetRequest)))
	mux.Handle("POST /api/v1/requests/{kind}/{key}/actions", chain(http.HandlerFunc(h.ApplyAction)))

	// Sweeps
	mux.Handle("POST /api/v1/sweeps", chain(http.HandlerFunc(h.RunSweep)))
}
