package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ramadhanas/kaskelas/api/rest"
	"github.com/ramadhanas/kaskelas/internal/app"
	"github.com/ramadhanas/kaskelas/internal/domain"
)

// OrderHandler exposes read access to payment orders, so a treasurer can
// check a single order without pulling the whole broadcast record.
type OrderHandler struct {
	service *app.BroadcastService
	logger  *slog.Logger
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.GetOrder(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			Error(w, r, http.StatusNotFound, "order not found")
			return
		}
		h.logger.Error("load order failed", "error", err)
		Error(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	JSON(w, r, http.StatusOK, rest.ToOrderResponse(order))
}

func RegisterOrderHandler(mux *http.ServeMux, service *app.BroadcastService, logger *slog.Logger) {
	h := &OrderHandler{service: service, logger: logger.With(slog.String("component", "order_handler"))}

	mux.HandleFunc("GET /orders/{id}", h.Get)
}
