package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ramadhanas/kaskelas/api/rest"
	"github.com/ramadhanas/kaskelas/internal/app"
	"github.com/ramadhanas/kaskelas/internal/domain"
	"github.com/ramadhanas/kaskelas/internal/export"
)

const dueDateLayout = "2006-01-02"

type BroadcastHandler struct {
	service *app.BroadcastService
	logger  *slog.Logger
}

type billingRequest struct {
	StudentIDs []int64 `json:"studentIds"`
	CategoryID int64   `json:"categoryId"`
	Amount     int64   `json:"amount"`
	DueDate    string  `json:"dueDate"`
	Template   string  `json:"template"`
	CustomBody string  `json:"customBody,omitempty"`
}

type messageRequest struct {
	StudentIDs []int64 `json:"studentIds"`
	Body       string  `json:"body"`
}

func (h *BroadcastHandler) SendBilling(w http.ResponseWriter, r *http.Request) {
	var req billingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	dueDate, err := time.Parse(dueDateLayout, req.DueDate)
	if err != nil {
		Error(w, r, http.StatusBadRequest, "invalid dueDate, expected YYYY-MM-DD")
		return
	}

	template := domain.TemplateKind(req.Template)
	if req.Template == "" {
		template = domain.TemplateDefault
	}

	record, err := h.service.SendBilling(r.Context(), app.BillingRequest{
		StudentIDs: req.StudentIDs,
		CategoryID: req.CategoryID,
		Amount:     req.Amount,
		DueDate:    dueDate,
		Template:   template,
		CustomBody: req.CustomBody,
	})
	if err != nil {
		h.respondError(w, r, err, "billing broadcast failed")
		return
	}

	JSON(w, r, http.StatusOK, rest.ToBroadcastResponse(record))
}

func (h *BroadcastHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	record, err := h.service.SendMessage(r.Context(), app.MessageRequest{
		StudentIDs: req.StudentIDs,
		Body:       req.Body,
	})
	if err != nil {
		h.respondError(w, r, err, "message broadcast failed")
		return
	}

	JSON(w, r, http.StatusOK, rest.ToBroadcastResponse(record))
}

func (h *BroadcastHandler) RetryFailed(w http.ResponseWriter, r *http.Request) {
	record, err := h.service.RetryFailed(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondError(w, r, err, "retry failed")
		return
	}

	JSON(w, r, http.StatusOK, rest.ToBroadcastResponse(record))
}

func (h *BroadcastHandler) Get(w http.ResponseWriter, r *http.Request) {
	record, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondError(w, r, err, "load broadcast failed")
		return
	}

	JSON(w, r, http.StatusOK, rest.ToBroadcastResponse(record))
}

func (h *BroadcastHandler) Export(w http.ResponseWriter, r *http.Request) {
	record, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respondError(w, r, err, "load broadcast failed")
		return
	}

	out, err := export.CSV(record)
	if err != nil {
		h.respondError(w, r, err, "export failed")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=broadcast-%s.csv", record.ID))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(out)); err != nil {
		h.logger.Error("failed to write csv response", "error", err)
	}
}

func (h *BroadcastHandler) respondError(w http.ResponseWriter, r *http.Request, err error, logMsg string) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		Error(w, r, http.StatusBadRequest, verr.Error())
	case errors.Is(err, domain.ErrBroadcastNotFound):
		Error(w, r, http.StatusNotFound, "broadcast not found")
	case errors.Is(err, domain.ErrCategoryNotFound):
		Error(w, r, http.StatusBadRequest, "unknown category")
	case errors.Is(err, domain.ErrNoRecipients):
		Error(w, r, http.StatusBadRequest, "no recipients matched the given ids")
	default:
		h.logger.Error(logMsg, "error", err)
		Error(w, r, http.StatusInternalServerError, "internal error")
	}
}

func RegisterBroadcastHandler(mux *http.ServeMux, service *app.BroadcastService, logger *slog.Logger) {
	h := &BroadcastHandler{service: service, logger: logger.With(slog.String("component", "broadcast_handler"))}

	mux.HandleFunc("POST /broadcasts/billing", h.SendBilling)
	mux.HandleFunc("POST /broadcasts/message", h.SendMessage)
	mux.HandleFunc("POST /broadcasts/{id}/retry", h.RetryFailed)
	mux.HandleFunc("GET /broadcasts/{id}", h.Get)
	mux.HandleFunc("GET /broadcasts/{id}/export", h.Export)
}
