package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/ordersys/fulfillment/internal/order/application"
	"github.com/ordersys/fulfillment/internal/order/domain"
)

// Handler exposes the one operation the request gateway calls plus the
// status read path. Authentication happens upstream; the caller identity
// arrives as a header.
type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("order-http"),
	}
}

type submitOrderReq struct {
	UserID     string             `json:"user_id"`
	Items      []domain.OrderItem `json:"items"`
	TotalCents int64              `json:"total"`
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/orders", h.submitOrder)
	r.Get("/orders/{id}", h.getOrder)

	return r
}

func (h *Handler) submitOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "SubmitOrder")
	defer span.End()

	var req submitOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if uid := r.Header.Get("X-User-ID"); uid != "" {
		req.UserID = uid
	}

	orderID, err := h.service.SubmitOrder(ctx, req.UserID, req.Items, req.TotalCents)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			http.Error(w, verr.Error(), http.StatusBadRequest)
			return
		}
		h.log.Error("submit order failed", "err", err)
		http.Error(w, "could not create order", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]string{"order_id": orderID})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetOrder")
	defer span.End()

	o, err := h.service.GetOrder(ctx, chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, "order not found", http.StatusNotFound)
			return
		}
		h.log.Error("get order failed", "err", err)
		http.Error(w, "could not load order", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"order_id": o.ID,
		"status":   o.Status,
		"total":    o.TotalCents,
		"items":    o.Items,
	})
}
