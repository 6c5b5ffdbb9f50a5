package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/outboxlab/orderflow/internal/order/application"
	"github.com/outboxlab/orderflow/internal/order/domain"
	"github.com/outboxlab/orderflow/pkg/metrics"
)

type Handler struct {
	log     *slog.Logger
	create  *application.CreateOrder
	addItem *application.AddItemToOrder
	tracer  trace.Tracer
	metrics *metrics.ServerMetrics
	started time.Time
}

func NewHandler(log *slog.Logger, create *application.CreateOrder, addItem *application.AddItemToOrder, m *metrics.ServerMetrics) *Handler {
	return &Handler{
		log:     log,
		create:  create,
		addItem: addItem,
		tracer:  otel.Tracer("order-http"),
		metrics: m,
		started: time.Now(),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(h.metrics.Middleware)
	r.Post("/orders", h.createOrder)
	r.Post("/orders/{orderID}/items", h.addItemToOrder)
	r.Get("/orders/{orderID}", h.getOrder)
	r.Get("/health", h.health)

	return r
}

type createOrderRequest struct {
	OrderID string `json:"orderId"`
}

type addItemRequest struct {
	ProductID string  `json:"productId"`
	Quantity  float64 `json:"quantity"`
}

type itemView struct {
	ProductID string       `json:"productId"`
	Quantity  int          `json:"quantity"`
	UnitPrice domain.Money `json:"unitPrice"`
	Subtotal  domain.Money `json:"subtotal"`
}

type orderView struct {
	OrderID   string       `json:"orderId"`
	Items     []itemView   `json:"items"`
	Total     domain.Money `json:"total"`
	CreatedAt time.Time    `json:"createdAt"`
}

func newOrderView(order *domain.Order) orderView {
	items := make([]itemView, 0, order.ItemCount())
	for _, it := range order.Items() {
		sub, err := it.Subtotal()
		if err != nil {
			sub = domain.ZeroMoney(it.UnitPrice().Currency())
		}
		items = append(items, itemView{
			ProductID: it.ProductID().String(),
			Quantity:  it.Quantity().Value(),
			UnitPrice: it.UnitPrice(),
			Subtotal:  sub,
		})
	}
	total, err := order.Total()
	if err != nil {
		total = domain.ZeroMoney(domain.USD)
	}
	return orderView{
		OrderID:   order.ID().String(),
		Items:     items,
		Total:     total,
		CreatedAt: order.CreatedAt(),
	}
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateOrder")
	defer span.End()

	var req createOrderRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, &application.ValidationError{Message: "invalid request body", Field: "body"})
		return
	}

	order, err := h.create.Execute(ctx, application.CreateOrderInput{OrderID: req.OrderID})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, newOrderView(order))
}

func (h *Handler) addItemToOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "AddItemToOrder")
	defer span.End()

	var req addItemRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, &application.ValidationError{Message: "invalid request body", Field: "body"})
		return
	}

	order, err := h.addItem.Execute(ctx, application.AddItemInput{
		OrderID:   chi.URLParam(r, "orderID"),
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, newOrderView(order))
}

func (h *Handler) getOrder(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusNotImplemented, map[string]string{
		"message": "order lookup is not implemented yet",
	})
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(h.started).Round(time.Second).String(),
	})
}

// decodeBody tolerates an empty body: POST /orders takes every field as
// optional, and downstream validation reports missing fields anyway.
func decodeBody(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

type errorBody struct {
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	Field    string `json:"field,omitempty"`
	Resource string `json:"resource,omitempty"`
	ID       string `json:"id,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

// writeError maps the four application error kinds to status codes. Infra
// causes go to the log, never to the client.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var (
		validation *application.ValidationError
		notFound   *application.NotFoundError
		conflict   *application.ConflictError
		infra      *application.InfraError
	)
	switch {
	case errors.As(err, &validation):
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: errorBody{
			Kind: "validation", Message: validation.Message, Field: validation.Field,
		}})
	case errors.As(err, &notFound):
		h.writeJSON(w, http.StatusNotFound, errorResponse{Error: errorBody{
			Kind: "not_found", Message: notFound.Message, Resource: notFound.Resource, ID: notFound.ID,
		}})
	case errors.As(err, &conflict):
		h.writeJSON(w, http.StatusConflict, errorResponse{Error: errorBody{
			Kind: "conflict", Message: conflict.Message, Reason: conflict.Reason,
		}})
	case errors.As(err, &infra):
		h.log.Error("request failed", "msg", infra.Message, "err", infra.Cause)
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: errorBody{
			Kind: "infrastructure", Message: "internal error",
		}})
	default:
		h.log.Error("unclassified error", "err", err)
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: errorBody{
			Kind: "infrastructure", Message: "internal error",
		}})
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
