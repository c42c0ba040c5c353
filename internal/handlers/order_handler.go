package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/shopforge/commerce-api/internal/models"
	"github.com/shopforge/commerce-api/internal/service"
)

// OrderHandler handles order-related HTTP requests
type OrderHandler struct {
	orderService *service.OrderService
	log          logrus.FieldLogger
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService *service.OrderService, log logrus.FieldLogger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		log:          log,
	}
}

type statusRequest struct {
	Status models.OrderStatus `json:"status"`
}

// CreateOrder handles POST /api/orders
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req models.OrderRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteAppError(w, r, err, h.log)
		return
	}

	order, err := h.orderService.CreateOrder(r.Context(), actor(r), req)
	if err != nil {
		WriteAppError(w, r, err, h.log)
		return
	}

	WriteJSON(w, http.StatusCreated, order, h.log)
}

// CreateGuestOrder handles POST /api/orders/guest. The order is never tied
// to the caller, even when an API key is presented.
func (h *OrderHandler) CreateGuestOrder(w http.ResponseWriter, r *http.Request) {
	var req models.OrderRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteAppError(w, r, err, h.log)
		return
	}

	guest := actor(r)
	guest.UserID = ""
	order, err := h.orderService.CreateOrder(r.Context(), guest, req)
	if err != nil {
		WriteAppError(w, r, err, h.log)
		return
	}

	WriteJSON(w, http.StatusCreated, order, h.log)
}

// ListOrders handles GET /api/orders
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	filter, err := orderFilter(r)
	if err != nil {
		WriteAppError(w, r, err, h.log)
		return
	}
	filter.UserID = r.URL.Query().Get("user_id")

	orders, err := h.orderService.ListOrders(r.Context(), filter)
	if err != nil {
		WriteAppError(w, r, err, h.log)
		return
	}
	WriteJSON(w, http.StatusOK, orders, h.log)
}

// ListMyOrders handles GET /api/orders/mine
func (h *OrderHandler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	filter, err := orderFilter(r)
	if err != nil {
		WriteAppError(w, r, err, h.log)
		return
	}

	orders, err := h.orderService.ListMyOrders(r.Context(), actor(r), filter)
	if err != nil {
		WriteAppError(w, r, err, h.log)
		return
	}
	WriteJSON(w, http.StatusOK, orders, h.log)
}

// GetOrder handles GET /api/orders/{id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orderService.GetOrder(r.Context(), actor(r), chi.URLParam(r, "id"))
	if err != nil {
		WriteAppError(w, r, err, h.log)
		return
	}
	WriteJSON(w, http.StatusOK, order, h.log)
}

// GetOrderByNumber handles GET /api/orders/number/{number}
func (h *OrderHandler) GetOrderByNumber(w http.ResponseWriter, r *http.Request) {
	order, err := h.orderService.GetOrderByNumber(r.Context(), actor(r), chi.URLParam(r, "number"))
	if err != nil {
		WriteAppError(w, r, err, h.log)
		return
	}
	WriteJSON(w, http.StatusOK, order, h.log)
}

// UpdateStatus handles PATCH /api/orders/{id}/status
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		WriteAppError(w, r, err, h.log)
		return
	}

	order, err := h.orderService.UpdateStatus(r.Context(), actor(r), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		WriteAppError(w, r, err, h.log)
		return
	}
	WriteJSON(w, http.StatusOK, order, h.log)
}

func orderFilter(r *http.Request) (models.OrderFilter, error) {
	limit, offset, err := page(r)
	if err != nil {
		return models.OrderFilter{}, err
	}
	return models.OrderFilter{
		Status: models.OrderStatus(r.URL.Query().Get("status")),
		Limit:  limit,
		Offset: offset,
	}, nil
}
