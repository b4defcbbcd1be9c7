package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/fitwear/storefront/internal/domain"
	"github.com/fitwear/storefront/internal/service"
	"github.com/go-chi/chi/v5"
)

type OrdersHandler struct {
	orders *service.OrderService
}

func NewOrdersHandler(orders *service.OrderService) *OrdersHandler {
	return &OrdersHandler{orders: orders}
}

type PlaceOrderRequestDTO struct {
	Items    []OrderLineDTO         `json:"items"`
	Shipping domain.ShippingAddress `json:"shipping_address"`
}

// OrderLineDTO deliberately has no price field: monetary values are always
// recomputed server-side from the catalog.
type OrderLineDTO struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size"`
}

type UpdateStatusRequestDTO struct {
	Status string `json:"status"`
}

// POST /api/v1/orders
func (h *OrdersHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req PlaceOrderRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	lines := make([]service.NewOrderLine, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, service.NewOrderLine{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Size:      domain.Size(item.Size),
		})
	}

	order, err := h.orders.PlaceOrder(r.Context(), actor.ID, lines, req.Shipping)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, order)
}

// GET /api/v1/orders/my-orders
func (h *OrdersHandler) ListMyOrders(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orders, err := h.orders.ListUserOrders(r.Context(), actor.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if orders == nil {
		orders = []*domain.Order{}
	}
	respondJSON(w, http.StatusOK, orders)
}

// GET /api/v1/orders?page&limit (admin)
func (h *OrdersHandler) ListAllOrders(w http.ResponseWriter, r *http.Request) {
	page := parseQueryInt(r, "page", 1)
	limit := parseQueryInt(r, "limit", 10)

	result, err := h.orders.ListAllOrders(r.Context(), page, limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// GET /api/v1/orders/{order_id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orderID := chi.URLParam(r, "order_id")
	if orderID == "" {
		respondError(w, http.StatusBadRequest, "missing_order_id", "order_id is required")
		return
	}

	order, err := h.orders.GetOrder(r.Context(), actor, orderID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

// PUT /api/v1/orders/{order_id}/status (admin)
func (h *OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order_id")
	if orderID == "" {
		respondError(w, http.StatusBadRequest, "missing_order_id", "order_id is required")
		return
	}

	var req UpdateStatusRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), orderID, domain.OrderStatus(req.Status))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, order)
}

// parseQueryInt falls back to def on absent or non-numeric values, matching
// the pagination defaulting rules.
func parseQueryInt(r *http.Request, key string, def int64) int64 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return v
}
