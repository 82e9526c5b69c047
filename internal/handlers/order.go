// internal/handlers/order.go
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ammerola/tableside-be/internal/core/domain"
	"github.com/ammerola/tableside-be/internal/core/ports"
	"github.com/ammerola/tableside-be/internal/core/services"
)

// OrderHandler handles checkout, order history, and reorder requests.
type OrderHandler struct {
	carts        *services.CartManager
	orders       ports.OrderRepository
	reorder      *services.ReorderEngine
	defaultFee   decimal.Decimal
	historyLimit int
	logger       *slog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(
	carts *services.CartManager,
	orders ports.OrderRepository,
	reorder *services.ReorderEngine,
	defaultFee decimal.Decimal,
	historyLimit int,
	logger *slog.Logger,
) *OrderHandler {
	return &OrderHandler{
		carts:        carts,
		orders:       orders,
		reorder:      reorder,
		defaultFee:   defaultFee,
		historyLimit: historyLimit,
		logger:       logger.With(slog.String("handler", "order")),
	}
}

// CheckoutRequest is the request body for creating an order from the cart.
type CheckoutRequest struct {
	Address     string           `json:"address,omitempty"`
	Phone       string           `json:"phone,omitempty"`
	Note        string           `json:"note,omitempty"`
	DeliveryFee *decimal.Decimal `json:"delivery_fee,omitempty"`
}

// Checkout handles POST /api/v1/orders
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity := identityFromRequest(r)
	if !identity.Valid() {
		respondError(w, h.logger, http.StatusBadRequest, "Missing user identity")
		return
	}

	var req CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}

	meta := domain.OrderMeta{
		Address:     req.Address,
		Phone:       req.Phone,
		Note:        req.Note,
		DeliveryFee: h.defaultFee,
	}
	if req.DeliveryFee != nil {
		meta.DeliveryFee = *req.DeliveryFee
	}

	store := h.carts.StoreFor(ctx, identity)
	order, err := store.CreateOrder(ctx, meta)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyCart) {
			respondError(w, h.logger, http.StatusConflict, "Cart is empty")
			return
		}
		h.logger.ErrorContext(ctx, "checkout failed",
			slog.String("user_id", identity.ID),
			slog.String("error", err.Error()))
		respondError(w, h.logger, http.StatusInternalServerError, "Failed to create order")
		return
	}

	respondJSON(w, h.logger, http.StatusCreated, order)
}

// ListOrders handles GET /api/v1/orders
func (h *OrderHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity := identityFromRequest(r)
	if !identity.Valid() {
		respondError(w, h.logger, http.StatusBadRequest, "Missing user identity")
		return
	}

	limit := h.historyLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed < limit {
			limit = parsed
		}
	}

	orders, err := h.orders.FindByUser(ctx, identity.ID, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list orders",
			slog.String("user_id", identity.ID),
			slog.String("error", err.Error()))
		respondError(w, h.logger, http.StatusInternalServerError, "Failed to list orders")
		return
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"orders": orders,
	})
}

// GetOrder handles GET /api/v1/orders/{id}
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity := identityFromRequest(r)
	if !identity.Valid() {
		respondError(w, h.logger, http.StatusBadRequest, "Missing user identity")
		return
	}

	orderID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid order ID format")
		return
	}

	order, err := h.orders.FindByID(ctx, orderID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get order",
			slog.String("order_id", orderID.String()),
			slog.String("error", err.Error()))
		respondError(w, h.logger, http.StatusInternalServerError, "Failed to retrieve order")
		return
	}
	if order == nil || order.UserID != identity.ID {
		respondError(w, h.logger, http.StatusNotFound, "Order not found")
		return
	}

	lines, err := h.orders.FindLines(ctx, orderID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get order lines",
			slog.String("order_id", orderID.String()),
			slog.String("error", err.Error()))
		respondError(w, h.logger, http.StatusInternalServerError, "Failed to retrieve order")
		return
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"order": order,
		"lines": lines,
	})
}

// Reorder handles POST /api/v1/orders/{id}/reorder
// Every available line from the historical order is added back into the
// caller's cart; unavailable lines are reported, not failed.
func (h *OrderHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity := identityFromRequest(r)
	if !identity.Valid() {
		respondError(w, h.logger, http.StatusBadRequest, "Missing user identity")
		return
	}

	orderID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid order ID format")
		return
	}

	order, err := h.orders.FindByID(ctx, orderID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get order for reorder",
			slog.String("order_id", orderID.String()),
			slog.String("error", err.Error()))
		respondError(w, h.logger, http.StatusInternalServerError, "Failed to retrieve order")
		return
	}
	if order == nil || order.UserID != identity.ID {
		respondError(w, h.logger, http.StatusNotFound, "Order not found")
		return
	}

	store := h.carts.StoreFor(ctx, identity)
	result, err := h.reorder.Reorder(ctx, orderID, store.Add)
	if err != nil {
		h.logger.ErrorContext(ctx, "reorder failed",
			slog.String("order_id", orderID.String()),
			slog.String("error", err.Error()))
		respondError(w, h.logger, http.StatusInternalServerError, "Failed to reorder")
		return
	}

	respondJSON(w, h.logger, http.StatusOK, result)
}
