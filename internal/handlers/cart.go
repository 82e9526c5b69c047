// internal/handlers/cart.go
package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ammerola/tableside-be/internal/core/domain"
	"github.com/ammerola/tableside-be/internal/core/ports"
	"github.com/ammerola/tableside-be/internal/core/services"
)

// CartHandler handles cart-related HTTP requests.
type CartHandler struct {
	carts  *services.CartManager
	menu   ports.MenuRepository
	logger *slog.Logger
}

// NewCartHandler creates a new cart handler.
func NewCartHandler(carts *services.CartManager, menu ports.MenuRepository, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		carts:  carts,
		menu:   menu,
		logger: logger.With(slog.String("handler", "cart")),
	}
}

// cartResponse is the wire shape of the current cart state.
type cartResponse struct {
	Lines      []domain.CartLine `json:"lines"`
	TotalItems int               `json:"total_items"`
	TotalPrice decimal.Decimal   `json:"total_price"`
	Open       bool              `json:"open"`
	LastAdded  *domain.CartLine  `json:"last_added,omitempty"`
}

func (h *CartHandler) respondCart(w http.ResponseWriter, store *services.CartStore) {
	respondJSON(w, h.logger, http.StatusOK, cartResponse{
		Lines:      store.Lines(),
		TotalItems: store.TotalItems(),
		TotalPrice: store.TotalPrice(),
		Open:       store.IsOpen(),
		LastAdded:  store.LastAdded(),
	})
}

// GetCart handles GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	identity := identityFromRequest(r)
	if !identity.Valid() {
		respondError(w, h.logger, http.StatusBadRequest, "Missing user identity")
		return
	}

	store := h.carts.StoreFor(r.Context(), identity)
	h.respondCart(w, store)
}

// AddItemRequest is the request body for adding an item to the cart.
type AddItemRequest struct {
	ItemID   uuid.UUID `json:"item_id"`
	SizeID   string    `json:"size_id,omitempty"`
	Quantity int       `json:"quantity"`
}

// Validate validates the add item request.
func (r *AddItemRequest) Validate() error {
	if r.ItemID == uuid.Nil {
		return fmt.Errorf("item_id is required")
	}
	if r.Quantity <= 0 {
		r.Quantity = 1
	}
	return nil
}

// AddItem handles POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity := identityFromRequest(r)
	if !identity.Valid() {
		respondError(w, h.logger, http.StatusBadRequest, "Missing user identity")
		return
	}

	var req AddItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.menu.FindItemByID(ctx, req.ItemID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to resolve menu item",
			slog.String("item_id", req.ItemID.String()),
			slog.String("error", err.Error()))
		respondError(w, h.logger, http.StatusInternalServerError, "Failed to resolve menu item")
		return
	}
	if item == nil {
		respondError(w, h.logger, http.StatusNotFound, "Menu item not found")
		return
	}
	if !item.Available {
		respondError(w, h.logger, http.StatusConflict, "Menu item is not available")
		return
	}

	var size *domain.SizeOption
	if req.SizeID != "" {
		size = item.SizeByID(req.SizeID)
		if size == nil {
			respondError(w, h.logger, http.StatusBadRequest, "Unknown size for this item")
			return
		}
	}

	store := h.carts.StoreFor(ctx, identity)
	if _, err := store.Add(ctx, item, size, req.Quantity); err != nil {
		h.logger.ErrorContext(ctx, "failed to add cart line",
			slog.String("item_id", req.ItemID.String()),
			slog.String("error", err.Error()))
		respondError(w, h.logger, http.StatusInternalServerError, "Failed to add item to cart")
		return
	}

	h.respondCart(w, store)
}

// UpdateQuantityRequest is the request body for changing a line quantity.
type UpdateQuantityRequest struct {
	SizeID   string `json:"size_id,omitempty"`
	Quantity int    `json:"quantity"`
}

// UpdateQuantity handles PUT /api/v1/cart/items/{id}
// A quantity of zero or less removes the line.
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity := identityFromRequest(r)
	if !identity.Valid() {
		respondError(w, h.logger, http.StatusBadRequest, "Missing user identity")
		return
	}

	itemID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid item ID format")
		return
	}

	var req UpdateQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}

	store := h.carts.StoreFor(ctx, identity)
	store.SetQuantity(ctx, domain.LineKey{ItemID: itemID, SizeID: req.SizeID}, req.Quantity)

	h.respondCart(w, store)
}

// RemoveItem handles DELETE /api/v1/cart/items/{id}
// The size is passed as a query parameter since it is part of the line identity.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity := identityFromRequest(r)
	if !identity.Valid() {
		respondError(w, h.logger, http.StatusBadRequest, "Missing user identity")
		return
	}

	itemID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid item ID format")
		return
	}

	store := h.carts.StoreFor(ctx, identity)
	store.Remove(ctx, domain.LineKey{
		ItemID: itemID,
		SizeID: r.URL.Query().Get("size_id"),
	})

	h.respondCart(w, store)
}

// ClearCart handles DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity := identityFromRequest(r)
	if !identity.Valid() {
		respondError(w, h.logger, http.StatusBadRequest, "Missing user identity")
		return
	}

	store := h.carts.StoreFor(ctx, identity)
	store.Clear(ctx)

	h.respondCart(w, store)
}

// SetOpenRequest toggles the cart drawer state.
type SetOpenRequest struct {
	Open bool `json:"open"`
}

// SetOpen handles PUT /api/v1/cart/open
func (h *CartHandler) SetOpen(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity := identityFromRequest(r)
	if !identity.Valid() {
		respondError(w, h.logger, http.StatusBadRequest, "Missing user identity")
		return
	}

	var req SetOpenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}

	store := h.carts.StoreFor(ctx, identity)
	store.SetOpen(req.Open)

	h.respondCart(w, store)
}
