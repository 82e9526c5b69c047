// internal/handlers/menu.go
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ammerola/tableside-be/internal/core/domain"
	"github.com/ammerola/tableside-be/internal/core/ports"
)

// MenuHandler handles menu-related HTTP requests.
type MenuHandler struct {
	menu   ports.MenuRepository
	logger *slog.Logger
}

// NewMenuHandler creates a new menu handler.
func NewMenuHandler(menu ports.MenuRepository, logger *slog.Logger) *MenuHandler {
	return &MenuHandler{
		menu:   menu,
		logger: logger.With(slog.String("handler", "menu")),
	}
}

// ListMenu handles GET /api/v1/menu
func (h *MenuHandler) ListMenu(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	params := ports.MenuListParams{
		Category:      r.URL.Query().Get("category"),
		AvailableOnly: r.URL.Query().Get("available") == "true",
		FeaturedOnly:  r.URL.Query().Get("featured") == "true",
		Search:        r.URL.Query().Get("search"),
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil && l > 0 {
			if l > 100 {
				l = 100
			}
			params.Limit = l
		}
	}
	if offset := r.URL.Query().Get("offset"); offset != "" {
		if o, err := strconv.Atoi(offset); err == nil && o > 0 {
			params.Offset = o
		}
	}

	items, err := h.menu.List(ctx, params)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list menu items",
			slog.String("error", err.Error()))
		respondError(w, h.logger, http.StatusInternalServerError, "Failed to list menu items")
		return
	}

	respondJSON(w, h.logger, http.StatusOK, map[string]interface{}{
		"items": items,
	})
}

// GetMenuItem handles GET /api/v1/menu/{id}
func (h *MenuHandler) GetMenuItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	itemID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid menu item ID format")
		return
	}

	item, err := h.menu.FindItemByID(ctx, itemID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get menu item",
			slog.String("item_id", itemID.String()),
			slog.String("error", err.Error()))
		respondError(w, h.logger, http.StatusInternalServerError, "Failed to retrieve menu item")
		return
	}
	if item == nil {
		respondError(w, h.logger, http.StatusNotFound, "Menu item not found")
		return
	}

	respondJSON(w, h.logger, http.StatusOK, item)
}

// SaveMenuItemRequest is the request body for creating or updating a menu item.
type SaveMenuItemRequest struct {
	ID          *uuid.UUID          `json:"id,omitempty"`
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	BasePrice   decimal.Decimal     `json:"base_price"`
	Category    string              `json:"category,omitempty"`
	Available   bool                `json:"available"`
	Featured    bool                `json:"featured,omitempty"`
	Sizes       []domain.SizeOption `json:"sizes,omitempty"`
}

// ToDomain converts the request to a domain model.
func (r *SaveMenuItemRequest) ToDomain() *domain.MenuItem {
	item := &domain.MenuItem{
		Name:        r.Name,
		Description: r.Description,
		BasePrice:   r.BasePrice,
		Category:    domain.ItemCategory(r.Category),
		Available:   r.Available,
		Featured:    r.Featured,
		Sizes:       r.Sizes,
	}
	if r.ID != nil {
		item.ID = *r.ID
	}
	return item
}

// SaveMenuItem handles POST /api/v1/menu (admin only)
func (h *MenuHandler) SaveMenuItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	identity := identityFromRequest(r)
	if !strings.EqualFold(identity.Role, domain.RoleAdmin) {
		respondError(w, h.logger, http.StatusForbidden, "Admin role required")
		return
	}

	var req SaveMenuItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}

	item := req.ToDomain()
	if err := item.Validate(); err != nil {
		respondError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.menu.Save(ctx, item); err != nil {
		h.logger.ErrorContext(ctx, "failed to save menu item",
			slog.String("name", item.Name),
			slog.String("error", err.Error()))
		respondError(w, h.logger, http.StatusInternalServerError, "Failed to save menu item")
		return
	}

	h.logger.InfoContext(ctx, "menu item saved",
		slog.String("item_id", item.ID.String()),
		slog.String("name", item.Name))

	respondJSON(w, h.logger, http.StatusCreated, item)
}
