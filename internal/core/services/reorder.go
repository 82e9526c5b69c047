// internal/core/services/reorder.go
package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ammerola/tableside-be/internal/core/domain"
	"github.com/ammerola/tableside-be/internal/core/ports"
)

// Unavailability reasons reported back to the caller, verbatim user-facing.
const (
	ReasonOutOfStock      = "Currently out of stock"
	ReasonSizeUnavailable = "Size no longer available"
)

// AddFunc is the injected cart mutation used to re-insert resolved lines, so
// the engine carries no dependency on a particular cart store.
type AddFunc func(ctx context.Context, item *domain.MenuItem, size *domain.SizeOption, qty int) (domain.CartLine, error)

// UnavailableItem names one historical line that could not be restored.
type UnavailableItem struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// ReorderResult reports exactly what a reorder restored. Partial failure is
// the normal case, not an exception.
type ReorderResult struct {
	Success          bool              `json:"success"`
	AddedItems       int               `json:"added_items"`
	UnavailableItems []UnavailableItem `json:"unavailable_items"`
	TotalItems       int               `json:"total_items"`
}

// ReorderEngine re-populates a cart from a historical order, re-validating
// every line against live availability and size options. It performs no
// rendering; the caller presents the result.
type ReorderEngine struct {
	orders ports.OrderRepository
	menu   ports.MenuRepository
	logger *slog.Logger
}

// NewReorderEngine creates a reorder engine.
func NewReorderEngine(orders ports.OrderRepository, menu ports.MenuRepository, logger *slog.Logger) *ReorderEngine {
	return &ReorderEngine{
		orders: orders,
		menu:   menu,
		logger: logger.With(slog.String("service", "reorder")),
	}
}

// Reorder fetches the historical order's lines and attempts to add a
// currently purchasable equivalent of each through addFn. A single line that
// cannot be restored is recorded and skipped; only failure to fetch the order
// itself is a hard error.
func (e *ReorderEngine) Reorder(ctx context.Context, orderID uuid.UUID, addFn AddFunc) (*ReorderResult, error) {
	histLines, err := e.orders.FindLines(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch order %s: %w", orderID, err)
	}

	result := &ReorderResult{
		UnavailableItems: []UnavailableItem{},
		TotalItems:       len(histLines),
	}

	for _, hist := range histLines {
		item, size, reason := e.resolve(ctx, hist)
		if reason != "" {
			result.UnavailableItems = append(result.UnavailableItems, UnavailableItem{
				Name:   hist.Name,
				Reason: reason,
			})
			continue
		}

		if _, err := addFn(ctx, item, size, hist.Quantity); err != nil {
			e.logger.WarnContext(ctx, "failed to re-add line",
				slog.String("item_id", hist.ItemID.String()),
				slog.String("error", err.Error()))
			result.UnavailableItems = append(result.UnavailableItems, UnavailableItem{
				Name:   hist.Name,
				Reason: ReasonOutOfStock,
			})
			continue
		}
		result.AddedItems++
	}

	result.Success = result.AddedItems > 0

	e.logger.InfoContext(ctx, "reorder completed",
		slog.String("order_id", orderID.String()),
		slog.Int("total", result.TotalItems),
		slog.Int("added", result.AddedItems),
		slog.Int("unavailable", len(result.UnavailableItems)))

	return result, nil
}

// resolve maps a historical line to a live item and size. An empty reason
// means the line is purchasable; the specific historical configuration is
// never silently substituted.
func (e *ReorderEngine) resolve(ctx context.Context, hist domain.OrderLine) (*domain.MenuItem, *domain.SizeOption, string) {
	item, err := e.menu.FindItemByID(ctx, hist.ItemID)
	if err != nil {
		e.logger.WarnContext(ctx, "failed to resolve item",
			slog.String("item_id", hist.ItemID.String()),
			slog.String("error", err.Error()))
		return nil, nil, ReasonOutOfStock
	}
	if item == nil || !item.Available {
		return nil, nil, ReasonOutOfStock
	}

	if hist.SizeID == "" {
		return item, nil, ""
	}

	sizes, err := e.menu.FindSizes(ctx, hist.ItemID)
	if err != nil {
		e.logger.WarnContext(ctx, "failed to resolve sizes",
			slog.String("item_id", hist.ItemID.String()),
			slog.String("error", err.Error()))
		return nil, nil, ReasonSizeUnavailable
	}
	for i := range sizes {
		if sizes[i].SizeID == hist.SizeID {
			return item, &sizes[i], ""
		}
	}
	return nil, nil, ReasonSizeUnavailable
}
