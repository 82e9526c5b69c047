// internal/core/ports/menu_repository.go
package ports

import (
	"context"

	"github.com/ammerola/tableside-be/internal/core/domain"
	"github.com/google/uuid"
)

// MenuListParams holds filter parameters for listing menu items.
type MenuListParams struct {
	Category      string
	AvailableOnly bool
	FeaturedOnly  bool
	Search        string
	Limit         int
	Offset        int
}

// MenuRepository is the read-side port for live menu data. The reorder engine
// depends on it to re-validate availability and size options.
type MenuRepository interface {
	FindItemByID(ctx context.Context, itemID uuid.UUID) (*domain.MenuItem, error)
	FindSizes(ctx context.Context, itemID uuid.UUID) ([]domain.SizeOption, error)
	List(ctx context.Context, params MenuListParams) ([]domain.MenuItem, error)
	Save(ctx context.Context, item *domain.MenuItem) error
}
