// internal/core/ports/order_repository.go
package ports

import (
	"context"

	"github.com/ammerola/tableside-be/internal/core/domain"
	"github.com/google/uuid"
)

// OrderRepository is the persistence port for orders. Header and lines are two
// dependent writes; DeleteHeader exists so a failed line write can be
// compensated instead of leaving an orphaned empty order.
type OrderRepository interface {
	CreateHeader(ctx context.Context, order *domain.Order) error
	CreateLines(ctx context.Context, lines []domain.OrderLine) error
	DeleteHeader(ctx context.Context, orderID uuid.UUID) error
	FindByID(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
	FindLines(ctx context.Context, orderID uuid.UUID) ([]domain.OrderLine, error)
	FindByUser(ctx context.Context, userID string, limit int) ([]domain.Order, error)
}
