// internal/core/ports/cart_repository.go
package ports

import (
	"context"

	"github.com/ammerola/tableside-be/internal/core/domain"
)

// RemoteCartRepository is the persistence port for the remote cart table:
// one row per (user, item, size). The row set for a user is only ever
// replaced wholesale or dropped; there is no incremental patch operation.
type RemoteCartRepository interface {
	ListRows(ctx context.Context, userID string) ([]domain.RemoteCartRow, error)
	ReplaceAllRows(ctx context.Context, userID string, rows []domain.RemoteCartRow) error
	DeleteAllRows(ctx context.Context, userID string) error
}

// LocalStore is the durable client-side key→value slot holding the last-known
// cart snapshot. It is written synchronously on every mutation and read once
// on startup, before any remote reconciliation.
type LocalStore interface {
	SaveSnapshot(ctx context.Context, userID string, lines []domain.CartLine) error
	LoadSnapshot(ctx context.Context, userID string) ([]domain.CartLine, error)
	ClearSnapshot(ctx context.Context, userID string) error
}
