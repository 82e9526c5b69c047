// internal/core/ports/sync.go
package ports

import (
	"context"

	"github.com/ammerola/tableside-be/internal/core/domain"
)

// SyncDispatcher receives fire-and-forget sync requests from cart mutations.
// Implementations must return promptly; the mutation never waits for the
// remote write.
type SyncDispatcher interface {
	RequestPush(identity domain.UserIdentity)
	RequestClear(identity domain.UserIdentity)
}

// Syncer reconciles local cart state with the remote cart table. One
// operation per user id may be in flight at a time; overlapping requests are
// dropped, not queued.
type Syncer interface {
	Push(ctx context.Context, identity domain.UserIdentity) error
	Pull(ctx context.Context, identity domain.UserIdentity) error
	Reconcile(ctx context.Context, identity domain.UserIdentity) error
	Clear(ctx context.Context, identity domain.UserIdentity) error
}
