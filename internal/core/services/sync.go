// internal/core/services/sync.go
package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ammerola/tableside-be/internal/core/domain"
	"github.com/ammerola/tableside-be/internal/core/ports"
)

// CartProvider is the coordinator's view of local cart state. Reading must
// reflect the latest persisted snapshot, not just in-process memory: push
// tasks may run in a different process than the one mutating the cart.
type CartProvider interface {
	SnapshotFor(ctx context.Context, userID string) ([]domain.CartLine, error)
	ReplaceFor(ctx context.Context, identity domain.UserIdentity, lines []domain.CartLine)
}

// SnapshotProvider serves cart state straight from the shared local store.
// Sync workers run out of process from the API and hold no live cart stores;
// the snapshot slot is the contract between the two.
type SnapshotProvider struct {
	local  ports.LocalStore
	logger *slog.Logger
}

var _ CartProvider = (*SnapshotProvider)(nil)

// NewSnapshotProvider creates a provider over the shared local store.
func NewSnapshotProvider(local ports.LocalStore, logger *slog.Logger) *SnapshotProvider {
	return &SnapshotProvider{
		local:  local,
		logger: logger.With(slog.String("component", "snapshot_provider")),
	}
}

// SnapshotFor loads the user's last persisted lines.
func (p *SnapshotProvider) SnapshotFor(ctx context.Context, userID string) ([]domain.CartLine, error) {
	return p.local.LoadSnapshot(ctx, userID)
}

// ReplaceFor overwrites the user's snapshot slot with the given lines.
func (p *SnapshotProvider) ReplaceFor(ctx context.Context, identity domain.UserIdentity, lines []domain.CartLine) {
	if err := p.local.SaveSnapshot(ctx, identity.ID, lines); err != nil {
		p.logger.WarnContext(ctx, "failed to save cart snapshot",
			slog.String("user_id", identity.ID),
			slog.String("error", err.Error()))
	}
}

// SyncCoordinator keeps the remote cart table eventually consistent with
// local cart state. Per user id, exactly one operation may be in flight; a
// request arriving while one is running is dropped, not queued — the next
// mutation re-sends the latest state anyway, so dropping is safe and keeps
// the queue bounded.
type SyncCoordinator struct {
	mu   sync.Mutex
	busy map[string]bool

	carts  CartProvider
	remote ports.RemoteCartRepository
	logger *slog.Logger
}

// Statically assert that *SyncCoordinator implements the Syncer interface.
var _ ports.Syncer = (*SyncCoordinator)(nil)

// NewSyncCoordinator creates a sync coordinator.
func NewSyncCoordinator(carts CartProvider, remote ports.RemoteCartRepository, logger *slog.Logger) *SyncCoordinator {
	return &SyncCoordinator{
		busy:   make(map[string]bool),
		carts:  carts,
		remote: remote,
		logger: logger.With(slog.String("service", "cart_sync")),
	}
}

// tryAcquire flips the per-user busy flag. It is advisory and in-process:
// a single client drives a single user's cart at a time in this design.
func (c *SyncCoordinator) tryAcquire(userID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.busy[userID] {
		return false
	}
	c.busy[userID] = true
	return true
}

func (c *SyncCoordinator) release(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.busy, userID)
}

// skip reports (and logs) whether the operation should be a no-op for this
// identity.
func (c *SyncCoordinator) skip(ctx context.Context, identity domain.UserIdentity, op string) bool {
	if identity.IsKiosk() {
		c.logger.DebugContext(ctx, "skipping remote cart operation for kiosk identity",
			slog.String("op", op))
		return true
	}
	if !identity.Valid() {
		return true
	}
	return false
}

// Push replaces the user's remote rows with the current local snapshot:
// delete-all then insert-all, never an incremental diff. The brief window
// where the remote table is empty mid-sync is acceptable because no other
// session reads it concurrently.
func (c *SyncCoordinator) Push(ctx context.Context, identity domain.UserIdentity) error {
	if c.skip(ctx, identity, "push") {
		return nil
	}
	if !c.tryAcquire(identity.ID) {
		c.logger.DebugContext(ctx, "sync already in flight, dropping push",
			slog.String("user_id", identity.ID))
		return nil
	}
	defer c.release(identity.ID)

	lines, err := c.carts.SnapshotFor(ctx, identity.ID)
	if err != nil {
		return fmt.Errorf("failed to load cart snapshot: %w", err)
	}
	rows := make([]domain.RemoteCartRow, 0, len(lines))
	for _, line := range lines {
		rows = append(rows, domain.RowFromLine(identity.ID, line))
	}

	if err := c.remote.ReplaceAllRows(ctx, identity.ID, rows); err != nil {
		return fmt.Errorf("failed to push cart: %w", err)
	}

	c.logger.DebugContext(ctx, "cart pushed",
		slog.String("user_id", identity.ID),
		slog.Int("rows", len(rows)))
	return nil
}

// Pull replaces the local cart wholesale with the user's remote rows. Used on
// login when the local cart is empty.
func (c *SyncCoordinator) Pull(ctx context.Context, identity domain.UserIdentity) error {
	if c.skip(ctx, identity, "pull") {
		return nil
	}
	if !c.tryAcquire(identity.ID) {
		c.logger.DebugContext(ctx, "sync already in flight, dropping pull",
			slog.String("user_id", identity.ID))
		return nil
	}
	defer c.release(identity.ID)

	rows, err := c.remote.ListRows(ctx, identity.ID)
	if err != nil {
		return fmt.Errorf("failed to pull cart: %w", err)
	}

	lines := make([]domain.CartLine, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, row.ToCartLine())
	}
	c.carts.ReplaceFor(ctx, identity, lines)

	c.logger.DebugContext(ctx, "cart pulled",
		slog.String("user_id", identity.ID),
		slog.Int("lines", len(lines)))
	return nil
}

// Reconcile runs on login. Local lines win whenever they exist
// (last-writer-wins at session granularity); only an empty local cart adopts
// the remote copy.
func (c *SyncCoordinator) Reconcile(ctx context.Context, identity domain.UserIdentity) error {
	if c.skip(ctx, identity, "reconcile") {
		return nil
	}

	local, err := c.carts.SnapshotFor(ctx, identity.ID)
	if err != nil {
		return fmt.Errorf("failed to load cart snapshot: %w", err)
	}
	if len(local) > 0 {
		return c.Push(ctx, identity)
	}
	return c.Pull(ctx, identity)
}

// Clear deletes all remote rows for the user. Runs on logout and after a
// local cart clear.
func (c *SyncCoordinator) Clear(ctx context.Context, identity domain.UserIdentity) error {
	if c.skip(ctx, identity, "clear") {
		return nil
	}
	if !c.tryAcquire(identity.ID) {
		c.logger.DebugContext(ctx, "sync already in flight, dropping clear",
			slog.String("user_id", identity.ID))
		return nil
	}
	defer c.release(identity.ID)

	if err := c.remote.DeleteAllRows(ctx, identity.ID); err != nil {
		return fmt.Errorf("failed to clear remote cart: %w", err)
	}

	c.logger.DebugContext(ctx, "remote cart cleared",
		slog.String("user_id", identity.ID))
	return nil
}

// DirectDispatcher runs sync requests on background goroutines in the same
// process. Errors are logged and never reach the mutation that triggered the
// request; there is no automatic retry.
type DirectDispatcher struct {
	syncer  ports.Syncer
	timeout time.Duration
	logger  *slog.Logger
	wg      sync.WaitGroup
}

// Statically assert that *DirectDispatcher implements the SyncDispatcher interface.
var _ ports.SyncDispatcher = (*DirectDispatcher)(nil)

// NewDirectDispatcher creates an in-process dispatcher.
func NewDirectDispatcher(syncer ports.Syncer, timeout time.Duration, logger *slog.Logger) *DirectDispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &DirectDispatcher{
		syncer:  syncer,
		timeout: timeout,
		logger:  logger.With(slog.String("component", "sync_dispatcher")),
	}
}

// RequestPush schedules a best-effort push.
func (d *DirectDispatcher) RequestPush(identity domain.UserIdentity) {
	d.run("push", identity, d.syncer.Push)
}

// RequestClear schedules a best-effort remote clear.
func (d *DirectDispatcher) RequestClear(identity domain.UserIdentity) {
	d.run("clear", identity, d.syncer.Clear)
}

func (d *DirectDispatcher) run(op string, identity domain.UserIdentity, fn func(context.Context, domain.UserIdentity) error) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := fn(ctx, identity); err != nil {
			d.logger.WarnContext(ctx, "background cart sync failed",
				slog.String("op", op),
				slog.String("user_id", identity.ID),
				slog.String("error", err.Error()))
		}
	}()
}

// Wait blocks until all in-flight requests finish. Used in tests and on
// shutdown.
func (d *DirectDispatcher) Wait() {
	d.wg.Wait()
}
