package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/tableside-be/internal/adapters/memory"
	"github.com/ammerola/tableside-be/internal/core/domain"
	"github.com/ammerola/tableside-be/internal/core/services"
	"github.com/ammerola/tableside-be/test/helpers"
)

type syncFixture struct {
	manager *services.CartManager
	remote  *memory.RemoteCartRepository
	coord   *services.SyncCoordinator
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()

	f := &syncFixture{remote: memory.NewRemoteCartRepository()}
	f.manager = services.NewCartManager(
		memory.NewLocalStore(), memory.NewOrderRepository(),
		memory.NewSyncDispatcher(), helpers.TestLogger())
	f.coord = services.NewSyncCoordinator(f.manager, f.remote, helpers.TestLogger())
	return f
}

func (f *syncFixture) fillCart(t *testing.T, identity domain.UserIdentity, count int) {
	t.Helper()

	ctx := context.Background()
	store := f.manager.StoreFor(ctx, identity)
	for _, item := range helpers.CreateTestMenuItems(count) {
		it := item
		_, err := store.Add(ctx, &it, nil, 1)
		require.NoError(t, err)
	}
}

func (f *syncFixture) snapshot(t *testing.T, userID string) []domain.CartLine {
	t.Helper()

	lines, err := f.manager.SnapshotFor(context.Background(), userID)
	require.NoError(t, err)
	return lines
}

func TestSyncCoordinator_PushReplacesWholesale(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t)
	identity := customer()

	f.fillCart(t, identity, 3)

	require.NoError(t, f.coord.Push(ctx, identity))
	assert.Equal(t, 1, f.remote.ReplaceCalls)
	assert.Len(t, f.remote.Rows("user-1"), 3)

	// Shrinking the cart shrinks the remote set: replacement, not merge
	store := f.manager.StoreFor(ctx, identity)
	lines := store.Lines()
	store.Remove(ctx, lines[0].Key())
	store.Remove(ctx, lines[1].Key())

	require.NoError(t, f.coord.Push(ctx, identity))
	assert.Len(t, f.remote.Rows("user-1"), 1)
}

func TestSyncCoordinator_PushEmptyCartClearsRemote(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t)
	identity := customer()

	f.fillCart(t, identity, 2)
	require.NoError(t, f.coord.Push(ctx, identity))
	require.Len(t, f.remote.Rows("user-1"), 2)

	store := f.manager.StoreFor(ctx, identity)
	store.Clear(ctx)

	require.NoError(t, f.coord.Push(ctx, identity))
	assert.Empty(t, f.remote.Rows("user-1"))
}

func TestSyncCoordinator_PushTwiceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t)
	identity := customer()

	f.fillCart(t, identity, 2)

	require.NoError(t, f.coord.Push(ctx, identity))
	first := f.remote.Rows("user-1")
	require.Len(t, first, 2)

	// No mutation in between: the second push re-sends the same state
	require.NoError(t, f.coord.Push(ctx, identity))
	assert.Equal(t, 2, f.remote.ReplaceCalls)
	assert.Equal(t, first, f.remote.Rows("user-1"))
}

func TestSnapshotProvider_PushReadsSharedStore(t *testing.T) {
	ctx := context.Background()
	identity := customer()

	// The API process mutates the cart and persists snapshots; the worker
	// process pushes them. Only the local store is shared between the two.
	shared := memory.NewLocalStore()
	apiCarts := services.NewCartManager(
		shared, memory.NewOrderRepository(),
		memory.NewSyncDispatcher(), helpers.TestLogger())

	remote := memory.NewRemoteCartRepository()
	workerSync := services.NewSyncCoordinator(
		services.NewSnapshotProvider(shared, helpers.TestLogger()),
		remote, helpers.TestLogger())

	store := apiCarts.StoreFor(ctx, identity)
	item := helpers.CreateTestMenuItem()
	_, err := store.Add(ctx, item, nil, 1)
	require.NoError(t, err)

	require.NoError(t, workerSync.Push(ctx, identity))
	require.Len(t, remote.Rows("user-1"), 1)

	// A later mutation in the API process is visible to the next push
	_, err = store.Add(ctx, item, &item.Sizes[2], 2)
	require.NoError(t, err)

	require.NoError(t, workerSync.Push(ctx, identity))
	assert.Len(t, remote.Rows("user-1"), 2)
}

func TestSnapshotProvider_PushFailsWhenSnapshotUnreadable(t *testing.T) {
	ctx := context.Background()

	local := memory.NewLocalStore()
	local.FailLoad = fmt.Errorf("redis down")

	remote := memory.NewRemoteCartRepository()
	coord := services.NewSyncCoordinator(
		services.NewSnapshotProvider(local, helpers.TestLogger()),
		remote, helpers.TestLogger())

	// An unreadable snapshot must fail the push, never wipe the remote rows
	require.Error(t, coord.Push(ctx, customer()))
	assert.Equal(t, 0, remote.ReplaceCalls)
}

func TestSyncCoordinator_PullReplacesLocal(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t)
	identity := customer()

	item := helpers.CreateTestMenuItem()
	require.NoError(t, f.remote.ReplaceAllRows(ctx, "user-1", []domain.RemoteCartRow{
		{
			UserID:    "user-1",
			ItemID:    item.ID,
			SizeID:    "lg",
			SizeName:  "Large",
			Name:      item.Name,
			UnitPrice: item.BasePrice,
			Quantity:  2,
		},
	}))

	require.NoError(t, f.coord.Pull(ctx, identity))

	lines := f.snapshot(t, "user-1")
	require.Len(t, lines, 1)
	assert.Equal(t, item.ID, lines[0].ItemID)
	assert.Equal(t, "lg", lines[0].SizeID)
	assert.Equal(t, 2, lines[0].Quantity)
	require.NotNil(t, lines[0].Size)
	assert.Equal(t, "Large", lines[0].Size.Name)
}

func TestSyncCoordinator_PullError(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t)
	f.remote.FailList = fmt.Errorf("timeout")

	err := f.coord.Pull(ctx, customer())
	require.Error(t, err)
}

func TestSyncCoordinator_Reconcile(t *testing.T) {
	t.Run("local_lines_win", func(t *testing.T) {
		ctx := context.Background()
		f := newSyncFixture(t)
		identity := customer()

		// Remote has stale rows from a previous session
		stale := helpers.CreateTestMenuItem()
		require.NoError(t, f.remote.ReplaceAllRows(ctx, "user-1", []domain.RemoteCartRow{
			{UserID: "user-1", ItemID: stale.ID, Name: "Stale", UnitPrice: stale.BasePrice, Quantity: 1},
		}))

		f.fillCart(t, identity, 2)

		require.NoError(t, f.coord.Reconcile(ctx, identity))

		// Local content replaced the remote rows, not the other way around
		rows := f.remote.Rows("user-1")
		require.Len(t, rows, 2)
		for _, row := range rows {
			assert.NotEqual(t, "Stale", row.Name)
		}
		assert.Len(t, f.snapshot(t, "user-1"), 2)
	})

	t.Run("empty_local_adopts_remote", func(t *testing.T) {
		ctx := context.Background()
		f := newSyncFixture(t)
		identity := customer()

		item := helpers.CreateTestMenuItem()
		require.NoError(t, f.remote.ReplaceAllRows(ctx, "user-1", []domain.RemoteCartRow{
			{UserID: "user-1", ItemID: item.ID, Name: item.Name, UnitPrice: item.BasePrice, Quantity: 3},
		}))

		require.NoError(t, f.coord.Reconcile(ctx, identity))

		lines := f.snapshot(t, "user-1")
		require.Len(t, lines, 1)
		assert.Equal(t, 3, lines[0].Quantity)
	})
}

func TestSyncCoordinator_Clear(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t)
	identity := customer()

	f.fillCart(t, identity, 2)
	require.NoError(t, f.coord.Push(ctx, identity))
	require.Len(t, f.remote.Rows("user-1"), 2)

	require.NoError(t, f.coord.Clear(ctx, identity))
	assert.Empty(t, f.remote.Rows("user-1"))

	// Clearing an already empty remote set is not an error
	require.NoError(t, f.coord.Clear(ctx, identity))
}

func TestSyncCoordinator_PullEmptyRemoteEmptiesLocal(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t)
	identity := customer()

	f.fillCart(t, identity, 2)
	require.NoError(t, f.coord.Clear(ctx, identity))

	require.NoError(t, f.coord.Pull(ctx, identity))
	assert.Empty(t, f.snapshot(t, "user-1"))
}

func TestSyncCoordinator_KioskNeverTouchesRemote(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t)
	kiosk := domain.UserIdentity{ID: "kiosk", Role: domain.RoleKiosk}

	f.fillCart(t, kiosk, 2)

	require.NoError(t, f.coord.Push(ctx, kiosk))
	require.NoError(t, f.coord.Pull(ctx, kiosk))
	require.NoError(t, f.coord.Reconcile(ctx, kiosk))
	require.NoError(t, f.coord.Clear(ctx, kiosk))

	assert.Equal(t, 0, f.remote.ReplaceCalls)
	assert.Empty(t, f.remote.Rows("kiosk"))
	// The kiosk cart itself still works locally
	assert.Len(t, f.snapshot(t, "kiosk"), 2)
}

func TestSyncCoordinator_KioskRoleIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t)
	kiosk := domain.UserIdentity{ID: "kiosk", Role: "KIOSK"}

	f.fillCart(t, kiosk, 1)
	require.NoError(t, f.coord.Push(ctx, kiosk))
	assert.Equal(t, 0, f.remote.ReplaceCalls)
}

func TestSyncCoordinator_AnonymousIdentityIsNoop(t *testing.T) {
	ctx := context.Background()
	f := newSyncFixture(t)

	require.NoError(t, f.coord.Push(ctx, domain.UserIdentity{}))
	assert.Equal(t, 0, f.remote.ReplaceCalls)
}

// blockingRemote parks ReplaceAllRows until released so a second operation
// can observe the busy flag.
type blockingRemote struct {
	*memory.RemoteCartRepository
	entered chan struct{}
	release chan struct{}
}

func (b *blockingRemote) ReplaceAllRows(ctx context.Context, userID string, rows []domain.RemoteCartRow) error {
	close(b.entered)
	<-b.release
	return b.RemoteCartRepository.ReplaceAllRows(ctx, userID, rows)
}

func TestSyncCoordinator_DropsConcurrentOperations(t *testing.T) {
	ctx := context.Background()
	identity := customer()

	remote := &blockingRemote{
		RemoteCartRepository: memory.NewRemoteCartRepository(),
		entered:              make(chan struct{}),
		release:              make(chan struct{}),
	}
	manager := services.NewCartManager(
		memory.NewLocalStore(), memory.NewOrderRepository(),
		memory.NewSyncDispatcher(), helpers.TestLogger())
	coord := services.NewSyncCoordinator(manager, remote, helpers.TestLogger())

	store := manager.StoreFor(ctx, identity)
	item := helpers.CreateTestMenuItem()
	_, err := store.Add(ctx, item, nil, 1)
	require.NoError(t, err)

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- coord.Push(ctx, identity)
	}()

	// Wait until the first push holds the busy flag
	select {
	case <-remote.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("first push never reached the repository")
	}

	// A second operation while one is in flight is dropped, not queued
	require.NoError(t, coord.Push(ctx, identity))
	require.NoError(t, coord.Clear(ctx, identity))

	close(remote.release)
	require.NoError(t, <-firstDone)

	// Only the first push ever reached the repository
	assert.Equal(t, 1, remote.ReplaceCalls)
	assert.Len(t, remote.Rows("user-1"), 1)
}

func TestDirectDispatcher_RunsPushInBackground(t *testing.T) {
	f := newSyncFixture(t)
	identity := customer()

	f.fillCart(t, identity, 2)

	dispatcher := services.NewDirectDispatcher(f.coord, time.Second, helpers.TestLogger())
	dispatcher.RequestPush(identity)
	dispatcher.Wait()

	assert.Len(t, f.remote.Rows("user-1"), 2)

	dispatcher.RequestClear(identity)
	dispatcher.Wait()

	assert.Empty(t, f.remote.Rows("user-1"))
}

func TestDirectDispatcher_SwallowsSyncErrors(t *testing.T) {
	f := newSyncFixture(t)
	identity := customer()

	f.fillCart(t, identity, 1)
	f.remote.FailReplace = fmt.Errorf("network down")

	dispatcher := services.NewDirectDispatcher(f.coord, time.Second, helpers.TestLogger())

	// Must not panic and must not surface the error to the caller
	dispatcher.RequestPush(identity)
	dispatcher.Wait()

	assert.Empty(t, f.remote.Rows("user-1"))
}
