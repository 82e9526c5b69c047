// internal/core/services/cart.go
package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ammerola/tableside-be/internal/core/domain"
	"github.com/ammerola/tableside-be/internal/core/ports"
)

// Clock provides current time (for testability).
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// DefaultLastAddedWindow is how long the "last added" pointer stays visible
// after an add before it is considered expired.
const DefaultLastAddedWindow = 3 * time.Second

// CartStore is the single source of truth for one identity's active cart.
// Mutations update in-memory state and the local store synchronously, then
// hand a sync request to the dispatcher without waiting on it. Remote failure
// never rolls back local state.
type CartStore struct {
	mu sync.Mutex

	identity domain.UserIdentity
	cart     *domain.Cart

	lastAddedKey *domain.LineKey
	lastAddedAt  time.Time
	window       time.Duration

	local    ports.LocalStore
	orders   ports.OrderRepository
	dispatch ports.SyncDispatcher
	clock    Clock
	logger   *slog.Logger
}

// CartStoreOption configures a CartStore.
type CartStoreOption func(*CartStore)

// WithClock overrides the store's clock.
func WithClock(c Clock) CartStoreOption {
	return func(s *CartStore) { s.clock = c }
}

// WithLastAddedWindow overrides the last-added display window.
func WithLastAddedWindow(d time.Duration) CartStoreOption {
	return func(s *CartStore) { s.window = d }
}

// NewCartStore creates an empty cart store for the given identity.
func NewCartStore(
	identity domain.UserIdentity,
	local ports.LocalStore,
	orders ports.OrderRepository,
	dispatch ports.SyncDispatcher,
	logger *slog.Logger,
	opts ...CartStoreOption,
) *CartStore {
	s := &CartStore{
		identity: identity,
		cart:     domain.NewCart(),
		window:   DefaultLastAddedWindow,
		local:    local,
		orders:   orders,
		dispatch: dispatch,
		clock:    systemClock{},
		logger: logger.With(
			slog.String("service", "cart"),
			slog.String("user_id", identity.ID)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Identity returns the identity this store is scoped to.
func (s *CartStore) Identity() domain.UserIdentity {
	return s.identity
}

// Rehydrate loads the last persisted snapshot from the local store. It runs
// once on startup, before any remote reconciliation, and does not trigger a
// sync itself.
func (s *CartStore) Rehydrate(ctx context.Context) error {
	lines, err := s.local.LoadSnapshot(ctx, s.identity.ID)
	if err != nil {
		return fmt.Errorf("failed to load cart snapshot: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.Lines = lines
	if s.cart.Lines == nil {
		s.cart.Lines = []domain.CartLine{}
	}
	return nil
}

// Add merges an item (with optional size) into the cart and marks it as the
// last added line.
func (s *CartStore) Add(ctx context.Context, item *domain.MenuItem, size *domain.SizeOption, qty int) (domain.CartLine, error) {
	if item == nil {
		return domain.CartLine{}, fmt.Errorf("item is required")
	}
	if qty < 1 {
		qty = 1
	}

	s.mu.Lock()
	line := item.LineFor(size, qty)
	idx, err := s.cart.Add(line)
	if err != nil {
		s.mu.Unlock()
		return domain.CartLine{}, fmt.Errorf("failed to add cart line: %w", err)
	}
	added := s.cart.Lines[idx]
	key := added.Key()
	s.lastAddedKey = &key
	s.lastAddedAt = s.clock.Now()
	s.mu.Unlock()

	s.persistAndPush(ctx)

	s.logger.DebugContext(ctx, "cart line added",
		slog.String("item_id", added.ItemID.String()),
		slog.String("size_id", added.SizeID),
		slog.Int("quantity", added.Quantity))

	return added, nil
}

// Remove deletes the line with the given key. Removing an absent line is a
// no-op, but still persists and syncs so repeated taps stay harmless.
func (s *CartStore) Remove(ctx context.Context, key domain.LineKey) {
	s.mu.Lock()
	s.cart.Remove(key)
	if s.lastAddedKey != nil && *s.lastAddedKey == key {
		s.lastAddedKey = nil
	}
	s.mu.Unlock()

	s.persistAndPush(ctx)
}

// SetQuantity replaces the quantity of a line; qty <= 0 removes it.
func (s *CartStore) SetQuantity(ctx context.Context, key domain.LineKey, qty int) {
	s.mu.Lock()
	s.cart.SetQuantity(key, qty)
	if qty <= 0 && s.lastAddedKey != nil && *s.lastAddedKey == key {
		s.lastAddedKey = nil
	}
	s.mu.Unlock()

	s.persistAndPush(ctx)
}

// Clear empties the cart and requests a remote clear instead of a push.
func (s *CartStore) Clear(ctx context.Context) {
	s.mu.Lock()
	s.cart.Clear()
	s.lastAddedKey = nil
	s.mu.Unlock()

	s.persist(ctx)
	if s.identity.Valid() {
		s.dispatch.RequestClear(s.identity)
	}
}

// Lines returns a copy of the current lines in insertion order.
func (s *CartStore) Lines() []domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Snapshot()
}

// ReplaceLines swaps the cart contents wholesale. Used by the sync
// coordinator's pull path; persists locally but does not push back.
func (s *CartStore) ReplaceLines(ctx context.Context, lines []domain.CartLine) {
	s.mu.Lock()
	s.cart.Lines = append(s.cart.Lines[:0], lines...)
	s.lastAddedKey = nil
	s.mu.Unlock()

	s.persist(ctx)
}

// TotalItems returns the sum of line quantities.
func (s *CartStore) TotalItems() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.TotalItems()
}

// TotalPrice returns the sum of unit price times quantity over all lines.
func (s *CartStore) TotalPrice() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.TotalPrice()
}

// LastAdded returns the most recently added line, or nil once the display
// window has elapsed.
func (s *CartStore) LastAdded() *domain.CartLine {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastAddedKey == nil {
		return nil
	}
	if s.clock.Now().Sub(s.lastAddedAt) >= s.window {
		s.lastAddedKey = nil
		return nil
	}
	idx := s.cart.IndexOf(*s.lastAddedKey)
	if idx < 0 {
		return nil
	}
	line := s.cart.Lines[idx]
	return &line
}

// SetOpen toggles the cart's open/closed UI flag.
func (s *CartStore) SetOpen(open bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.Open = open
}

// IsOpen reports the cart's open/closed UI flag.
func (s *CartStore) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cart.Open
}

// CreateOrder persists an order header and its line items as two dependent
// writes. If the line write fails after the header succeeded, the header is
// deleted so no empty order survives, and the failure is surfaced. On success
// the cart is cleared (locally and remotely).
func (s *CartStore) CreateOrder(ctx context.Context, meta domain.OrderMeta) (*domain.Order, error) {
	if err := meta.Validate(); err != nil {
		return nil, fmt.Errorf("invalid order: %w", err)
	}

	s.mu.Lock()
	if s.cart.IsEmpty() {
		s.mu.Unlock()
		return nil, domain.ErrEmptyCart
	}
	lines := s.cart.Snapshot()
	total := s.cart.TotalPrice()
	s.mu.Unlock()

	order := domain.NewOrder(s.identity.ID, total, meta, s.clock.Now())

	if err := s.orders.CreateHeader(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	orderLines := domain.OrderLinesFromCart(order.ID, lines)
	if err := s.orders.CreateLines(ctx, orderLines); err != nil {
		// Compensate: an order header without lines must not survive.
		if delErr := s.orders.DeleteHeader(ctx, order.ID); delErr != nil {
			s.logger.ErrorContext(ctx, "failed to roll back order header",
				slog.String("order_id", order.ID.String()),
				slog.String("error", delErr.Error()))
		}
		return nil, fmt.Errorf("failed to create order lines: %w", err)
	}

	s.logger.InfoContext(ctx, "order created",
		slog.String("order_id", order.ID.String()),
		slog.Int("lines", len(orderLines)),
		slog.String("total", order.Total.String()))

	s.Clear(ctx)
	return order, nil
}

// persistAndPush writes the local snapshot synchronously and fires a
// non-blocking push for the current identity.
func (s *CartStore) persistAndPush(ctx context.Context) {
	s.persist(ctx)
	if s.identity.Valid() {
		s.dispatch.RequestPush(s.identity)
	}
}

func (s *CartStore) persist(ctx context.Context) {
	s.mu.Lock()
	lines := s.cart.Snapshot()
	s.mu.Unlock()

	if err := s.local.SaveSnapshot(ctx, s.identity.ID, lines); err != nil {
		// Local persistence failure does not roll back the in-memory cart.
		s.logger.WarnContext(ctx, "failed to persist cart snapshot",
			slog.String("error", err.Error()))
	}
}

// CartManager hands out one CartStore per identity, rehydrating from the
// local store on first access. It also lets the sync coordinator read and
// replace a user's lines without holding a store reference.
type CartManager struct {
	mu     sync.Mutex
	stores map[string]*CartStore

	local    ports.LocalStore
	orders   ports.OrderRepository
	dispatch ports.SyncDispatcher
	logger   *slog.Logger
	opts     []CartStoreOption
}

// NewCartManager creates a cart manager.
func NewCartManager(
	local ports.LocalStore,
	orders ports.OrderRepository,
	dispatch ports.SyncDispatcher,
	logger *slog.Logger,
	opts ...CartStoreOption,
) *CartManager {
	return &CartManager{
		stores:   make(map[string]*CartStore),
		local:    local,
		orders:   orders,
		dispatch: dispatch,
		logger:   logger,
		opts:     opts,
	}
}

// StoreFor returns the cart store for the identity, creating and rehydrating
// it on first access.
func (m *CartManager) StoreFor(ctx context.Context, identity domain.UserIdentity) *CartStore {
	m.mu.Lock()
	store, ok := m.stores[identity.ID]
	if !ok {
		store = NewCartStore(identity, m.local, m.orders, m.dispatch, m.logger, m.opts...)
		m.stores[identity.ID] = store
	}
	m.mu.Unlock()

	if !ok {
		if err := store.Rehydrate(ctx); err != nil {
			m.logger.WarnContext(ctx, "failed to rehydrate cart",
				slog.String("user_id", identity.ID),
				slog.String("error", err.Error()))
		}
	}
	return store
}

// SnapshotFor returns the current lines for a user. When no store is resident
// it falls back to the persisted snapshot, so readers see the same state a
// rehydrate would produce.
func (m *CartManager) SnapshotFor(ctx context.Context, userID string) ([]domain.CartLine, error) {
	m.mu.Lock()
	store, ok := m.stores[userID]
	m.mu.Unlock()
	if ok {
		return store.Lines(), nil
	}
	return m.local.LoadSnapshot(ctx, userID)
}

// ReplaceFor replaces a user's lines wholesale (pull path). A store is
// created if none exists.
func (m *CartManager) ReplaceFor(ctx context.Context, identity domain.UserIdentity, lines []domain.CartLine) {
	store := m.StoreFor(ctx, identity)
	store.ReplaceLines(ctx, lines)
}

// Evict drops the in-memory store for a user (logout).
func (m *CartManager) Evict(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.stores, userID)
}
