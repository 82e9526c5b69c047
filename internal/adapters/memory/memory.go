// Package memory provides in-memory implementations of the persistence ports.
// They back the offline kiosk mode, where nothing may leave the process, and
// double as test doubles for the service layer.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ammerola/tableside-be/internal/core/domain"
	"github.com/ammerola/tableside-be/internal/core/ports"
)

// LocalStore keeps cart snapshots in a map.
type LocalStore struct {
	mu        sync.Mutex
	snapshots map[string][]domain.CartLine

	// FailSave, when set, is returned from SaveSnapshot.
	FailSave error
	// FailLoad, when set, is returned from LoadSnapshot.
	FailLoad error
}

var _ ports.LocalStore = (*LocalStore)(nil)

// NewLocalStore creates an empty in-memory snapshot store.
func NewLocalStore() *LocalStore {
	return &LocalStore{snapshots: make(map[string][]domain.CartLine)}
}

func (s *LocalStore) SaveSnapshot(_ context.Context, userID string, lines []domain.CartLine) error {
	if s.FailSave != nil {
		return s.FailSave
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]domain.CartLine, len(lines))
	copy(cp, lines)
	s.snapshots[userID] = cp
	return nil
}

func (s *LocalStore) LoadSnapshot(_ context.Context, userID string) ([]domain.CartLine, error) {
	if s.FailLoad != nil {
		return nil, s.FailLoad
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	lines, ok := s.snapshots[userID]
	if !ok {
		return []domain.CartLine{}, nil
	}
	cp := make([]domain.CartLine, len(lines))
	copy(cp, lines)
	return cp, nil
}

func (s *LocalStore) ClearSnapshot(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snapshots, userID)
	return nil
}

// RemoteCartRepository keeps remote cart rows in a map keyed by user.
type RemoteCartRepository struct {
	mu   sync.Mutex
	rows map[string][]domain.RemoteCartRow

	// ReplaceCalls counts ReplaceAllRows invocations.
	ReplaceCalls int
	// FailReplace, when set, is returned from ReplaceAllRows.
	FailReplace error
	// FailList, when set, is returned from ListRows.
	FailList error
}

var _ ports.RemoteCartRepository = (*RemoteCartRepository)(nil)

// NewRemoteCartRepository creates an empty in-memory remote cart table.
func NewRemoteCartRepository() *RemoteCartRepository {
	return &RemoteCartRepository{rows: make(map[string][]domain.RemoteCartRow)}
}

func (r *RemoteCartRepository) ListRows(_ context.Context, userID string) ([]domain.RemoteCartRow, error) {
	if r.FailList != nil {
		return nil, r.FailList
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]domain.RemoteCartRow, len(r.rows[userID]))
	copy(cp, r.rows[userID])
	return cp, nil
}

func (r *RemoteCartRepository) ReplaceAllRows(_ context.Context, userID string, rows []domain.RemoteCartRow) error {
	r.mu.Lock()
	r.ReplaceCalls++
	r.mu.Unlock()
	if r.FailReplace != nil {
		return r.FailReplace
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]domain.RemoteCartRow, len(rows))
	copy(cp, rows)
	r.rows[userID] = cp
	return nil
}

func (r *RemoteCartRepository) DeleteAllRows(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rows, userID)
	return nil
}

// Rows returns the current row set for a user.
func (r *RemoteCartRepository) Rows(userID string) []domain.RemoteCartRow {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]domain.RemoteCartRow, len(r.rows[userID]))
	copy(cp, r.rows[userID])
	return cp
}

// MenuRepository keeps menu items in a map.
type MenuRepository struct {
	mu    sync.Mutex
	items map[uuid.UUID]*domain.MenuItem

	// FailFind, when set, is returned from FindItemByID and FindSizes.
	FailFind error
}

var _ ports.MenuRepository = (*MenuRepository)(nil)

// NewMenuRepository creates an empty in-memory menu.
func NewMenuRepository() *MenuRepository {
	return &MenuRepository{items: make(map[uuid.UUID]*domain.MenuItem)}
}

func (r *MenuRepository) FindItemByID(_ context.Context, itemID uuid.UUID) (*domain.MenuItem, error) {
	if r.FailFind != nil {
		return nil, r.FailFind
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[itemID]
	if !ok {
		return nil, nil
	}
	cp := *item
	cp.Sizes = append([]domain.SizeOption(nil), item.Sizes...)
	return &cp, nil
}

func (r *MenuRepository) FindSizes(_ context.Context, itemID uuid.UUID) ([]domain.SizeOption, error) {
	if r.FailFind != nil {
		return nil, r.FailFind
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[itemID]
	if !ok {
		return nil, nil
	}
	return append([]domain.SizeOption(nil), item.Sizes...), nil
}

func (r *MenuRepository) List(_ context.Context, params ports.MenuListParams) ([]domain.MenuItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.MenuItem
	for _, item := range r.items {
		if params.Category != "" && string(item.Category) != params.Category {
			continue
		}
		if params.AvailableOnly && !item.Available {
			continue
		}
		if params.FeaturedOnly && !item.Featured {
			continue
		}
		out = append(out, *item)
	}
	return out, nil
}

func (r *MenuRepository) Save(_ context.Context, item *domain.MenuItem) error {
	if err := item.Validate(); err != nil {
		return err
	}
	item.PrepareForStorage()
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *item
	cp.Sizes = append([]domain.SizeOption(nil), item.Sizes...)
	r.items[item.ID] = &cp
	return nil
}

// OrderRepository keeps order headers and lines in maps.
type OrderRepository struct {
	mu      sync.Mutex
	headers map[uuid.UUID]*domain.Order
	lines   map[uuid.UUID][]domain.OrderLine

	// FailCreateLines, when set, is returned from CreateLines.
	FailCreateLines error
	// FailDeleteHeader, when set, is returned from DeleteHeader.
	FailDeleteHeader error
	// FailFindLines, when set, is returned from FindLines.
	FailFindLines error
}

var _ ports.OrderRepository = (*OrderRepository)(nil)

// NewOrderRepository creates an empty in-memory order store.
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		headers: make(map[uuid.UUID]*domain.Order),
		lines:   make(map[uuid.UUID][]domain.OrderLine),
	}
}

func (r *OrderRepository) CreateHeader(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.headers[order.ID]; exists {
		return fmt.Errorf("order already exists: %s", order.ID)
	}
	cp := *order
	r.headers[order.ID] = &cp
	return nil
}

func (r *OrderRepository) CreateLines(_ context.Context, lines []domain.OrderLine) error {
	if r.FailCreateLines != nil {
		return r.FailCreateLines
	}
	if len(lines) == 0 {
		return fmt.Errorf("order must have at least one line")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	orderID := lines[0].OrderID
	cp := make([]domain.OrderLine, len(lines))
	copy(cp, lines)
	r.lines[orderID] = cp
	return nil
}

func (r *OrderRepository) DeleteHeader(_ context.Context, orderID uuid.UUID) error {
	if r.FailDeleteHeader != nil {
		return r.FailDeleteHeader
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.headers[orderID]; !ok {
		return fmt.Errorf("order not found: %s", orderID)
	}
	delete(r.headers, orderID)
	delete(r.lines, orderID)
	return nil
}

func (r *OrderRepository) FindByID(_ context.Context, orderID uuid.UUID) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	order, ok := r.headers[orderID]
	if !ok {
		return nil, nil
	}
	cp := *order
	return &cp, nil
}

func (r *OrderRepository) FindLines(_ context.Context, orderID uuid.UUID) ([]domain.OrderLine, error) {
	if r.FailFindLines != nil {
		return nil, r.FailFindLines
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := make([]domain.OrderLine, len(r.lines[orderID]))
	copy(cp, r.lines[orderID])
	return cp, nil
}

func (r *OrderRepository) FindByUser(_ context.Context, userID string, limit int) ([]domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Order
	for _, order := range r.headers {
		if order.UserID == userID {
			out = append(out, *order)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// HeaderCount reports how many order headers exist.
func (r *OrderRepository) HeaderCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.headers)
}

// SyncDispatcher records requests without running anything. Tests drive the
// coordinator directly.
type SyncDispatcher struct {
	mu            sync.Mutex
	PushRequests  []domain.UserIdentity
	ClearRequests []domain.UserIdentity
}

var _ ports.SyncDispatcher = (*SyncDispatcher)(nil)

// NewSyncDispatcher creates a recording dispatcher.
func NewSyncDispatcher() *SyncDispatcher {
	return &SyncDispatcher{}
}

func (d *SyncDispatcher) RequestPush(identity domain.UserIdentity) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.PushRequests = append(d.PushRequests, identity)
}

func (d *SyncDispatcher) RequestClear(identity domain.UserIdentity) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ClearRequests = append(d.ClearRequests, identity)
}

// Pushes reports how many push requests were recorded.
func (d *SyncDispatcher) Pushes() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.PushRequests)
}

// Clears reports how many clear requests were recorded.
func (d *SyncDispatcher) Clears() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.ClearRequests)
}
