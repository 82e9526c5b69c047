// internal/adapters/redis_adapter/localstore.go
package redis_a

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ammerola/tableside-be/internal/core/domain"
	"github.com/ammerola/tableside-be/internal/core/ports"
)

// snapshotKeyPrefix namespaces the per-user cart snapshot slots.
const snapshotKeyPrefix = "cart:snapshot"

// LocalStore keeps the last-known cart snapshot per user in Redis: one JSON
// value per user, replaced wholesale on every mutation. It is the durable
// slot the cart rehydrates from on startup, independent of the remote table.
type LocalStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// Statically assert that *LocalStore implements the LocalStore port.
var _ ports.LocalStore = (*LocalStore)(nil)

// NewLocalStore creates a snapshot store. A non-positive ttl keeps snapshots
// forever.
func NewLocalStore(client *redis.Client, ttl time.Duration, logger *slog.Logger) *LocalStore {
	return &LocalStore{
		client: client,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "local_store")),
	}
}

func snapshotKey(userID string) string {
	return snapshotKeyPrefix + ":" + userID
}

// SaveSnapshot replaces the user's snapshot slot with the given lines. An
// empty slice is stored as-is so an intentionally emptied cart survives a
// restart as empty, not as the previous contents.
func (s *LocalStore) SaveSnapshot(ctx context.Context, userID string, lines []domain.CartLine) error {
	if lines == nil {
		lines = []domain.CartLine{}
	}

	data, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	if err := s.client.Set(ctx, snapshotKey(userID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}

	s.logger.DebugContext(ctx, "snapshot saved",
		slog.String("user_id", userID),
		slog.Int("lines", len(lines)))

	return nil
}

// LoadSnapshot returns the user's last persisted lines. A missing slot is not
// an error; it yields an empty cart.
func (s *LocalStore) LoadSnapshot(ctx context.Context, userID string) ([]domain.CartLine, error) {
	data, err := s.client.Get(ctx, snapshotKey(userID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return []domain.CartLine{}, nil
		}
		return nil, fmt.Errorf("redis get error: %w", err)
	}

	var lines []domain.CartLine
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, fmt.Errorf("unmarshal error: %w", err)
	}

	return lines, nil
}

// ClearSnapshot drops the user's snapshot slot.
func (s *LocalStore) ClearSnapshot(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, snapshotKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis del error: %w", err)
	}

	s.logger.DebugContext(ctx, "snapshot cleared",
		slog.String("user_id", userID))

	return nil
}
