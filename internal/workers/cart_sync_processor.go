// internal/workers/cart_sync_processor.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/ammerola/tableside-be/internal/core/domain"
	"github.com/ammerola/tableside-be/internal/core/ports"
)

// Task type names for cart sync jobs.
const (
	TypeCartPush  = "cart:push"
	TypeCartClear = "cart:clear"
)

// CartSyncPayload carries the identity whose cart should be synced.
type CartSyncPayload struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// AsynqDispatcher queues cart sync requests on asynq instead of running them
// in-process. Tasks are enqueued with MaxRetry(0): a failed sync is logged and
// dropped, and the next cart mutation re-sends the full state anyway.
type AsynqDispatcher struct {
	client *asynq.Client
	queue  string
	logger *slog.Logger
}

// Statically assert that *AsynqDispatcher implements the SyncDispatcher interface.
var _ ports.SyncDispatcher = (*AsynqDispatcher)(nil)

// NewAsynqDispatcher creates an asynq-backed dispatcher.
func NewAsynqDispatcher(client *asynq.Client, queue string, logger *slog.Logger) *AsynqDispatcher {
	if queue == "" {
		queue = "default"
	}
	return &AsynqDispatcher{
		client: client,
		queue:  queue,
		logger: logger.With(slog.String("component", "sync_dispatcher")),
	}
}

// RequestPush enqueues a cart push task.
func (d *AsynqDispatcher) RequestPush(identity domain.UserIdentity) {
	d.enqueue(TypeCartPush, identity)
}

// RequestClear enqueues a remote cart clear task.
func (d *AsynqDispatcher) RequestClear(identity domain.UserIdentity) {
	d.enqueue(TypeCartClear, identity)
}

func (d *AsynqDispatcher) enqueue(taskType string, identity domain.UserIdentity) {
	payload, err := json.Marshal(CartSyncPayload{UserID: identity.ID, Role: identity.Role})
	if err != nil {
		d.logger.Error("failed to marshal sync payload",
			slog.String("type", taskType),
			slog.String("error", err.Error()))
		return
	}

	task := asynq.NewTask(taskType, payload)
	info, err := d.client.Enqueue(task,
		asynq.Queue(d.queue),
		asynq.MaxRetry(0),
	)
	if err != nil {
		// Enqueue failure is best-effort, like the sync itself.
		d.logger.Warn("failed to enqueue sync task",
			slog.String("type", taskType),
			slog.String("user_id", identity.ID),
			slog.String("error", err.Error()))
		return
	}

	d.logger.Debug("sync task enqueued",
		slog.String("type", taskType),
		slog.String("task_id", info.ID),
		slog.String("user_id", identity.ID))
}

// CartSyncProcessor handles queued cart sync tasks.
type CartSyncProcessor struct {
	syncer ports.Syncer
	logger *slog.Logger
}

// NewCartSyncProcessor creates a new cart sync processor.
func NewCartSyncProcessor(syncer ports.Syncer, logger *slog.Logger) *CartSyncProcessor {
	return &CartSyncProcessor{
		syncer: syncer,
		logger: logger.With(slog.String("processor", "cart_sync")),
	}
}

// HandlePush replaces the user's remote cart rows with the local snapshot.
func (p *CartSyncProcessor) HandlePush(ctx context.Context, t *asynq.Task) error {
	identity, err := identityFromTask(t)
	if err != nil {
		return err
	}

	if err := p.syncer.Push(ctx, identity); err != nil {
		p.logger.WarnContext(ctx, "cart push failed",
			slog.String("user_id", identity.ID),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to push cart: %w", err)
	}

	return nil
}

// HandleClear removes all remote cart rows for the user.
func (p *CartSyncProcessor) HandleClear(ctx context.Context, t *asynq.Task) error {
	identity, err := identityFromTask(t)
	if err != nil {
		return err
	}

	if err := p.syncer.Clear(ctx, identity); err != nil {
		p.logger.WarnContext(ctx, "cart clear failed",
			slog.String("user_id", identity.ID),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to clear remote cart: %w", err)
	}

	return nil
}

func identityFromTask(t *asynq.Task) (domain.UserIdentity, error) {
	var payload CartSyncPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return domain.UserIdentity{}, fmt.Errorf("failed to unmarshal sync payload: %w", err)
	}
	return domain.UserIdentity{ID: payload.UserID, Role: payload.Role}, nil
}
