// internal/adapters/db/order_repository.go
package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ammerola/tableside-be/internal/core/domain"
	"github.com/ammerola/tableside-be/internal/core/ports"
)

// orderRepository implements ports.OrderRepository on Postgres.
type orderRepository struct {
	db     *Database
	logger *slog.Logger
}

// NewOrderRepository creates a new order repository.
func NewOrderRepository(db *Database, logger *slog.Logger) ports.OrderRepository {
	return &orderRepository{
		db:     db,
		logger: logger.With(slog.String("repository", "order")),
	}
}

// CreateHeader inserts the order header row.
func (r *orderRepository) CreateHeader(ctx context.Context, order *domain.Order) error {
	query := `
		INSERT INTO orders (
			id, user_id, status, address, phone, note, delivery_fee, total, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(ctx, query,
		order.ID, order.UserID, order.Status,
		nullable(order.Address), nullable(order.Phone), nullable(order.Note),
		order.DeliveryFee, order.Total, order.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order header: %w", err)
	}

	r.logger.DebugContext(ctx, "order header created",
		slog.String("order_id", order.ID.String()),
		slog.String("user_id", order.UserID))

	return nil
}

// CreateLines batch-inserts the order's line items in one transaction.
func (r *orderRepository) CreateLines(ctx context.Context, lines []domain.OrderLine) error {
	if len(lines) == 0 {
		return fmt.Errorf("order must have at least one line")
	}

	return r.db.Transaction(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		query := `
			INSERT INTO order_items (
				order_id, item_id, size_id, size_name, item_name,
				unit_price, quantity, position
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

		for i := range lines {
			batch.Queue(query,
				lines[i].OrderID, lines[i].ItemID,
				nullable(lines[i].SizeID), nullable(lines[i].SizeName),
				lines[i].Name, lines[i].UnitPrice, lines[i].Quantity, i,
			)
		}

		br := tx.SendBatch(ctx, batch)
		defer br.Close()

		for i := range lines {
			if _, err := br.Exec(); err != nil {
				return fmt.Errorf("failed to insert order line %d: %w", i, err)
			}
		}

		return nil
	})
}

// DeleteHeader removes an order header. Used to compensate a failed line
// write so no empty order survives.
func (r *orderRepository) DeleteHeader(ctx context.Context, orderID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM orders WHERE id = $1`, orderID)
	if err != nil {
		return fmt.Errorf("failed to delete order header: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order not found: %s", orderID)
	}

	r.logger.InfoContext(ctx, "order header deleted",
		slog.String("order_id", orderID.String()))

	return nil
}

// FindByID returns the order header, or nil when it does not exist.
func (r *orderRepository) FindByID(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	query := `
		SELECT id, user_id, status, address, phone, note, delivery_fee, total, created_at
		FROM orders
		WHERE id = $1`

	order := &domain.Order{}
	var address, phone, note sql.NullString

	err := r.db.QueryRow(ctx, query, orderID).Scan(
		&order.ID, &order.UserID, &order.Status,
		&address, &phone, &note,
		&order.DeliveryFee, &order.Total, &order.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}

	order.Address = address.String
	order.Phone = phone.String
	order.Note = note.String

	return order, nil
}

// FindLines returns the order's line items in insertion order.
func (r *orderRepository) FindLines(ctx context.Context, orderID uuid.UUID) ([]domain.OrderLine, error) {
	query := `
		SELECT order_id, item_id, size_id, size_name, item_name, unit_price, quantity
		FROM order_items
		WHERE order_id = $1
		ORDER BY position ASC`

	rows, err := r.db.Query(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query order lines: %w", err)
	}
	defer rows.Close()

	var lines []domain.OrderLine
	for rows.Next() {
		var line domain.OrderLine
		var sizeID, sizeName sql.NullString

		if err := rows.Scan(
			&line.OrderID, &line.ItemID, &sizeID, &sizeName,
			&line.Name, &line.UnitPrice, &line.Quantity,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order line: %w", err)
		}

		line.SizeID = sizeID.String
		line.SizeName = sizeName.String
		lines = append(lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order lines: %w", err)
	}

	return lines, nil
}

// FindByUser returns the user's most recent orders, newest first.
func (r *orderRepository) FindByUser(ctx context.Context, userID string, limit int) ([]domain.Order, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, user_id, status, address, phone, note, delivery_fee, total, created_at
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		var order domain.Order
		var address, phone, note sql.NullString

		if err := rows.Scan(
			&order.ID, &order.UserID, &order.Status,
			&address, &phone, &note,
			&order.DeliveryFee, &order.Total, &order.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}

		order.Address = address.String
		order.Phone = phone.String
		order.Note = note.String
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}
