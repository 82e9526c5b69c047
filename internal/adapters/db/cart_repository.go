// internal/adapters/db/cart_repository.go
package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ammerola/tableside-be/internal/core/domain"
	"github.com/ammerola/tableside-be/internal/core/ports"
)

// remoteCartRepository implements ports.RemoteCartRepository on Postgres.
type remoteCartRepository struct {
	db     *Database
	logger *slog.Logger
}

// NewRemoteCartRepository creates a new remote cart repository.
func NewRemoteCartRepository(db *Database, logger *slog.Logger) ports.RemoteCartRepository {
	return &remoteCartRepository{
		db:     db,
		logger: logger.With(slog.String("repository", "remote_cart")),
	}
}

// ListRows returns all cart rows for a user in insertion order.
func (r *remoteCartRepository) ListRows(ctx context.Context, userID string) ([]domain.RemoteCartRow, error) {
	query := `
		SELECT user_id, item_id, size_id, size_name, item_name, category,
			unit_price, quantity
		FROM cart_items
		WHERE user_id = $1
		ORDER BY position ASC`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query cart rows: %w", err)
	}
	defer rows.Close()

	var out []domain.RemoteCartRow
	for rows.Next() {
		var row domain.RemoteCartRow
		var sizeID, sizeName, category sql.NullString

		if err := rows.Scan(
			&row.UserID, &row.ItemID, &sizeID, &sizeName, &row.Name,
			&category, &row.UnitPrice, &row.Quantity,
		); err != nil {
			return nil, fmt.Errorf("failed to scan cart row: %w", err)
		}

		row.SizeID = sizeID.String
		row.SizeName = sizeName.String
		row.Category = category.String
		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart rows: %w", err)
	}

	return out, nil
}

// ReplaceAllRows swaps the user's entire row set in one transaction:
// delete-all then COPY insert-all. No diffing against the previous contents.
func (r *remoteCartRepository) ReplaceAllRows(ctx context.Context, userID string, cartRows []domain.RemoteCartRow) error {
	err := r.db.Transaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("failed to delete existing rows: %w", err)
		}

		if len(cartRows) == 0 {
			return nil
		}

		now := time.Now()
		copied, err := tx.CopyFrom(ctx,
			pgx.Identifier{"cart_items"},
			[]string{
				"user_id", "item_id", "size_id", "size_name", "item_name",
				"category", "unit_price", "quantity", "position", "updated_at",
			},
			pgx.CopyFromSlice(len(cartRows), func(i int) ([]any, error) {
				return []any{
					userID, cartRows[i].ItemID,
					nullable(cartRows[i].SizeID), nullable(cartRows[i].SizeName),
					cartRows[i].Name, nullable(cartRows[i].Category),
					cartRows[i].UnitPrice, cartRows[i].Quantity, i, now,
				}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("failed to copy rows: %w", err)
		}
		if copied != int64(len(cartRows)) {
			return fmt.Errorf("copied %d of %d rows", copied, len(cartRows))
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to replace cart rows: %w", err)
	}

	r.logger.DebugContext(ctx, "cart rows replaced",
		slog.String("user_id", userID),
		slog.Int("rows", len(cartRows)))

	return nil
}

// DeleteAllRows drops every cart row for the user. Deleting an already empty
// set is not an error.
func (r *remoteCartRepository) DeleteAllRows(ctx context.Context, userID string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete cart rows: %w", err)
	}

	r.logger.DebugContext(ctx, "cart rows deleted",
		slog.String("user_id", userID),
		slog.Int64("rows", tag.RowsAffected()))

	return nil
}

// nullable maps an empty string to SQL NULL.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
