// internal/adapters/db/menu_repository.go
package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ammerola/tableside-be/internal/core/domain"
	"github.com/ammerola/tableside-be/internal/core/ports"
)

// menuRepository implements ports.MenuRepository on Postgres.
type menuRepository struct {
	db     *Database
	logger *slog.Logger
}

// NewMenuRepository creates a new menu repository.
func NewMenuRepository(db *Database, logger *slog.Logger) ports.MenuRepository {
	return &menuRepository{
		db:     db,
		logger: logger.With(slog.String("repository", "menu")),
	}
}

// FindItemByID returns the menu item with its size options, or nil when it
// does not exist.
func (r *menuRepository) FindItemByID(ctx context.Context, itemID uuid.UUID) (*domain.MenuItem, error) {
	query := `
		SELECT id, name, description, base_price, category, available, featured,
			created_at, updated_at
		FROM menu_items
		WHERE id = $1`

	item := &domain.MenuItem{}
	var description sql.NullString

	err := r.db.QueryRow(ctx, query, itemID).Scan(
		&item.ID, &item.Name, &description, &item.BasePrice, &item.Category,
		&item.Available, &item.Featured, &item.CreatedAt, &item.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find menu item: %w", err)
	}
	item.Description = description.String

	sizes, err := r.FindSizes(ctx, itemID)
	if err != nil {
		return nil, err
	}
	item.Sizes = sizes

	return item, nil
}

// FindSizes returns the item's current size options in display order. Items
// without sizes yield an empty slice.
func (r *menuRepository) FindSizes(ctx context.Context, itemID uuid.UUID) ([]domain.SizeOption, error) {
	query := `
		SELECT size_id, name, price_multiplier
		FROM menu_item_sizes
		WHERE item_id = $1
		ORDER BY position ASC`

	rows, err := r.db.Query(ctx, query, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sizes: %w", err)
	}
	defer rows.Close()

	var sizes []domain.SizeOption
	for rows.Next() {
		var size domain.SizeOption
		if err := rows.Scan(&size.SizeID, &size.Name, &size.PriceMultiplier); err != nil {
			return nil, fmt.Errorf("failed to scan size: %w", err)
		}
		sizes = append(sizes, size)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sizes: %w", err)
	}

	return sizes, nil
}

// List retrieves menu items with filtering and pagination. Sizes are loaded
// per item; menus are small enough that the extra round trips do not matter.
func (r *menuRepository) List(ctx context.Context, params ports.MenuListParams) ([]domain.MenuItem, error) {
	qb := squirrel.Select(
		"id", "name", "description", "base_price", "category",
		"available", "featured", "created_at", "updated_at",
	).From("menu_items").
		PlaceholderFormat(squirrel.Dollar)

	if params.Category != "" {
		qb = qb.Where(squirrel.Eq{"category": params.Category})
	}
	if params.AvailableOnly {
		qb = qb.Where(squirrel.Eq{"available": true})
	}
	if params.FeaturedOnly {
		qb = qb.Where(squirrel.Eq{"featured": true})
	}
	if params.Search != "" {
		qb = qb.Where("name ILIKE ?", "%"+params.Search+"%")
	}

	qb = qb.OrderBy("category ASC", "name ASC")

	if params.Limit > 0 {
		qb = qb.Limit(uint64(params.Limit))
	}
	if params.Offset > 0 {
		qb = qb.Offset(uint64(params.Offset))
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query menu items: %w", err)
	}
	defer rows.Close()

	var items []domain.MenuItem
	for rows.Next() {
		var item domain.MenuItem
		var description sql.NullString

		if err := rows.Scan(
			&item.ID, &item.Name, &description, &item.BasePrice, &item.Category,
			&item.Available, &item.Featured, &item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan menu item: %w", err)
		}

		item.Description = description.String
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating menu items: %w", err)
	}

	for i := range items {
		sizes, err := r.FindSizes(ctx, items[i].ID)
		if err != nil {
			return nil, err
		}
		items[i].Sizes = sizes
	}

	return items, nil
}

// Save upserts the menu item and replaces its size options in one
// transaction.
func (r *menuRepository) Save(ctx context.Context, item *domain.MenuItem) error {
	if err := item.Validate(); err != nil {
		return fmt.Errorf("invalid menu item: %w", err)
	}
	item.PrepareForStorage()

	err := r.db.Transaction(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO menu_items (
				id, name, description, base_price, category, available, featured,
				created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				description = EXCLUDED.description,
				base_price = EXCLUDED.base_price,
				category = EXCLUDED.category,
				available = EXCLUDED.available,
				featured = EXCLUDED.featured,
				updated_at = EXCLUDED.updated_at`

		_, err := tx.Exec(ctx, query,
			item.ID, item.Name, nullable(item.Description), item.BasePrice,
			item.Category, item.Available, item.Featured,
			item.CreatedAt, item.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert menu item: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM menu_item_sizes WHERE item_id = $1`, item.ID); err != nil {
			return fmt.Errorf("failed to delete old sizes: %w", err)
		}

		if len(item.Sizes) == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		sizeQuery := `
			INSERT INTO menu_item_sizes (item_id, size_id, name, price_multiplier, position)
			VALUES ($1, $2, $3, $4, $5)`

		for i := range item.Sizes {
			batch.Queue(sizeQuery,
				item.ID, item.Sizes[i].SizeID, item.Sizes[i].Name,
				item.Sizes[i].PriceMultiplier, i,
			)
		}

		br := tx.SendBatch(ctx, batch)
		defer br.Close()

		for i := range item.Sizes {
			if _, err := br.Exec(); err != nil {
				return fmt.Errorf("failed to insert size %d: %w", i, err)
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	r.logger.DebugContext(ctx, "menu item saved",
		slog.String("item_id", item.ID.String()),
		slog.String("name", item.Name))

	return nil
}
