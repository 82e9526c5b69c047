package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ammerola/tableside-be/internal/adapters/db"
	"github.com/ammerola/tableside-be/internal/core/domain"
	"github.com/ammerola/tableside-be/internal/core/ports"
	"github.com/ammerola/tableside-be/migrations"
)

// menuFile is the on-disk JSON format accepted by -menu.
type menuFile struct {
	Items []menuFileItem `json:"items"`
}

type menuFileItem struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	BasePrice   decimal.Decimal `json:"base_price"`
	Category    string          `json:"category"`
	Available   *bool           `json:"available,omitempty"`
	Featured    bool            `json:"featured,omitempty"`
	Sizes       []menuFileSize  `json:"sizes,omitempty"`
}

type menuFileSize struct {
	SizeID          string          `json:"size_id"`
	Name            string          `json:"name"`
	PriceMultiplier decimal.Decimal `json:"price_multiplier"`
}

func (f menuFileItem) toDomain() *domain.MenuItem {
	item := &domain.MenuItem{
		Name:        f.Name,
		Description: f.Description,
		BasePrice:   f.BasePrice,
		Category:    domain.ItemCategory(f.Category),
		Available:   true,
		Featured:    f.Featured,
	}
	if f.Available != nil {
		item.Available = *f.Available
	}
	for _, s := range f.Sizes {
		item.Sizes = append(item.Sizes, domain.SizeOption{
			SizeID:          s.SizeID,
			Name:            s.Name,
			PriceMultiplier: s.PriceMultiplier,
		})
	}
	return item
}

func main() {
	var (
		menuPath = flag.String("menu", "", "JSON file with menu items (built-in catalog when empty)")
		logLevel = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		dryRun   = flag.Bool("dry-run", false, "Preview changes without modifying database")
		migrate  = flag.Bool("migrate", true, "Run schema migrations before seeding")
	)
	flag.Parse()

	var slogLevel slog.Level
	switch *logLevel {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slogLevel}))
	slog.SetDefault(logger)

	items, err := loadMenu(*menuPath)
	if err != nil {
		logger.Error("failed to load menu", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx := context.Background()

	var menuRepo ports.MenuRepository
	if !*dryRun {
		dbURL := fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=%s",
			getEnv("DB_USER", "tableside"),
			getEnv("DB_PASSWORD", "tableside_dev_2025"),
			getEnv("DB_HOST", "localhost"),
			getEnv("DB_PORT", "5432"),
			getEnv("DB_NAME", "tableside_orders"),
			getEnv("DB_SSL_MODE", "disable"),
		)

		if *migrate {
			migrationConfig := &db.MigrationConfig{
				DatabaseURL:    dbURL,
				EmbeddedSource: migrations.Files,
				TableName:      "schema_migrations",
				SchemaName:     "public",
			}
			if err := db.RunMigrationsWithRetry(ctx, migrationConfig, logger, 3); err != nil {
				logger.Error("failed to run migrations", slog.String("error", err.Error()))
				os.Exit(1)
			}
		}

		database, err := db.NewDatabase(ctx, &db.Config{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "tableside"),
			Password:       getEnv("DB_PASSWORD", "tableside_dev_2025"),
			Database:       getEnv("DB_NAME", "tableside_orders"),
			SSLMode:        getEnv("DB_SSL_MODE", "disable"),
			MaxConnections: 5,
			MinConnections: 1,
			ConnectTimeout: 10 * time.Second,
		}, logger)
		if err != nil {
			logger.Error("failed to connect to database", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer database.Close()

		menuRepo = db.NewMenuRepository(database, logger)
	}

	seeded := 0
	failed := []string{}

	for i, item := range items {
		fmt.Printf("PROGRESS: Seeding %d/%d: %s\n", i+1, len(items), item.Name)

		if err := item.Validate(); err != nil {
			logger.Error("invalid menu item",
				slog.String("name", item.Name),
				slog.String("error", err.Error()))
			failed = append(failed, item.Name)
			continue
		}

		if !*dryRun {
			if err := menuRepo.Save(ctx, item); err != nil {
				logger.Error("failed to save menu item",
					slog.String("name", item.Name),
					slog.String("error", err.Error()))
				failed = append(failed, item.Name)
				continue
			}
		}
		seeded++
	}

	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("MENU SEEDING SUMMARY")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Items Seeded: %d/%d\n", seeded, len(items))
	if len(failed) > 0 {
		fmt.Printf("Failed Items (%d):\n", len(failed))
		for _, name := range failed {
			fmt.Printf("  - %s\n", name)
		}
	}

	logger.Info("seed operation completed",
		slog.Int("items_seeded", seeded),
		slog.Int("items_failed", len(failed)))

	if *dryRun {
		fmt.Println("\n[DRY RUN] No changes were made to the database")
	}
}

func loadMenu(path string) ([]*domain.MenuItem, error) {
	if path == "" {
		return defaultCatalog(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read menu file: %w", err)
	}

	var file menuFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse menu file: %w", err)
	}

	items := make([]*domain.MenuItem, 0, len(file.Items))
	for _, f := range file.Items {
		items = append(items, f.toDomain())
	}
	return items, nil
}

// defaultCatalog is a small realistic menu for development environments.
func defaultCatalog() []*domain.MenuItem {
	pizzaSizes := []domain.SizeOption{
		{SizeID: "sm", Name: "Small 10\"", PriceMultiplier: decimal.NewFromFloat(0.8)},
		{SizeID: "md", Name: "Medium 12\"", PriceMultiplier: decimal.NewFromInt(1)},
		{SizeID: "lg", Name: "Large 16\"", PriceMultiplier: decimal.NewFromFloat(1.4)},
	}
	drinkSizes := []domain.SizeOption{
		{SizeID: "reg", Name: "Regular", PriceMultiplier: decimal.NewFromInt(1)},
		{SizeID: "lg", Name: "Large", PriceMultiplier: decimal.NewFromFloat(1.3)},
	}

	return []*domain.MenuItem{
		{
			Name:        "Garlic Knots",
			Description: "Six knots baked with garlic butter and parmesan",
			BasePrice:   decimal.NewFromFloat(6.50),
			Category:    domain.CategoryAppetizers,
			Available:   true,
		},
		{
			Name:        "Burrata",
			Description: "Creamy burrata with heirloom tomatoes and basil oil",
			BasePrice:   decimal.NewFromFloat(13.00),
			Category:    domain.CategoryAppetizers,
			Available:   true,
			Featured:    true,
		},
		{
			Name:        "Margherita Pizza",
			Description: "San Marzano tomatoes, fresh mozzarella, basil",
			BasePrice:   decimal.NewFromFloat(14.00),
			Category:    domain.CategoryMains,
			Available:   true,
			Featured:    true,
			Sizes:       pizzaSizes,
		},
		{
			Name:        "Pepperoni Pizza",
			Description: "Cup-and-char pepperoni with aged mozzarella",
			BasePrice:   decimal.NewFromFloat(16.00),
			Category:    domain.CategoryMains,
			Available:   true,
			Sizes:       pizzaSizes,
		},
		{
			Name:        "Rigatoni alla Vodka",
			Description: "Tomato cream sauce, pecorino, chili flake",
			BasePrice:   decimal.NewFromFloat(17.50),
			Category:    domain.CategoryMains,
			Available:   true,
		},
		{
			Name:        "Caesar Salad",
			Description: "Romaine, house dressing, focaccia croutons",
			BasePrice:   decimal.NewFromFloat(9.00),
			Category:    domain.CategorySides,
			Available:   true,
		},
		{
			Name:        "Tiramisu",
			Description: "Espresso-soaked ladyfingers, mascarpone cream",
			BasePrice:   decimal.NewFromFloat(8.00),
			Category:    domain.CategoryDesserts,
			Available:   true,
		},
		{
			Name:        "Italian Soda",
			Description: "Sparkling water with house syrups",
			BasePrice:   decimal.NewFromFloat(3.50),
			Category:    domain.CategoryDrinks,
			Available:   true,
			Sizes:       drinkSizes,
		},
		{
			Name:        "Espresso",
			BasePrice:   decimal.NewFromFloat(3.00),
			Category:    domain.CategoryDrinks,
			Available:   true,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
