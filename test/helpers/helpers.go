// test/helpers/helpers.go
package helpers

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/tableside-be/internal/adapters/db"
	"github.com/ammerola/tableside-be/internal/core/domain"
	"github.com/ammerola/tableside-be/internal/pkg/config"
	"github.com/ammerola/tableside-be/migrations"
)

// TestDB represents a test database instance
type TestDB struct {
	PgxPool  *pgxpool.Pool
	Database *db.Database
	Resource *dockertest.Resource
	Pool     *dockertest.Pool
	Config   *db.Config
}

// TestRedis represents a test Redis instance
type TestRedis struct {
	Client *redis.Client
	Server *miniredis.Miniredis
}

// TestLogger returns a test logger
func TestLogger() *slog.Logger {
	if testing.Verbose() {
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
}

// SetupTestDB creates a PostgreSQL container for integration tests
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	pool, err := dockertest.NewPool("")
	require.NoError(t, err, "Could not connect to Docker")

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env: []string{
			"POSTGRES_USER=test",
			"POSTGRES_PASSWORD=test",
			"POSTGRES_DB=test_tableside",
			"listen_addresses = '*'",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	require.NoError(t, err, "Could not start PostgreSQL container")

	t.Cleanup(func() {
		if err := pool.Purge(resource); err != nil {
			t.Logf("Could not purge resource: %s", err)
		}
	})

	dbConfig := &db.Config{
		Host:               "localhost",
		Port:               resource.GetPort("5432/tcp"),
		User:               "test",
		Password:           "test",
		Database:           "test_tableside",
		SSLMode:            "disable",
		MaxConnections:     5,
		MinConnections:     1,
		MaxConnLifetime:    time.Hour,
		MaxConnIdleTime:    time.Minute * 30,
		HealthCheckPeriod:  time.Minute,
		ConnectTimeout:     time.Second * 10,
		StatementCacheMode: "describe",
		EnableQueryLogging: testing.Verbose(),
	}

	// Wait for database to be ready
	var database *db.Database
	err = pool.Retry(func() error {
		ctx := context.Background()
		var err error
		database, err = db.NewDatabase(ctx, dbConfig, TestLogger())
		if err != nil {
			return err
		}
		return database.Ping(ctx)
	})
	require.NoError(t, err, "Could not connect to PostgreSQL")

	ctx := context.Background()
	migrationConfig := &db.MigrationConfig{
		DatabaseURL: fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=%s",
			dbConfig.User, dbConfig.Password, dbConfig.Host, dbConfig.Port,
			dbConfig.Database, dbConfig.SSLMode),
		EmbeddedSource: migrations.Files,
		TableName:      "schema_migrations",
		SchemaName:     "public",
	}

	err = db.RunMigrationsWithRetry(ctx, migrationConfig, TestLogger(), 3)
	require.NoError(t, err, "Could not run migrations")

	return &TestDB{
		PgxPool:  database.Pool(),
		Database: database,
		Resource: resource,
		Pool:     pool,
		Config:   dbConfig,
	}
}

// SetupTestRedis creates a mock Redis instance for testing
func SetupTestRedis(t *testing.T) *TestRedis {
	t.Helper()

	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})

	return &TestRedis{
		Client: client,
		Server: mr,
	}
}

// LoadTestConfig returns a test configuration
func LoadTestConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name:        "test-api",
			Environment: "test",
			Version:     "test",
			LogLevel:    "debug",
			LogFormat:   "text",
			Debug:       true,
		},
		Database: config.DatabaseConfig{
			Host:               "localhost",
			Port:               "5432",
			User:               "test",
			Password:           "test",
			Name:               "test_tableside",
			SSLMode:            "disable",
			MaxConnections:     10,
			MinConnections:     2,
			EnableQueryLogging: true,
		},
		Redis: config.RedisConfig{
			Host:     "localhost",
			Port:     "6379",
			DB:       0,
			TTL:      time.Hour,
			PoolSize: 10,
		},
		Cart: config.CartConfig{
			KioskUserID:        "kiosk",
			LastAddedWindow:    3 * time.Second,
			SnapshotTTL:        7 * 24 * time.Hour,
			DefaultDeliveryFee: decimal.NewFromFloat(5.00),
			SyncTimeout:        10 * time.Second,
			OrderHistoryLimit:  20,
		},
		Security: config.SecurityConfig{
			RateLimitRequests: 100,
			RateLimitDuration: time.Minute,
			AllowedOrigins:    []string{"*"},
			SecureHeaders:     false,
		},
		Server: config.ServerConfig{
			Host:         "localhost",
			Port:         "8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
	}
}

// CreateTestMenuItem creates a test menu item
func CreateTestMenuItem(overrides ...func(*domain.MenuItem)) *domain.MenuItem {
	item := &domain.MenuItem{
		ID:          uuid.New(),
		Name:        "Margherita Pizza",
		Description: "San Marzano tomatoes, fresh mozzarella, basil",
		BasePrice:   decimal.NewFromFloat(12.50),
		Category:    domain.CategoryMains,
		Available:   true,
		Sizes: []domain.SizeOption{
			{SizeID: "sm", Name: "Small", PriceMultiplier: decimal.NewFromFloat(0.8)},
			{SizeID: "md", Name: "Medium", PriceMultiplier: decimal.NewFromInt(1)},
			{SizeID: "lg", Name: "Large", PriceMultiplier: decimal.NewFromFloat(1.4)},
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	for _, override := range overrides {
		override(item)
	}

	return item
}

// CreateTestMenuItems creates multiple test menu items
func CreateTestMenuItems(count int) []domain.MenuItem {
	categories := []domain.ItemCategory{
		domain.CategoryAppetizers,
		domain.CategoryMains,
		domain.CategorySides,
		domain.CategoryDesserts,
		domain.CategoryDrinks,
	}

	items := make([]domain.MenuItem, count)
	for i := 0; i < count; i++ {
		items[i] = *CreateTestMenuItem(func(item *domain.MenuItem) {
			item.ID = uuid.New()
			item.Name = fmt.Sprintf("Test Dish %d", i+1)
			item.Category = categories[i%len(categories)]
			item.BasePrice = decimal.NewFromFloat(float64(8 + i))
		})
	}

	return items
}

// CompareCartLines compares two cart lines for testing
func CompareCartLines(t *testing.T, expected, actual *domain.CartLine) {
	t.Helper()

	require.Equal(t, expected.ItemID, actual.ItemID)
	require.Equal(t, expected.SizeID, actual.SizeID)
	require.Equal(t, expected.Name, actual.Name)
	require.Equal(t, expected.Quantity, actual.Quantity)
	require.True(t, expected.UnitPrice.Equal(actual.UnitPrice),
		"unit price mismatch: expected %s, got %s", expected.UnitPrice, actual.UnitPrice)
}

// AssertEventuallyWithTimeout asserts that a condition is met within a timeout
func AssertEventuallyWithTimeout(t *testing.T, condition func() bool, timeout time.Duration, msg string) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(100 * time.Millisecond)
	}

	t.Errorf("Condition not met within %v: %s", timeout, msg)
}

// TruncateAllTables truncates all tables in the test database
func TruncateAllTables(t *testing.T, db *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()
	tables := []string{
		"cart_items",
		"order_items",
		"orders",
		"menu_item_sizes",
		"menu_items",
	}

	for _, table := range tables {
		_, err := db.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table))
		require.NoError(t, err, "Failed to truncate table: %s", table)
	}
}

// SeedTestMenu seeds the database with menu items
func SeedTestMenu(t *testing.T, db *pgxpool.Pool, items []domain.MenuItem) {
	t.Helper()

	ctx := context.Background()

	for _, item := range items {
		_, err := db.Exec(ctx, `
			INSERT INTO menu_items (
				id, name, description, base_price, category, available, featured,
				created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			item.ID, item.Name, item.Description, item.BasePrice,
			item.Category, item.Available, item.Featured,
			item.CreatedAt, item.UpdatedAt,
		)
		require.NoError(t, err, "Failed to seed menu item")

		for i, size := range item.Sizes {
			_, err := db.Exec(ctx, `
				INSERT INTO menu_item_sizes (item_id, size_id, name, price_multiplier, position)
				VALUES ($1, $2, $3, $4, $5)`,
				item.ID, size.SizeID, size.Name, size.PriceMultiplier, i,
			)
			require.NoError(t, err, "Failed to seed menu item size")
		}
	}
}
