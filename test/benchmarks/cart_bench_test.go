package benchmarks

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ammerola/tableside-be/internal/adapters/memory"
	"github.com/ammerola/tableside-be/internal/core/domain"
	"github.com/ammerola/tableside-be/internal/core/services"
	"github.com/ammerola/tableside-be/test/helpers"
)

func newBenchStore(b *testing.B) *services.CartStore {
	b.Helper()

	manager := services.NewCartManager(
		memory.NewLocalStore(), memory.NewOrderRepository(),
		memory.NewSyncDispatcher(), helpers.TestLogger())
	return manager.StoreFor(context.Background(),
		domain.UserIdentity{ID: "bench-user", Role: domain.RoleCustomer})
}

func BenchmarkCartOperations(b *testing.B) {
	ctx := context.Background()
	items := helpers.CreateTestMenuItems(50)

	b.Run("Add", func(b *testing.B) {
		store := newBenchStore(b)
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			item := items[i%len(items)]
			_, _ = store.Add(ctx, &item, nil, 1)
		}
	})

	b.Run("AddWithSize", func(b *testing.B) {
		store := newBenchStore(b)
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			item := items[i%len(items)]
			var size *domain.SizeOption
			if len(item.Sizes) > 0 {
				size = &item.Sizes[i%len(item.Sizes)]
			}
			_, _ = store.Add(ctx, &item, size, 1)
		}
	})

	b.Run("SetQuantity", func(b *testing.B) {
		store := newBenchStore(b)
		var keys []domain.LineKey
		for i := range items {
			line, err := store.Add(ctx, &items[i], nil, 1)
			if err != nil {
				b.Fatalf("failed to seed cart: %v", err)
			}
			keys = append(keys, line.Key())
		}
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			store.SetQuantity(ctx, keys[i%len(keys)], i%9+1)
		}
	})

	b.Run("TotalPrice", func(b *testing.B) {
		store := newBenchStore(b)
		for i := range items {
			if _, err := store.Add(ctx, &items[i], nil, 2); err != nil {
				b.Fatalf("failed to seed cart: %v", err)
			}
		}
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_ = store.TotalPrice()
		}
	})

	b.Run("Lines", func(b *testing.B) {
		store := newBenchStore(b)
		for i := range items {
			if _, err := store.Add(ctx, &items[i], nil, 1); err != nil {
				b.Fatalf("failed to seed cart: %v", err)
			}
		}
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_ = store.Lines()
		}
	})
}

func BenchmarkReorder(b *testing.B) {
	ctx := context.Background()

	menu := memory.NewMenuRepository()
	orders := memory.NewOrderRepository()
	engine := services.NewReorderEngine(orders, menu, helpers.TestLogger())

	items := helpers.CreateTestMenuItems(10)
	var lines []domain.OrderLine
	for i := range items {
		if err := menu.Save(ctx, &items[i]); err != nil {
			b.Fatalf("failed to seed menu: %v", err)
		}
		lines = append(lines, domain.OrderLine{
			ItemID:    items[i].ID,
			Name:      items[i].Name,
			UnitPrice: items[i].BasePrice,
			Quantity:  i%3 + 1,
		})
	}

	order := domain.NewOrder("bench-user", decimal.NewFromInt(100), domain.OrderMeta{}, time.Now())
	if err := orders.CreateHeader(ctx, order); err != nil {
		b.Fatalf("failed to create order: %v", err)
	}
	for i := range lines {
		lines[i].OrderID = order.ID
	}
	if err := orders.CreateLines(ctx, lines); err != nil {
		b.Fatalf("failed to create order lines: %v", err)
	}

	discard := func(_ context.Context, item *domain.MenuItem, size *domain.SizeOption, qty int) (domain.CartLine, error) {
		return item.LineFor(size, qty), nil
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		result, err := engine.Reorder(ctx, order.ID, discard)
		if err != nil {
			b.Fatalf("reorder failed: %v", err)
		}
		if !result.Success {
			b.Fatalf("unexpected partial reorder: %+v", result)
		}
	}
}
