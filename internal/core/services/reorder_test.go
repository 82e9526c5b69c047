package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/tableside-be/internal/adapters/memory"
	"github.com/ammerola/tableside-be/internal/core/domain"
	"github.com/ammerola/tableside-be/internal/core/services"
	"github.com/ammerola/tableside-be/test/helpers"
)

type reorderFixture struct {
	orders *memory.OrderRepository
	menu   *memory.MenuRepository
	engine *services.ReorderEngine
}

func newReorderFixture(t *testing.T) *reorderFixture {
	t.Helper()

	f := &reorderFixture{
		orders: memory.NewOrderRepository(),
		menu:   memory.NewMenuRepository(),
	}
	f.engine = services.NewReorderEngine(f.orders, f.menu, helpers.TestLogger())
	return f
}

// seedOrder stores a historical order whose lines reference the given items.
func (f *reorderFixture) seedOrder(t *testing.T, lines []domain.OrderLine) uuid.UUID {
	t.Helper()

	ctx := context.Background()
	order := domain.NewOrder("user-1", decimal.NewFromInt(40), domain.OrderMeta{}, time.Now())
	require.NoError(t, f.orders.CreateHeader(ctx, order))

	for i := range lines {
		lines[i].OrderID = order.ID
	}
	require.NoError(t, f.orders.CreateLines(ctx, lines))
	return order.ID
}

// collectingAdd returns an AddFunc that appends to the given slice.
func collectingAdd(added *[]domain.CartLine) services.AddFunc {
	return func(_ context.Context, item *domain.MenuItem, size *domain.SizeOption, qty int) (domain.CartLine, error) {
		line := item.LineFor(size, qty)
		*added = append(*added, line)
		return line, nil
	}
}

func TestReorderEngine_FullRestore(t *testing.T) {
	ctx := context.Background()
	f := newReorderFixture(t)

	pizza := helpers.CreateTestMenuItem()
	soda := helpers.CreateTestMenuItem(func(i *domain.MenuItem) {
		i.Name = "Soda"
		i.Category = domain.CategoryDrinks
		i.Sizes = nil
	})
	require.NoError(t, f.menu.Save(ctx, pizza))
	require.NoError(t, f.menu.Save(ctx, soda))

	orderID := f.seedOrder(t, []domain.OrderLine{
		{ItemID: pizza.ID, SizeID: "lg", SizeName: "Large", Name: pizza.Name, UnitPrice: decimal.NewFromInt(17), Quantity: 2},
		{ItemID: soda.ID, Name: "Soda", UnitPrice: decimal.NewFromInt(3), Quantity: 1},
	})

	var added []domain.CartLine
	result, err := f.engine.Reorder(ctx, orderID, collectingAdd(&added))
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 2, result.AddedItems)
	assert.Equal(t, 2, result.TotalItems)
	assert.Empty(t, result.UnavailableItems)

	require.Len(t, added, 2)
	assert.Equal(t, "lg", added[0].SizeID)
	assert.Equal(t, 2, added[0].Quantity)
	// Unit price is recomputed from the live menu, not the historical price
	assert.True(t, pizza.BasePrice.Mul(decimal.NewFromFloat(1.4)).Equal(added[0].UnitPrice),
		"expected live size-adjusted price, got %s", added[0].UnitPrice)
}

func TestReorderEngine_PartialFailure(t *testing.T) {
	ctx := context.Background()
	f := newReorderFixture(t)

	available := helpers.CreateTestMenuItem()
	retired := helpers.CreateTestMenuItem(func(i *domain.MenuItem) {
		i.Name = "Seasonal Special"
		i.Available = false
	})
	require.NoError(t, f.menu.Save(ctx, available))
	require.NoError(t, f.menu.Save(ctx, retired))

	deletedID := uuid.New()
	orderID := f.seedOrder(t, []domain.OrderLine{
		{ItemID: available.ID, Name: available.Name, UnitPrice: decimal.NewFromInt(12), Quantity: 1},
		{ItemID: retired.ID, Name: "Seasonal Special", UnitPrice: decimal.NewFromInt(9), Quantity: 1},
		{ItemID: deletedID, Name: "Removed Dish", UnitPrice: decimal.NewFromInt(7), Quantity: 1},
	})

	var added []domain.CartLine
	result, err := f.engine.Reorder(ctx, orderID, collectingAdd(&added))
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.AddedItems)
	assert.Equal(t, 3, result.TotalItems)
	require.Len(t, result.UnavailableItems, 2)

	assert.Equal(t, "Seasonal Special", result.UnavailableItems[0].Name)
	assert.Equal(t, services.ReasonOutOfStock, result.UnavailableItems[0].Reason)
	assert.Equal(t, "Removed Dish", result.UnavailableItems[1].Name)
	assert.Equal(t, services.ReasonOutOfStock, result.UnavailableItems[1].Reason)
}

func TestReorderEngine_SizeNoLongerOffered(t *testing.T) {
	ctx := context.Background()
	f := newReorderFixture(t)

	// The item survives but dropped its extra-large option
	item := helpers.CreateTestMenuItem()
	require.NoError(t, f.menu.Save(ctx, item))

	orderID := f.seedOrder(t, []domain.OrderLine{
		{ItemID: item.ID, SizeID: "xl", SizeName: "Extra Large", Name: item.Name, UnitPrice: decimal.NewFromInt(22), Quantity: 1},
	})

	var added []domain.CartLine
	result, err := f.engine.Reorder(ctx, orderID, collectingAdd(&added))
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, 0, result.AddedItems)
	require.Len(t, result.UnavailableItems, 1)
	assert.Equal(t, services.ReasonSizeUnavailable, result.UnavailableItems[0].Reason)
	// No silent substitution with a different size
	assert.Empty(t, added)
}

func TestReorderEngine_AddFailureReportsOutOfStock(t *testing.T) {
	ctx := context.Background()
	f := newReorderFixture(t)

	item := helpers.CreateTestMenuItem()
	require.NoError(t, f.menu.Save(ctx, item))

	orderID := f.seedOrder(t, []domain.OrderLine{
		{ItemID: item.ID, Name: item.Name, UnitPrice: decimal.NewFromInt(12), Quantity: 1},
	})

	failingAdd := func(context.Context, *domain.MenuItem, *domain.SizeOption, int) (domain.CartLine, error) {
		return domain.CartLine{}, fmt.Errorf("cart rejected line")
	}

	result, err := f.engine.Reorder(ctx, orderID, failingAdd)
	require.NoError(t, err)

	assert.False(t, result.Success)
	require.Len(t, result.UnavailableItems, 1)
	assert.Equal(t, services.ReasonOutOfStock, result.UnavailableItems[0].Reason)
}

func TestReorderEngine_MenuLookupFailure(t *testing.T) {
	ctx := context.Background()
	f := newReorderFixture(t)
	f.menu.FailFind = fmt.Errorf("menu service down")

	orderID := f.seedOrder(t, []domain.OrderLine{
		{ItemID: uuid.New(), Name: "Anything", UnitPrice: decimal.NewFromInt(5), Quantity: 1},
	})

	var added []domain.CartLine
	result, err := f.engine.Reorder(ctx, orderID, collectingAdd(&added))
	require.NoError(t, err)

	// A lookup failure degrades to an unavailable line, not a hard error
	assert.False(t, result.Success)
	require.Len(t, result.UnavailableItems, 1)
	assert.Equal(t, services.ReasonOutOfStock, result.UnavailableItems[0].Reason)
}

func TestReorderEngine_OrderFetchFailureIsHardError(t *testing.T) {
	ctx := context.Background()
	f := newReorderFixture(t)
	f.orders.FailFindLines = fmt.Errorf("connection refused")

	var added []domain.CartLine
	_, err := f.engine.Reorder(ctx, uuid.New(), collectingAdd(&added))
	require.Error(t, err)
	assert.Empty(t, added)
}

func TestReorderEngine_IntoRealCartStore(t *testing.T) {
	ctx := context.Background()
	f := newReorderFixture(t)

	item := helpers.CreateTestMenuItem()
	require.NoError(t, f.menu.Save(ctx, item))

	orderID := f.seedOrder(t, []domain.OrderLine{
		{ItemID: item.ID, SizeID: "md", SizeName: "Medium", Name: item.Name, UnitPrice: decimal.NewFromInt(12), Quantity: 2},
	})

	cart := newCartFixture(t, customer())
	result, err := f.engine.Reorder(ctx, orderID, cart.store.Add)
	require.NoError(t, err)

	assert.True(t, result.Success)
	lines := cart.store.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, "md", lines[0].SizeID)
	assert.Equal(t, 2, lines[0].Quantity)
}
