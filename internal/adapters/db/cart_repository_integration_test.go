//go:build integration
// +build integration

package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/ammerola/tableside-be/internal/adapters/db"
	"github.com/ammerola/tableside-be/internal/core/domain"
	"github.com/ammerola/tableside-be/internal/core/ports"
	"github.com/ammerola/tableside-be/test/helpers"
)

type CartRepositorySuite struct {
	suite.Suite
	testDB *helpers.TestDB
	carts  ports.RemoteCartRepository
	orders ports.OrderRepository
	menu   ports.MenuRepository
	ctx    context.Context
}

func (s *CartRepositorySuite) SetupSuite() {
	s.testDB = helpers.SetupTestDB(s.T())
	s.carts = db.NewRemoteCartRepository(s.testDB.Database, helpers.TestLogger())
	s.orders = db.NewOrderRepository(s.testDB.Database, helpers.TestLogger())
	s.menu = db.NewMenuRepository(s.testDB.Database, helpers.TestLogger())
	s.ctx = context.Background()
}

func (s *CartRepositorySuite) SetupTest() {
	helpers.TruncateAllTables(s.T(), s.testDB.PgxPool)
}

func (s *CartRepositorySuite) rowsFor(userID string, count int) []domain.RemoteCartRow {
	rows := make([]domain.RemoteCartRow, 0, count)
	for _, item := range helpers.CreateTestMenuItems(count) {
		rows = append(rows, domain.RowFromLine(userID, item.LineFor(nil, 1)))
	}
	return rows
}

func (s *CartRepositorySuite) TestReplaceAndListRoundTrip() {
	item := helpers.CreateTestMenuItem()
	line := item.LineFor(&item.Sizes[2], 2)

	err := s.carts.ReplaceAllRows(s.ctx, "user-1", []domain.RemoteCartRow{
		domain.RowFromLine("user-1", line),
	})
	s.Require().NoError(err)

	rows, err := s.carts.ListRows(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Require().Len(rows, 1)

	s.Equal("user-1", rows[0].UserID)
	s.Equal(item.ID, rows[0].ItemID)
	s.Equal("lg", rows[0].SizeID)
	s.Equal("Large", rows[0].SizeName)
	s.Equal(item.Name, rows[0].Name)
	s.Equal(2, rows[0].Quantity)
	s.True(line.UnitPrice.Equal(rows[0].UnitPrice),
		"expected %s, got %s", line.UnitPrice, rows[0].UnitPrice)
}

func (s *CartRepositorySuite) TestReplaceIsWholesale() {
	s.Require().NoError(s.carts.ReplaceAllRows(s.ctx, "user-1", s.rowsFor("user-1", 3)))

	// Replacing with a smaller set drops the old rows entirely
	replacement := s.rowsFor("user-1", 1)
	s.Require().NoError(s.carts.ReplaceAllRows(s.ctx, "user-1", replacement))

	rows, err := s.carts.ListRows(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.Equal(replacement[0].ItemID, rows[0].ItemID)
}

func (s *CartRepositorySuite) TestReplaceWithEmptySetClears() {
	s.Require().NoError(s.carts.ReplaceAllRows(s.ctx, "user-1", s.rowsFor("user-1", 2)))
	s.Require().NoError(s.carts.ReplaceAllRows(s.ctx, "user-1", nil))

	rows, err := s.carts.ListRows(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Empty(rows)
}

func (s *CartRepositorySuite) TestListPreservesInsertionOrder() {
	inserted := s.rowsFor("user-1", 5)
	s.Require().NoError(s.carts.ReplaceAllRows(s.ctx, "user-1", inserted))

	rows, err := s.carts.ListRows(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Require().Len(rows, 5)
	for i := range inserted {
		s.Equal(inserted[i].ItemID, rows[i].ItemID, "row %d out of order", i)
	}
}

func (s *CartRepositorySuite) TestUsersAreIsolated() {
	s.Require().NoError(s.carts.ReplaceAllRows(s.ctx, "user-1", s.rowsFor("user-1", 2)))
	s.Require().NoError(s.carts.ReplaceAllRows(s.ctx, "user-2", s.rowsFor("user-2", 1)))

	s.Require().NoError(s.carts.DeleteAllRows(s.ctx, "user-1"))

	rows, err := s.carts.ListRows(s.ctx, "user-1")
	s.Require().NoError(err)
	s.Empty(rows)

	rows, err = s.carts.ListRows(s.ctx, "user-2")
	s.Require().NoError(err)
	s.Len(rows, 1)
}

func (s *CartRepositorySuite) TestDeleteEmptySetIsNoop() {
	s.NoError(s.carts.DeleteAllRows(s.ctx, "nobody"))
}

func (s *CartRepositorySuite) TestOrderHeaderAndLines() {
	item := helpers.CreateTestMenuItem()
	order := domain.NewOrder("user-1", decimal.NewFromInt(30), domain.OrderMeta{
		Address:     "12 Main St",
		DeliveryFee: decimal.NewFromInt(5),
	}, time.Now())

	s.Require().NoError(s.orders.CreateHeader(s.ctx, order))
	s.Require().NoError(s.orders.CreateLines(s.ctx, domain.OrderLinesFromCart(order.ID, []domain.CartLine{
		item.LineFor(&item.Sizes[0], 2),
		item.LineFor(nil, 1),
	})))

	found, err := s.orders.FindByID(s.ctx, order.ID)
	s.Require().NoError(err)
	s.Require().NotNil(found)
	s.Equal("user-1", found.UserID)
	s.Equal(domain.OrderStatusPending, found.Status)
	s.Equal("12 Main St", found.Address)
	s.True(decimal.NewFromInt(35).Equal(found.Total),
		"expected 35, got %s", found.Total)

	lines, err := s.orders.FindLines(s.ctx, order.ID)
	s.Require().NoError(err)
	s.Require().Len(lines, 2)
	s.Equal("sm", lines[0].SizeID)
	s.Equal("", lines[1].SizeID)
}

func (s *CartRepositorySuite) TestDeleteHeaderCompensation() {
	order := domain.NewOrder("user-1", decimal.NewFromInt(10), domain.OrderMeta{}, time.Now())
	s.Require().NoError(s.orders.CreateHeader(s.ctx, order))

	s.Require().NoError(s.orders.DeleteHeader(s.ctx, order.ID))

	found, err := s.orders.FindByID(s.ctx, order.ID)
	s.Require().NoError(err)
	s.Nil(found)
}

func (s *CartRepositorySuite) TestFindByUserOrdersNewestFirst() {
	for i := 0; i < 3; i++ {
		order := domain.NewOrder("user-1", decimal.NewFromInt(int64(10+i)), domain.OrderMeta{}, time.Now())
		s.Require().NoError(s.orders.CreateHeader(s.ctx, order))
		time.Sleep(10 * time.Millisecond)
	}

	orders, err := s.orders.FindByUser(s.ctx, "user-1", 2)
	s.Require().NoError(err)
	s.Require().Len(orders, 2)
	s.True(orders[0].CreatedAt.After(orders[1].CreatedAt) ||
		orders[0].CreatedAt.Equal(orders[1].CreatedAt))
}

func (s *CartRepositorySuite) TestMenuSaveAndFind() {
	item := helpers.CreateTestMenuItem()
	s.Require().NoError(s.menu.Save(s.ctx, item))

	found, err := s.menu.FindItemByID(s.ctx, item.ID)
	s.Require().NoError(err)
	s.Require().NotNil(found)
	s.Equal(item.Name, found.Name)
	s.Require().Len(found.Sizes, 3)
	s.Equal("sm", found.Sizes[0].SizeID)

	missing, err := s.menu.FindItemByID(s.ctx, uuid.New())
	s.Require().NoError(err)
	s.Nil(missing)
}

func (s *CartRepositorySuite) TestMenuListFilters() {
	items := helpers.CreateTestMenuItems(6)
	for i := range items {
		s.Require().NoError(s.menu.Save(s.ctx, &items[i]))
	}

	all, err := s.menu.List(s.ctx, ports.MenuListParams{})
	s.Require().NoError(err)
	s.Len(all, 6)

	mains, err := s.menu.List(s.ctx, ports.MenuListParams{Category: string(domain.CategoryMains)})
	s.Require().NoError(err)
	for _, m := range mains {
		s.Equal(domain.CategoryMains, m.Category)
	}
}

func TestCartRepositorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration suite in short mode")
	}
	suite.Run(t, new(CartRepositorySuite))
}
