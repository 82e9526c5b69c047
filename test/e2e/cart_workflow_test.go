//go:build e2e
// +build e2e

package e2e_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/ammerola/tableside-be/internal/adapters/memory"
	redis_a "github.com/ammerola/tableside-be/internal/adapters/redis_adapter"
	"github.com/ammerola/tableside-be/internal/core/domain"
	"github.com/ammerola/tableside-be/internal/core/services"
	"github.com/ammerola/tableside-be/internal/handlers"
	"github.com/ammerola/tableside-be/test/helpers"
)

// CartE2ESuite drives the full ordering flow through the HTTP surface:
// login, browse, build a cart, check out, reorder, log out. Cart snapshots
// live in a real Redis (miniredis); the menu, order, and remote cart stores
// are in-memory fakes so the suite runs without Docker.
type CartE2ESuite struct {
	suite.Suite
	server    *httptest.Server
	client    *http.Client
	baseURL   string
	testRedis *helpers.TestRedis

	menu     *memory.MenuRepository
	remote   *memory.RemoteCartRepository
	dispatch *services.DirectDispatcher

	pizzaID string
	sodaID  string
}

func (s *CartE2ESuite) SetupSuite() {
	s.testRedis = helpers.SetupTestRedis(s.T())
	logger := helpers.TestLogger()

	s.menu = memory.NewMenuRepository()
	s.remote = memory.NewRemoteCartRepository()
	orders := memory.NewOrderRepository()
	localStore := redis_a.NewLocalStore(s.testRedis.Client, time.Hour, logger)

	// Real sync path: cart mutations run through the direct dispatcher into
	// the coordinator, same as a single-process deployment.
	pending := &deferredDispatcher{}
	carts := services.NewCartManager(localStore, orders, pending, logger)
	syncer := services.NewSyncCoordinator(carts, s.remote, logger)
	s.dispatch = services.NewDirectDispatcher(syncer, 5*time.Second, logger)
	pending.inner = s.dispatch

	reorder := services.NewReorderEngine(orders, s.menu, logger)

	cartHandler := handlers.NewCartHandler(carts, s.menu, logger)
	orderHandler := handlers.NewOrderHandler(carts, orders, reorder,
		decimal.NewFromInt(5), 20, logger)
	menuHandler := handlers.NewMenuHandler(s.menu, logger)
	sessionHandler := handlers.NewSessionHandler(carts, syncer, logger)

	mux := http.NewServeMux()
	apiV1 := "/api/v1"
	mux.HandleFunc("GET "+apiV1+"/cart", cartHandler.GetCart)
	mux.HandleFunc("DELETE "+apiV1+"/cart", cartHandler.ClearCart)
	mux.HandleFunc("POST "+apiV1+"/cart/items", cartHandler.AddItem)
	mux.HandleFunc("PUT "+apiV1+"/cart/items/{id}", cartHandler.UpdateQuantity)
	mux.HandleFunc("DELETE "+apiV1+"/cart/items/{id}", cartHandler.RemoveItem)
	mux.HandleFunc("PUT "+apiV1+"/cart/open", cartHandler.SetOpen)
	mux.HandleFunc("POST "+apiV1+"/orders", orderHandler.Checkout)
	mux.HandleFunc("GET "+apiV1+"/orders", orderHandler.ListOrders)
	mux.HandleFunc("GET "+apiV1+"/orders/{id}", orderHandler.GetOrder)
	mux.HandleFunc("POST "+apiV1+"/orders/{id}/reorder", orderHandler.Reorder)
	mux.HandleFunc("GET "+apiV1+"/menu", menuHandler.ListMenu)
	mux.HandleFunc("GET "+apiV1+"/menu/{id}", menuHandler.GetMenuItem)
	mux.HandleFunc("POST "+apiV1+"/menu", menuHandler.SaveMenuItem)
	mux.HandleFunc("POST "+apiV1+"/session/login", sessionHandler.Login)
	mux.HandleFunc("POST "+apiV1+"/session/logout", sessionHandler.Logout)

	s.server = httptest.NewServer(mux)
	s.client = &http.Client{Timeout: 10 * time.Second}
	s.baseURL = s.server.URL + "/api/v1"

	s.seedMenu()
}

func (s *CartE2ESuite) TearDownSuite() {
	s.server.Close()
}

// deferredDispatcher lets the cart manager be constructed before the real
// dispatcher exists; the coordinator needs the manager and the dispatcher
// needs the coordinator.
type deferredDispatcher struct {
	inner *services.DirectDispatcher
}

func (d *deferredDispatcher) RequestPush(identity domain.UserIdentity) {
	if d.inner != nil {
		d.inner.RequestPush(identity)
	}
}

func (d *deferredDispatcher) RequestClear(identity domain.UserIdentity) {
	if d.inner != nil {
		d.inner.RequestClear(identity)
	}
}

func (s *CartE2ESuite) seedMenu() {
	ctx := context.Background()

	pizza := helpers.CreateTestMenuItem()
	soda := helpers.CreateTestMenuItem(func(i *domain.MenuItem) {
		i.Name = "Italian Soda"
		i.Category = domain.CategoryDrinks
		i.BasePrice = decimal.NewFromFloat(3.50)
		i.Sizes = nil
	})
	s.Require().NoError(s.menu.Save(ctx, pizza))
	s.Require().NoError(s.menu.Save(ctx, soda))

	s.pizzaID = pizza.ID.String()
	s.sodaID = soda.ID.String()
}

func (s *CartE2ESuite) TestCompleteOrderingWorkflow() {
	const userID = "e2e-user"

	// 1. Login with an empty remote cart
	resp := s.makeRequest("POST", "/session/login", nil, userID)
	s.Equal(http.StatusOK, resp.StatusCode)

	var cart map[string]interface{}
	s.decodeResponse(resp, &cart)
	s.Equal(float64(0), cart["total_items"])

	// 2. Browse the menu
	resp = s.makeRequest("GET", "/menu", nil, userID)
	s.Equal(http.StatusOK, resp.StatusCode)

	var menuResp map[string]interface{}
	s.decodeResponse(resp, &menuResp)
	s.Len(menuResp["items"], 2)

	// 3. Add a large pizza and a soda
	resp = s.makeRequest("POST", "/cart/items", map[string]interface{}{
		"item_id": s.pizzaID, "size_id": "lg", "quantity": 1,
	}, userID)
	s.Equal(http.StatusOK, resp.StatusCode)

	resp = s.makeRequest("POST", "/cart/items", map[string]interface{}{
		"item_id": s.sodaID, "quantity": 2,
	}, userID)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.decodeResponse(resp, &cart)
	s.Equal(float64(3), cart["total_items"])

	// Background pushes land in the remote cart table
	s.dispatch.Wait()
	s.Len(s.remote.Rows(userID), 2)

	// 4. Bump the soda quantity
	resp = s.makeRequest("PUT", "/cart/items/"+s.sodaID, map[string]interface{}{
		"quantity": 3,
	}, userID)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.decodeResponse(resp, &cart)
	s.Equal(float64(4), cart["total_items"])

	// 5. Check out
	resp = s.makeRequest("POST", "/orders", map[string]interface{}{
		"address": "1 E2E Way",
	}, userID)
	s.Equal(http.StatusCreated, resp.StatusCode)

	var order map[string]interface{}
	s.decodeResponse(resp, &order)
	orderID := order["id"].(string)
	s.NotEmpty(orderID)

	// Cart is empty after checkout
	resp = s.makeRequest("GET", "/cart", nil, userID)
	s.decodeResponse(resp, &cart)
	s.Equal(float64(0), cart["total_items"])

	// 6. Order shows up in history with its lines
	resp = s.makeRequest("GET", "/orders", nil, userID)
	s.Equal(http.StatusOK, resp.StatusCode)

	var history map[string][]map[string]interface{}
	s.decodeResponse(resp, &history)
	s.Len(history["orders"], 1)

	resp = s.makeRequest("GET", "/orders/"+orderID, nil, userID)
	s.Equal(http.StatusOK, resp.StatusCode)

	var detail map[string]json.RawMessage
	s.decodeResponse(resp, &detail)
	var lines []map[string]interface{}
	s.Require().NoError(json.Unmarshal(detail["lines"], &lines))
	s.Len(lines, 2)

	// 7. Reorder restores the cart from history
	resp = s.makeRequest("POST", "/orders/"+orderID+"/reorder", nil, userID)
	s.Equal(http.StatusOK, resp.StatusCode)

	var reorderResult map[string]interface{}
	s.decodeResponse(resp, &reorderResult)
	s.Equal(true, reorderResult["success"])
	s.Equal(float64(2), reorderResult["added_items"])

	resp = s.makeRequest("GET", "/cart", nil, userID)
	s.decodeResponse(resp, &cart)
	s.Equal(float64(4), cart["total_items"])

	// 8. Logout clears local and remote state
	resp = s.makeRequest("POST", "/session/logout", nil, userID)
	s.Equal(http.StatusOK, resp.StatusCode)

	s.dispatch.Wait()
	s.Empty(s.remote.Rows(userID))

	resp = s.makeRequest("GET", "/cart", nil, userID)
	s.decodeResponse(resp, &cart)
	s.Equal(float64(0), cart["total_items"])
}

func (s *CartE2ESuite) TestLoginAdoptsRemoteCart() {
	const userID = "returning-user"
	ctx := context.Background()

	pizza, err := s.menu.FindItemByID(ctx, mustParseUUID(s.T(), s.pizzaID))
	s.Require().NoError(err)

	s.Require().NoError(s.remote.ReplaceAllRows(ctx, userID, []domain.RemoteCartRow{
		{UserID: userID, ItemID: pizza.ID, Name: pizza.Name, UnitPrice: pizza.BasePrice, Quantity: 2},
	}))

	resp := s.makeRequest("POST", "/session/login", nil, userID)
	s.Equal(http.StatusOK, resp.StatusCode)

	var cart map[string]interface{}
	s.decodeResponse(resp, &cart)
	s.Equal(float64(2), cart["total_items"])
}

func (s *CartE2ESuite) TestKioskCartStaysLocal() {
	resp := s.makeRequestWithRole("POST", "/cart/items", map[string]interface{}{
		"item_id": s.pizzaID, "quantity": 1,
	}, "kiosk", "kiosk")
	s.Equal(http.StatusOK, resp.StatusCode)

	s.dispatch.Wait()
	s.Empty(s.remote.Rows("kiosk"))
}

func (s *CartE2ESuite) TestMissingIdentityIsRejected() {
	req, err := http.NewRequest("GET", s.baseURL+"/cart", nil)
	s.Require().NoError(err)

	resp, err := s.client.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *CartE2ESuite) makeRequest(method, path string, body interface{}, userID string) *http.Response {
	return s.makeRequestWithRole(method, path, body, userID, "customer")
}

func (s *CartE2ESuite) makeRequestWithRole(method, path string, body interface{}, userID, role string) *http.Response {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, s.baseURL+path, reader)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(handlers.HeaderUserID, userID)
	req.Header.Set(handlers.HeaderUserRole, role)

	resp, err := s.client.Do(req)
	s.Require().NoError(err)
	return resp
}

func (s *CartE2ESuite) decodeResponse(resp *http.Response, v interface{}) {
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	s.Require().NoError(json.Unmarshal(data, v), fmt.Sprintf("body: %s", data))
}

func mustParseUUID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	if err != nil {
		t.Fatalf("invalid uuid %q: %v", s, err)
	}
	return id
}

func TestCartE2ESuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e suite in short mode")
	}
	suite.Run(t, new(CartE2ESuite))
}
