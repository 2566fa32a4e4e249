package controller

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/bookstore-backend/internal/app/model"
	"github.com/ikkim/bookstore-backend/internal/app/repository"
	"github.com/ikkim/bookstore-backend/internal/app/service"
	"github.com/ikkim/bookstore-backend/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type orderTestEnv struct {
	db        *gorm.DB
	cartCtrl  *CartController
	orderCtrl *OrderController
	buyer     *model.User
	other     *model.User
	admin     *model.User
	book      *model.Book
}

func setupOrderControllerTest(t *testing.T) *orderTestEnv {
	testDB := setupControllerDB(t)

	cartRepo := repository.NewCartRepository(testDB)
	bookRepo := repository.NewBookRepository(testDB)
	orderRepo := repository.NewOrderRepository(testDB)

	buyer := createUser(t, testDB, "buyer", model.RoleUser)
	return &orderTestEnv{
		db:        testDB,
		cartCtrl:  NewCartController(service.NewCartService(cartRepo, bookRepo)),
		orderCtrl: NewOrderController(service.NewOrderService(testDB, orderRepo, cartRepo, bookRepo, events.Noop{})),
		buyer:     buyer,
		other:     createUser(t, testDB, "other", model.RoleUser),
		admin:     createUser(t, testDB, "admin", model.RoleAdmin),
		book:      createBook(t, testDB, buyer, "Book A", "9780000000020", "19.99", 10),
	}
}

func (env *orderTestEnv) routerAs(user *model.User) *gin.Engine {
	router := gin.New()
	router.Use(as(user))
	router.POST("/cart/add_item/", env.cartCtrl.AddItem)
	router.GET("/orders/", env.orderCtrl.ListOrders)
	router.POST("/orders/", env.orderCtrl.CreateOrder)
	router.GET("/orders/:id/", env.orderCtrl.GetOrder)
	router.DELETE("/orders/:id/", env.orderCtrl.DeleteOrder)
	router.PATCH("/orders/:id/status/", env.orderCtrl.UpdateStatus)
	return router
}

func (env *orderTestEnv) placeOrder(t *testing.T, quantity int) map[string]interface{} {
	t.Helper()
	router := env.routerAs(env.buyer)
	w := perform(t, router, http.MethodPost, "/cart/add_item/", map[string]interface{}{"book_id": env.book.ID, "quantity": quantity})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = perform(t, router, http.MethodPost, "/orders/", map[string]string{"shipping_address": "1 Library Lane"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeObject(t, w)
}

func TestOrderController_CreateOrder(t *testing.T) {
	env := setupOrderControllerTest(t)

	order := env.placeOrder(t, 2)
	assert.Equal(t, "39.98", order["total_price"])
	assert.Equal(t, "pending", order["status"])
	assert.Equal(t, "1 Library Lane", order["shipping_address"])

	items := order["items"].([]interface{})
	require.Len(t, items, 1)
	item := items[0].(map[string]interface{})
	assert.Equal(t, "19.99", item["price"])
	assert.Equal(t, float64(2), item["quantity"])

	var book model.Book
	require.NoError(t, env.db.First(&book, env.book.ID).Error)
	assert.Equal(t, 8, book.StockQuantity)

	var remaining int64
	env.db.Model(&model.CartItem{}).Count(&remaining)
	assert.Zero(t, remaining)
}

func TestOrderController_CreateOrder_EmptyCart(t *testing.T) {
	env := setupOrderControllerTest(t)

	w := perform(t, env.routerAs(env.buyer), http.MethodPost, "/orders/", map[string]string{"shipping_address": "1 Library Lane"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	response := decodeObject(t, w)
	assert.Equal(t, "ORDER_EMPTY_CART", response["error"])
	assert.Equal(t, "Cannot place order with empty cart", response["message"])

	var orders int64
	env.db.Model(&model.Order{}).Count(&orders)
	assert.Zero(t, orders)
}

func TestOrderController_CreateOrder_InsufficientStock(t *testing.T) {
	env := setupOrderControllerTest(t)
	router := env.routerAs(env.buyer)

	require.Equal(t, http.StatusOK, perform(t, router, http.MethodPost, "/cart/add_item/", map[string]interface{}{"book_id": env.book.ID, "quantity": 11}).Code)

	w := perform(t, router, http.MethodPost, "/orders/", map[string]string{"shipping_address": "1 Library Lane"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ORDER_INSUFFICIENT_STOCK", decodeObject(t, w)["error"])

	var book model.Book
	require.NoError(t, env.db.First(&book, env.book.ID).Error)
	assert.Equal(t, 10, book.StockQuantity)
}

func TestOrderController_CreateOrder_MissingAddress(t *testing.T) {
	env := setupOrderControllerTest(t)

	w := perform(t, env.routerAs(env.buyer), http.MethodPost, "/orders/", map[string]string{})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, fields(t, w), "shipping_address")
}

func TestOrderController_ListAndGet(t *testing.T) {
	env := setupOrderControllerTest(t)
	first := env.placeOrder(t, 1)
	second := env.placeOrder(t, 1)

	w := perform(t, env.routerAs(env.buyer), http.MethodGet, "/orders/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	orders := decodeList(t, w)
	require.Len(t, orders, 2)
	assert.Equal(t, second["id"], orders[0]["id"])
	assert.Equal(t, first["id"], orders[1]["id"])

	path := "/orders/" + uintToString(uint(first["id"].(float64))) + "/"
	assert.Equal(t, http.StatusOK, perform(t, env.routerAs(env.buyer), http.MethodGet, path, nil).Code)
	assert.Equal(t, http.StatusNotFound, perform(t, env.routerAs(env.other), http.MethodGet, path, nil).Code)

	w = perform(t, env.routerAs(env.other), http.MethodGet, "/orders/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeList(t, w))
}

func TestOrderController_UpdateStatus(t *testing.T) {
	env := setupOrderControllerTest(t)
	order := env.placeOrder(t, 1)
	path := "/orders/" + uintToString(uint(order["id"].(float64))) + "/status/"

	w := perform(t, env.routerAs(env.admin), http.MethodPatch, path, map[string]string{"status": "shipped"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "shipped", decodeObject(t, w)["status"])

	w = perform(t, env.routerAs(env.admin), http.MethodPatch, path, map[string]string{"status": "lost"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ORDER_INVALID_STATUS", decodeObject(t, w)["error"])

	w = perform(t, env.routerAs(env.admin), http.MethodPatch, "/orders/999/status/", map[string]string{"status": "shipped"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOrderController_DeleteOrder(t *testing.T) {
	env := setupOrderControllerTest(t)
	order := env.placeOrder(t, 1)
	path := "/orders/" + uintToString(uint(order["id"].(float64))) + "/"

	assert.Equal(t, http.StatusForbidden, perform(t, env.routerAs(env.other), http.MethodDelete, path, nil).Code)
	assert.Equal(t, http.StatusNoContent, perform(t, env.routerAs(env.buyer), http.MethodDelete, path, nil).Code)
	assert.Equal(t, http.StatusNotFound, perform(t, env.routerAs(env.buyer), http.MethodDelete, path, nil).Code)

	var items int64
	env.db.Model(&model.OrderItem{}).Count(&items)
	assert.Zero(t, items)

	// stock is not restored
	var book model.Book
	require.NoError(t, env.db.First(&book, env.book.ID).Error)
	assert.Equal(t, 9, book.StockQuantity)
}
