package service

import (
	"context"
	"errors"
	"testing"

	"github.com/ikkim/bookstore-backend/internal/app/model"
	"github.com/ikkim/bookstore-backend/internal/app/repository"
	"github.com/ikkim/bookstore-backend/internal/events"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type orderTestEnv struct {
	db        *gorm.DB
	orders    OrderService
	carts     CartService
	publisher *recordingPublisher
	user      *model.User
}

func setupOrderServiceTest(t *testing.T) *orderTestEnv {
	testDB := setupServiceDB(t)

	bookRepo := repository.NewBookRepository(testDB)
	cartRepo := repository.NewCartRepository(testDB)
	publisher := &recordingPublisher{}

	return &orderTestEnv{
		db:        testDB,
		orders:    NewOrderService(testDB, repository.NewOrderRepository(testDB), cartRepo, bookRepo, publisher),
		carts:     NewCartService(cartRepo, bookRepo),
		publisher: publisher,
		user:      createUserWithCart(t, testDB, "buyer", model.RoleUser),
	}
}

func (e *orderTestEnv) stock(t *testing.T, bookID uint) int {
	t.Helper()
	var book model.Book
	require.NoError(t, e.db.First(&book, bookID).Error)
	return book.StockQuantity
}

func TestOrderService_PlaceOrder(t *testing.T) {
	env := setupOrderServiceTest(t)
	book := createBook(t, env.db, env.user, "A", "2000000000001", "19.99", 10)

	_, err := env.carts.AddItem(env.user.ID, book.ID, 2)
	require.NoError(t, err)

	order, err := env.orders.PlaceOrder(context.Background(), env.user.ID, "221B Baker Street")
	require.NoError(t, err)

	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.True(t, decimal.RequireFromString("39.98").Equal(order.TotalPrice), order.TotalPrice.String())
	require.Len(t, order.Items, 1)
	assert.True(t, decimal.RequireFromString("19.99").Equal(order.Items[0].Price))
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.Equal(t, 8, env.stock(t, book.ID))

	cart, err := env.carts.GetCart(env.user.ID)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	assert.Equal(t, []string{events.OrderPlaced}, env.publisher.Types())
	assert.Equal(t, env.user.ID, env.publisher.events[0].UserID)
}

func TestOrderService_PriceSnapshot(t *testing.T) {
	env := setupOrderServiceTest(t)
	book := createBook(t, env.db, env.user, "Snap", "2000000000002", "10.00", 10)

	_, err := env.carts.AddItem(env.user.ID, book.ID, 1)
	require.NoError(t, err)
	order, err := env.orders.PlaceOrder(context.Background(), env.user.ID, "addr")
	require.NoError(t, err)

	require.NoError(t, env.db.Model(book).Update("price", decimal.RequireFromString("25.00")).Error)

	reloaded, err := env.orders.GetOrder(env.user.ID, order.ID)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("10").Equal(reloaded.Items[0].Price))
	assert.True(t, decimal.RequireFromString("10").Equal(reloaded.TotalPrice))
}

func TestOrderService_EmptyCart(t *testing.T) {
	env := setupOrderServiceTest(t)

	_, err := env.orders.PlaceOrder(context.Background(), env.user.ID, "addr")
	assert.ErrorIs(t, err, ErrEmptyCart)

	var count int64
	env.db.Model(&model.Order{}).Count(&count)
	assert.Zero(t, count)
	assert.Empty(t, env.publisher.Types())
}

func TestOrderService_InsufficientStockRollsBack(t *testing.T) {
	env := setupOrderServiceTest(t)
	plenty := createBook(t, env.db, env.user, "Plenty", "2000000000003", "5.00", 10)
	scarce := createBook(t, env.db, env.user, "Scarce", "2000000000004", "5.00", 1)

	_, err := env.carts.AddItem(env.user.ID, plenty.ID, 3)
	require.NoError(t, err)
	_, err = env.carts.AddItem(env.user.ID, scarce.ID, 2)
	require.NoError(t, err)

	_, err = env.orders.PlaceOrder(context.Background(), env.user.ID, "addr")
	require.ErrorIs(t, err, ErrInsufficientStock)

	var stockErr *InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, scarce.ID, stockErr.BookID)

	assert.Equal(t, 10, env.stock(t, plenty.ID), "earlier decrements are rolled back")
	assert.Equal(t, 1, env.stock(t, scarce.ID))

	var orders, orderItems int64
	env.db.Model(&model.Order{}).Count(&orders)
	env.db.Model(&model.OrderItem{}).Count(&orderItems)
	assert.Zero(t, orders)
	assert.Zero(t, orderItems)

	cart, err := env.carts.GetCart(env.user.ID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2, "cart is kept")
}

func TestOrderService_PublishFailureDoesNotFailOrder(t *testing.T) {
	env := setupOrderServiceTest(t)
	env.publisher.err = errors.New("broker down")
	book := createBook(t, env.db, env.user, "A", "2000000000005", "1.00", 1)

	_, err := env.carts.AddItem(env.user.ID, book.ID, 1)
	require.NoError(t, err)

	order, err := env.orders.PlaceOrder(context.Background(), env.user.ID, "addr")
	require.NoError(t, err)
	assert.NotZero(t, order.ID)
}

func TestOrderService_ListAndGet(t *testing.T) {
	env := setupOrderServiceTest(t)
	book := createBook(t, env.db, env.user, "A", "2000000000006", "1.00", 10)

	var placed []uint
	for i := 0; i < 2; i++ {
		_, err := env.carts.AddItem(env.user.ID, book.ID, 1)
		require.NoError(t, err)
		order, err := env.orders.PlaceOrder(context.Background(), env.user.ID, "addr")
		require.NoError(t, err)
		placed = append(placed, order.ID)
	}

	orders, err := env.orders.ListOrders(env.user.ID)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, placed[1], orders[0].ID)

	stranger := createUserWithCart(t, env.db, "stranger", model.RoleUser)
	_, err = env.orders.GetOrder(stranger.ID, placed[0])
	assert.ErrorIs(t, err, ErrOrderNotFound)

	strangerOrders, err := env.orders.ListOrders(stranger.ID)
	require.NoError(t, err)
	assert.Empty(t, strangerOrders)
}

func TestOrderService_UpdateStatus(t *testing.T) {
	env := setupOrderServiceTest(t)
	book := createBook(t, env.db, env.user, "A", "2000000000007", "1.00", 10)
	_, err := env.carts.AddItem(env.user.ID, book.ID, 1)
	require.NoError(t, err)
	order, err := env.orders.PlaceOrder(context.Background(), env.user.ID, "addr")
	require.NoError(t, err)

	updated, err := env.orders.UpdateStatus(context.Background(), order.ID, model.OrderStatusShipped)
	require.NoError(t, err)
	assert.Equal(t, model.OrderStatusShipped, updated.Status)
	assert.Equal(t, []string{events.OrderPlaced, events.OrderStatusChanged}, env.publisher.Types())

	_, err = env.orders.UpdateStatus(context.Background(), order.ID, model.OrderStatus("lost"))
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = env.orders.UpdateStatus(context.Background(), 9999, model.OrderStatusShipped)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOrderService_DeleteOrder(t *testing.T) {
	env := setupOrderServiceTest(t)
	book := createBook(t, env.db, env.user, "A", "2000000000008", "1.00", 10)
	_, err := env.carts.AddItem(env.user.ID, book.ID, 1)
	require.NoError(t, err)
	order, err := env.orders.PlaceOrder(context.Background(), env.user.ID, "addr")
	require.NoError(t, err)

	stranger := createUserWithCart(t, env.db, "stranger", model.RoleUser)
	assert.ErrorIs(t, env.orders.DeleteOrder(requesterFor(stranger), order.ID), ErrForbidden)

	require.NoError(t, env.orders.DeleteOrder(requesterFor(env.user), order.ID))
	assert.Equal(t, 9, env.stock(t, book.ID), "stock is not restored")

	var items int64
	env.db.Model(&model.OrderItem{}).Where("order_id = ?", order.ID).Count(&items)
	assert.Zero(t, items)

	assert.ErrorIs(t, env.orders.DeleteOrder(requesterFor(env.user), order.ID), ErrOrderNotFound)
}
