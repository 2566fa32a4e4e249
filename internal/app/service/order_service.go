package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ikkim/bookstore-backend/internal/app/model"
	"github.com/ikkim/bookstore-backend/internal/app/repository"
	"github.com/ikkim/bookstore-backend/internal/events"
	"github.com/ikkim/bookstore-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrOrderNotFound     = errors.New("order not found")
	ErrEmptyCart         = errors.New("cannot place order with empty cart")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidStatus     = errors.New("invalid order status")
)

// InsufficientStockError names the book that could not be decremented.
type InsufficientStockError struct {
	BookID    uint
	Title     string
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q (requested %d)", e.Title, e.Requested)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

type OrderService interface {
	PlaceOrder(ctx context.Context, userID uint, shippingAddress string) (*model.Order, error)
	ListOrders(userID uint) ([]model.Order, error)
	GetOrder(userID, orderID uint) (*model.Order, error)
	UpdateStatus(ctx context.Context, orderID uint, status model.OrderStatus) (*model.Order, error)
	DeleteOrder(requester Requester, orderID uint) error
}

type orderService struct {
	db        *gorm.DB
	orderRepo repository.OrderRepository
	cartRepo  repository.CartRepository
	bookRepo  repository.BookRepository
	publisher events.Publisher
}

func NewOrderService(
	db *gorm.DB,
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	bookRepo repository.BookRepository,
	publisher events.Publisher,
) OrderService {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &orderService{
		db:        db,
		orderRepo: orderRepo,
		cartRepo:  cartRepo,
		bookRepo:  bookRepo,
		publisher: publisher,
	}
}

// PlaceOrder turns the user's cart into an order in a single transaction: the cart
// row is locked, prices are snapshotted, stock is decremented with a guard and the
// cart is emptied. Any failure leaves cart, stock and orders untouched.
func (s *orderService) PlaceOrder(ctx context.Context, userID uint, shippingAddress string) (*model.Order, error) {
	logger.Info("Placing order from cart", logger.Fields{
		"user_id": userID,
	})

	var order *model.Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		bookRepo := s.bookRepo.WithTx(tx)

		cart, err := cartRepo.LockByUserID(userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCartNotFound
			}
			return err
		}

		items, err := cartRepo.FindItems(cart.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrEmptyCart
		}

		total := decimal.Zero
		orderItems := make([]model.OrderItem, 0, len(items))
		for _, item := range items {
			total = total.Add(item.Book.Subtotal(item.Quantity))
			orderItems = append(orderItems, model.OrderItem{
				BookID:   item.BookID,
				Quantity: item.Quantity,
				Price:    item.Book.Price,
			})
		}

		order = &model.Order{
			UserID:          userID,
			Status:          model.OrderStatusPending,
			ShippingAddress: shippingAddress,
			TotalPrice:      total,
			Items:           orderItems,
		}
		if err := s.orderRepo.WithTx(tx).Create(order); err != nil {
			return err
		}

		for _, item := range items {
			ok, err := bookRepo.DecrementStock(item.BookID, item.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				return &InsufficientStockError{
					BookID:    item.BookID,
					Title:     item.Book.Title,
					Requested: item.Quantity,
				}
			}
		}

		return cartRepo.ClearItems(cart.ID)
	})
	if err != nil {
		if errors.Is(err, ErrEmptyCart) || errors.Is(err, ErrInsufficientStock) {
			logger.Warn("Order placement rejected", logger.Fields{
				"user_id": userID,
				"reason":  err.Error(),
			})
		} else {
			logger.Error("Failed to place order", err, logger.Fields{
				"user_id": userID,
			})
		}
		return nil, err
	}

	placed, err := s.orderRepo.FindByID(order.ID)
	if err != nil {
		return nil, err
	}

	logger.Info("Order placed", logger.Fields{
		"order_id":    placed.ID,
		"user_id":     userID,
		"total_price": placed.TotalPrice.String(),
	})

	events.PublishBestEffort(ctx, s.publisher, events.New(events.OrderPlaced, userID, placed))
	return placed, nil
}

// ListOrders returns the user's orders, newest first.
func (s *orderService) ListOrders(userID uint) ([]model.Order, error) {
	orders, err := s.orderRepo.FindByUserID(userID)
	if err != nil {
		logger.Error("Failed to list orders", err, logger.Fields{
			"user_id": userID,
		})
		return nil, err
	}
	return orders, nil
}

// GetOrder returns the order only when it belongs to userID; other users' orders
// are reported as not found.
func (s *orderService) GetOrder(userID, orderID uint) (*model.Order, error) {
	order, err := s.findOrder(orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		logger.Warn("Order requested by non-owner", logger.Fields{
			"order_id": orderID,
			"user_id":  userID,
		})
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (s *orderService) findOrder(orderID uint) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

func (s *orderService) UpdateStatus(ctx context.Context, orderID uint, status model.OrderStatus) (*model.Order, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	if err := s.orderRepo.UpdateStatus(orderID, status); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	order, err := s.findOrder(orderID)
	if err != nil {
		return nil, err
	}

	logger.Info("Order status updated", logger.Fields{
		"order_id": orderID,
		"status":   status,
	})

	events.PublishBestEffort(ctx, s.publisher, events.New(events.OrderStatusChanged, order.UserID, map[string]interface{}{
		"order_id": order.ID,
		"status":   order.Status,
	}))
	return order, nil
}

// DeleteOrder removes the order and its items. Stock is not restored.
func (s *orderService) DeleteOrder(requester Requester, orderID uint) error {
	order, err := s.findOrder(orderID)
	if err != nil {
		return err
	}
	if !CanModifyOrder(requester, order) {
		logger.Warn("Order deletion denied", logger.Fields{
			"order_id": orderID,
			"user_id":  requester.UserID,
		})
		return ErrForbidden
	}

	if err := s.orderRepo.DeleteWithItems(orderID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		return err
	}

	logger.Info("Order deleted", logger.Fields{
		"order_id": orderID,
		"user_id":  requester.UserID,
	})
	return nil
}
