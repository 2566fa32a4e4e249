package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/bookstore-backend/internal/app/model"
	"github.com/ikkim/bookstore-backend/internal/app/service"
	apperrors "github.com/ikkim/bookstore-backend/internal/errors"
	"github.com/ikkim/bookstore-backend/internal/middleware"
)

type OrderController struct {
	orderService service.OrderService
}

func NewOrderController(orderService service.OrderService) *OrderController {
	return &OrderController{
		orderService: orderService,
	}
}

type CreateOrderRequest struct {
	ShippingAddress string `json:"shipping_address" binding:"required"`
}

type UpdateOrderStatusRequest struct {
	Status model.OrderStatus `json:"status" binding:"required"`
}

// CreateOrder checks out the cart.
// POST /api/orders/
func (ctrl *OrderController) CreateOrder(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid order request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.RespondWithBindingError(c, err)
		return
	}

	order, err := ctrl.orderService.PlaceOrder(c.Request.Context(), userID, req.ShippingAddress)
	if err != nil {
		var stockErr *service.InsufficientStockError
		switch {
		case errors.Is(err, service.ErrEmptyCart):
			log.Warn("Order rejected: empty cart", map[string]interface{}{
				"user_id": userID,
			})
			apperrors.BadRequest(c, apperrors.OrderEmptyCart, "Cannot place order with empty cart")
		case errors.As(err, &stockErr):
			log.Warn("Order rejected: insufficient stock", map[string]interface{}{
				"user_id": userID,
				"book_id": stockErr.BookID,
			})
			apperrors.BadRequest(c, apperrors.OrderInsufficientStock, "Not enough stock for \""+stockErr.Title+"\".")
		case errors.Is(err, service.ErrCartNotFound):
			apperrors.NotFound(c, apperrors.CartNotFound, "Cart not found")
		default:
			log.Error("Failed to place order", err, map[string]interface{}{
				"user_id": userID,
			})
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "place order")
		}
		return
	}

	log.Info("Order placed", map[string]interface{}{
		"order_id": order.ID,
		"user_id":  userID,
		"total":    order.TotalPrice.StringFixed(2),
	})
	c.JSON(http.StatusCreated, order)
}

// ListOrders returns the requester's orders, newest first.
// GET /api/orders/
func (ctrl *OrderController) ListOrders(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	orders, err := ctrl.orderService.ListOrders(userID)
	if err != nil {
		middleware.GetLoggerFromContext(c).Error("Failed to list orders", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.InternalError(c, "")
		return
	}
	if orders == nil {
		orders = []model.Order{}
	}
	c.JSON(http.StatusOK, orders)
}

// GetOrder returns one of the requester's orders.
// GET /api/orders/:id/
func (ctrl *OrderController) GetOrder(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := ctrl.orderService.GetOrder(userID, id)
	if err != nil {
		ctrl.respondOrderError(c, err, id)
		return
	}
	c.JSON(http.StatusOK, order)
}

// UpdateStatus moves an order to another status. Admin only.
// PATCH /api/orders/:id/status/
func (ctrl *OrderController) UpdateStatus(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithBindingError(c, err)
		return
	}

	order, err := ctrl.orderService.UpdateStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		ctrl.respondOrderError(c, err, id)
		return
	}

	log.Info("Order status updated", map[string]interface{}{
		"order_id": id,
		"status":   order.Status,
	})
	c.JSON(http.StatusOK, order)
}

// DeleteOrder removes the order and its items. Stock is not restored.
// DELETE /api/orders/:id/
func (ctrl *OrderController) DeleteOrder(c *gin.Context) {
	requester, ok := currentRequester(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.orderService.DeleteOrder(requester, id); err != nil {
		ctrl.respondOrderError(c, err, id)
		return
	}

	middleware.GetLoggerFromContext(c).Info("Order deleted", map[string]interface{}{
		"order_id": id,
		"user_id":  requester.UserID,
	})
	c.Status(http.StatusNoContent)
}

func (ctrl *OrderController) respondOrderError(c *gin.Context, err error, id uint) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		apperrors.NotFound(c, apperrors.OrderNotFound, "Not found.")
	case errors.Is(err, service.ErrForbidden):
		apperrors.Forbidden(c, "")
	case errors.Is(err, service.ErrInvalidStatus):
		apperrors.BadRequest(c, apperrors.OrderInvalidStatus, "Invalid order status.")
	default:
		middleware.GetLoggerFromContext(c).Error("Order operation failed", err, map[string]interface{}{
			"order_id": id,
		})
		apperrors.InternalError(c, "")
	}
}
