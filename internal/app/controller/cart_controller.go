package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/bookstore-backend/internal/app/service"
	apperrors "github.com/ikkim/bookstore-backend/internal/errors"
	"github.com/ikkim/bookstore-backend/internal/middleware"
)

type CartController struct {
	cartService service.CartService
}

func NewCartController(cartService service.CartService) *CartController {
	return &CartController{
		cartService: cartService,
	}
}

// CartItemRequest is shared by add_item and update_item; quantity defaults to 1.
type CartItemRequest struct {
	BookID   uint `json:"book_id" binding:"required"`
	Quantity *int `json:"quantity" binding:"omitempty,gt=0"`
}

func (r CartItemRequest) quantity() int {
	if r.Quantity == nil {
		return 1
	}
	return *r.Quantity
}

type RemoveCartItemRequest struct {
	BookID uint `json:"book_id" binding:"required"`
}

// GetCart returns the user's cart with item and cart totals.
// GET /api/cart/
func (ctrl *CartController) GetCart(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	cart, err := ctrl.cartService.GetCart(userID)
	if err != nil {
		ctrl.respondCartError(c, err, userID)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// AddItem merge-adds a book.
// POST /api/cart/add_item/
func (ctrl *CartController) AddItem(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	var req CartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid add to cart request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.RespondWithBindingError(c, err)
		return
	}

	cart, err := ctrl.cartService.AddItem(userID, req.BookID, req.quantity())
	if err != nil {
		if errors.Is(err, service.ErrBookNotFound) {
			apperrors.RespondWithValidationError(c, map[string]string{
				"book_id": "Invalid pk - object does not exist.",
			})
			return
		}
		ctrl.respondCartError(c, err, userID)
		return
	}

	log.Info("Book added to cart", map[string]interface{}{
		"user_id":  userID,
		"book_id":  req.BookID,
		"quantity": req.quantity(),
	})
	c.JSON(http.StatusOK, cart)
}

// RemoveItem deletes one book from the cart.
// POST /api/cart/remove_item/
func (ctrl *CartController) RemoveItem(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	var req RemoveCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithBindingError(c, err)
		return
	}

	cart, err := ctrl.cartService.RemoveItem(userID, req.BookID)
	if err != nil {
		ctrl.respondCartError(c, err, userID)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// UpdateItem sets the quantity of a book already in the cart.
// POST /api/cart/update_item/
func (ctrl *CartController) UpdateItem(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	var req CartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.RespondWithBindingError(c, err)
		return
	}

	cart, err := ctrl.cartService.UpdateItem(userID, req.BookID, req.quantity())
	if err != nil {
		ctrl.respondCartError(c, err, userID)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// ClearCart empties the cart.
// POST /api/cart/clear/
func (ctrl *CartController) ClearCart(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	cart, err := ctrl.cartService.Clear(userID)
	if err != nil {
		ctrl.respondCartError(c, err, userID)
		return
	}

	middleware.GetLoggerFromContext(c).Info("Cart cleared", map[string]interface{}{
		"user_id": userID,
	})
	c.JSON(http.StatusOK, cart)
}

func (ctrl *CartController) respondCartError(c *gin.Context, err error, userID uint) {
	switch {
	case errors.Is(err, service.ErrCartItemNotFound):
		apperrors.NotFound(c, apperrors.CartItemNotFound, "Book not found in cart")
	case errors.Is(err, service.ErrCartNotFound):
		apperrors.NotFound(c, apperrors.CartNotFound, "Cart not found")
	case errors.Is(err, service.ErrInvalidQuantity):
		apperrors.RespondWithValidationError(c, map[string]string{
			"quantity": "Ensure this value is greater than 0.",
		})
	default:
		middleware.GetLoggerFromContext(c).Error("Cart operation failed", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.InternalError(c, "")
	}
}
