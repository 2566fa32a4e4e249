package repository

import (
	"time"

	"github.com/ikkim/bookstore-backend/internal/app/model"
	"github.com/ikkim/bookstore-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartRepository interface {
	Create(cart *model.Cart) error
	FindByUserID(userID uint) (*model.Cart, error)
	LockByUserID(userID uint) (*model.Cart, error)
	FindItems(cartID uint) ([]model.CartItem, error)
	FindItem(cartID, bookID uint) (*model.CartItem, error)
	MergeItem(cartID, bookID uint, quantity int) (*model.CartItem, error)
	UpdateItemQuantity(cartID, bookID uint, quantity int) error
	RemoveItem(cartID, bookID uint) error
	ClearItems(cartID uint) error
	WithTx(tx *gorm.DB) CartRepository
}

type cartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) WithTx(tx *gorm.DB) CartRepository {
	return &cartRepository{db: tx}
}

func (r *cartRepository) Create(cart *model.Cart) error {
	if err := r.db.Omit(clause.Associations).Create(cart).Error; err != nil {
		logger.Error("Failed to create cart in database", err, logger.Fields{
			"user_id": cart.UserID,
		})
		return err
	}

	logger.Debug("Cart created in database", logger.Fields{
		"cart_id": cart.ID,
		"user_id": cart.UserID,
	})
	return nil
}

// FindByUserID loads the cart with its items and their books, oldest item first.
func (r *cartRepository) FindByUserID(userID uint) (*model.Cart, error) {
	logger.Debug("Finding cart by user ID in database", logger.Fields{
		"user_id": userID,
	})

	var cart model.Cart
	err := r.db.Where("user_id = ?", userID).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("cart_items.id")
		}).
		Preload("Items.Book.Owner").
		First(&cart).Error
	if err != nil {
		logger.Debug("Cart not found by user ID", logger.Fields{
			"user_id": userID,
			"error":   err.Error(),
		})
		return nil, err
	}

	logger.Debug("Cart found by user ID in database", logger.Fields{
		"cart_id": cart.ID,
		"items":   len(cart.Items),
	})
	return &cart, nil
}

// LockByUserID selects the cart row FOR UPDATE; only meaningful inside a transaction.
func (r *cartRepository) LockByUserID(userID uint) (*model.Cart, error) {
	var cart model.Cart
	err := r.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&cart).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *cartRepository) FindItems(cartID uint) ([]model.CartItem, error) {
	var items []model.CartItem
	err := r.db.Where("cart_id = ?", cartID).
		Preload("Book.Owner").
		Order("id").
		Find(&items).Error
	if err != nil {
		logger.Error("Failed to find cart items in database", err, logger.Fields{
			"cart_id": cartID,
		})
		return nil, err
	}
	return items, nil
}

func (r *cartRepository) FindItem(cartID, bookID uint) (*model.CartItem, error) {
	var item model.CartItem
	err := r.db.Where("cart_id = ? AND book_id = ?", cartID, bookID).
		Preload("Book.Owner").
		First(&item).Error
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// MergeItem inserts the (cart, book) row or adds quantity to the existing one in a
// single statement, so concurrent adds neither lose increments nor duplicate rows.
func (r *cartRepository) MergeItem(cartID, bookID uint, quantity int) (*model.CartItem, error) {
	logger.Debug("Merging cart item in database", logger.Fields{
		"cart_id":  cartID,
		"book_id":  bookID,
		"quantity": quantity,
	})

	item := &model.CartItem{CartID: cartID, BookID: bookID, Quantity: quantity}
	err := r.db.Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "cart_id"}, {Name: "book_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"quantity":   gorm.Expr("cart_items.quantity + excluded.quantity"),
				"updated_at": time.Now(),
			}),
		}).
		Create(item).Error
	if err != nil {
		logger.Error("Failed to merge cart item in database", err, logger.Fields{
			"cart_id": cartID,
			"book_id": bookID,
		})
		return nil, err
	}

	merged, err := r.FindItem(cartID, bookID)
	if err != nil {
		return nil, err
	}

	logger.Debug("Cart item merged in database", logger.Fields{
		"cart_item_id": merged.ID,
		"quantity":     merged.Quantity,
	})
	return merged, nil
}

func (r *cartRepository) UpdateItemQuantity(cartID, bookID uint, quantity int) error {
	result := r.db.Model(&model.CartItem{}).
		Where("cart_id = ? AND book_id = ?", cartID, bookID).
		Updates(map[string]interface{}{
			"quantity":   quantity,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		logger.Error("Failed to update cart item quantity", result.Error, logger.Fields{
			"cart_id": cartID,
			"book_id": bookID,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *cartRepository) RemoveItem(cartID, bookID uint) error {
	result := r.db.Where("cart_id = ? AND book_id = ?", cartID, bookID).Delete(&model.CartItem{})
	if result.Error != nil {
		logger.Error("Failed to remove cart item", result.Error, logger.Fields{
			"cart_id": cartID,
			"book_id": bookID,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ClearItems deletes every item of the cart; the cart row itself stays.
func (r *cartRepository) ClearItems(cartID uint) error {
	result := r.db.Where("cart_id = ?", cartID).Delete(&model.CartItem{})
	if result.Error != nil {
		logger.Error("Failed to clear cart items", result.Error, logger.Fields{
			"cart_id": cartID,
		})
		return result.Error
	}

	logger.Debug("Cart items cleared", logger.Fields{
		"cart_id": cartID,
		"removed": result.RowsAffected,
	})
	return nil
}
