package service

import (
	"errors"

	"github.com/ikkim/bookstore-backend/internal/app/model"
	"github.com/ikkim/bookstore-backend/internal/app/repository"
	"github.com/ikkim/bookstore-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrCartNotFound     = errors.New("cart not found")
	ErrCartItemNotFound = errors.New("book not found in cart")
	ErrInvalidQuantity  = errors.New("quantity must be greater than 0")
)

type CartService interface {
	GetCart(userID uint) (*model.Cart, error)
	AddItem(userID, bookID uint, quantity int) (*model.Cart, error)
	RemoveItem(userID, bookID uint) (*model.Cart, error)
	UpdateItem(userID, bookID uint, quantity int) (*model.Cart, error)
	Clear(userID uint) (*model.Cart, error)
}

type cartService struct {
	cartRepo repository.CartRepository
	bookRepo repository.BookRepository
}

func NewCartService(cartRepo repository.CartRepository, bookRepo repository.BookRepository) CartService {
	return &cartService{
		cartRepo: cartRepo,
		bookRepo: bookRepo,
	}
}

// GetCart returns the user's cart with items, books and totals.
func (s *cartService) GetCart(userID uint) (*model.Cart, error) {
	cart, err := s.cartRepo.FindByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Cart missing for user", logger.Fields{
				"user_id": userID,
			})
			return nil, ErrCartNotFound
		}
		logger.Error("Failed to fetch cart", err, logger.Fields{
			"user_id": userID,
		})
		return nil, err
	}

	cart.ComputeTotals()
	return cart, nil
}

func (s *cartService) lookupCart(userID uint) (*model.Cart, error) {
	cart, err := s.cartRepo.FindByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCartNotFound
		}
		return nil, err
	}
	return cart, nil
}

// AddItem merge-adds: a book already in the cart has its quantity increased.
func (s *cartService) AddItem(userID, bookID uint, quantity int) (*model.Cart, error) {
	logger.Info("Adding book to cart", logger.Fields{
		"user_id":  userID,
		"book_id":  bookID,
		"quantity": quantity,
	})

	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	if _, err := s.bookRepo.FindByID(bookID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Add to cart failed: book not found", logger.Fields{
				"book_id": bookID,
			})
			return nil, ErrBookNotFound
		}
		return nil, err
	}

	cart, err := s.lookupCart(userID)
	if err != nil {
		return nil, err
	}

	item, err := s.cartRepo.MergeItem(cart.ID, bookID, quantity)
	if err != nil {
		logger.Error("Failed to merge cart item", err, logger.Fields{
			"user_id": userID,
			"book_id": bookID,
		})
		return nil, err
	}

	logger.Info("Book added to cart", logger.Fields{
		"user_id":  userID,
		"book_id":  bookID,
		"quantity": item.Quantity,
	})
	return s.GetCart(userID)
}

func (s *cartService) RemoveItem(userID, bookID uint) (*model.Cart, error) {
	cart, err := s.lookupCart(userID)
	if err != nil {
		return nil, err
	}

	if err := s.cartRepo.RemoveItem(cart.ID, bookID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCartItemNotFound
		}
		return nil, err
	}

	logger.Info("Book removed from cart", logger.Fields{
		"user_id": userID,
		"book_id": bookID,
	})
	return s.GetCart(userID)
}

func (s *cartService) UpdateItem(userID, bookID uint, quantity int) (*model.Cart, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	cart, err := s.lookupCart(userID)
	if err != nil {
		return nil, err
	}

	if err := s.cartRepo.UpdateItemQuantity(cart.ID, bookID, quantity); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCartItemNotFound
		}
		return nil, err
	}

	logger.Info("Cart item quantity updated", logger.Fields{
		"user_id":  userID,
		"book_id":  bookID,
		"quantity": quantity,
	})
	return s.GetCart(userID)
}

func (s *cartService) Clear(userID uint) (*model.Cart, error) {
	cart, err := s.lookupCart(userID)
	if err != nil {
		return nil, err
	}

	if err := s.cartRepo.ClearItems(cart.ID); err != nil {
		return nil, err
	}

	logger.Info("Cart cleared", logger.Fields{
		"user_id": userID,
	})
	return s.GetCart(userID)
}
