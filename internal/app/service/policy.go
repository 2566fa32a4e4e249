package service

import "github.com/ikkim/bookstore-backend/internal/app/model"

// Requester is the authenticated caller of a mutating operation.
type Requester struct {
	UserID uint
	Role   model.UserRole
}

func (r Requester) IsAdmin() bool {
	return r.Role == model.RoleAdmin
}

// CanModifyBook allows the book's owner and admins.
func CanModifyBook(requester Requester, book *model.Book) bool {
	return requester.IsAdmin() || book.UserID == requester.UserID
}

// CanModifyReview allows the review's author and admins.
func CanModifyReview(requester Requester, review *model.Review) bool {
	return requester.IsAdmin() || review.UserID == requester.UserID
}

// CanModifyOrder allows the order's owner and admins.
func CanModifyOrder(requester Requester, order *model.Order) bool {
	return requester.IsAdmin() || order.UserID == requester.UserID
}
