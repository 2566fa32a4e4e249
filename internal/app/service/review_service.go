package service

import (
	"errors"

	"github.com/ikkim/bookstore-backend/internal/app/model"
	"github.com/ikkim/bookstore-backend/internal/app/repository"
	"github.com/ikkim/bookstore-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrReviewNotFound  = errors.New("review not found")
	ErrAlreadyReviewed = errors.New("you have already reviewed this book")
	ErrInvalidRating   = errors.New("rating must be between 1 and 5")
)

// ReviewUpdate holds the fields to change; nil fields are left untouched.
type ReviewUpdate struct {
	Rating *int
	Text   *string
}

type ReviewService interface {
	ListForBook(bookID uint) ([]model.Review, error)
	ListAll() ([]model.Review, error)
	ListByUser(userID uint) ([]model.Review, error)
	GetReview(id uint) (*model.Review, error)
	CreateReview(userID, bookID uint, rating int, text string) (*model.Review, error)
	UpdateReview(requester Requester, id uint, update ReviewUpdate) (*model.Review, error)
	DeleteReview(requester Requester, id uint) error
}

type reviewService struct {
	reviewRepo repository.ReviewRepository
	bookRepo   repository.BookRepository
}

func NewReviewService(reviewRepo repository.ReviewRepository, bookRepo repository.BookRepository) ReviewService {
	return &reviewService{
		reviewRepo: reviewRepo,
		bookRepo:   bookRepo,
	}
}

func validRating(rating int) bool {
	return rating >= model.MinRating && rating <= model.MaxRating
}

func (s *reviewService) ensureBook(bookID uint) error {
	if _, err := s.bookRepo.FindByID(bookID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrBookNotFound
		}
		return err
	}
	return nil
}

func (s *reviewService) ListForBook(bookID uint) ([]model.Review, error) {
	if err := s.ensureBook(bookID); err != nil {
		return nil, err
	}
	return s.reviewRepo.FindByBookID(bookID)
}

func (s *reviewService) ListAll() ([]model.Review, error) {
	return s.reviewRepo.FindAll()
}

func (s *reviewService) ListByUser(userID uint) ([]model.Review, error) {
	return s.reviewRepo.FindByUserID(userID)
}

func (s *reviewService) GetReview(id uint) (*model.Review, error) {
	review, err := s.reviewRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReviewNotFound
		}
		return nil, err
	}
	return review, nil
}

// CreateReview adds the user's single review of a book. The unique index on
// (book_id, user_id) decides concurrent duplicates.
func (s *reviewService) CreateReview(userID, bookID uint, rating int, text string) (*model.Review, error) {
	if !validRating(rating) {
		return nil, ErrInvalidRating
	}
	if err := s.ensureBook(bookID); err != nil {
		return nil, err
	}

	exists, err := s.reviewRepo.Exists(bookID, userID)
	if err != nil {
		return nil, err
	}
	if exists {
		logger.Warn("Duplicate review rejected", logger.Fields{
			"book_id": bookID,
			"user_id": userID,
		})
		return nil, ErrAlreadyReviewed
	}

	review := &model.Review{
		BookID: bookID,
		UserID: userID,
		Rating: rating,
		Text:   text,
	}
	if err := s.reviewRepo.Create(review); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyReviewed
		}
		return nil, err
	}

	logger.Info("Review created", logger.Fields{
		"review_id": review.ID,
		"book_id":   bookID,
		"user_id":   userID,
	})
	return s.GetReview(review.ID)
}

func (s *reviewService) findModifiable(requester Requester, id uint) (*model.Review, error) {
	review, err := s.GetReview(id)
	if err != nil {
		return nil, err
	}
	if !CanModifyReview(requester, review) {
		logger.Warn("Review modification denied", logger.Fields{
			"review_id": id,
			"user_id":   requester.UserID,
		})
		return nil, ErrForbidden
	}
	return review, nil
}

func (s *reviewService) UpdateReview(requester Requester, id uint, update ReviewUpdate) (*model.Review, error) {
	review, err := s.findModifiable(requester, id)
	if err != nil {
		return nil, err
	}

	if update.Rating != nil {
		if !validRating(*update.Rating) {
			return nil, ErrInvalidRating
		}
		review.Rating = *update.Rating
	}
	if update.Text != nil {
		review.Text = *update.Text
	}

	if err := s.reviewRepo.Update(review); err != nil {
		return nil, err
	}
	return review, nil
}

func (s *reviewService) DeleteReview(requester Requester, id uint) error {
	if _, err := s.findModifiable(requester, id); err != nil {
		return err
	}
	if err := s.reviewRepo.Delete(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrReviewNotFound
		}
		return err
	}

	logger.Info("Review deleted", logger.Fields{
		"review_id": id,
		"user_id":   requester.UserID,
	})
	return nil
}
