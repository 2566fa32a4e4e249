package repository

import (
	"github.com/ikkim/bookstore-backend/internal/app/model"
	"github.com/ikkim/bookstore-backend/pkg/logger"
	"gorm.io/gorm"
)

type ReviewRepository interface {
	Create(review *model.Review) error
	FindByID(id uint) (*model.Review, error)
	FindByBookID(bookID uint) ([]model.Review, error)
	FindByUserID(userID uint) ([]model.Review, error)
	FindAll() ([]model.Review, error)
	Exists(bookID, userID uint) (bool, error)
	Update(review *model.Review) error
	Delete(id uint) error
}

type reviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) Create(review *model.Review) error {
	logger.Debug("Creating review in database", logger.Fields{
		"book_id": review.BookID,
		"user_id": review.UserID,
		"rating":  review.Rating,
	})

	if err := r.db.Omit("User", "Book").Create(review).Error; err != nil {
		logger.Warn("Failed to create review in database", logger.Fields{
			"book_id": review.BookID,
			"user_id": review.UserID,
			"error":   err.Error(),
		})
		return err
	}
	return nil
}

func (r *reviewRepository) FindByID(id uint) (*model.Review, error) {
	var review model.Review
	if err := r.db.Preload("User").First(&review, id).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *reviewRepository) FindByBookID(bookID uint) ([]model.Review, error) {
	var reviews []model.Review
	if err := r.db.Preload("User").Where("book_id = ?", bookID).Order("created_at DESC").Order("id DESC").Find(&reviews).Error; err != nil {
		logger.Error("Failed to find reviews by book ID", err, logger.Fields{
			"book_id": bookID,
		})
		return nil, err
	}
	return reviews, nil
}

func (r *reviewRepository) FindByUserID(userID uint) ([]model.Review, error) {
	var reviews []model.Review
	if err := r.db.Preload("User").Where("user_id = ?", userID).Order("created_at DESC").Order("id DESC").Find(&reviews).Error; err != nil {
		logger.Error("Failed to find reviews by user ID", err, logger.Fields{
			"user_id": userID,
		})
		return nil, err
	}
	return reviews, nil
}

func (r *reviewRepository) FindAll() ([]model.Review, error) {
	var reviews []model.Review
	if err := r.db.Preload("User").Order("created_at DESC").Order("id DESC").Find(&reviews).Error; err != nil {
		logger.Error("Failed to find reviews", err)
		return nil, err
	}
	return reviews, nil
}

func (r *reviewRepository) Exists(bookID, userID uint) (bool, error) {
	var count int64
	err := r.db.Model(&model.Review{}).
		Where("book_id = ? AND user_id = ?", bookID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *reviewRepository) Update(review *model.Review) error {
	if err := r.db.Omit("User", "Book").Save(review).Error; err != nil {
		logger.Error("Failed to update review in database", err, logger.Fields{
			"review_id": review.ID,
		})
		return err
	}
	return nil
}

func (r *reviewRepository) Delete(id uint) error {
	result := r.db.Delete(&model.Review{}, id)
	if result.Error != nil {
		logger.Error("Failed to delete review from database", result.Error, logger.Fields{
			"review_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
