package service

import (
	"testing"

	"github.com/ikkim/bookstore-backend/internal/app/model"
	"github.com/ikkim/bookstore-backend/internal/app/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupReviewServiceTest(t *testing.T) (ReviewService, *gorm.DB, *model.User, *model.Book) {
	testDB := setupServiceDB(t)

	reviewService := NewReviewService(
		repository.NewReviewRepository(testDB),
		repository.NewBookRepository(testDB),
	)
	user := createUserWithCart(t, testDB, "reviewer", model.RoleUser)
	book := createBook(t, testDB, user, "Reviewed", "3000000000001", "9.99", 1)
	return reviewService, testDB, user, book
}

func TestReviewService_CreateReview(t *testing.T) {
	reviewService, testDB, user, book := setupReviewServiceTest(t)

	review, err := reviewService.CreateReview(user.ID, book.ID, 5, "Loved it")
	require.NoError(t, err)
	assert.NotZero(t, review.ID)

	_, err = reviewService.CreateReview(user.ID, book.ID, 3, "Second thoughts")
	assert.ErrorIs(t, err, ErrAlreadyReviewed)

	var count int64
	testDB.Model(&model.Review{}).Where("book_id = ? AND user_id = ?", book.ID, user.ID).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestReviewService_CreateReviewValidation(t *testing.T) {
	reviewService, _, user, book := setupReviewServiceTest(t)

	for _, rating := range []int{0, 6, -1} {
		_, err := reviewService.CreateReview(user.ID, book.ID, rating, "")
		assert.ErrorIs(t, err, ErrInvalidRating, "rating %d", rating)
	}

	_, err := reviewService.CreateReview(user.ID, 9999, 4, "")
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestReviewService_ListForBook(t *testing.T) {
	reviewService, testDB, user, book := setupReviewServiceTest(t)
	other := createUserWithCart(t, testDB, "other", model.RoleUser)

	_, err := reviewService.CreateReview(user.ID, book.ID, 4, "")
	require.NoError(t, err)
	_, err = reviewService.CreateReview(other.ID, book.ID, 2, "")
	require.NoError(t, err)

	reviews, err := reviewService.ListForBook(book.ID)
	require.NoError(t, err)
	assert.Len(t, reviews, 2)

	mine, err := reviewService.ListByUser(user.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	require.NotNil(t, mine[0].User)
	assert.Equal(t, user.Username, mine[0].User.Username)

	all, err := reviewService.ListAll()
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = reviewService.ListForBook(9999)
	assert.ErrorIs(t, err, ErrBookNotFound)
}

func TestReviewService_UpdateAndDelete(t *testing.T) {
	reviewService, testDB, user, book := setupReviewServiceTest(t)
	stranger := createUserWithCart(t, testDB, "stranger", model.RoleUser)
	admin := createUserWithCart(t, testDB, "admin", model.RoleAdmin)

	review, err := reviewService.CreateReview(user.ID, book.ID, 4, "Good")
	require.NoError(t, err)

	rating := 2
	_, err = reviewService.UpdateReview(requesterFor(stranger), review.ID, ReviewUpdate{Rating: &rating})
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := reviewService.UpdateReview(requesterFor(user), review.ID, ReviewUpdate{Rating: &rating})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Rating)
	assert.Equal(t, "Good", updated.Text)

	bad := 9
	_, err = reviewService.UpdateReview(requesterFor(user), review.ID, ReviewUpdate{Rating: &bad})
	assert.ErrorIs(t, err, ErrInvalidRating)

	assert.ErrorIs(t, reviewService.DeleteReview(requesterFor(stranger), review.ID), ErrForbidden)
	require.NoError(t, reviewService.DeleteReview(requesterFor(admin), review.ID))

	_, err = reviewService.GetReview(review.ID)
	assert.ErrorIs(t, err, ErrReviewNotFound)
}
