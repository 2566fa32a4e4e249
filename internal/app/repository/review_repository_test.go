package repository

import (
	"testing"

	"github.com/ikkim/bookstore-backend/internal/app/model"
	"github.com/ikkim/bookstore-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupReviewTest(t *testing.T) (*gorm.DB, ReviewRepository, *model.User, *model.Book) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)

	repo := NewReviewRepository(testDB)
	user := createTestUser(t, testDB, "reviewer")
	book := createTestBook(t, testDB, user, "Reviewed", "8000000000001", "9.99", 1)
	return testDB, repo, user, book
}

func TestReviewRepository_Create(t *testing.T) {
	testDB, repo, user, book := setupReviewTest(t)
	defer db.CleanupTestDB(testDB)

	review := &model.Review{BookID: book.ID, UserID: user.ID, Rating: 4, Text: "Solid"}
	require.NoError(t, repo.Create(review))
	assert.NotZero(t, review.ID)

	t.Run("Second review by same user", func(t *testing.T) {
		err := repo.Create(&model.Review{BookID: book.ID, UserID: user.ID, Rating: 2})
		assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
	})

	t.Run("Rating out of range", func(t *testing.T) {
		other := createTestUser(t, testDB, "harsh")
		err := repo.Create(&model.Review{BookID: book.ID, UserID: other.ID, Rating: 6})
		assert.Error(t, err)
	})
}

func TestReviewRepository_FindAndExists(t *testing.T) {
	testDB, repo, user, book := setupReviewTest(t)
	defer db.CleanupTestDB(testDB)

	exists, err := repo.Exists(book.ID, user.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	review := &model.Review{BookID: book.ID, UserID: user.ID, Rating: 5}
	require.NoError(t, repo.Create(review))

	exists, err = repo.Exists(book.ID, user.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	byBook, err := repo.FindByBookID(book.ID)
	require.NoError(t, err)
	assert.Len(t, byBook, 1)

	byUser, err := repo.FindByUserID(user.ID)
	require.NoError(t, err)
	assert.Len(t, byUser, 1)
}

func TestReviewRepository_UpdateAndDelete(t *testing.T) {
	testDB, repo, user, book := setupReviewTest(t)
	defer db.CleanupTestDB(testDB)

	review := &model.Review{BookID: book.ID, UserID: user.ID, Rating: 3}
	require.NoError(t, repo.Create(review))

	review.Rating = 1
	review.Text = "Changed my mind"
	require.NoError(t, repo.Update(review))

	found, err := repo.FindByID(review.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, found.Rating)
	assert.Equal(t, "Changed my mind", found.Text)

	require.NoError(t, repo.Delete(review.ID))
	assert.ErrorIs(t, repo.Delete(review.ID), gorm.ErrRecordNotFound)
}

func TestReviewRepository_FindAll(t *testing.T) {
	testDB, repo, user, book := setupReviewTest(t)
	defer db.CleanupTestDB(testDB)

	other := createTestUser(t, testDB, "second")
	require.NoError(t, repo.Create(&model.Review{BookID: book.ID, UserID: user.ID, Rating: 5}))
	require.NoError(t, repo.Create(&model.Review{BookID: book.ID, UserID: other.ID, Rating: 1}))

	reviews, err := repo.FindAll()
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	for _, review := range reviews {
		require.NotNil(t, review.User)
		assert.Equal(t, review.UserID, review.User.ID)
	}
}
