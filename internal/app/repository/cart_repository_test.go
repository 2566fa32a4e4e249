package repository

import (
	"sync"
	"testing"

	"github.com/ikkim/bookstore-backend/internal/app/model"
	"github.com/ikkim/bookstore-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupCartTest(t *testing.T) (*gorm.DB, CartRepository, *model.Cart, *model.Book) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)

	repo := NewCartRepository(testDB)

	user := createTestUser(t, testDB, "shopper")
	cart := &model.Cart{UserID: user.ID}
	require.NoError(t, repo.Create(cart))

	book := createTestBook(t, testDB, user, "Cart Book", "6000000000001", "12.50", 10)
	return testDB, repo, cart, book
}

func TestCartRepository_CreateIsUniquePerUser(t *testing.T) {
	testDB, repo, cart, _ := setupCartTest(t)
	defer db.CleanupTestDB(testDB)

	err := repo.Create(&model.Cart{UserID: cart.UserID})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestCartRepository_MergeItem(t *testing.T) {
	testDB, repo, cart, book := setupCartTest(t)
	defer db.CleanupTestDB(testDB)

	item, err := repo.MergeItem(cart.ID, book.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, item.Quantity)
	assert.Equal(t, book.Title, item.Book.Title)

	item, err = repo.MergeItem(cart.ID, book.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, item.Quantity)

	items, err := repo.FindItems(cart.ID)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestCartRepository_MergeItemConcurrent(t *testing.T) {
	testDB, repo, cart, book := setupCartTest(t)
	defer db.CleanupTestDB(testDB)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.MergeItem(cart.ID, book.ID, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	item, err := repo.FindItem(cart.ID, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, item.Quantity)
}

func TestCartRepository_FindByUserID(t *testing.T) {
	testDB, repo, cart, book := setupCartTest(t)
	defer db.CleanupTestDB(testDB)

	_, err := repo.MergeItem(cart.ID, book.ID, 2)
	require.NoError(t, err)

	found, err := repo.FindByUserID(cart.UserID)
	require.NoError(t, err)
	require.Len(t, found.Items, 1)

	found.ComputeTotals()
	assert.Equal(t, "25", found.TotalPrice.String())

	_, err = repo.FindByUserID(9999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCartRepository_UpdateAndRemoveItem(t *testing.T) {
	testDB, repo, cart, book := setupCartTest(t)
	defer db.CleanupTestDB(testDB)

	_, err := repo.MergeItem(cart.ID, book.ID, 1)
	require.NoError(t, err)

	require.NoError(t, repo.UpdateItemQuantity(cart.ID, book.ID, 7))
	item, err := repo.FindItem(cart.ID, book.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, item.Quantity)

	assert.ErrorIs(t, repo.UpdateItemQuantity(cart.ID, 9999, 1), gorm.ErrRecordNotFound)

	require.NoError(t, repo.RemoveItem(cart.ID, book.ID))
	assert.ErrorIs(t, repo.RemoveItem(cart.ID, book.ID), gorm.ErrRecordNotFound)
}

func TestCartRepository_ClearItems(t *testing.T) {
	testDB, repo, cart, book := setupCartTest(t)
	defer db.CleanupTestDB(testDB)

	second := createTestBook(t, testDB, &model.User{ID: cart.UserID}, "Second", "6000000000002", "3.00", 1)
	_, err := repo.MergeItem(cart.ID, book.ID, 1)
	require.NoError(t, err)
	_, err = repo.MergeItem(cart.ID, second.ID, 1)
	require.NoError(t, err)

	require.NoError(t, repo.ClearItems(cart.ID))

	items, err := repo.FindItems(cart.ID)
	require.NoError(t, err)
	assert.Empty(t, items)

	// clearing an empty cart is not an error
	assert.NoError(t, repo.ClearItems(cart.ID))
}

func TestCartRepository_WithTxRollback(t *testing.T) {
	testDB, repo, cart, book := setupCartTest(t)
	defer db.CleanupTestDB(testDB)

	err := testDB.Transaction(func(tx *gorm.DB) error {
		if _, err := repo.WithTx(tx).MergeItem(cart.ID, book.ID, 4); err != nil {
			return err
		}
		return gorm.ErrInvalidTransaction
	})
	require.Error(t, err)

	_, err = repo.FindItem(cart.ID, book.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
