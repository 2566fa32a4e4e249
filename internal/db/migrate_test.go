package db

import (
	"testing"

	"github.com/ikkim/bookstore-backend/config"
	"github.com/ikkim/bookstore-backend/internal/app/model"
	"github.com/ikkim/bookstore-backend/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupTestDB_CreatesSchema(t *testing.T) {
	testDB, err := SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { CleanupTestDB(testDB) })

	for _, m := range Models() {
		assert.True(t, testDB.Migrator().HasTable(m), "missing table for %T", m)
	}
	assert.True(t, testDB.Migrator().HasIndex(&model.CartItem{}, "idx_cart_items_cart_book"))
	assert.True(t, testDB.Migrator().HasIndex(&model.Review{}, "idx_reviews_book_user"))
	assert.True(t, testDB.Migrator().HasIndex(&model.Book{}, "idx_books_isbn_active"))
	assert.False(t, testDB.Migrator().HasIndex(&model.Book{}, "idx_books_isbn"))
}

func TestSeedAdmin(t *testing.T) {
	testDB, err := SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { CleanupTestDB(testDB) })

	cfg := config.AdminConfig{Username: "root", Email: "root@example.com", Password: "Sup3r-Secret!"}

	require.NoError(t, SeedAdmin(testDB, cfg))
	// second run is a no-op
	require.NoError(t, SeedAdmin(testDB, cfg))

	var users []model.User
	require.NoError(t, testDB.Find(&users).Error)
	require.Len(t, users, 1)
	assert.Equal(t, model.RoleAdmin, users[0].Role)
	assert.True(t, util.VerifyPassword(users[0].PasswordHash, "Sup3r-Secret!"))

	var carts int64
	require.NoError(t, testDB.Model(&model.Cart{}).Where("user_id = ?", users[0].ID).Count(&carts).Error)
	assert.Equal(t, int64(1), carts)
}

func TestSeedAdmin_SkippedWithoutPassword(t *testing.T) {
	testDB, err := SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { CleanupTestDB(testDB) })

	require.NoError(t, SeedAdmin(testDB, config.AdminConfig{Username: "root"}))

	var count int64
	testDB.Model(&model.User{}).Count(&count)
	assert.Zero(t, count)
}

func TestTruncateAllTables(t *testing.T) {
	testDB, err := SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { CleanupTestDB(testDB) })

	user := &model.User{Username: "reader", Email: "reader@example.com", PasswordHash: "x"}
	require.NoError(t, testDB.Create(user).Error)
	require.NoError(t, testDB.Create(&model.Cart{UserID: user.ID}).Error)

	require.NoError(t, TruncateAllTables(testDB))

	var count int64
	testDB.Unscoped().Model(&model.User{}).Count(&count)
	assert.Zero(t, count)
}

func TestMigrate_DropsLegacyISBNIndex(t *testing.T) {
	testDB, err := SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { CleanupTestDB(testDB) })

	require.NoError(t, testDB.Exec("CREATE UNIQUE INDEX idx_books_isbn ON books (isbn)").Error)
	require.NoError(t, migrate(testDB))

	assert.False(t, testDB.Migrator().HasIndex(&model.Book{}, "idx_books_isbn"))
	assert.True(t, testDB.Migrator().HasIndex(&model.Book{}, "idx_books_isbn_active"))
}
