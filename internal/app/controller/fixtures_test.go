package controller

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/bookstore-backend/internal/app/model"
	"github.com/ikkim/bookstore-backend/internal/db"
	"github.com/ikkim/bookstore-backend/internal/middleware"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupControllerDB(t *testing.T) *gorm.DB {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})
	gin.SetMode(gin.TestMode)
	return testDB
}

func createUser(t *testing.T, testDB *gorm.DB, username string, role model.UserRole) *model.User {
	t.Helper()
	user := &model.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
		Role:         role,
	}
	require.NoError(t, testDB.Create(user).Error)
	require.NoError(t, testDB.Create(&model.Cart{UserID: user.ID}).Error)
	return user
}

func createBook(t *testing.T, testDB *gorm.DB, owner *model.User, title, isbn, price string, stock int) *model.Book {
	t.Helper()
	book := &model.Book{
		Title:         title,
		Author:        "Author",
		Price:         decimal.RequireFromString(price),
		ISBN:          isbn,
		Genre:         "fiction",
		StockQuantity: stock,
		UserID:        owner.ID,
	}
	require.NoError(t, testDB.Omit("Owner").Create(book).Error)
	return book
}

// as stands in for the auth middleware. A nil user leaves the request anonymous.
func as(user *model.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user != nil {
			c.Set(middleware.UserIDKey, user.ID)
			c.Set(middleware.UsernameKey, user.Username)
			c.Set(middleware.UserRoleKey, user.Role)
		}
		c.Next()
	}
}

func perform(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeObject(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), w.Body.String())
	return response
}

func decodeList(t *testing.T, w *httptest.ResponseRecorder) []map[string]interface{} {
	t.Helper()
	var response []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), w.Body.String())
	return response
}

func fields(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	response := decodeObject(t, w)
	f, ok := response["fields"].(map[string]interface{})
	require.True(t, ok, "expected a fields map in %s", w.Body.String())
	return f
}

func uintToString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
