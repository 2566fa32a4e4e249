package service

import (
	"context"
	"testing"
	"time"

	"github.com/ikkim/bookstore-backend/internal/app/model"
	"github.com/ikkim/bookstore-backend/internal/app/repository"
	"github.com/ikkim/bookstore-backend/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const testJWTSecret = "test-jwt-secret"

func setupAuthServiceTest(t *testing.T, blacklist TokenBlacklist) (AuthService, *gorm.DB) {
	testDB := setupServiceDB(t)

	authService := NewAuthService(
		testDB,
		repository.NewUserRepository(testDB),
		repository.NewCartRepository(testDB),
		blacklist,
		testJWTSecret,
		15*time.Minute,
		24*time.Hour,
	)
	return authService, testDB
}

func validRegistration(username string) RegisterInput {
	return RegisterInput{
		Username:  username,
		Email:     username + "@example.com",
		Password:  "Tr1cky-Horse-Battery",
		Password2: "Tr1cky-Horse-Battery",
		FirstName: "Ada",
		LastName:  "Lovelace",
	}
}

func TestAuthService_Register(t *testing.T) {
	authService, testDB := setupAuthServiceTest(t, nil)

	user, err := authService.Register(validRegistration("reader"))
	require.NoError(t, err)
	assert.NotZero(t, user.ID)
	assert.Equal(t, model.RoleUser, user.Role)
	assert.NotEqual(t, "Tr1cky-Horse-Battery", user.PasswordHash)

	var carts []model.Cart
	require.NoError(t, testDB.Where("user_id = ?", user.ID).Find(&carts).Error)
	require.Len(t, carts, 1, "registration provisions exactly one cart")

	var items int64
	testDB.Model(&model.CartItem{}).Where("cart_id = ?", carts[0].ID).Count(&items)
	assert.Zero(t, items)
}

func TestAuthService_RegisterValidation(t *testing.T) {
	authService, testDB := setupAuthServiceTest(t, nil)
	_, err := authService.Register(validRegistration("taken"))
	require.NoError(t, err)

	tests := []struct {
		name      string
		mutate    func(in *RegisterInput)
		wantField string
		wantMsg   string
	}{
		{
			name: "Password mismatch",
			mutate: func(in *RegisterInput) {
				in.Password2 = "something-else-entirely"
			},
			wantField: "password",
			wantMsg:   "Password fields didn't match.",
		},
		{
			name: "Too short",
			mutate: func(in *RegisterInput) {
				in.Password, in.Password2 = "x7!a", "x7!a"
			},
			wantField: "password",
			wantMsg:   "too short",
		},
		{
			name: "Entirely numeric",
			mutate: func(in *RegisterInput) {
				in.Password, in.Password2 = "9081726354", "9081726354"
			},
			wantField: "password",
			wantMsg:   "entirely numeric",
		},
		{
			name: "Similar to username",
			mutate: func(in *RegisterInput) {
				in.Password, in.Password2 = "newcomer2024", "newcomer2024"
			},
			wantField: "password",
			wantMsg:   "too similar",
		},
		{
			name: "Username taken",
			mutate: func(in *RegisterInput) {
				in.Username = "taken"
			},
			wantField: "username",
			wantMsg:   "already exists",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := validRegistration("newcomer")
			tt.mutate(&input)

			_, err := authService.Register(input)
			var fieldErrs FieldErrors
			require.ErrorAs(t, err, &fieldErrs)
			assert.Contains(t, fieldErrs[tt.wantField], tt.wantMsg)
		})
	}

	var users int64
	testDB.Model(&model.User{}).Count(&users)
	assert.EqualValues(t, 1, users, "failed registrations must not create users")

	var carts int64
	testDB.Model(&model.Cart{}).Count(&carts)
	assert.EqualValues(t, 1, carts)
}

func TestAuthService_Login(t *testing.T) {
	authService, _ := setupAuthServiceTest(t, nil)
	user, err := authService.Register(validRegistration("login"))
	require.NoError(t, err)

	t.Run("Valid credentials", func(t *testing.T) {
		tokens, err := authService.Login("login", "Tr1cky-Horse-Battery")
		require.NoError(t, err)

		claims, err := util.ValidateTokenOfType(tokens.AccessToken, testJWTSecret, util.TokenTypeAccess)
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.UserID)
		assert.Equal(t, "login", claims.Username)
		assert.Equal(t, "user", claims.Role)
	})

	t.Run("Wrong password", func(t *testing.T) {
		_, err := authService.Login("login", "wrong-password")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("Unknown user", func(t *testing.T) {
		_, err := authService.Login("ghost", "Tr1cky-Horse-Battery")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestAuthService_Refresh(t *testing.T) {
	blacklist := newMemoryBlacklist()
	authService, _ := setupAuthServiceTest(t, blacklist)
	_, err := authService.Register(validRegistration("refresher"))
	require.NoError(t, err)

	tokens, err := authService.Login("refresher", "Tr1cky-Horse-Battery")
	require.NoError(t, err)

	access, err := authService.Refresh(context.Background(), tokens.RefreshToken)
	require.NoError(t, err)
	_, err = util.ValidateTokenOfType(access, testJWTSecret, util.TokenTypeAccess)
	assert.NoError(t, err)

	_, err = authService.Refresh(context.Background(), tokens.AccessToken)
	assert.ErrorIs(t, err, util.ErrInvalidToken, "access tokens cannot be used to refresh")

	require.NoError(t, authService.Blacklist(context.Background(), tokens.RefreshToken))
	_, err = authService.Refresh(context.Background(), tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestAuthService_BlacklistWithoutStore(t *testing.T) {
	authService, _ := setupAuthServiceTest(t, nil)
	_, err := authService.Register(validRegistration("nostore"))
	require.NoError(t, err)

	tokens, err := authService.Login("nostore", "Tr1cky-Horse-Battery")
	require.NoError(t, err)

	assert.NoError(t, authService.Blacklist(context.Background(), tokens.RefreshToken))
	assert.Error(t, authService.Blacklist(context.Background(), "not-a-token"))
}

func TestAuthService_GetUserByID(t *testing.T) {
	authService, _ := setupAuthServiceTest(t, nil)
	user, err := authService.Register(validRegistration("profile"))
	require.NoError(t, err)

	found, err := authService.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "profile", found.Username)
	assert.Equal(t, "Ada", found.FirstName)

	_, err = authService.GetUserByID(9999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
