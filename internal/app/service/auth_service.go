package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/ikkim/bookstore-backend/internal/app/model"
	"github.com/ikkim/bookstore-backend/internal/app/repository"
	"github.com/ikkim/bookstore-backend/pkg/logger"
	"github.com/ikkim/bookstore-backend/pkg/util"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("no active account found with the given credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrTokenRevoked       = errors.New("token is blacklisted")
)

const (
	msgPasswordMismatch = "Password fields didn't match."
	msgUsernameTaken    = "A user with that username already exists."
)

// FieldErrors is a validation failure keyed by request field.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// TokenBlacklist is satisfied by *redis.TokenBlacklist.
type TokenBlacklist interface {
	Revoke(ctx context.Context, token string, ttl time.Duration) error
	IsRevoked(ctx context.Context, token string) (bool, error)
}

type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	Password2 string
	FirstName string
	LastName  string
}

type AuthService interface {
	Register(input RegisterInput) (*model.User, error)
	Login(username, password string) (*util.TokenPair, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Blacklist(ctx context.Context, refreshToken string) error
	GetUserByID(id uint) (*model.User, error)
}

type authService struct {
	db            *gorm.DB
	userRepo      repository.UserRepository
	cartRepo      repository.CartRepository
	blacklist     TokenBlacklist
	jwtSecret     string
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

// NewAuthService builds the service. blacklist may be nil, in which case refresh
// tokens cannot be revoked.
func NewAuthService(
	db *gorm.DB,
	userRepo repository.UserRepository,
	cartRepo repository.CartRepository,
	blacklist TokenBlacklist,
	jwtSecret string,
	accessExpiry, refreshExpiry time.Duration,
) AuthService {
	return &authService{
		db:            db,
		userRepo:      userRepo,
		cartRepo:      cartRepo,
		blacklist:     blacklist,
		jwtSecret:     jwtSecret,
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}
}

// Register validates the input, then creates the user and its empty cart in one transaction.
func (s *authService) Register(input RegisterInput) (*model.User, error) {
	logger.Info("Attempting user registration", logger.Fields{
		"username": input.Username,
		"email":    input.Email,
	})

	if input.Password != input.Password2 {
		return nil, FieldErrors{"password": msgPasswordMismatch}
	}

	if problems := util.PasswordProblems(input.Password, input.Username, input.Email, input.FirstName, input.LastName); len(problems) > 0 {
		logger.Warn("Registration failed: weak password", logger.Fields{
			"username": input.Username,
		})
		return nil, FieldErrors{"password": strings.Join(problems, " ")}
	}

	if _, err := s.userRepo.FindByUsername(input.Username); err == nil {
		logger.Warn("Registration failed: username already exists", logger.Fields{
			"username": input.Username,
		})
		return nil, FieldErrors{"username": msgUsernameTaken}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("Failed to check existing user", err, logger.Fields{
			"username": input.Username,
		})
		return nil, err
	}

	hashedPassword, err := util.HashPassword(input.Password)
	if err != nil {
		logger.Error("Failed to hash password", err, logger.Fields{
			"username": input.Username,
		})
		return nil, err
	}

	user := &model.User{
		Username:     input.Username,
		Email:        input.Email,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		PasswordHash: hashedPassword,
		Role:         model.RoleUser,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.userRepo.WithTx(tx).Create(user); err != nil {
			return err
		}
		return s.cartRepo.WithTx(tx).Create(&model.Cart{UserID: user.ID})
	})
	if err != nil {
		// lost a race against a concurrent registration with the same username
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, FieldErrors{"username": msgUsernameTaken}
		}
		logger.Error("Failed to register user", err, logger.Fields{
			"username": input.Username,
		})
		return nil, err
	}

	logger.Info("User registered successfully", logger.Fields{
		"user_id":  user.ID,
		"username": user.Username,
	})
	return user, nil
}

func (s *authService) Login(username, password string) (*util.TokenPair, error) {
	logger.Info("Login attempt", logger.Fields{
		"username": username,
	})

	user, err := s.userRepo.FindByUsername(username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Login failed: user not found", logger.Fields{
				"username": username,
			})
			return nil, ErrInvalidCredentials
		}
		logger.Error("Failed to find user", err, logger.Fields{
			"username": username,
		})
		return nil, err
	}

	if !util.VerifyPassword(user.PasswordHash, password) {
		logger.Warn("Login failed: invalid password", logger.Fields{
			"user_id": user.ID,
		})
		return nil, ErrInvalidCredentials
	}

	tokens, err := util.GenerateTokenPair(
		user.ID,
		user.Username,
		user.Email,
		string(user.Role),
		s.jwtSecret,
		s.accessExpiry,
		s.refreshExpiry,
	)
	if err != nil {
		logger.Error("Failed to generate tokens", err, logger.Fields{
			"user_id": user.ID,
		})
		return nil, err
	}

	logger.Info("User logged in successfully", logger.Fields{
		"user_id": user.ID,
	})
	return tokens, nil
}

// Refresh exchanges a valid, non-revoked refresh token for a new access token.
// The user is reloaded so role changes take effect.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := util.ValidateTokenOfType(refreshToken, s.jwtSecret, util.TokenTypeRefresh)
	if err != nil {
		logger.Warn("Refresh failed: invalid token", logger.Fields{
			"error": err.Error(),
		})
		return "", err
	}

	if s.blacklist != nil {
		revoked, err := s.blacklist.IsRevoked(ctx, refreshToken)
		if err != nil {
			return "", err
		}
		if revoked {
			logger.Warn("Refresh failed: token revoked", logger.Fields{
				"user_id": claims.UserID,
			})
			return "", ErrTokenRevoked
		}
	}

	user, err := s.userRepo.FindByID(claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrUserNotFound
		}
		return "", err
	}

	access, err := util.GenerateAccessToken(&util.Claims{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     string(user.Role),
	}, s.jwtSecret, s.accessExpiry)
	if err != nil {
		logger.Error("Failed to generate access token", err, logger.Fields{
			"user_id": user.ID,
		})
		return "", err
	}
	return access, nil
}

// Blacklist revokes a refresh token until it would have expired.
func (s *authService) Blacklist(ctx context.Context, refreshToken string) error {
	claims, err := util.ValidateTokenOfType(refreshToken, s.jwtSecret, util.TokenTypeRefresh)
	if err != nil {
		return err
	}

	if s.blacklist == nil {
		logger.Warn("Token blacklist not configured, revocation skipped", logger.Fields{
			"user_id": claims.UserID,
		})
		return nil
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if err := s.blacklist.Revoke(ctx, refreshToken, ttl); err != nil {
		return err
	}

	logger.Info("Refresh token blacklisted", logger.Fields{
		"user_id": claims.UserID,
	})
	return nil
}

func (s *authService) GetUserByID(id uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		logger.Error("Failed to find user", err, logger.Fields{
			"user_id": id,
		})
		return nil, err
	}
	return user, nil
}
