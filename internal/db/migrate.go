package db

import (
	"errors"
	"fmt"

	"github.com/ikkim/bookstore-backend/config"
	"github.com/ikkim/bookstore-backend/internal/app/model"
	"github.com/ikkim/bookstore-backend/pkg/logger"
	"github.com/ikkim/bookstore-backend/pkg/util"
	"gorm.io/gorm"
)

// Models lists every persisted type in dependency order.
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Book{},
		&model.Cart{},
		&model.CartItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.Review{},
	}
}

// Migrate creates or updates the schema.
func Migrate() error {
	return migrate(DB)
}

func migrate(db *gorm.DB) error {
	logger.Info("Running database migrations...")

	// ISBN uniqueness used to include soft deleted books
	if db.Migrator().HasIndex(&model.Book{}, "idx_books_isbn") {
		if err := db.Migrator().DropIndex(&model.Book{}, "idx_books_isbn"); err != nil {
			logger.Error("Failed to drop legacy ISBN index", err)
			return err
		}
	}

	models := Models()
	if err := db.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	logger.Info("Database migrations completed successfully", logger.Fields{
		"models_count": len(models),
	})
	return nil
}

// SeedAdmin makes sure the configured admin account exists together with its cart.
// It does nothing when no admin password is configured.
func SeedAdmin(db *gorm.DB, cfg config.AdminConfig) error {
	if cfg.Password == "" {
		logger.Debug("Admin password not configured, skipping admin seed")
		return nil
	}

	var existing model.User
	err := db.Where("username = ?", cfg.Username).First(&existing).Error
	if err == nil {
		logger.Info("Admin user already exists, skipping...", logger.Fields{
			"username": cfg.Username,
		})
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to look up admin user: %w", err)
	}

	hash, err := util.HashPassword(cfg.Password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		admin := &model.User{
			Username:     cfg.Username,
			Email:        cfg.Email,
			PasswordHash: hash,
			Role:         model.RoleAdmin,
		}
		if err := tx.Create(admin).Error; err != nil {
			return fmt.Errorf("failed to create admin user: %w", err)
		}
		if err := tx.Create(&model.Cart{UserID: admin.ID}).Error; err != nil {
			return fmt.Errorf("failed to create admin cart: %w", err)
		}
		logger.Info("Admin user seeded", logger.Fields{
			"user_id":  admin.ID,
			"username": admin.Username,
		})
		return nil
	})
}
