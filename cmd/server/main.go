package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ikkim/bookstore-backend/config"
	"github.com/ikkim/bookstore-backend/internal/app/controller"
	"github.com/ikkim/bookstore-backend/internal/app/repository"
	"github.com/ikkim/bookstore-backend/internal/app/service"
	"github.com/ikkim/bookstore-backend/internal/db"
	"github.com/ikkim/bookstore-backend/internal/events"
	"github.com/ikkim/bookstore-backend/internal/middleware"
	"github.com/ikkim/bookstore-backend/internal/router"
	"github.com/ikkim/bookstore-backend/internal/scheduler"
	"github.com/ikkim/bookstore-backend/internal/storage"
	"github.com/ikkim/bookstore-backend/internal/websocket"
	"github.com/ikkim/bookstore-backend/pkg/logger"
	"github.com/ikkim/bookstore-backend/pkg/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	logFormat := "json"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
		logFormat = "console"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      logFormat,
		EnableColor: true,
	})

	logger.Info("Starting Bookstore Backend Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"db_driver":   cfg.Database.Driver,
		"log_level":   logLevel,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	if err := db.SeedAdmin(db.GetDB(), cfg.Admin); err != nil {
		logger.Warn("Failed to seed admin user", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Refresh token blacklist (optional)
	var blacklist service.TokenBlacklist
	if cfg.Redis.Enabled {
		if err := redis.Init(&cfg.Redis); err != nil {
			logger.Warn("Redis unavailable, token blacklist disabled", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			blacklist = redis.NewTokenBlacklist(redis.GetClient())
			defer redis.Close()
		}
	}

	// Event fan-out: WebSocket hub always, RabbitMQ when configured
	hub := websocket.NewHub()
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go hub.Run(hubCtx)

	publishers := events.Multi{hub}
	rabbit, err := events.NewRabbitPublisher(cfg.AMQP)
	if err != nil {
		logger.Warn("RabbitMQ unavailable, broker events disabled", map[string]interface{}{
			"error": err.Error(),
		})
	} else if rabbit != nil {
		publishers = append(publishers, rabbit)
		defer rabbit.Close()
	}

	// Cover storage (optional)
	var covers service.CoverStorage
	if cfg.S3.Bucket != "" {
		covers = storage.NewS3Storage(cfg.S3)
		logger.Info("S3 cover storage enabled", map[string]interface{}{
			"bucket": cfg.S3.Bucket,
			"region": cfg.S3.Region,
		})
	}

	// Initialize repositories
	gormDB := db.GetDB()
	userRepo := repository.NewUserRepository(gormDB)
	bookRepo := repository.NewBookRepository(gormDB)
	cartRepo := repository.NewCartRepository(gormDB)
	orderRepo := repository.NewOrderRepository(gormDB)
	reviewRepo := repository.NewReviewRepository(gormDB)

	// Initialize services
	authService := service.NewAuthService(
		gormDB,
		userRepo,
		cartRepo,
		blacklist,
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	bookService := service.NewBookService(bookRepo, covers)
	cartService := service.NewCartService(cartRepo, bookRepo)
	orderService := service.NewOrderService(gormDB, orderRepo, cartRepo, bookRepo, publishers)
	reviewService := service.NewReviewService(reviewRepo, bookRepo)

	// Low stock report
	lowStock := scheduler.NewLowStockScheduler(
		cfg.Scheduler.LowStockSpec,
		cfg.Scheduler.LowStockThreshold,
		bookService,
		publishers,
	)
	if err := lowStock.Start(); err != nil {
		logger.Warn("Low stock scheduler not started", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		defer lowStock.Stop()
	}

	// Initialize controllers
	authController := controller.NewAuthController(authService)
	bookController := controller.NewBookController(bookService)
	cartController := controller.NewCartController(cartService)
	orderController := controller.NewOrderController(orderService)
	reviewController := controller.NewReviewController(reviewService)
	wsController := controller.NewWSController(hub, cfg.CORS.AllowedOrigins)

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)

	r := router.NewRouter(
		authController,
		bookController,
		cartController,
		orderController,
		reviewController,
		wsController,
		authMiddleware,
		cfg,
	)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r.Setup(),
	}

	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}

	logger.Info("Server stopped successfully")
}
