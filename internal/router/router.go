package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/ikkim/bookstore-backend/config"
	"github.com/ikkim/bookstore-backend/internal/app/controller"
	"github.com/ikkim/bookstore-backend/internal/app/model"
	"github.com/ikkim/bookstore-backend/internal/middleware"
)

type Router struct {
	authController   *controller.AuthController
	bookController   *controller.BookController
	cartController   *controller.CartController
	orderController  *controller.OrderController
	reviewController *controller.ReviewController
	wsController     *controller.WSController
	authMiddleware   *middleware.AuthMiddleware
	config           *config.Config
}

func NewRouter(
	authController *controller.AuthController,
	bookController *controller.BookController,
	cartController *controller.CartController,
	orderController *controller.OrderController,
	reviewController *controller.ReviewController,
	wsController *controller.WSController,
	authMiddleware *middleware.AuthMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		authController:   authController,
		bookController:   bookController,
		cartController:   cartController,
		orderController:  orderController,
		reviewController: reviewController,
		wsController:     wsController,
		authMiddleware:   authMiddleware,
		config:           cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "Bookstore API is running",
		})
	})

	authenticated := r.authMiddleware.Authenticate()
	adminOnly := r.authMiddleware.RequireRole(model.RoleAdmin)

	api := router.Group("/api")
	{
		api.POST("/register/", r.authController.Register)
		api.POST("/token/", r.authController.Token)
		api.POST("/token/refresh/", r.authController.Refresh)
		api.POST("/token/blacklist/", r.authController.Blacklist)
		api.GET("/me/", authenticated, r.authController.Me)

		books := api.Group("/books")
		{
			books.GET("/", r.bookController.ListBooks)
			books.POST("/", authenticated, r.bookController.CreateBook)
			books.GET("/export/", authenticated, adminOnly, r.bookController.ExportBooks)
			books.GET("/:id/", r.bookController.GetBook)
			books.PUT("/:id/", authenticated, r.bookController.UpdateBook)
			books.PATCH("/:id/", authenticated, r.bookController.PatchBook)
			books.DELETE("/:id/", authenticated, r.bookController.DeleteBook)
			books.POST("/:id/cover/", authenticated, r.bookController.UploadCover)

			books.GET("/:id/reviews/", r.reviewController.ListBookReviews)
			books.POST("/:id/reviews/", authenticated, r.reviewController.CreateBookReview)
		}

		reviews := api.Group("/reviews")
		reviews.Use(authenticated)
		{
			reviews.GET("/", r.reviewController.ListReviews)
			reviews.GET("/:id/", r.reviewController.GetReview)
			reviews.PUT("/:id/", r.reviewController.UpdateReview)
			reviews.PATCH("/:id/", r.reviewController.PatchReview)
			reviews.DELETE("/:id/", r.reviewController.DeleteReview)
		}

		cart := api.Group("/cart")
		cart.Use(authenticated)
		{
			cart.GET("/", r.cartController.GetCart)
			cart.POST("/add_item/", r.cartController.AddItem)
			cart.POST("/remove_item/", r.cartController.RemoveItem)
			cart.POST("/update_item/", r.cartController.UpdateItem)
			cart.POST("/clear/", r.cartController.ClearCart)
		}

		orders := api.Group("/orders")
		orders.Use(authenticated)
		{
			orders.GET("/", r.orderController.ListOrders)
			orders.POST("/", r.orderController.CreateOrder)
			orders.GET("/:id/", r.orderController.GetOrder)
			orders.DELETE("/:id/", r.orderController.DeleteOrder)
			orders.PATCH("/:id/status/", adminOnly, r.orderController.UpdateStatus)
		}
	}

	if r.wsController != nil {
		router.GET("/ws/orders", r.authMiddleware.AuthenticateWebSocket(), r.wsController.OrderUpdates)
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Content-Length", "Accept", "Authorization", "X-Request-ID", "Cache-Control", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) == 0 {
		cfg.AllowOrigins = nil
		cfg.AllowAllOrigins = true
	}
	return cors.New(cfg)
}
