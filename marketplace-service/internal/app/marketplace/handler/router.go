package handler

import (
	"net/http"

	"farmmarket/marketplace-service/internal/app/marketplace/entity"
	"farmmarket/pkg/logger"
	"farmmarket/pkg/metrics"
	"farmmarket/pkg/tracing"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers набор обработчиков сервиса
type Handlers struct {
	Orders   *OrderHandler
	Reviews  *ReviewHandler
	Farmers  *FarmerHandler
	Messages *MessageHandler
	Products *ProductHandler
}

// SetupRoutes настраивает все маршруты Marketplace Service
func SetupRoutes(h Handlers, authMiddleware *AuthMiddleware, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	// Recovery middleware для обработки panic
	router.Use(gin.Recovery())
	router.Use(tracing.GinMiddleware(metrics.ServiceName))
	router.Use(logger.GinLoggerMiddleware())
	router.Use(metrics.GinPrometheusMiddleware(metrics.ServiceName))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", logger.RequestIDHeader},
		ExposeHeaders:    []string{logger.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": metrics.ServiceName,
		})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authenticated := authMiddleware.Authenticate()
	optional := authMiddleware.OptionalAuthenticate()

	// Публичные чтения, видимость отзывов зависит от читателя
	farmers := router.Group("/farmers/:id")
	farmers.Use(optional)
	{
		farmers.GET("/rating", h.Farmers.GetRating)
		farmers.GET("/products", h.Farmers.ListProducts)
		farmers.GET("/reviews", h.Reviews.ListFarmerReviews)
	}
	router.GET("/reviews/:id", optional, h.Reviews.GetReview)
	router.GET("/products/:id", h.Products.GetProduct)
	router.GET("/products/:id/availability", h.Products.Availability)

	orders := router.Group("/orders")
	orders.Use(authenticated)
	{
		orders.POST("", authMiddleware.RequireRole(entity.RoleBuyer), h.Orders.CreateOrder)
		orders.GET("", h.Orders.ListOrders)
		orders.GET("/:id", h.Orders.GetOrder)
		orders.PATCH("/:id/status", authMiddleware.RequireRole(entity.RoleFarmer, entity.RoleAdmin), h.Orders.UpdateOrderStatus)
		orders.POST("/:id/cancel", authMiddleware.RequireRole(entity.RoleBuyer, entity.RoleAdmin), h.Orders.CancelOrder)
	}

	reviews := router.Group("/reviews")
	reviews.Use(authenticated)
	{
		reviews.GET("/eligibility", h.Reviews.CanReview)
		reviews.POST("", authMiddleware.RequireRole(entity.RoleBuyer, entity.RoleFarmer), h.Reviews.CreateReview)
		reviews.PUT("/:id", h.Reviews.UpdateReview)
		reviews.DELETE("/:id", h.Reviews.DeleteReview)
	}

	products := router.Group("/products")
	products.Use(authenticated, authMiddleware.RequireRole(entity.RoleFarmer, entity.RoleAdmin))
	{
		products.POST("", h.Products.CreateProduct)
		products.PATCH("/:id", h.Products.UpdateProduct)
		products.DELETE("/:id", h.Products.DeleteProduct)
	}

	messages := router.Group("/messages")
	messages.Use(authenticated)
	{
		messages.POST("", authMiddleware.RequireRole(entity.RoleBuyer, entity.RoleFarmer), h.Messages.SendMessage)
		messages.GET("", h.Messages.ListConversation)
		messages.POST("/:id/read", h.Messages.MarkRead)
	}

	// Очереди модерации и обслуживание рейтингов - только администратор
	admin := router.Group("/admin")
	admin.Use(authenticated, authMiddleware.RequireRole(entity.RoleAdmin))
	{
		admin.GET("/reviews/pending", h.Reviews.ListPending)
		admin.POST("/reviews/:id/moderate", h.Reviews.Moderate)
		admin.GET("/messages/pending", h.Messages.ListPending)
		admin.POST("/messages/:id/moderate", h.Messages.Moderate)
		admin.POST("/farmers/:user_id/rating", h.Farmers.RecomputeRating)
		admin.POST("/ratings/reconcile", h.Farmers.Reconcile)
	}

	return router
}
