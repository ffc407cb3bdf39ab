package main

import (
	"log"
	"net/http"
	"os"

	"qr-order-api/authz"
	"qr-order-api/config"
	"qr-order-api/handlers"
	"qr-order-api/logging"
	"qr-order-api/middleware"
	"qr-order-api/routes"
	"qr-order-api/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := config.Load()
	logger := logging.Init("qr-order-api", cfg.LogPath)

	// Set Gin mode
	if mode := os.Getenv("GIN_MODE"); mode == "" {
		gin.SetMode(gin.DebugMode)
	}

	db, err := config.OpenDB(cfg)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	logger.Info("database connected and migrated", "path", cfg.DBPath)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Metrics())

	// CORS middleware for frontend integration
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "QR Order API",
			"version": "1.0.0",
		})
	})

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	tokens := middleware.NewTokenManager(cfg.JWTSecret)
	resolver := authz.NewResolver(db)
	orders := services.NewOrderService(db, resolver, logging.New("order_service"))
	h := handlers.New(db, tokens, resolver, orders)

	routes.SetupRoutes(r, h, tokens)

	logger.Info("server starting", "port", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
