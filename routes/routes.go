package routes

import (
	"qr-order-api/handlers"
	"qr-order-api/middleware"
	"qr-order-api/models"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, h *handlers.Handler, tokens *middleware.TokenManager) {
	// ── Public routes ──────────────────────────────────────────────
	public := r.Group("/api")
	{
		// Auth
		public.POST("/auth/register", h.Register)
		public.POST("/auth/login", h.Login)

		// Restaurants & menus (no auth needed)
		public.GET("/restaurants", h.ListRestaurants)
		public.GET("/restaurants/:id", h.GetRestaurant)
		public.GET("/restaurants/:id/menu", h.GetMenu)

		// Order lifecycle info
		public.GET("/state-machine", h.GetStateMachineInfo)
	}

	// ── Authenticated routes (any role) ────────────────────────────
	// Order access is decided by the ownership resolver, not by role:
	// an owner may also place orders at any restaurant.
	auth := r.Group("/api")
	auth.Use(tokens.AuthRequired())
	{
		auth.GET("/profile", h.GetProfile)

		auth.POST("/orders", h.PlaceOrder)
		auth.GET("/orders", h.ListMyOrders)
		auth.GET("/orders/:id", h.GetOrderDetail)
		auth.PUT("/orders/:id/cancel", h.CancelOrder)
		auth.PUT("/orders/:id/status", h.UpdateOrderStatus)
	}

	// ── Restaurant owner routes ────────────────────────────────────
	owner := r.Group("/api/restaurant")
	owner.Use(tokens.AuthRequired(), middleware.RoleRequired(models.RoleOwner))
	{
		// Restaurant management
		owner.POST("", h.CreateRestaurant)
		owner.GET("", h.GetMyRestaurants)
		owner.PUT("/:id", h.UpdateRestaurant)
		owner.DELETE("/:id", h.DeleteRestaurant)

		// Menu management
		owner.POST("/:id/menu", h.AddMenuItem)
		owner.PUT("/menu/:itemId", h.UpdateMenuItem)
		owner.DELETE("/menu/:itemId", h.DeleteMenuItem)

		// Order dashboard
		owner.GET("/:id/orders", h.GetRestaurantOrders)
	}
}
