package handlers

import (
	"net/http"

	"qr-order-api/middleware"
	"qr-order-api/models"

	"github.com/gin-gonic/gin"
)

// GetRestaurantOrders returns all orders placed at a restaurant, for its
// owner. Supports filtering by status.
func (h *Handler) GetRestaurantOrders(c *gin.Context) {
	restaurantID, err := parseID(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.resolver.RequireRestaurantOwner(middleware.Caller(c), restaurantID); err != nil {
		fail(c, err)
		return
	}

	var orders []models.Order
	query := h.db.Preload("Items").Preload("User").
		Where("restaurant_id = ?", restaurantID)

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	query.Order("created_at desc").Find(&orders)

	// Dashboard summary: counts grouped by status
	summary := map[string]int{}
	for _, o := range orders {
		summary[string(o.Status)]++
	}

	c.JSON(http.StatusOK, gin.H{
		"order_summary": summary,
		"count":         len(orders),
		"orders":        orders,
	})
}
