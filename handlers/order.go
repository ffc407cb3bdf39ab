package handlers

import (
	"net/http"
	"strconv"

	"qr-order-api/apperrors"
	"qr-order-api/logging"
	"qr-order-api/middleware"
	"qr-order-api/models"
	"qr-order-api/services"

	"github.com/gin-gonic/gin"
)

type PlaceOrderRequest struct {
	RestaurantID uint                 `json:"restaurant_id" binding:"required"`
	Items        []services.OrderLine `json:"items" binding:"required,min=1,dive"`
	TotalAmount  int                  `json:"total_amount"`
}

// PlaceOrder creates a new order for the authenticated user. The server
// recomputes the total from current menu prices; the client-supplied
// total is only used to detect a stale cart.
func (h *Handler) PlaceOrder(c *gin.Context) {
	userID := middleware.GetUserID(c)

	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.orders.PlaceOrder(c.Request.Context(), userID, req.RestaurantID, req.Items, req.TotalAmount)
	if err != nil {
		fail(c, err)
		return
	}

	// Best-effort reload with associations; the service's return value
	// already carries the committed order if this fails.
	var full models.Order
	if err := h.db.Preload("Items").Preload("Restaurant").First(&full, order.ID).Error; err == nil {
		order = &full
	} else {
		logging.From(c).Error("failed to reload order after placement", "error", err, "order_id", order.ID)
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Order placed successfully",
		"order":   order,
	})
}

// ListMyOrders returns all orders placed by the authenticated user
func (h *Handler) ListMyOrders(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var orders []models.Order
	h.db.Preload("Items").Preload("Restaurant").
		Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&orders)
	c.JSON(http.StatusOK, gin.H{"count": len(orders), "orders": orders})
}

// GetOrderDetail returns a single order. Visible to the placer and to the
// owner of the restaurant it was placed at.
func (h *Handler) GetOrderDetail(c *gin.Context) {
	orderID, err := parseID(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	var order models.Order
	if err := h.db.
		Preload("Items.MenuItem").
		Preload("Restaurant").
		First(&order, orderID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found"})
		return
	}

	if err := h.resolver.CanReadOrder(middleware.Caller(c), &order); err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

// CancelOrder cancels the caller's own order while it is still pending
func (h *Handler) CancelOrder(c *gin.Context) {
	orderID, err := parseID(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	order, err := h.orders.TransitionOrder(c.Request.Context(), orderID, models.StatusCancelled, middleware.Caller(c))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Order cancelled successfully", "order_id": order.ID})
}

type UpdateOrderStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

// UpdateOrderStatus moves an order along its lifecycle. Authorization and
// edge validation happen in the transaction manager.
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	orderID, err := parseID(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := h.orders.TransitionOrder(c.Request.Context(), orderID, req.Status, middleware.Caller(c))
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":        "Order status updated",
		"order_id":       order.ID,
		"current_status": order.Status,
	})
}

func parseID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, apperrors.ErrValidation
	}
	return uint(id), nil
}
