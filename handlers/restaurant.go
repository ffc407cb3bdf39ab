package handlers

import (
	"net/http"

	"qr-order-api/middleware"
	"qr-order-api/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// ── Restaurant Management ────────────────────────────────────────────────────

type CreateRestaurantRequest struct {
	Name        string `json:"name" binding:"required"`
	Address     string `json:"address"`
	Phone       string `json:"phone"`
	Description string `json:"description"`
}

// CreateRestaurant lets an owner-role user create a restaurant
func (h *Handler) CreateRestaurant(c *gin.Context) {
	ownerID := middleware.GetUserID(c)
	var req CreateRestaurantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	restaurant := models.Restaurant{
		OwnerID:     ownerID,
		Name:        req.Name,
		Address:     req.Address,
		Phone:       req.Phone,
		Description: req.Description,
	}
	if err := h.db.Create(&restaurant).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create restaurant"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Restaurant created", "restaurant": restaurant})
}

// GetMyRestaurants fetches all restaurants owned by the logged-in user
func (h *Handler) GetMyRestaurants(c *gin.Context) {
	ownerID := middleware.GetUserID(c)
	var restaurants []models.Restaurant
	h.db.Preload("MenuItems").Where("owner_id = ?", ownerID).Find(&restaurants)
	c.JSON(http.StatusOK, gin.H{"count": len(restaurants), "restaurants": restaurants})
}

// UpdateRestaurant updates restaurant details (owner only)
func (h *Handler) UpdateRestaurant(c *gin.Context) {
	restaurantID, err := parseID(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.resolver.RequireRestaurantOwner(middleware.Caller(c), restaurantID); err != nil {
		fail(c, err)
		return
	}

	var req map[string]interface{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	// Only allow safe fields
	allowed := map[string]bool{"name": true, "address": true, "phone": true, "description": true}
	update := map[string]interface{}{}
	for k, v := range req {
		if allowed[k] {
			update[k] = v
		}
	}

	var restaurant models.Restaurant
	if err := h.db.First(&restaurant, restaurantID).Error; err != nil {
		fail(c, infra(err))
		return
	}
	if err := h.db.Model(&restaurant).Updates(update).Error; err != nil {
		fail(c, infra(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Restaurant updated", "restaurant": restaurant})
}

// DeleteRestaurant removes a restaurant and its menu (owner only).
// Menu items go with the restaurant in one transaction; orders keep their
// snapshots and stay in place as history.
func (h *Handler) DeleteRestaurant(c *gin.Context) {
	restaurantID, err := parseID(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.resolver.RequireRestaurantOwner(middleware.Caller(c), restaurantID); err != nil {
		fail(c, err)
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("restaurant_id = ?", restaurantID).Delete(&models.MenuItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Restaurant{}, restaurantID).Error
	})
	if err != nil {
		fail(c, infra(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Restaurant deleted"})
}

// ── Menu Management ─────────────────────────────────────────────────────────

type CreateMenuItemRequest struct {
	Name          string `json:"name" binding:"required"`
	Description   string `json:"description"`
	Price         *int   `json:"price" binding:"required,gte=0"` // pointer so a free item (price 0) passes required
	Category      string `json:"category"`
	Ingredients   string `json:"ingredients"`
	IsRecommended bool   `json:"is_recommended"`
}

// AddMenuItem adds a new item to a restaurant's menu (owner only)
func (h *Handler) AddMenuItem(c *gin.Context) {
	restaurantID, err := parseID(c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.resolver.RequireRestaurantOwner(middleware.Caller(c), restaurantID); err != nil {
		fail(c, err)
		return
	}

	var req CreateMenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	item := models.MenuItem{
		RestaurantID:  restaurantID,
		Name:          req.Name,
		Description:   req.Description,
		Price:         *req.Price,
		Category:      req.Category,
		Ingredients:   req.Ingredients,
		IsRecommended: req.IsRecommended,
		IsAvailable:   true,
	}
	if err := h.db.Create(&item).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add menu item"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Menu item added", "item": item})
}

// UpdateMenuItem updates a menu item (only by the restaurant owner)
func (h *Handler) UpdateMenuItem(c *gin.Context) {
	itemID, err := parseID(c.Param("itemId"))
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.resolver.RequireMenuItemOwner(middleware.Caller(c), itemID); err != nil {
		fail(c, err)
		return
	}

	var req map[string]interface{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if price, ok := req["price"].(float64); ok && price < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Price must not be negative"})
		return
	}
	// The sales counter is maintained by order placement only
	allowed := map[string]bool{
		"name": true, "description": true, "price": true, "category": true,
		"ingredients": true, "is_available": true, "is_recommended": true,
	}
	update := map[string]interface{}{}
	for k, v := range req {
		if allowed[k] {
			update[k] = v
		}
	}

	var item models.MenuItem
	if err := h.db.First(&item, itemID).Error; err != nil {
		fail(c, infra(err))
		return
	}
	if err := h.db.Model(&item).Updates(update).Error; err != nil {
		fail(c, infra(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Menu item updated", "item": item})
}

// DeleteMenuItem removes a menu item (only by the restaurant owner)
func (h *Handler) DeleteMenuItem(c *gin.Context) {
	itemID, err := parseID(c.Param("itemId"))
	if err != nil {
		fail(c, err)
		return
	}
	if err := h.resolver.RequireMenuItemOwner(middleware.Caller(c), itemID); err != nil {
		fail(c, err)
		return
	}

	if err := h.db.Delete(&models.MenuItem{}, itemID).Error; err != nil {
		fail(c, infra(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Menu item deleted"})
}
