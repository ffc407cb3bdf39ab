// Package services holds the order transaction manager: the atomic
// placement of an order with its line items and sales-counter updates,
// and the guarded status lifecycle.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"qr-order-api/apperrors"
	"qr-order-api/authz"
	"qr-order-api/models"
	"qr-order-api/statemachine"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderLine is one cart entry submitted at checkout. Price is the price
// the client saw; it is checked against the current menu price but the
// persisted snapshot always comes from the menu, never the client.
type OrderLine struct {
	MenuItemID uint `json:"menu_item_id" binding:"required"`
	Quantity   int  `json:"quantity" binding:"required,min=1"`
	Price      int  `json:"price"`
}

type OrderService struct {
	db       *gorm.DB
	resolver *authz.Resolver
	logger   *slog.Logger
}

func NewOrderService(db *gorm.DB, resolver *authz.Resolver, logger *slog.Logger) *OrderService {
	return &OrderService{db: db, resolver: resolver, logger: logger}
}

// PlaceOrder atomically creates an order with its line items and bumps
// each referenced menu item's sales counter. Totals are recomputed from
// the menu prices read inside the transaction; a client-submitted total
// that disagrees means the cart is stale and the order is rejected.
// Any failure rolls the whole unit of work back.
func (s *OrderService) PlaceOrder(ctx context.Context, userID, restaurantID uint, lines []OrderLine, clientTotal int) (*models.Order, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: order must contain at least one item", apperrors.ErrValidation)
	}
	for _, l := range lines {
		if l.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity must be at least 1", apperrors.ErrValidation)
		}
		if l.Price < 0 {
			return nil, fmt.Errorf("%w: price must not be negative", apperrors.ErrValidation)
		}
	}

	order := &models.Order{
		UserID:       userID,
		RestaurantID: restaurantID,
		OrderNumber:  newOrderNumber(),
		Status:       models.StatusPending,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var restaurant models.Restaurant
		if err := tx.First(&restaurant, restaurantID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: restaurant %d", apperrors.ErrBadReference, restaurantID)
			}
			return infra(err)
		}

		total := 0
		qtyByItem := make(map[uint]int)
		items := make([]models.OrderItem, 0, len(lines))
		for _, l := range lines {
			var menu models.MenuItem
			if err := tx.First(&menu, l.MenuItemID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: menu item %d", apperrors.ErrBadReference, l.MenuItemID)
				}
				return infra(err)
			}
			if menu.RestaurantID != restaurantID {
				return fmt.Errorf("%w: menu item %d does not belong to restaurant %d",
					apperrors.ErrBadReference, menu.ID, restaurantID)
			}
			if !menu.IsAvailable {
				return fmt.Errorf("%w: menu item %q is sold out", apperrors.ErrValidation, menu.Name)
			}
			if l.Price != 0 && l.Price != menu.Price {
				return fmt.Errorf("%w: price of %q has changed", apperrors.ErrValidation, menu.Name)
			}

			total += menu.Price * l.Quantity
			qtyByItem[menu.ID] += l.Quantity
			items = append(items, models.OrderItem{
				MenuItemID: menu.ID,
				Name:       menu.Name,
				Price:      menu.Price,
				Quantity:   l.Quantity,
			})
		}

		if clientTotal != 0 && clientTotal != total {
			return fmt.Errorf("%w: submitted total %d does not match current prices (%d)",
				apperrors.ErrValidation, clientTotal, total)
		}

		order.TotalAmount = total
		order.Items = items
		if err := tx.Create(order).Error; err != nil {
			return infra(err)
		}

		// Relative delta applied by the store, not read-modify-write:
		// concurrent orders against the same item must both count.
		for itemID, qty := range qtyByItem {
			res := tx.Model(&models.MenuItem{}).Where("id = ?", itemID).
				UpdateColumn("total_sales", gorm.Expr("total_sales + ?", qty))
			if res.Error != nil {
				return infra(res.Error)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order placed",
		"order_id", order.ID,
		"order_number", order.OrderNumber,
		"user_id", userID,
		"restaurant_id", restaurantID,
		"total", order.TotalAmount)
	return order, nil
}

// TransitionOrder moves an order along the status state machine on behalf
// of the caller. The update is a compare-and-set on the current status, so
// a concurrent transition loses cleanly instead of overwriting.
func (s *OrderService) TransitionOrder(ctx context.Context, orderID uint, target models.OrderStatus, caller authz.Identity) (*models.Order, error) {
	db := s.db.WithContext(ctx)

	var order models.Order
	if err := db.First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, infra(err)
	}

	actors, err := s.resolver.TransitionActors(caller, &order)
	if err != nil {
		return nil, err
	}

	var fsmErr error
	allowed := false
	for _, actor := range actors {
		if fsmErr = statemachine.CanTransition(order.Status, target, actor); fsmErr == nil {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, fsmErr
	}

	updates := map[string]interface{}{"status": target}
	if target == models.StatusCompleted {
		now := time.Now()
		updates["completed_at"] = &now
	}

	res := db.Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, order.Status).
		Updates(updates)
	if res.Error != nil {
		return nil, infra(res.Error)
	}
	if res.RowsAffected == 0 {
		// Lost a race with a concurrent transition.
		return nil, fmt.Errorf("%w: order status changed concurrently", apperrors.ErrInvalidTransition)
	}

	s.logger.Info("order status updated",
		"order_id", order.ID,
		"from", order.Status,
		"to", target,
		"actor_id", caller.UserID)

	if err := db.First(&order, orderID).Error; err != nil {
		return nil, infra(err)
	}
	return &order, nil
}

func infra(err error) error {
	return fmt.Errorf("%w: %v", apperrors.ErrInfrastructure, err)
}

// newOrderNumber returns a short unique human-readable order reference.
func newOrderNumber() string {
	return "ORD-" + strings.ToUpper(uuid.NewString()[:13])
}
