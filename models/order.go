package models

import "time"

// OrderStatus represents all possible states of an order
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusAccepted  OrderStatus = "accepted"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
)

type Order struct {
	ID           uint        `json:"id" gorm:"primaryKey"`
	UserID       uint        `json:"user_id" gorm:"not null"`
	User         User        `json:"user,omitempty" gorm:"foreignKey:UserID"`
	RestaurantID uint        `json:"restaurant_id" gorm:"not null"`
	Restaurant   Restaurant  `json:"restaurant,omitempty" gorm:"foreignKey:RestaurantID"`
	OrderNumber  string      `json:"order_number" gorm:"uniqueIndex;not null"`
	TotalAmount  int         `json:"total_amount" gorm:"not null"`
	Status       OrderStatus `json:"status" gorm:"not null;default:'pending'"`
	Items        []OrderItem `json:"items,omitempty" gorm:"foreignKey:OrderID"`
	CompletedAt  *time.Time  `json:"completed_at"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

type OrderItem struct {
	ID         uint     `json:"id" gorm:"primaryKey"`
	OrderID    uint     `json:"order_id" gorm:"not null"`
	MenuItemID uint     `json:"menu_item_id" gorm:"not null"`
	MenuItem   MenuItem `json:"menu_item,omitempty" gorm:"foreignKey:MenuItemID"`
	Name       string   `json:"name"`                  // snapshot name
	Price      int      `json:"price" gorm:"not null"` // snapshot price at time of order
	Quantity   int      `json:"quantity" gorm:"not null"`
}
