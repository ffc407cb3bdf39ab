package models

import "time"

type Restaurant struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	OwnerID     uint       `json:"owner_id" gorm:"not null"`
	Owner       User       `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
	Name        string     `json:"name" gorm:"not null"`
	Address     string     `json:"address"`
	Phone       string     `json:"phone"`
	Description string     `json:"description"`
	MenuItems   []MenuItem `json:"menu_items,omitempty" gorm:"foreignKey:RestaurantID"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// MenuItem prices are integer amounts in the smallest currency unit.
type MenuItem struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	RestaurantID  uint      `json:"restaurant_id" gorm:"not null"`
	Name          string    `json:"name" gorm:"not null"`
	Description   string    `json:"description"`
	Price         int       `json:"price" gorm:"not null"`
	Category      string    `json:"category"`
	Ingredients   string    `json:"ingredients"`
	IsAvailable   bool      `json:"is_available" gorm:"default:true"`
	IsRecommended bool      `json:"is_recommended" gorm:"default:false"`
	TotalSales    int       `json:"total_sales" gorm:"not null;default:0"` // cumulative quantity sold
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
