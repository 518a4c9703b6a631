package models

import "time"

type OrderItem struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	OrderID uint `gorm:"not null" json:"order_id"`
	// Omitting Order field from JSON to avoid recursive nesting
	Order            Order     `gorm:"foreignKey:OrderID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	MenuID           uint      `gorm:"not null" json:"menu_id"`
	Menu             Menu      `gorm:"foreignKey:MenuID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	Quantity         int       `gorm:"not null" json:"quantity"`
	Price            float64   `gorm:"type:decimal(10,2);not null" json:"price"`
	CustomizationIDs string    `gorm:"type:text" json:"-"`
	SharingMode      string    `gorm:"type:varchar(20);not null;default:'private'" json:"sharing_mode"`
	SharedWith       string    `gorm:"type:text" json:"-"`
	AddedByUserID    string    `gorm:"type:varchar(36);not null" json:"added_by_user_id"`
	CreatedAt        time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time `gorm:"not null" json:"updated_at"`
}
