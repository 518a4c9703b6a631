package models

import "time"

// CustomizationGroup is one axis of choice for a menu item, e.g. "Size".
// When Required is set, a cart item for that menu must carry a selection
// from the group before it is accepted.
type CustomizationGroup struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	MenuID    uint            `gorm:"not null;index" json:"menu_id"`
	Name      string          `gorm:"type:varchar(100);not null" json:"name"`
	Required  bool            `gorm:"not null;default:false" json:"required"`
	MaxSelect int             `gorm:"not null;default:1" json:"max_select"`
	Options   []Customization `gorm:"foreignKey:GroupID" json:"options"`
	CreatedAt time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time       `gorm:"not null" json:"updated_at"`
}

type Customization struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	GroupID    uint      `gorm:"not null;index" json:"group_id"`
	Name       string    `gorm:"type:varchar(100);not null" json:"name"`
	PriceDelta float64   `gorm:"type:decimal(10,2);not null;default:0.00" json:"price_delta"`
	CreatedAt  time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null" json:"updated_at"`
}
