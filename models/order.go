package models

import "time"

// Order is the finalized form of a session's cart. Creating one closes the
// session; fulfillment and payment are handled by other systems.
type Order struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	SessionID   string       `gorm:"type:varchar(36);not null;index" json:"session_id"`
	Session     TableSession `gorm:"foreignKey:SessionID;references:ID" json:"-"`
	TableID     uint         `gorm:"not null" json:"table_id"`
	Table       Table        `gorm:"foreignKey:TableID" json:"-"`
	CartID      string       `gorm:"type:varchar(36);not null" json:"cart_id"`
	Status      string       `gorm:"type:varchar(20);not null;default:'placed'" json:"status"`
	TotalAmount float64      `gorm:"type:decimal(10,2);not null;default:0.00" json:"total_amount"`
	OrderItems  []OrderItem  `gorm:"foreignKey:OrderID" json:"order_items"`
	CreatedAt   time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null" json:"updated_at"`
}
