package models

import "time"

// TableSession is one physical table's active ordering period. The first
// diner to join creates it (and becomes owner); everyone after that joins
// the same session until an order is finalized, which closes it.
type TableSession struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	TableID   uint      `gorm:"not null;index" json:"table_id"`
	Table     Table     `gorm:"foreignKey:TableID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	Status    string    `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	CartID    string    `gorm:"type:varchar(36)" json:"cart_id"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

type Participant struct {
	ID        uint         `gorm:"primaryKey" json:"id"`
	SessionID string       `gorm:"type:varchar(36);not null;index:idx_session_user,unique" json:"session_id"`
	Session   TableSession `gorm:"foreignKey:SessionID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	UserID    string       `gorm:"type:varchar(36);not null;index:idx_session_user,unique" json:"user_id"`
	UserName  string       `gorm:"type:varchar(100);not null" json:"user_name"`
	IsOwner   bool         `gorm:"not null;default:false" json:"is_owner"`
	JoinedAt  time.Time    `gorm:"not null" json:"joined_at"`
}

const (
	SessionActive = "active"
	SessionClosed = "closed"
)
