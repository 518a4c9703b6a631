package models

import (
	"encoding/json"
	"time"
)

// Sharing modes for a cart item. "users" carries an explicit user id set in
// SharedWith; the ids are frozen at add time and never pruned when a named
// participant leaves the table.
const (
	SharingPrivate = "private"
	SharingAll     = "all"
	SharingUsers   = "users"
)

type Cart struct {
	ID        string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	SessionID string     `gorm:"type:varchar(36);not null;index" json:"session_id"`
	TableID   uint       `gorm:"not null;index" json:"table_id"`
	IsActive  bool       `gorm:"not null;default:true" json:"is_active"`
	Items     []CartItem `gorm:"foreignKey:CartID" json:"items"`
	CreatedAt time.Time  `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null" json:"updated_at"`
}

type CartItem struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	CartID   string `gorm:"type:varchar(36);not null;index" json:"cart_id"`
	Cart     Cart   `gorm:"foreignKey:CartID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	MenuID   uint   `gorm:"not null" json:"product_id"`
	Menu     Menu   `gorm:"foreignKey:MenuID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	Quantity int    `gorm:"not null" json:"quantity"`
	// UnitPrice is fixed server-side at add time: menu price plus the sum of
	// the selected customizations' price deltas.
	UnitPrice        float64   `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	CustomizationIDs string    `gorm:"type:text" json:"-"`
	SharingMode      string    `gorm:"type:varchar(20);not null;default:'private'" json:"sharing_mode"`
	SharedWith       string    `gorm:"type:text" json:"-"`
	AddedByUserID    string    `gorm:"type:varchar(36);not null" json:"added_by_user_id"`
	AddedByName      string    `gorm:"type:varchar(100)" json:"added_by_name"`
	CreatedAt        time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time `gorm:"not null" json:"updated_at"`
}

func (ci *CartItem) LineTotal() float64 {
	return ci.UnitPrice * float64(ci.Quantity)
}

// Customizations decodes the JSON-encoded selected customization ids.
func (ci *CartItem) Customizations() []uint {
	var ids []uint
	if ci.CustomizationIDs != "" {
		_ = json.Unmarshal([]byte(ci.CustomizationIDs), &ids)
	}
	return ids
}

func (ci *CartItem) SetCustomizations(ids []uint) {
	if ids == nil {
		ids = []uint{}
	}
	raw, _ := json.Marshal(ids)
	ci.CustomizationIDs = string(raw)
}

// SharedUserIDs decodes the JSON-encoded shared-with user id set.
func (ci *CartItem) SharedUserIDs() []string {
	var ids []string
	if ci.SharedWith != "" {
		_ = json.Unmarshal([]byte(ci.SharedWith), &ids)
	}
	return ids
}

func (ci *CartItem) SetSharedUserIDs(ids []string) {
	if ids == nil {
		ids = []string{}
	}
	raw, _ := json.Marshal(ids)
	ci.SharedWith = string(raw)
}

// MarshalJSON flattens the JSON text columns into proper arrays so clients
// never see the storage encoding.
func (ci CartItem) MarshalJSON() ([]byte, error) {
	type alias CartItem
	return json.Marshal(struct {
		alias
		Customizations []uint   `json:"customizations"`
		SharedWith     []string `json:"shared_with"`
		LineTotal      float64  `json:"line_total"`
	}{
		alias:          alias(ci),
		Customizations: ci.Customizations(),
		SharedWith:     ci.SharedUserIDs(),
		LineTotal:      ci.LineTotal(),
	})
}
