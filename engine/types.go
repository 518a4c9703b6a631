// Package engine is the device-side coordination engine for shared table
// ordering. It keeps one device's view of a table session — roster, shared
// cart, per-diner bill — consistent with the authoritative backend by
// combining request/response mutations with a websocket sync channel that
// triggers full-state reconciliation.
package engine

import "time"

// Session identifies the table session this device has joined.
type Session struct {
	TableID      uint   `json:"tableId"`
	SessionID    string `json:"sessionId"`
	SessionToken string `json:"sessionToken"`
	TableNumber  string `json:"tableNumber"`
	CartID       string `json:"cartId"`
}

type Participant struct {
	UserID   string    `json:"userId"`
	UserName string    `json:"userName"`
	IsOwner  bool      `json:"isOwner"`
	JoinedAt time.Time `json:"joinedAt"`
}

// SharingMode tags who a cart item's cost is apportioned across.
type SharingMode string

const (
	SharePrivate   SharingMode = "private"
	ShareWithAll   SharingMode = "all"
	ShareWithUsers SharingMode = "users"
)

// Sharing is the per-item sharing annotation. UserIDs is only meaningful for
// ShareWithUsers; the adding user is always an implicit beneficiary and the
// named set is frozen at add time.
type Sharing struct {
	Mode    SharingMode `json:"mode"`
	UserIDs []string    `json:"userIds,omitempty"`
}

func Private() Sharing {
	return Sharing{Mode: SharePrivate}
}

func WithEveryone() Sharing {
	return Sharing{Mode: ShareWithAll}
}

func WithUsers(userIDs ...string) Sharing {
	return Sharing{Mode: ShareWithUsers, UserIDs: userIDs}
}

// CartItem is one line of the shared cart as served by the backend.
type CartItem struct {
	ID             uint        `json:"id"`
	CartID         string      `json:"cart_id"`
	ProductID      uint        `json:"product_id"`
	Quantity       int         `json:"quantity"`
	UnitPrice      float64     `json:"unit_price"`
	Customizations []uint      `json:"customizations"`
	SharingMode    SharingMode `json:"sharing_mode"`
	SharedWith     []string    `json:"shared_with"`
	AddedByUserID  string      `json:"added_by_user_id"`
	AddedByName    string      `json:"added_by_name"`
}

func (ci CartItem) Sharing() Sharing {
	if ci.SharingMode == ShareWithUsers {
		return Sharing{Mode: ShareWithUsers, UserIDs: ci.SharedWith}
	}
	return Sharing{Mode: ci.SharingMode}
}

// LineTotal is always recomputed locally rather than trusted from a payload.
func (ci CartItem) LineTotal() float64 {
	return ci.UnitPrice * float64(ci.Quantity)
}

// Product is a catalog entry with its customization groups.
type Product struct {
	ID                  uint                 `json:"id"`
	CategoryID          uint                 `json:"category_id"`
	Name                string               `json:"name"`
	Price               float64              `json:"price"`
	Stock               int                  `json:"stock"`
	Description         string               `json:"description"`
	CustomizationGroups []CustomizationGroup `json:"customization_groups"`
}

type CustomizationGroup struct {
	ID        uint            `json:"id"`
	Name      string          `json:"name"`
	Required  bool            `json:"required"`
	MaxSelect int             `json:"max_select"`
	Options   []Customization `json:"options"`
}

type Customization struct {
	ID         uint    `json:"id"`
	Name       string  `json:"name"`
	PriceDelta float64 `json:"price_delta"`
}

type Category struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type OrderItem struct {
	ID            uint    `json:"id"`
	MenuID        uint    `json:"menu_id"`
	Quantity      int     `json:"quantity"`
	Price         float64 `json:"price"`
	SharingMode   string  `json:"sharing_mode"`
	AddedByUserID string  `json:"added_by_user_id"`
}

type Order struct {
	ID          uint        `json:"id"`
	SessionID   string      `json:"session_id"`
	TableID     uint        `json:"table_id"`
	CartID      string      `json:"cart_id"`
	Status      string      `json:"status"`
	TotalAmount float64     `json:"total_amount"`
	OrderItems  []OrderItem `json:"order_items"`
}

// Snapshot is one consistent view of the joined session, published to
// subscribers after every reconciliation.
type Snapshot struct {
	Roster []Participant
	Cart   []CartItem
	Bill   map[string]float64
	Seq    uint64
}
