package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/dinesync/dinesync/models"
	"github.com/dinesync/dinesync/utils"
)

type CartController struct {
	DB *gorm.DB
}

func NewCartController(db *gorm.DB) *CartController {
	return &CartController{DB: db}
}

// AddItem -> appends a line to the shared cart. The server is the single
// serialization point for cart state: it re-validates quantity, sharing and
// required customizations, and fixes the unit price at add time.
func (cc *CartController) AddItem(c *gin.Context) {
	cartID := c.Param("cart_id")

	var req struct {
		ProductID      uint     `json:"productId" binding:"required"`
		Quantity       int      `json:"quantity" binding:"required"`
		Customizations []uint   `json:"customizations"`
		SharingMode    string   `json:"sharingMode"`
		SharedWith     []string `json:"sharedWith"`
		UserID         string   `json:"userId" binding:"required"`
		UserName       string   `json:"userName"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if req.Quantity < 1 {
		utils.RespondError(c, http.StatusBadRequest, ErrInvalidQuantity)
		return
	}

	var cart models.Cart
	if err := cc.DB.Where("id = ? AND is_active = ?", cartID, true).First(&cart).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, ErrCartNotFound)
		return
	}

	var menu models.Menu
	if err := cc.DB.Preload("CustomizationGroups.Options").First(&menu, req.ProductID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	sharingMode := req.SharingMode
	if sharingMode == "" {
		sharingMode = models.SharingPrivate
	}
	switch sharingMode {
	case models.SharingPrivate, models.SharingAll:
	case models.SharingUsers:
		if len(req.SharedWith) == 0 {
			utils.RespondError(c, http.StatusBadRequest, ErrEmptySharedWith)
			return
		}
	default:
		utils.RespondError(c, http.StatusBadRequest, ErrInvalidSharing)
		return
	}

	unitPrice, err := priceSelections(&menu, req.Customizations)
	if err != nil {
		code := http.StatusBadRequest
		if _, ok := err.(*missingGroupError); ok {
			code = http.StatusUnprocessableEntity
		}
		utils.RespondError(c, code, err)
		return
	}

	item := models.CartItem{
		CartID:        cart.ID,
		MenuID:        menu.ID,
		Quantity:      req.Quantity,
		UnitPrice:     unitPrice,
		SharingMode:   sharingMode,
		AddedByUserID: req.UserID,
		AddedByName:   req.UserName,
	}
	item.SetCustomizations(req.Customizations)
	if sharingMode == models.SharingUsers {
		item.SetSharedUserIDs(req.SharedWith)
	} else {
		item.SetSharedUserIDs(nil)
	}

	if err := cc.DB.Create(&item).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("Cart %s: item added (product=%d qty=%d sharing=%s by=%s)",
		cart.ID, menu.ID, item.Quantity, item.SharingMode, item.AddedByUserID)
	utils.RespondJSON(c, http.StatusCreated, "Item added to cart", item)
}

// GetCart -> the full authoritative cart. Clients reconcile against this
// after every mutation and every channel notification.
func (cc *CartController) GetCart(c *gin.Context) {
	cartID := c.Param("cart_id")

	var cart models.Cart
	if err := cc.DB.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("cart_items.created_at asc")
	}).First(&cart, "id = ?", cartID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, ErrCartNotFound)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Cart detail", cart)
}

// UpdateItem -> quantity changes only. Customization changes go through
// remove and re-add, and quantity zero must route through remove.
func (cc *CartController) UpdateItem(c *gin.Context) {
	cartID := c.Param("cart_id")
	itemID := c.Param("item_id")

	var req struct {
		Quantity int    `json:"quantity" binding:"required"`
		UserID   string `json:"userId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if req.Quantity < 1 {
		utils.RespondError(c, http.StatusBadRequest, ErrInvalidQuantity)
		return
	}

	var item models.CartItem
	if err := cc.DB.Where("id = ? AND cart_id = ?", itemID, cartID).First(&item).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	item.Quantity = req.Quantity
	if err := cc.DB.Save(&item).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Item updated", item)
}

// RemoveItem
func (cc *CartController) RemoveItem(c *gin.Context) {
	cartID := c.Param("cart_id")
	itemID := c.Param("item_id")

	result := cc.DB.Where("id = ? AND cart_id = ?", itemID, cartID).Delete(&models.CartItem{})
	if result.Error != nil {
		utils.RespondError(c, http.StatusInternalServerError, result.Error)
		return
	}
	if result.RowsAffected == 0 {
		utils.RespondError(c, http.StatusNotFound, fmt.Errorf("item %s not found in cart %s", itemID, cartID))
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Item removed", gin.H{"item_id": itemID})
}

type missingGroupError struct {
	Group string
}

func (e *missingGroupError) Error() string {
	return fmt.Sprintf("missing required customization: %s", e.Group)
}

// priceSelections resolves the selected customization ids against the menu's
// groups, enforcing required groups and per-group selection limits, and
// returns the resulting unit price.
func priceSelections(menu *models.Menu, selections []uint) (float64, error) {
	selected := make(map[uint]bool, len(selections))
	for _, id := range selections {
		selected[id] = true
	}

	price := menu.Price
	matched := 0
	for _, group := range menu.CustomizationGroups {
		count := 0
		for _, opt := range group.Options {
			if selected[opt.ID] {
				count++
				price += opt.PriceDelta
			}
		}
		if group.Required && count == 0 {
			return 0, &missingGroupError{Group: group.Name}
		}
		if count > group.MaxSelect {
			return 0, ErrTooManySelections
		}
		matched += count
	}

	if matched != len(selected) {
		return 0, ErrUnknownCustomize
	}
	return price, nil
}
