package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/dinesync/dinesync/models"
	"github.com/dinesync/dinesync/utils"
)

type OrderController struct {
	DB *gorm.DB
}

func NewOrderController(db *gorm.DB) *OrderController {
	return &OrderController{DB: db}
}

// CreateOrderFromCart -> finalizes the shared cart into an order. This
// closes the table session and deactivates the cart; the table goes dirty
// until cleaned.
func (oc *OrderController) CreateOrderFromCart(c *gin.Context) {
	var req struct {
		CartID string `json:"cartId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var cart models.Cart
	if err := oc.DB.Preload("Items").Where("id = ? AND is_active = ?", req.CartID, true).
		First(&cart).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, ErrCartNotFound)
		return
	}

	if len(cart.Items) == 0 {
		utils.RespondError(c, http.StatusBadRequest, ErrEmptyCart)
		return
	}

	var order models.Order
	err := oc.DB.Transaction(func(tx *gorm.DB) error {
		var total float64
		order = models.Order{
			SessionID: cart.SessionID,
			TableID:   cart.TableID,
			CartID:    cart.ID,
			Status:    "placed",
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		for _, item := range cart.Items {
			total += item.LineTotal()
			orderItem := models.OrderItem{
				OrderID:          order.ID,
				MenuID:           item.MenuID,
				Quantity:         item.Quantity,
				Price:            item.UnitPrice,
				CustomizationIDs: item.CustomizationIDs,
				SharingMode:      item.SharingMode,
				SharedWith:       item.SharedWith,
				AddedByUserID:    item.AddedByUserID,
			}
			if err := tx.Create(&orderItem).Error; err != nil {
				return err
			}
		}

		order.TotalAmount = total
		if err := tx.Save(&order).Error; err != nil {
			return err
		}

		cart.IsActive = false
		if err := tx.Save(&cart).Error; err != nil {
			return err
		}

		// Finalizing the order ends the session.
		if err := tx.Model(&models.TableSession{}).
			Where("id = ?", cart.SessionID).
			Update("status", models.SessionClosed).Error; err != nil {
			return err
		}
		return tx.Model(&models.Table{}).
			Where("id = ?", cart.TableID).
			Update("status", "dirty").Error
	})
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	if err := oc.DB.Preload("OrderItems").First(&order, order.ID).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("Order %d created from cart %s (total=%.2f)",
		order.ID, cart.ID, order.TotalAmount)
	utils.RespondJSON(c, http.StatusCreated, "Order created", order)
}

// GetOrderBySession -> the order finalized from a session's cart, newest
// first if the session somehow produced more than one.
func (oc *OrderController) GetOrderBySession(c *gin.Context) {
	sessionID := c.Param("session_id")

	var order models.Order
	if err := oc.DB.Preload("OrderItems").
		Where("session_id = ?", sessionID).
		Order("created_at desc").
		First(&order).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}
