package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/dinesync/dinesync/models"
	"github.com/dinesync/dinesync/utils"
)

type MenuController struct {
	DB *gorm.DB
}

func NewMenuController(db *gorm.DB) *MenuController {
	return &MenuController{DB: db}
}

// GetAllMenus -> the product list diners browse. Customization groups ride
// along so clients can validate selections without extra round trips.
func (mc *MenuController) GetAllMenus(c *gin.Context) {
	var menus []models.Menu
	query := mc.DB.Preload("CustomizationGroups.Options")

	if catID := c.Query("category_id"); catID != "" {
		query = query.Where("category_id = ?", catID)
	}

	if err := query.Find(&menus).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of products", menus)
}

// GetMenuByID -> one product with its customization groups and options.
func (mc *MenuController) GetMenuByID(c *gin.Context) {
	idStr := c.Param("product_id")
	id, _ := strconv.Atoi(idStr)

	var menu models.Menu
	if err := mc.DB.Preload("CustomizationGroups.Options").First(&menu, id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Product detail", menu)
}

type customizationReq struct {
	Name       string  `json:"name" binding:"required"`
	PriceDelta float64 `json:"price_delta"`
}

type groupReq struct {
	Name      string             `json:"name" binding:"required"`
	Required  bool               `json:"required"`
	MaxSelect int                `json:"max_select"`
	Options   []customizationReq `json:"options"`
}

// CreateMenu -> adds a product, optionally with nested customization groups.
func (mc *MenuController) CreateMenu(c *gin.Context) {
	var req struct {
		CategoryID  uint       `json:"category_id" binding:"required"`
		Name        string     `json:"name" binding:"required"`
		Price       float64    `json:"price" binding:"required"`
		Stock       int        `json:"stock"`
		Description string     `json:"description"`
		ImageUrl    *string    `json:"image_url"`
		Groups      []groupReq `json:"customization_groups"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var category models.MenuCategory
	if err := mc.DB.First(&category, req.CategoryID).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	menu := models.Menu{
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		Price:       req.Price,
		Stock:       req.Stock,
		Description: req.Description,
		ImageUrl:    req.ImageUrl,
	}
	for _, g := range req.Groups {
		maxSelect := g.MaxSelect
		if maxSelect < 1 {
			maxSelect = 1
		}
		group := models.CustomizationGroup{
			Name:      g.Name,
			Required:  g.Required,
			MaxSelect: maxSelect,
		}
		for _, o := range g.Options {
			group.Options = append(group.Options, models.Customization{
				Name:       o.Name,
				PriceDelta: o.PriceDelta,
			})
		}
		menu.CustomizationGroups = append(menu.CustomizationGroups, group)
	}

	if err := mc.DB.Create(&menu).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("New product created: %s (price=%.2f, groups=%d)",
		menu.Name, menu.Price, len(menu.CustomizationGroups))
	utils.RespondJSON(c, http.StatusCreated, "Product created", menu)
}

// UpdateMenu -> partial update of price/stock/description.
func (mc *MenuController) UpdateMenu(c *gin.Context) {
	idStr := c.Param("product_id")
	id, _ := strconv.Atoi(idStr)

	var req struct {
		Name        string   `json:"name"`
		Price       *float64 `json:"price"`
		Stock       *int     `json:"stock"`
		Description string   `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	var menu models.Menu
	if err := mc.DB.First(&menu, id).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}

	if req.Name != "" {
		menu.Name = req.Name
	}
	if req.Price != nil {
		menu.Price = *req.Price
	}
	if req.Stock != nil {
		menu.Stock = *req.Stock
	}
	if req.Description != "" {
		menu.Description = req.Description
	}

	if err := mc.DB.Save(&menu).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Product updated", menu)
}

// DeleteMenu
func (mc *MenuController) DeleteMenu(c *gin.Context) {
	idStr := c.Param("product_id")
	id, _ := strconv.Atoi(idStr)

	if err := mc.DB.Delete(&models.Menu{}, id).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Product deleted", gin.H{"product_id": id})
}
