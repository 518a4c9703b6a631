package Controllers_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/dinesync/dinesync/controllers"
	"github.com/dinesync/dinesync/models"
	"github.com/dinesync/dinesync/utils"
)

func setupTestDBForMenus(name string) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}
	err = db.AutoMigrate(
		&models.MenuCategory{},
		&models.Menu{},
		&models.CustomizationGroup{},
		&models.Customization{},
	)
	if err != nil {
		panic(err)
	}
	db.Create(&models.MenuCategory{Name: "Food"})
	return db
}

func setupMenuRouter(db *gorm.DB) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.Default()
	menuCtrl := controllers.NewMenuController(db)
	categoryCtrl := controllers.NewMenuCategoryController(db)
	router.GET("/products", menuCtrl.GetAllMenus)
	router.GET("/products/:product_id", menuCtrl.GetMenuByID)
	router.GET("/categories", categoryCtrl.GetAllCategories)
	router.POST("/admin/products", menuCtrl.CreateMenu)
	router.PATCH("/admin/products/:product_id", menuCtrl.UpdateMenu)
	router.DELETE("/admin/products/:product_id", menuCtrl.DeleteMenu)
	router.POST("/admin/categories", categoryCtrl.CreateCategory)
	return router
}

func TestMenuCRUD(t *testing.T) {
	utils.InitLogger()
	db := setupTestDBForMenus("menus_crud")
	router := setupMenuRouter(db)

	payload := map[string]interface{}{
		"category_id": 1,
		"name":        "Pizza",
		"price":       12.5,
		"stock":       50,
		"description": "Delicious cheese pizza",
		"image_url":   "",
		"customization_groups": []map[string]interface{}{
			{
				"name":       "Size",
				"required":   true,
				"max_select": 1,
				"options": []map[string]interface{}{
					{"name": "Regular", "price_delta": 0},
					{"name": "Family", "price_delta": 4.0},
				},
			},
		},
	}
	w := postJSON(t, router, "/admin/products", payload)
	assert.Equal(t, http.StatusCreated, w.Code)

	created := decodeData(t, w)
	assert.Equal(t, "Pizza", created["name"])
	groups, _ := created["customization_groups"].([]interface{})
	assert.Len(t, groups, 1)

	// Detail carries the groups and options for client-side validation.
	w = getJSON(t, router, "/products/1")
	assert.Equal(t, http.StatusOK, w.Code)
	detail := decodeData(t, w)
	groups, _ = detail["customization_groups"].([]interface{})
	if assert.Len(t, groups, 1) {
		group := groups[0].(map[string]interface{})
		assert.Equal(t, "Size", group["name"])
		assert.Equal(t, true, group["required"])
		options, _ := group["options"].([]interface{})
		assert.Len(t, options, 2)
	}

	w = getJSON(t, router, "/products")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeDataList(t, w), 1)

	// Partial update.
	body := map[string]interface{}{"price": 14.0}
	raw := patchJSON(t, router, "/admin/products/1", body)
	assert.Equal(t, http.StatusOK, raw.Code)
	updated := decodeData(t, raw)
	assert.Equal(t, 14.0, updated["price"])

	// Delete.
	req, _ := http.NewRequest("DELETE", "/admin/products/1", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = getJSON(t, router, "/products/1")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMenuCreateRequiresExistingCategory(t *testing.T) {
	utils.InitLogger()
	db := setupTestDBForMenus("menus_badcat")
	router := setupMenuRouter(db)

	w := postJSON(t, router, "/admin/products", map[string]interface{}{
		"category_id": 42,
		"name":        "Ghost dish",
		"price":       5.0,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMenuListFilteredByCategory(t *testing.T) {
	utils.InitLogger()
	db := setupTestDBForMenus("menus_filter")
	router := setupMenuRouter(db)

	w := postJSON(t, router, "/admin/categories", map[string]interface{}{"name": "Drinks"})
	assert.Equal(t, http.StatusCreated, w.Code)

	postJSON(t, router, "/admin/products", map[string]interface{}{
		"category_id": 1, "name": "Pizza", "price": 12.5,
	})
	postJSON(t, router, "/admin/products", map[string]interface{}{
		"category_id": 2, "name": "Cola", "price": 2.5,
	})

	w = getJSON(t, router, "/products?category_id=2")
	assert.Equal(t, http.StatusOK, w.Code)
	list := decodeDataList(t, w)
	if assert.Len(t, list, 1) {
		assert.Equal(t, "Cola", list[0].(map[string]interface{})["name"])
	}

	w = getJSON(t, router, "/categories")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeDataList(t, w), 2)
}
