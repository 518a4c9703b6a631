package router

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/dinesync/dinesync/controllers"
	"github.com/dinesync/dinesync/hub"
	"github.com/dinesync/dinesync/middlewares"
)

func SetupRouter(db *gorm.DB, h *hub.Hub) *gin.Engine {
	r := gin.Default()

	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares())
	r.Use(middlewares.LoggerMiddleware())

	tableCtrl := controllers.NewTableController(db)
	categoryCtrl := controllers.NewMenuCategoryController(db)
	menuCtrl := controllers.NewMenuController(db)
	cartCtrl := controllers.NewCartController(db)
	orderCtrl := controllers.NewOrderController(db)
	wsCtrl := controllers.NewWSController(h)

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	api := r.Group("/api")
	{
		// Joining a table is rate limited harder than everything else.
		api.POST("/table/start", middlewares.NewStrictRateLimiter(), tableCtrl.StartSession)
		api.GET("/table/:table_id/users", tableCtrl.GetTableUsers)
		api.POST("/table/:table_id/leave", tableCtrl.LeaveSession)

		// Sync channel, authenticated by the session token.
		api.GET("/table/ws", middlewares.WebSocketAuthMiddleware(), wsCtrl.TableChannel)

		// Catalog reads
		api.GET("/categories", categoryCtrl.GetAllCategories)
		api.GET("/products", menuCtrl.GetAllMenus)
		api.GET("/products/:product_id", menuCtrl.GetMenuByID)

		// Shared cart
		api.POST("/cart/:cart_id/items", cartCtrl.AddItem)
		api.GET("/cart/:cart_id", cartCtrl.GetCart)
		api.PUT("/cart/:cart_id/items/:item_id", cartCtrl.UpdateItem)
		api.DELETE("/cart/:cart_id/items/:item_id", cartCtrl.RemoveItem)

		// Orders
		api.POST("/orders/from-cart", orderCtrl.CreateOrderFromCart)
		api.GET("/orders/table/session/:session_id", orderCtrl.GetOrderBySession)

		// Admin surface: tables and catalog management
		admin := api.Group("/admin")
		{
			admin.POST("/tables", tableCtrl.CreateTable)
			admin.GET("/tables", tableCtrl.GetAllTables)
			admin.GET("/tables/:table_id", tableCtrl.GetTableByID)
			admin.DELETE("/tables/:table_id", tableCtrl.DeleteTable)

			admin.POST("/categories", categoryCtrl.CreateCategory)
			admin.PATCH("/categories/:cat_id", categoryCtrl.UpdateCategory)
			admin.DELETE("/categories/:cat_id", categoryCtrl.DeleteCategory)

			admin.POST("/products", menuCtrl.CreateMenu)
			admin.PATCH("/products/:product_id", menuCtrl.UpdateMenu)
			admin.DELETE("/products/:product_id", menuCtrl.DeleteMenu)
		}
	}

	return r
}
