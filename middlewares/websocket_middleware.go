package middlewares

import (
	"github.com/gin-gonic/gin"

	"github.com/dinesync/dinesync/utils"
)

// WebSocketAuthMiddleware authenticates the sync channel with the session
// token passed as a query parameter (browsers cannot set headers on a
// websocket dial).
func WebSocketAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.AbortWithStatus(401)
			return
		}

		claims, err := utils.ParseSessionToken(token)
		if err != nil {
			c.AbortWithStatus(401)
			return
		}

		c.Set("session_id", claims.SessionID)
		c.Set("table_id", claims.TableID)
		c.Set("cart_id", claims.CartID)
		c.Set("user_id", claims.UserID)
		c.Set("user_name", claims.UserName)

		c.Next()
	}
}
