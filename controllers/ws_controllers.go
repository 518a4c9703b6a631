package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/dinesync/dinesync/hub"
	"github.com/dinesync/dinesync/utils"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WSController struct {
	Hub *hub.Hub
}

func NewWSController(h *hub.Hub) *WSController {
	return &WSController{Hub: h}
}

// TableChannel -> the per-table sync channel endpoint. The auth middleware
// has already validated the session token and stashed its claims.
//
// Frames from clients are triggers, not state: a cart:item:* notification is
// relayed to the rest of the room as a cartUpdate so peers re-fetch the
// authoritative cart. Joining and leaving the room broadcasts a table:users
// notification the same way.
func (wc *WSController) TableChannel(c *gin.Context) {
	tableID := c.GetUint("table_id")
	userID := c.GetString("user_id")
	userName := c.GetString("user_name")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.ErrorLogger.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	wc.Hub.Register(ws, tableID, userID, userName)
	wc.Hub.BroadcastToTable(tableID, hub.Message{
		Event: hub.EventTableUsers,
		Data: gin.H{
			"action":   "joined",
			"userId":   userID,
			"userName": userName,
		},
	}, nil)

	for {
		_, raw, err := ws.ReadMessage()
		if err != nil {
			break
		}

		var msg hub.Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}

		switch msg.Event {
		case hub.EventItemAdd, hub.EventItemUpdate, hub.EventItemRemove:
			wc.Hub.BroadcastToTable(tableID, hub.Message{
				Event: hub.EventCartUpdate,
				Data: gin.H{
					"origin": userID,
					"kind":   msg.Event,
				},
			}, ws)
		}
	}

	if id, ok := wc.Hub.Unregister(ws); ok {
		wc.Hub.BroadcastToTable(id, hub.Message{
			Event: hub.EventTableUsers,
			Data: gin.H{
				"action": "left",
				"userId": userID,
			},
		}, nil)
	}
}
