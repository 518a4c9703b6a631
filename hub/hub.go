package hub

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/dinesync/dinesync/utils"
)

// Event types
const (
	// Broadcast to a room when its cart changed; payload is a trigger only,
	// receivers re-fetch the authoritative cart.
	EventCartUpdate = "cartUpdate"
	// Broadcast to a room when its roster changed.
	EventTableUsers = "table:users"

	// Client-emitted notifications relayed to the rest of the room.
	EventItemAdd    = "cart:item:add"
	EventItemUpdate = "cart:item:update"
	EventItemRemove = "cart:item:remove"
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

type client struct {
	tableID  uint
	userID   string
	userName string
}

// Hub keeps one room per table and fans notifications out to every device
// connected to that table's session. It is an owned value wired into the
// controllers, so tests can run independent instances side by side.
type Hub struct {
	mu    sync.Mutex
	rooms map[uint]map[*websocket.Conn]client
}

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[uint]map[*websocket.Conn]client),
	}
}

// Register adds a connection to its table's room.
func (h *Hub) Register(conn *websocket.Conn, tableID uint, userID, userName string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.rooms[tableID]
	if !ok {
		room = make(map[*websocket.Conn]client)
		h.rooms[tableID] = room
	}
	room[conn] = client{tableID: tableID, userID: userID, userName: userName}
}

// Unregister removes a connection and closes it. It reports which table the
// connection belonged to so the caller can notify the remaining room.
func (h *Hub) Unregister(conn *websocket.Conn) (uint, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for tableID, room := range h.rooms {
		if _, ok := room[conn]; ok {
			delete(room, conn)
			if len(room) == 0 {
				delete(h.rooms, tableID)
			}
			conn.Close()
			return tableID, true
		}
	}
	conn.Close()
	return 0, false
}

// RoomSize reports how many connections a table room currently holds.
func (h *Hub) RoomSize(tableID uint) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.rooms[tableID])
}

// BroadcastToTable sends a message to every connection in a table's room.
// except, when non-nil, skips the originating connection.
func (h *Hub) BroadcastToTable(tableID uint, msg Message, except *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room := h.rooms[tableID]
	if len(room) == 0 {
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		utils.ErrorLogger.Printf("Error marshaling hub message: %v", err)
		return
	}

	for conn, cl := range room {
		if conn == except {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			utils.ErrorLogger.Printf("Error sending %s to user %s: %v", msg.Event, cl.userID, err)
		}
	}
}
