package engine

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dinesync/dinesync/utils"
)

// EventKind identifies a sync channel notification.
type EventKind string

const (
	// Outbound, emitted after a confirmed authoritative mutation.
	ItemAdded   EventKind = "cart:item:add"
	ItemUpdated EventKind = "cart:item:update"
	ItemRemoved EventKind = "cart:item:remove"

	// Inbound triggers. Payloads are opaque; receipt means "re-fetch".
	CartUpdated   EventKind = "cartUpdate"
	RosterUpdated EventKind = "table:users"
)

// Handler receives a notification's raw payload. The payload is a trigger,
// never authoritative state.
type Handler func(payload json.RawMessage)

type connectParams struct {
	tableID   uint
	token     string
	sessionID string
	userName  string
}

type channelFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Channel is the per-session sync channel: a websocket connection to the
// table's room, owned by whoever constructed it. Reconnecting with identical
// parameters is a no-op; different parameters tear the old connection down
// first.
type Channel struct {
	// MaxAttempts and Backoff bound the dial retry loop.
	MaxAttempts int
	Backoff     time.Duration

	baseURL string
	dialer  *websocket.Dialer

	mu       sync.Mutex
	conn     *websocket.Conn
	params   connectParams
	handlers map[EventKind]Handler
	gen      int
}

// NewChannel builds a channel against the backend's base URL (http/https;
// the websocket scheme is derived).
func NewChannel(baseURL string) *Channel {
	return &Channel{
		MaxAttempts: 5,
		Backoff:     time.Second,
		baseURL:     baseURL,
		dialer:      &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		handlers:    make(map[EventKind]Handler),
	}
}

func (ch *Channel) wsURL(token string) string {
	base := ch.baseURL
	if strings.HasPrefix(base, "https://") {
		base = "wss://" + strings.TrimPrefix(base, "https://")
	} else if strings.HasPrefix(base, "http://") {
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/api/table/ws?token=" + url.QueryEscape(token)
}

// Connect establishes the channel. It retries transport failures a bounded
// number of times with fixed backoff, then reports ErrChannelUnavailable
// instead of crashing the caller.
func (ch *Channel) Connect(tableID uint, token, sessionID, userName string) error {
	ch.mu.Lock()

	params := connectParams{tableID: tableID, token: token, sessionID: sessionID, userName: userName}
	if ch.conn != nil {
		if ch.params == params {
			ch.mu.Unlock()
			return nil
		}
		ch.teardownLocked()
	}
	ch.params = params
	ch.mu.Unlock()

	var conn *websocket.Conn
	var err error
	for attempt := 1; attempt <= ch.MaxAttempts; attempt++ {
		conn, _, err = ch.dialer.Dial(ch.wsURL(token), nil)
		if err == nil {
			break
		}
		utils.ErrorLogger.Printf("Sync channel dial attempt %d/%d failed: %v", attempt, ch.MaxAttempts, err)
		if attempt < ch.MaxAttempts {
			time.Sleep(ch.Backoff)
		}
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrChannelUnavailable, err)
	}

	ch.mu.Lock()
	ch.conn = conn
	ch.gen++
	gen := ch.gen
	ch.mu.Unlock()

	go ch.readPump(conn, gen)
	return nil
}

// Emit sends a best-effort notification. When the channel is down the event
// is silently dropped: the mutation already succeeded authoritatively, the
// notification only wakes peers up sooner.
func (ch *Channel) Emit(kind EventKind, payload interface{}) {
	ch.mu.Lock()
	conn := ch.conn
	ch.mu.Unlock()
	if conn == nil {
		return
	}

	frame := map[string]interface{}{
		"event": string(kind),
		"data":  payload,
	}
	if err := conn.WriteJSON(frame); err != nil {
		utils.ErrorLogger.Printf("Sync channel emit %s failed: %v", kind, err)
	}
}

// Subscribe installs the handler for an event kind. At most one handler per
// kind: re-subscribing replaces, never stacks.
func (ch *Channel) Subscribe(kind EventKind, h Handler) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.handlers[kind] = h
}

func (ch *Channel) Unsubscribe(kind EventKind) {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	delete(ch.handlers, kind)
}

// Disconnect releases the connection. Safe to call when already disconnected.
func (ch *Channel) Disconnect() {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	ch.teardownLocked()
}

func (ch *Channel) teardownLocked() {
	if ch.conn != nil {
		ch.conn.Close()
		ch.conn = nil
	}
	ch.gen++
	ch.params = connectParams{}
}

// Connected reports whether the channel currently holds a live connection.
func (ch *Channel) Connected() bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.conn != nil
}

func (ch *Channel) readPump(conn *websocket.Conn, gen int) {
	for {
		var frame channelFrame
		if err := conn.ReadJSON(&frame); err != nil {
			ch.mu.Lock()
			// Only clear state if a reconnect has not replaced us already.
			if ch.gen == gen {
				ch.conn = nil
				ch.params = connectParams{}
			}
			ch.mu.Unlock()
			return
		}

		ch.mu.Lock()
		h := ch.handlers[EventKind(frame.Event)]
		ch.mu.Unlock()
		if h != nil {
			h(frame.Data)
		}
	}
}
