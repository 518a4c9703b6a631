package engine

import (
	"encoding/json"
	"sync"

	"github.com/dinesync/dinesync/utils"
)

// Backend is the authoritative request/response surface the engine mutates
// through. *Client implements it; tests substitute recording doubles.
type Backend interface {
	StartSession(tableID uint, userName string) (JoinResult, error)
	GetTableUsers(tableID uint) ([]Participant, error)
	Leave(tableID uint, userID string) error
	GetProduct(id uint) (Product, error)
	AddItem(cartID string, req AddItemRequest) (CartItem, error)
	GetCart(cartID string) ([]CartItem, error)
	UpdateItemQuantity(cartID string, itemID uint, quantity int, userID string) (CartItem, error)
	RemoveItem(cartID string, itemID uint) error
	CreateOrderFromCart(cartID string) (Order, error)
	GetOrderBySession(sessionID string) (Order, error)
}

// SyncChannel is the notification stream between devices at one table.
// *Channel implements it over websocket.
type SyncChannel interface {
	Connect(tableID uint, token, sessionID, userName string) error
	Disconnect()
	Emit(kind EventKind, payload interface{})
	Subscribe(kind EventKind, h Handler)
	Unsubscribe(kind EventKind)
}

// State of the engine's session lifecycle on this device.
type State int

const (
	StateDisconnected State = iota
	StateJoining
	StateJoined
)

func (s State) String() string {
	switch s {
	case StateJoining:
		return "joining"
	case StateJoined:
		return "joined"
	default:
		return "disconnected"
	}
}

// Engine composes the membership registry, the shared cart model and the
// sync channel into the single facade application screens talk to.
//
// The backing service is the sole serialization point: the engine never
// computes the next cart state from a delta. Every local mutation and every
// received notification ends in a full re-fetch of the authoritative cart,
// so races across devices collapse into last-fetch-wins and the bill is
// always recomputed from the full snapshot.
type Engine struct {
	backend    Backend
	channel    SyncChannel
	store      *SessionStore
	membership *Membership

	mu      sync.Mutex
	state   State
	session Session
	self    Participant
	roster  []Participant
	cart    []CartItem

	// seq orders re-fetches; completions older than the applied snapshot
	// are discarded.
	seq     uint64
	snapSeq uint64

	subs    map[int]chan Snapshot
	nextSub int

	// products caches catalog entries so add-time validation stays local.
	products map[uint]Product
}

func New(backend Backend, channel SyncChannel, store *SessionStore) *Engine {
	return &Engine{
		backend:    backend,
		channel:    channel,
		store:      store,
		membership: NewMembership(backend, store),
		subs:       make(map[int]chan Snapshot),
		products:   make(map[uint]Product),
	}
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

func (e *Engine) Session() (Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session, e.state == StateJoined
}

// EnterTable joins the table's session, persists the local identity, and
// connects the sync channel — in that order, all or nothing. A failure at
// any step leaves no partial local state behind.
func (e *Engine) EnterTable(tableID uint, userName string) (Session, error) {
	e.mu.Lock()
	if e.state != StateDisconnected {
		e.mu.Unlock()
		return Session{}, ErrAlreadyJoined
	}
	e.state = StateJoining
	e.mu.Unlock()

	fail := func(err error) (Session, error) {
		e.mu.Lock()
		e.state = StateDisconnected
		e.mu.Unlock()
		return Session{}, err
	}

	sess, self, err := e.membership.Join(tableID, userName)
	if err != nil {
		return fail(err)
	}

	// No identity write without a confirmed join.
	if err := e.store.SaveSession(sess, self); err != nil {
		return fail(err)
	}

	if err := e.channel.Connect(sess.TableID, sess.SessionToken, sess.SessionID, self.UserName); err != nil {
		// Roll the identity back so the device is not half-joined.
		if clearErr := e.store.Clear(); clearErr != nil {
			utils.ErrorLogger.Printf("Failed to clear identity after connect failure: %v", clearErr)
		}
		return fail(err)
	}

	e.channel.Subscribe(CartUpdated, func(json.RawMessage) {
		// Payload shape is irrelevant: receipt triggers exactly one re-fetch.
		e.refreshCart()
	})
	e.channel.Subscribe(RosterUpdated, func(json.RawMessage) {
		e.refreshRoster()
	})

	e.mu.Lock()
	e.state = StateJoined
	e.session = sess
	e.self = self
	e.mu.Unlock()

	e.refreshRoster()
	e.refreshCart()

	return sess, nil
}

// LeaveTable disconnects the channel, removes this participant from the
// roster, and wipes the durable identity.
func (e *Engine) LeaveTable() error {
	e.mu.Lock()
	if e.state != StateJoined {
		e.mu.Unlock()
		return ErrNotJoined
	}
	sess := e.session
	self := e.self
	e.state = StateDisconnected
	e.roster = nil
	e.cart = nil
	e.mu.Unlock()

	e.channel.Unsubscribe(CartUpdated)
	e.channel.Unsubscribe(RosterUpdated)
	e.channel.Disconnect()

	if err := e.membership.Leave(sess.TableID, self.UserID); err != nil {
		utils.ErrorLogger.Printf("Leave request failed: %v", err)
	}
	return e.store.Clear()
}

// AddItemInput is what a screen submits when a diner adds a product.
type AddItemInput struct {
	ProductID      uint
	Quantity       int
	Customizations []uint
	Sharing        Sharing
}

// AddItem validates locally, mutates authoritatively, emits a best-effort
// notification, then reconciles against the full fetched cart. A validation
// failure produces no network or channel effect; an authoritative failure
// produces no emit and no local mutation.
func (e *Engine) AddItem(input AddItemInput) (CartItem, error) {
	e.mu.Lock()
	if e.state != StateJoined {
		e.mu.Unlock()
		return CartItem{}, ErrNotJoined
	}
	sess := e.session
	self := e.self
	roster := e.roster
	e.mu.Unlock()

	if input.Quantity < 1 {
		return CartItem{}, ErrInvalidQuantity
	}
	if err := validateSharing(input.Sharing, self.UserID, roster); err != nil {
		return CartItem{}, err
	}

	product, err := e.product(input.ProductID)
	if err != nil {
		return CartItem{}, err
	}
	if err := ValidateSelections(product, input.Customizations); err != nil {
		return CartItem{}, err
	}

	mode := input.Sharing.Mode
	if mode == "" {
		mode = SharePrivate
	}
	item, err := e.backend.AddItem(sess.CartID, AddItemRequest{
		ProductID:      input.ProductID,
		Quantity:       input.Quantity,
		Customizations: input.Customizations,
		SharingMode:    string(mode),
		SharedWith:     input.Sharing.UserIDs,
		UserID:         self.UserID,
		UserName:       self.UserName,
	})
	if err != nil {
		return CartItem{}, err
	}

	e.channel.Emit(ItemAdded, map[string]interface{}{"itemId": item.ID, "productId": item.ProductID})
	e.refreshCart()
	return item, nil
}

// UpdateItemQuantity changes a line's quantity. Zero is not a valid state —
// it must route through RemoveItem.
func (e *Engine) UpdateItemQuantity(itemID uint, quantity int) (CartItem, error) {
	e.mu.Lock()
	if e.state != StateJoined {
		e.mu.Unlock()
		return CartItem{}, ErrNotJoined
	}
	sess := e.session
	self := e.self
	e.mu.Unlock()

	if quantity < 1 {
		return CartItem{}, ErrInvalidQuantity
	}

	item, err := e.backend.UpdateItemQuantity(sess.CartID, itemID, quantity, self.UserID)
	if err != nil {
		return CartItem{}, err
	}

	e.channel.Emit(ItemUpdated, map[string]interface{}{"itemId": itemID, "quantity": quantity})
	e.refreshCart()
	return item, nil
}

func (e *Engine) RemoveItem(itemID uint) error {
	e.mu.Lock()
	if e.state != StateJoined {
		e.mu.Unlock()
		return ErrNotJoined
	}
	sess := e.session
	e.mu.Unlock()

	if err := e.backend.RemoveItem(sess.CartID, itemID); err != nil {
		return err
	}

	e.channel.Emit(ItemRemoved, map[string]interface{}{"itemId": itemID})
	e.refreshCart()
	return nil
}

// CurrentBill recomputes the per-participant breakdown from the latest
// cart and roster snapshot on every call.
func (e *Engine) CurrentBill() map[string]float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Apportion(e.cart, e.roster)
}

// Roster returns the latest roster snapshot.
func (e *Engine) Roster() []Participant {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Participant, len(e.roster))
	copy(out, e.roster)
	return out
}

// Cart returns the latest cart snapshot.
func (e *Engine) Cart() []CartItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]CartItem, len(e.cart))
	copy(out, e.cart)
	return out
}

// PlaceOrder finalizes the shared cart into an order; the session is closed
// by the backend as part of it.
func (e *Engine) PlaceOrder() (Order, error) {
	e.mu.Lock()
	if e.state != StateJoined {
		e.mu.Unlock()
		return Order{}, ErrNotJoined
	}
	sess := e.session
	e.mu.Unlock()

	return e.backend.CreateOrderFromCart(sess.CartID)
}

// ActiveOrder fetches the order finalized from this session, if any.
func (e *Engine) ActiveOrder() (Order, error) {
	e.mu.Lock()
	sess := e.session
	joined := e.state == StateJoined
	e.mu.Unlock()
	if !joined {
		return Order{}, ErrNotJoined
	}
	return e.backend.GetOrderBySession(sess.SessionID)
}

// Subscribe returns a buffered snapshot stream and a cancel func. Slow
// consumers miss intermediate snapshots rather than blocking reconciliation.
func (e *Engine) Subscribe() (<-chan Snapshot, func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextSub
	e.nextSub++
	sub := make(chan Snapshot, 8)
	e.subs[id] = sub

	return sub, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if s, ok := e.subs[id]; ok {
			delete(e.subs, id)
			close(s)
		}
	}
}

// product serves catalog entries from the local cache, fetching on miss, so
// validation of an add happens before any mutating call.
func (e *Engine) product(id uint) (Product, error) {
	e.mu.Lock()
	p, ok := e.products[id]
	e.mu.Unlock()
	if ok {
		return p, nil
	}

	p, err := e.backend.GetProduct(id)
	if err != nil {
		return Product{}, err
	}
	e.mu.Lock()
	e.products[id] = p
	e.mu.Unlock()
	return p, nil
}

// refreshCart re-fetches the full authoritative cart and publishes a new
// snapshot. Completions that lost the race to a newer fetch are discarded.
func (e *Engine) refreshCart() {
	e.mu.Lock()
	if e.state != StateJoined {
		e.mu.Unlock()
		return
	}
	e.seq++
	seq := e.seq
	cartID := e.session.CartID
	e.mu.Unlock()

	items, err := e.backend.GetCart(cartID)
	if err != nil {
		utils.ErrorLogger.Printf("Cart refresh failed: %v", err)
		return
	}

	e.mu.Lock()
	if seq <= e.snapSeq || e.state != StateJoined {
		// A newer fetch already landed; this response is stale.
		e.mu.Unlock()
		return
	}
	e.snapSeq = seq
	e.cart = items
	e.publishLocked()
	e.mu.Unlock()
}

// refreshRoster re-fetches the authoritative roster (with the single-diner
// fallback from Membership) and publishes a new snapshot.
func (e *Engine) refreshRoster() {
	e.mu.Lock()
	if e.state != StateJoined {
		e.mu.Unlock()
		return
	}
	tableID := e.session.TableID
	e.mu.Unlock()

	roster, err := e.membership.Roster(tableID)
	if err != nil {
		utils.ErrorLogger.Printf("Roster refresh failed: %v", err)
		return
	}

	e.mu.Lock()
	if e.state != StateJoined {
		e.mu.Unlock()
		return
	}
	e.roster = roster
	e.publishLocked()
	e.mu.Unlock()
}

func (e *Engine) publishLocked() {
	snap := Snapshot{
		Roster: append([]Participant(nil), e.roster...),
		Cart:   append([]CartItem(nil), e.cart...),
		Bill:   Apportion(e.cart, e.roster),
		Seq:    e.snapSeq,
	}
	for _, sub := range e.subs {
		select {
		case sub <- snap:
		default:
		}
	}
}

// validateSharing rejects an empty shared-with set and names that are not on
// the current roster. The adder is an implicit beneficiary and does not need
// to be named.
func validateSharing(s Sharing, selfID string, roster []Participant) error {
	if s.Mode != ShareWithUsers {
		return nil
	}
	if len(s.UserIDs) == 0 {
		return ErrInvalidSharing
	}
	for _, id := range s.UserIDs {
		if id == selfID {
			continue
		}
		if !hasParticipant(roster, id) {
			return ErrInvalidSharing
		}
	}
	return nil
}
