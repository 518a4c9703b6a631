package engine

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dinesync/dinesync/utils"
)

// fakeBackend records every authoritative call so tests can assert which
// network effects a flow produced.
type fakeBackend struct {
	mu sync.Mutex

	roster    []Participant
	rosterErr error
	products  map[uint]Product
	items     []CartItem
	nextID    uint

	addErr  error
	joinErr error

	addCalls     int
	getCartCalls int

	// cartGate, when set, blocks the first GetCart call until released.
	cartGate     chan struct{}
	firstFetchIn chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		products: make(map[uint]Product),
		nextID:   1,
	}
}

func (f *fakeBackend) StartSession(tableID uint, userName string) (JoinResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.joinErr != nil {
		return JoinResult{}, f.joinErr
	}
	result := JoinResult{
		SessionID:    "sess-1",
		SessionToken: "token-1",
		IsOwner:      true,
		TableNumber:  "T1",
		UserName:     userName,
		TableID:      tableID,
		UserID:       "user-1",
	}
	result.Cart = &struct {
		ID string `json:"id"`
	}{ID: "cart-1"}
	return result, nil
}

func (f *fakeBackend) GetTableUsers(tableID uint) ([]Participant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rosterErr != nil {
		return nil, f.rosterErr
	}
	out := make([]Participant, len(f.roster))
	copy(out, f.roster)
	return out, nil
}

func (f *fakeBackend) Leave(tableID uint, userID string) error { return nil }

func (f *fakeBackend) GetProduct(id uint) (Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return Product{}, &RequestError{Op: "get product", StatusCode: 404, Message: "not found"}
	}
	return p, nil
}

func (f *fakeBackend) AddItem(cartID string, req AddItemRequest) (CartItem, error) {
	f.mu.Lock()
	f.addCalls++
	if f.addErr != nil {
		defer f.mu.Unlock()
		return CartItem{}, f.addErr
	}
	item := CartItem{
		ID:            f.nextID,
		ProductID:     req.ProductID,
		Quantity:      req.Quantity,
		UnitPrice:     UnitPrice(f.products[req.ProductID], req.Customizations),
		SharingMode:   SharingMode(req.SharingMode),
		SharedWith:    req.SharedWith,
		AddedByUserID: req.UserID,
		AddedByName:   req.UserName,
	}
	f.nextID++
	f.items = append(f.items, item)
	f.mu.Unlock()
	return item, nil
}

func (f *fakeBackend) GetCart(cartID string) ([]CartItem, error) {
	f.mu.Lock()
	f.getCartCalls++
	call := f.getCartCalls
	gate := f.cartGate
	firstIn := f.firstFetchIn
	out := make([]CartItem, len(f.items))
	copy(out, f.items)
	f.mu.Unlock()

	if gate != nil && call == 1 {
		if firstIn != nil {
			close(firstIn)
		}
		<-gate
		// The world moved on while we were blocked; answer with what we
		// snapshotted before the newer fetch.
	}
	return out, nil
}

func (f *fakeBackend) UpdateItemQuantity(cartID string, itemID uint, quantity int, userID string) (CartItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == itemID {
			f.items[i].Quantity = quantity
			return f.items[i], nil
		}
	}
	return CartItem{}, &RequestError{Op: "update item", StatusCode: 404, Message: "not found"}
}

func (f *fakeBackend) RemoveItem(cartID string, itemID uint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == itemID {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return nil
		}
	}
	return &RequestError{Op: "remove item", StatusCode: 404, Message: "not found"}
}

func (f *fakeBackend) CreateOrderFromCart(cartID string) (Order, error) {
	return Order{ID: 1, SessionID: "sess-1", Status: "In Progress"}, nil
}

func (f *fakeBackend) GetOrderBySession(sessionID string) (Order, error) {
	return Order{ID: 1, SessionID: sessionID, Status: "In Progress"}, nil
}

func (f *fakeBackend) calls() (add, getCart int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addCalls, f.getCartCalls
}

// fakeChannel records emits and exposes subscribed handlers so tests can
// fire inbound notifications.
type fakeChannel struct {
	mu         sync.Mutex
	connectErr error
	connected  bool
	emitted    []EventKind
	handlers   map[EventKind]Handler
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{handlers: make(map[EventKind]Handler)}
}

func (c *fakeChannel) Connect(tableID uint, token, sessionID, userName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.connectErr != nil {
		return c.connectErr
	}
	c.connected = true
	return nil
}

func (c *fakeChannel) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
}

func (c *fakeChannel) Emit(kind EventKind, payload interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emitted = append(c.emitted, kind)
}

func (c *fakeChannel) Subscribe(kind EventKind, h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers[kind] = h
}

func (c *fakeChannel) Unsubscribe(kind EventKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.handlers, kind)
}

func (c *fakeChannel) fire(kind EventKind) {
	c.mu.Lock()
	h := c.handlers[kind]
	c.mu.Unlock()
	if h != nil {
		h(nil)
	}
}

func (c *fakeChannel) emits() []EventKind {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]EventKind, len(c.emitted))
	copy(out, c.emitted)
	return out
}

func sizedProduct() Product {
	return Product{
		ID:    1,
		Name:  "Latte",
		Price: 4.00,
		CustomizationGroups: []CustomizationGroup{
			{
				ID: 1, Name: "Size", Required: true, MaxSelect: 1,
				Options: []Customization{
					{ID: 10, Name: "Small", PriceDelta: 0},
					{ID: 11, Name: "Large", PriceDelta: 1.00},
				},
			},
		},
	}
}

func joinedEngine(t *testing.T, backend *fakeBackend, channel *fakeChannel) *Engine {
	t.Helper()
	utils.InitLogger()
	backend.roster = []Participant{
		{UserID: "user-1", UserName: "Ana", IsOwner: true, JoinedAt: time.Now()},
		{UserID: "user-2", UserName: "Ben", JoinedAt: time.Now()},
	}

	eng := New(backend, channel, NewSessionStore(NewMemStore()))
	_, err := eng.EnterTable(1, "Ana")
	assert.NoError(t, err)
	assert.Equal(t, StateJoined, eng.State())
	return eng
}

func TestEnterTableEstablishesSession(t *testing.T) {
	backend := newFakeBackend()
	channel := newFakeChannel()
	eng := joinedEngine(t, backend, channel)

	sess, ok := eng.Session()
	assert.True(t, ok)
	assert.Equal(t, "sess-1", sess.SessionID)
	assert.Equal(t, "cart-1", sess.CartID)
	assert.Len(t, eng.Roster(), 2)

	_, err := eng.EnterTable(1, "Ana")
	assert.ErrorIs(t, err, ErrAlreadyJoined)
}

func TestEnterTableRollsBackOnConnectFailure(t *testing.T) {
	utils.InitLogger()
	backend := newFakeBackend()
	channel := newFakeChannel()
	channel.connectErr = ErrChannelUnavailable

	store := NewSessionStore(NewMemStore())
	eng := New(backend, channel, store)

	_, err := eng.EnterTable(1, "Ana")
	assert.ErrorIs(t, err, ErrChannelUnavailable)
	assert.Equal(t, StateDisconnected, eng.State())

	// The half-written identity must be rolled back.
	_, ok := store.Session()
	assert.False(t, ok)
	_, ok = store.LocalIdentity()
	assert.False(t, ok)
}

func TestEnterTableJoinFailureLeavesNoIdentity(t *testing.T) {
	utils.InitLogger()
	backend := newFakeBackend()
	backend.joinErr = ErrSessionUnavailable

	store := NewSessionStore(NewMemStore())
	eng := New(backend, newFakeChannel(), store)

	_, err := eng.EnterTable(99, "Ana")
	assert.ErrorIs(t, err, ErrSessionUnavailable)
	_, ok := store.LocalIdentity()
	assert.False(t, ok)
}

func TestAddItemValidationFailureHasNoNetworkEffect(t *testing.T) {
	backend := newFakeBackend()
	backend.products[1] = sizedProduct()
	channel := newFakeChannel()
	eng := joinedEngine(t, backend, channel)

	before, _ := backend.calls()

	// Required "Size" group left unselected.
	_, err := eng.AddItem(AddItemInput{ProductID: 1, Quantity: 1, Sharing: Private()})
	var missing *MissingCustomizationError
	assert.ErrorAs(t, err, &missing)
	assert.Equal(t, "Size", missing.Group)

	after, _ := backend.calls()
	assert.Equal(t, before, after, "no mutating call on validation failure")
	assert.Empty(t, channel.emits(), "no notification on validation failure")
}

func TestAddItemInvalidQuantity(t *testing.T) {
	backend := newFakeBackend()
	backend.products[1] = sizedProduct()
	channel := newFakeChannel()
	eng := joinedEngine(t, backend, channel)

	_, err := eng.AddItem(AddItemInput{ProductID: 1, Quantity: 0, Sharing: Private()})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	add, _ := backend.calls()
	assert.Zero(t, add)
}

func TestAddItemInvalidSharing(t *testing.T) {
	backend := newFakeBackend()
	backend.products[1] = sizedProduct()
	channel := newFakeChannel()
	eng := joinedEngine(t, backend, channel)

	// Empty set.
	_, err := eng.AddItem(AddItemInput{
		ProductID: 1, Quantity: 1,
		Customizations: []uint{10},
		Sharing:        Sharing{Mode: ShareWithUsers},
	})
	assert.ErrorIs(t, err, ErrInvalidSharing)

	// Someone not at the table.
	_, err = eng.AddItem(AddItemInput{
		ProductID: 1, Quantity: 1,
		Customizations: []uint{10},
		Sharing:        WithUsers("user-9"),
	})
	assert.ErrorIs(t, err, ErrInvalidSharing)

	add, _ := backend.calls()
	assert.Zero(t, add)
}

func TestAddItemMutationFailureEmitsNothing(t *testing.T) {
	backend := newFakeBackend()
	backend.products[1] = sizedProduct()
	backend.addErr = &RequestError{Op: "add item", StatusCode: 500, Message: "boom"}
	channel := newFakeChannel()
	eng := joinedEngine(t, backend, channel)

	_, err := eng.AddItem(AddItemInput{
		ProductID: 1, Quantity: 1,
		Customizations: []uint{10},
		Sharing:        Private(),
	})
	var reqErr *RequestError
	assert.ErrorAs(t, err, &reqErr)

	assert.Empty(t, channel.emits())
	assert.Empty(t, eng.Cart())
}

func TestAddItemEmitsAndReconciles(t *testing.T) {
	backend := newFakeBackend()
	backend.products[1] = sizedProduct()
	channel := newFakeChannel()
	eng := joinedEngine(t, backend, channel)

	item, err := eng.AddItem(AddItemInput{
		ProductID: 1, Quantity: 2,
		Customizations: []uint{11},
		Sharing:        WithEveryone(),
	})
	assert.NoError(t, err)
	assert.Equal(t, 5.00, item.UnitPrice)

	assert.Equal(t, []EventKind{ItemAdded}, channel.emits())

	cart := eng.Cart()
	if assert.Len(t, cart, 1) {
		assert.Equal(t, ShareWithAll, cart[0].SharingMode)
	}

	bill := eng.CurrentBill()
	assert.Equal(t, 5.00, bill["user-1"])
	assert.Equal(t, 5.00, bill["user-2"])
}

func TestNotificationTriggersSingleRefetch(t *testing.T) {
	backend := newFakeBackend()
	channel := newFakeChannel()
	eng := joinedEngine(t, backend, channel)

	_, before := backend.calls()
	channel.fire(CartUpdated)
	_, after := backend.calls()

	assert.Equal(t, before+1, after, "one notification, exactly one cart fetch")
	assert.Empty(t, eng.Cart())
}

func TestRosterFallbackToLocalIdentity(t *testing.T) {
	backend := newFakeBackend()
	channel := newFakeChannel()
	eng := joinedEngine(t, backend, channel)

	backend.mu.Lock()
	backend.rosterErr = errors.New("network down")
	backend.mu.Unlock()

	channel.fire(RosterUpdated)

	roster := eng.Roster()
	if assert.Len(t, roster, 1) {
		assert.Equal(t, "user-1", roster[0].UserID)
	}
}

func TestStaleFetchCompletionDiscarded(t *testing.T) {
	backend := newFakeBackend()
	backend.products[1] = sizedProduct()
	channel := newFakeChannel()
	eng := joinedEngine(t, backend, channel)

	// Arm the gate: the next (first counted after reset) GetCart blocks.
	backend.mu.Lock()
	backend.getCartCalls = 0
	backend.cartGate = make(chan struct{})
	backend.firstFetchIn = make(chan struct{})
	gate := backend.cartGate
	firstIn := backend.firstFetchIn
	backend.mu.Unlock()

	// First fetch: fires while the cart is still empty, then stalls.
	go channel.fire(CartUpdated)
	<-firstIn

	// Second fetch: sees the newly added item and completes first.
	_, err := eng.AddItem(AddItemInput{
		ProductID: 1, Quantity: 1,
		Customizations: []uint{10},
		Sharing:        Private(),
	})
	assert.NoError(t, err)
	assert.Len(t, eng.Cart(), 1)

	// Release the stalled fetch; its empty snapshot must be discarded.
	close(gate)
	time.Sleep(100 * time.Millisecond)
	assert.Len(t, eng.Cart(), 1, "stale completion must not clobber the newer snapshot")
}

func TestLeaveTableClearsEverything(t *testing.T) {
	backend := newFakeBackend()
	channel := newFakeChannel()
	eng := joinedEngine(t, backend, channel)

	assert.NoError(t, eng.LeaveTable())
	assert.Equal(t, StateDisconnected, eng.State())
	assert.Empty(t, eng.Roster())
	assert.Empty(t, eng.Cart())

	_, err := eng.AddItem(AddItemInput{ProductID: 1, Quantity: 1})
	assert.ErrorIs(t, err, ErrNotJoined)

	assert.ErrorIs(t, eng.LeaveTable(), ErrNotJoined)
}

func TestSubscribePublishesSnapshots(t *testing.T) {
	backend := newFakeBackend()
	backend.products[1] = sizedProduct()
	channel := newFakeChannel()
	eng := joinedEngine(t, backend, channel)

	snaps, cancel := eng.Subscribe()
	defer cancel()

	_, err := eng.AddItem(AddItemInput{
		ProductID: 1, Quantity: 1,
		Customizations: []uint{10},
		Sharing:        WithEveryone(),
	})
	assert.NoError(t, err)

	select {
	case snap := <-snaps:
		assert.Len(t, snap.Cart, 1)
		assert.InDelta(t, 2.00, snap.Bill["user-1"], 0.0001)
		assert.InDelta(t, 2.00, snap.Bill["user-2"], 0.0001)
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot published after a mutation")
	}
}

func TestUpdateItemQuantityRejectsZero(t *testing.T) {
	backend := newFakeBackend()
	channel := newFakeChannel()
	eng := joinedEngine(t, backend, channel)

	_, err := eng.UpdateItemQuantity(1, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Empty(t, channel.emits())
}

func TestRemoveItemEmitsAndReconciles(t *testing.T) {
	backend := newFakeBackend()
	backend.products[1] = sizedProduct()
	channel := newFakeChannel()
	eng := joinedEngine(t, backend, channel)

	item, err := eng.AddItem(AddItemInput{
		ProductID: 1, Quantity: 1,
		Customizations: []uint{10},
		Sharing:        Private(),
	})
	assert.NoError(t, err)

	assert.NoError(t, eng.RemoveItem(item.ID))
	assert.Equal(t, []EventKind{ItemAdded, ItemRemoved}, channel.emits())
	assert.Empty(t, eng.Cart())
	assert.Empty(t, eng.CurrentBill())
}
