package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Client talks to the authoritative backend. Every method is one
// request/response call; the engine composes them, it never caches responses
// as truth beyond the current snapshot.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: 10 * time.Second},
	}
}

// envelope matches the backend's JSON response wrapper.
type envelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) do(op, method, path string, body interface{}, out interface{}) error {
	var reqBody *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return &RequestError{Op: op, Err: err}
		}
		reqBody = bytes.NewBuffer(raw)
	} else {
		reqBody = &bytes.Buffer{}
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reqBody)
	if err != nil {
		return &RequestError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return &RequestError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 300 {
			return &RequestError{Op: op, StatusCode: resp.StatusCode, Message: resp.Status}
		}
		return &RequestError{Op: op, Err: err}
	}

	if resp.StatusCode >= 300 {
		return &RequestError{Op: op, StatusCode: resp.StatusCode, Message: env.Message}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &RequestError{Op: op, Err: err}
		}
	}
	return nil
}

// JoinResult is the backend's answer to a session start.
type JoinResult struct {
	SessionID    string `json:"sessionId"`
	SessionToken string `json:"sessionToken"`
	IsOwner      bool   `json:"isOwner"`
	TableNumber  string `json:"tableNumber"`
	UserName     string `json:"userName"`
	TableID      uint   `json:"tableId"`
	UserID       string `json:"userId"`
	Cart         *struct {
		ID string `json:"id"`
	} `json:"cart"`
}

// StartSession joins a table, creating its session when this is the first
// diner. An unresolvable table surfaces as ErrSessionUnavailable.
func (c *Client) StartSession(tableID uint, userName string) (JoinResult, error) {
	var result JoinResult
	err := c.do("start session", http.MethodPost, "/api/table/start", map[string]interface{}{
		"tableId":  tableID,
		"userName": userName,
	}, &result)
	if err != nil {
		var reqErr *RequestError
		if errors.As(err, &reqErr) && reqErr.StatusCode == http.StatusNotFound {
			return JoinResult{}, ErrSessionUnavailable
		}
		return JoinResult{}, err
	}
	return result, nil
}

func (c *Client) GetTableUsers(tableID uint) ([]Participant, error) {
	var roster []Participant
	err := c.do("fetch roster", http.MethodGet, fmt.Sprintf("/api/table/%d/users", tableID), nil, &roster)
	if err != nil {
		return nil, err
	}
	return roster, nil
}

func (c *Client) Leave(tableID uint, userID string) error {
	return c.do("leave session", http.MethodPost, fmt.Sprintf("/api/table/%d/leave", tableID),
		map[string]string{"userId": userID}, nil)
}

func (c *Client) ListCategories() ([]Category, error) {
	var categories []Category
	if err := c.do("list categories", http.MethodGet, "/api/categories", nil, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (c *Client) ListProducts() ([]Product, error) {
	var products []Product
	if err := c.do("list products", http.MethodGet, "/api/products", nil, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (c *Client) GetProduct(id uint) (Product, error) {
	var product Product
	if err := c.do("fetch product", http.MethodGet, fmt.Sprintf("/api/products/%d", id), nil, &product); err != nil {
		return Product{}, err
	}
	return product, nil
}

// AddItemRequest is the wire form of an add-to-cart mutation.
type AddItemRequest struct {
	ProductID      uint     `json:"productId"`
	Quantity       int      `json:"quantity"`
	Customizations []uint   `json:"customizations"`
	SharingMode    string   `json:"sharingMode"`
	SharedWith     []string `json:"sharedWith,omitempty"`
	UserID         string   `json:"userId"`
	UserName       string   `json:"userName"`
}

func (c *Client) AddItem(cartID string, req AddItemRequest) (CartItem, error) {
	var item CartItem
	err := c.do("add item", http.MethodPost, fmt.Sprintf("/api/cart/%s/items", cartID), req, &item)
	if err != nil {
		return CartItem{}, err
	}
	return item, nil
}

// cartPayload matches the backend's cart detail response; the engine only
// keeps the items.
type cartPayload struct {
	ID    string     `json:"id"`
	Items []CartItem `json:"items"`
}

func (c *Client) GetCart(cartID string) ([]CartItem, error) {
	var cart cartPayload
	if err := c.do("fetch cart", http.MethodGet, "/api/cart/"+cartID, nil, &cart); err != nil {
		return nil, err
	}
	return cart.Items, nil
}

func (c *Client) UpdateItemQuantity(cartID string, itemID uint, quantity int, userID string) (CartItem, error) {
	var item CartItem
	err := c.do("update item", http.MethodPut, fmt.Sprintf("/api/cart/%s/items/%d", cartID, itemID),
		map[string]interface{}{"quantity": quantity, "userId": userID}, &item)
	if err != nil {
		return CartItem{}, err
	}
	return item, nil
}

func (c *Client) RemoveItem(cartID string, itemID uint) error {
	return c.do("remove item", http.MethodDelete, fmt.Sprintf("/api/cart/%s/items/%d", cartID, itemID), nil, nil)
}

func (c *Client) CreateOrderFromCart(cartID string) (Order, error) {
	var order Order
	err := c.do("create order", http.MethodPost, "/api/orders/from-cart",
		map[string]string{"cartId": cartID}, &order)
	if err != nil {
		return Order{}, err
	}
	return order, nil
}

func (c *Client) GetOrderBySession(sessionID string) (Order, error) {
	var order Order
	err := c.do("fetch order", http.MethodGet, "/api/orders/table/session/"+sessionID, nil, &order)
	if err != nil {
		return Order{}, err
	}
	return order, nil
}
