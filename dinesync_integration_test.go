package main

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/dinesync/dinesync/engine"
	"github.com/dinesync/dinesync/hub"
	"github.com/dinesync/dinesync/models"
	"github.com/dinesync/dinesync/router"
	"github.com/dinesync/dinesync/utils"
)

// Two diners at one table: both devices run the full coordination engine
// against a live server, and their carts and bills must converge through the
// sync channel without any direct state exchange between them.
func TestSharedTableOrderingFlow(t *testing.T) {
	utils.InitLogger()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file:integration?mode=memory&cache=shared"), &gorm.Config{})
	assert.NoError(t, err)
	autoMigrate(db)

	db.Create(&models.Table{TableNumber: "T1"})
	db.Create(&models.MenuCategory{Name: "Mains"})
	db.Create(&models.Menu{CategoryID: 1, Name: "House Pizza", Price: 10.00, Stock: 10})
	db.Create(&models.Menu{CategoryID: 1, Name: "Lemonade", Price: 3.00, Stock: 10})

	srv := httptest.NewServer(router.SetupRouter(db, hub.NewHub()))
	defer srv.Close()

	newEngine := func() *engine.Engine {
		return engine.New(
			engine.NewClient(srv.URL),
			engine.NewChannel(srv.URL),
			engine.NewSessionStore(engine.NewMemStore()),
		)
	}
	ana := newEngine()
	ben := newEngine()

	sessA, err := ana.EnterTable(1, "Ana")
	assert.NoError(t, err)
	sessB, err := ben.EnterTable(1, "Ben")
	assert.NoError(t, err)

	// Same session, same shared cart.
	assert.Equal(t, sessA.SessionID, sessB.SessionID)
	assert.Equal(t, sessA.CartID, sessB.CartID)

	// Ana learns about Ben through the channel, not through Ben's device.
	assert.Eventually(t, func() bool {
		return len(ana.Roster()) == 2
	}, 3*time.Second, 20*time.Millisecond)
	assert.Len(t, ben.Roster(), 2)

	var anaID, benID string
	for _, p := range ana.Roster() {
		switch p.UserName {
		case "Ana":
			anaID = p.UserID
		case "Ben":
			benID = p.UserID
		}
	}
	assert.NotEmpty(t, anaID)
	assert.NotEmpty(t, benID)

	// Ana adds a pizza for the whole table.
	_, err = ana.AddItem(engine.AddItemInput{
		ProductID: 1,
		Quantity:  1,
		Sharing:   engine.WithEveryone(),
	})
	assert.NoError(t, err)

	assert.Eventually(t, func() bool {
		return len(ben.Cart()) == 1
	}, 3*time.Second, 20*time.Millisecond)

	billA := ana.CurrentBill()
	assert.Equal(t, 5.00, billA[anaID])
	assert.Equal(t, 5.00, billA[benID])
	assert.Equal(t, billA, ben.CurrentBill(), "both devices derive the same bill")

	// Ben adds a private lemonade; only his share moves.
	_, err = ben.AddItem(engine.AddItemInput{
		ProductID: 2,
		Quantity:  1,
		Sharing:   engine.Private(),
	})
	assert.NoError(t, err)

	assert.Eventually(t, func() bool {
		return len(ana.Cart()) == 2
	}, 3*time.Second, 20*time.Millisecond)

	billB := ben.CurrentBill()
	assert.Equal(t, 5.00, billB[anaID])
	assert.Equal(t, 8.00, billB[benID])
	assert.Equal(t, billB, ana.CurrentBill())

	// Ben finalizes; the order totals the full cart and both devices see it.
	order, err := ben.PlaceOrder()
	assert.NoError(t, err)
	assert.Equal(t, 13.00, order.TotalAmount)
	assert.Equal(t, sessA.SessionID, order.SessionID)

	fromAna, err := ana.ActiveOrder()
	assert.NoError(t, err)
	assert.Equal(t, order.ID, fromAna.ID)

	assert.NoError(t, ana.LeaveTable())
	assert.NoError(t, ben.LeaveTable())
}
