package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kendall-kelly/wholesale-orders-api/config"
	"github.com/kendall-kelly/wholesale-orders-api/models"
	"github.com/kendall-kelly/wholesale-orders-api/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var baseTime = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

// testClock is a settable clock shared by the services under test
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: baseTime}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// setupTestDB opens a migrated in-memory database. A single connection makes
// concurrent transactions take turns.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), config.GormConfig(nil))
	require.NoError(t, err, "Failed to connect to test database")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, models.AutoMigrate(db), "Failed to migrate test database")
	return db
}

// fixture is one seller with two buyers and a product
type fixture struct {
	db          *gorm.DB
	clock       *testClock
	seller      models.Seller
	otherSeller models.Seller
	client      models.Client
	otherClient models.Client
	product     models.Product
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{db: setupTestDB(t), clock: newTestClock()}

	f.seller = models.Seller{Name: "Northwind Wholesale", Email: "sales@northwind.test"}
	f.otherSeller = models.Seller{Name: "Contoso Supply", Email: "sales@contoso.test"}
	require.NoError(t, f.db.Create(&f.seller).Error)
	require.NoError(t, f.db.Create(&f.otherSeller).Error)

	f.client = models.Client{
		SellerID:           f.seller.ID,
		Name:               "Corner Market",
		Email:              "owner@corner.test",
		ConfirmationMethod: models.ConfirmationAutomatic,
		AutoConfirmEnabled: true,
		DeadlineMinutes:    30,
	}
	f.otherClient = models.Client{
		SellerID:           f.seller.ID,
		Name:               "Harbor Deli",
		Email:              "owner@harbor.test",
		ConfirmationMethod: models.ConfirmationManual,
		DeadlineMinutes:    30,
	}
	require.NoError(t, f.db.Create(&f.client).Error)
	require.NoError(t, f.db.Create(&f.otherClient).Error)

	f.product = models.Product{
		SellerID: f.seller.ID,
		Name:     "Olive Oil 1L",
		SKU:      "OIL-1L",
		Price:    decimal.RequireFromString("25.00"),
		Stock:    98,
	}
	require.NoError(t, f.db.Create(&f.product).Error)
	return f
}

func (f *fixture) deps(publisher Publisher) Dependencies {
	return Dependencies{DB: f.db, Publisher: publisher, Clock: f.clock.Now}
}

func (f *fixture) buyer() Actor       { return Actor{ID: f.client.ID, Role: RoleBuyer} }
func (f *fixture) otherBuyer() Actor  { return Actor{ID: f.otherClient.ID, Role: RoleBuyer} }
func (f *fixture) sellerActor() Actor { return Actor{ID: f.seller.ID, Role: RoleSeller} }
func (f *fixture) otherSellerActor() Actor {
	return Actor{ID: f.otherSeller.ID, Role: RoleSeller}
}

// createOrder stores an order of quantity units of the fixture product with a deadline
// deadlineIn from the fixture clock
func (f *fixture) createOrder(t *testing.T, client models.Client, status models.OrderStatus, quantity int, deadlineIn time.Duration) *models.Order {
	t.Helper()
	deadline := f.clock.Now().Add(deadlineIn)
	subtotal := utils.LineTotal(f.product.Price, quantity)
	order := models.Order{
		OrderNumber:          fmt.Sprintf("ORD-%s", uuid.NewString()[:8]),
		ClientID:             client.ID,
		SellerID:             client.SellerID,
		Status:               status,
		TotalAmount:          subtotal,
		ConfirmationDeadline: &deadline,
		Items: []models.OrderItem{{
			ProductID:   f.product.ID,
			ProductName: f.product.Name,
			Quantity:    quantity,
			UnitPrice:   f.product.Price,
			Subtotal:    subtotal,
		}},
	}
	require.NoError(t, f.db.Create(&order).Error)
	return &order
}

func (f *fixture) reloadOrder(t *testing.T, id string) models.Order {
	t.Helper()
	var order models.Order
	require.NoError(t, f.db.Preload("Items").First(&order, "id = ?", id).Error)
	return order
}

func (f *fixture) productStock(t *testing.T) int {
	t.Helper()
	var product models.Product
	require.NoError(t, f.db.First(&product, "id = ?", f.product.ID).Error)
	return product.Stock
}

func (f *fixture) historyCount(t *testing.T, orderID string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&models.OrderStatusHistory{}).Where("order_id = ?", orderID).Count(&count).Error)
	return count
}

// capturePublisher returns a mock publisher that records every published event
func capturePublisher(t *testing.T) (*MockPublisher, func() []Event) {
	t.Helper()
	ctrl := gomock.NewController(t)
	pub := NewMockPublisher(ctrl)

	var mu sync.Mutex
	var events []Event
	pub.EXPECT().Publish(gomock.Any(), gomock.Any()).Do(func(_ context.Context, evts []Event) {
		mu.Lock()
		events = append(events, evts...)
		mu.Unlock()
	}).AnyTimes()

	return pub, func() []Event {
		mu.Lock()
		defer mu.Unlock()
		out := make([]Event, len(events))
		copy(out, events)
		return out
	}
}

func eventTypes(events []Event) []EventType {
	types := make([]EventType, len(events))
	for i, e := range events {
		types[i] = e.Type
	}
	return types
}

func assertMoney(t *testing.T, expected string, actual decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Equal(t, expected, utils.FormatMoney(actual), msgAndArgs...)
}

func assertCode(t *testing.T, expected ErrorCode, err error) {
	t.Helper()
	require.Error(t, err)
	code, ok := CodeOf(err)
	require.True(t, ok, "expected an engine error, got %v", err)
	assert.Equal(t, expected, code, err.Error())
}
