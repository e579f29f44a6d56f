package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kendall-kelly/wholesale-orders-api/config"
	"github.com/kendall-kelly/wholesale-orders-api/models"
	"github.com/kendall-kelly/wholesale-orders-api/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Auth0 subjects of the seeded users
const (
	BuyerSubject      = "auth0|buyer"
	OtherBuyerSubject = "auth0|other-buyer"
	SellerSubject     = "auth0|seller"
	UnlinkedSubject   = "auth0|unlinked"
)

// NewTestDB opens a migrated in-memory database with a single connection
func NewTestDB(t *testing.T) *gorm.DB {
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

// Seed is one seller with two buyers, a product and a user for each account
type Seed struct {
	Seller      models.Seller
	Client      models.Client
	OtherClient models.Client
	Product     models.Product
}

// SeedAccounts stores the standard accounts. Both buyers confirm manually so
// orders stay pending until a test moves them.
func SeedAccounts(t *testing.T, db *gorm.DB) *Seed {
	t.Helper()
	s := &Seed{}

	s.Seller = models.Seller{Name: "Northwind Wholesale", Email: "sales@northwind.test"}
	require.NoError(t, db.Create(&s.Seller).Error)

	s.Client = models.Client{
		SellerID:           s.Seller.ID,
		Name:               "Corner Market",
		Email:              "owner@corner.test",
		ConfirmationMethod: models.ConfirmationManual,
		DeadlineMinutes:    30,
	}
	s.OtherClient = models.Client{
		SellerID:           s.Seller.ID,
		Name:               "Harbor Deli",
		Email:              "owner@harbor.test",
		ConfirmationMethod: models.ConfirmationManual,
		DeadlineMinutes:    30,
	}
	require.NoError(t, db.Create(&s.Client).Error)
	require.NoError(t, db.Create(&s.OtherClient).Error)

	s.Product = models.Product{
		SellerID: s.Seller.ID,
		Name:     "Olive Oil 1L",
		SKU:      "OIL-1L",
		Price:    decimal.RequireFromString("25.00"),
		Stock:    10,
	}
	require.NoError(t, db.Create(&s.Product).Error)

	users := []models.User{
		{Auth0ID: BuyerSubject, Name: "Corner Owner", Email: "buyer@corner.test", Role: models.UserRoleBuyer, ClientID: &s.Client.ID},
		{Auth0ID: OtherBuyerSubject, Name: "Harbor Owner", Email: "buyer@harbor.test", Role: models.UserRoleBuyer, ClientID: &s.OtherClient.ID},
		{Auth0ID: SellerSubject, Name: "Northwind Sales", Email: "rep@northwind.test", Role: models.UserRoleSeller, SellerID: &s.Seller.ID},
		{Auth0ID: UnlinkedSubject, Name: "Nobody", Email: "nobody@example.test", Role: models.UserRoleBuyer},
	}
	for i := range users {
		require.NoError(t, db.Create(&users[i]).Error)
	}
	return s
}

// CreateOrder stores an order of quantity units of the seeded product for client.
// The confirmation deadline is deadlineIn from now.
func CreateOrder(t *testing.T, db *gorm.DB, s *Seed, client models.Client, status models.OrderStatus, quantity int, deadlineIn time.Duration) *models.Order {
	t.Helper()
	deadline := time.Now().UTC().Add(deadlineIn)
	subtotal := utils.LineTotal(s.Product.Price, quantity)
	order := models.Order{
		OrderNumber:          fmt.Sprintf("ORD-%s", uuid.NewString()[:8]),
		ClientID:             client.ID,
		SellerID:             client.SellerID,
		Status:               status,
		TotalAmount:          subtotal,
		ConfirmationDeadline: &deadline,
		Items: []models.OrderItem{{
			ProductID:   s.Product.ID,
			ProductName: s.Product.Name,
			Quantity:    quantity,
			UnitPrice:   s.Product.Price,
			Subtotal:    subtotal,
		}},
	}
	require.NoError(t, db.Create(&order).Error)
	return &order
}
