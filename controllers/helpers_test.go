package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kendall-kelly/wholesale-orders-api/config"
	"github.com/kendall-kelly/wholesale-orders-api/middleware"
	"github.com/kendall-kelly/wholesale-orders-api/models"
	"github.com/kendall-kelly/wholesale-orders-api/services"
	"github.com/kendall-kelly/wholesale-orders-api/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), config.GormConfig(nil))
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return db
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

// mockActorMiddleware stands in for EnsureValidToken + ResolveActor
func mockActorMiddleware(actor services.Actor) gin.HandlerFunc {
	return func(c *gin.Context) {
		middleware.SetActor(c, actor)
		c.Next()
	}
}

// world is a seller with one buyer, a product and the engine services over them
type world struct {
	db       *gorm.DB
	seller   models.Seller
	client   models.Client
	product  models.Product
	orders   *services.OrderService
	returns  *services.ReturnService
	credits  *services.CreditService
	settings *services.ConfirmationSettingsService
	images   *services.MockS3Service
}

func newWorld(t *testing.T) *world {
	t.Helper()
	w := &world{db: setupTestDB(t)}

	w.seller = models.Seller{Name: "Northwind Wholesale", Email: "sales@northwind.test"}
	require.NoError(t, w.db.Create(&w.seller).Error)
	w.client = models.Client{
		SellerID:           w.seller.ID,
		Name:               "Corner Market",
		Email:              "owner@corner.test",
		ConfirmationMethod: models.ConfirmationManual,
		DeadlineMinutes:    30,
	}
	require.NoError(t, w.db.Create(&w.client).Error)
	w.product = models.Product{
		SellerID: w.seller.ID,
		Name:     "Olive Oil 1L",
		SKU:      "OIL-1L",
		Price:    decimal.RequireFromString("25.00"),
		Stock:    10,
	}
	require.NoError(t, w.db.Create(&w.product).Error)

	deps := services.Dependencies{DB: w.db}
	w.images = services.NewMockS3Service()
	w.orders = services.NewOrderService(deps)
	w.returns = services.NewReturnService(deps, decimal.NewFromInt(5), services.NewS3ImageService(w.images))
	w.credits = services.NewCreditService(deps)
	w.settings = services.NewConfirmationSettingsService(deps)
	return w
}

func (w *world) buyer() services.Actor {
	return services.Actor{ID: w.client.ID, Role: services.RoleBuyer}
}

func (w *world) sellerActor() services.Actor {
	return services.Actor{ID: w.seller.ID, Role: services.RoleSeller}
}

// router mounts every engine route behind a fixed actor
func (w *world) router(actor services.Actor) *gin.Engine {
	router := setupTestRouter()
	allow := func(c *gin.Context) { c.Next() }
	RegisterRoutes(router.Group("/api/v1"), Controllers{
		Orders:      NewOrderController(w.orders),
		Returns:     NewReturnController(w.returns),
		CreditNotes: NewCreditNoteController(w.credits),
		Cron:        NewCronController(services.NewDeadlineSweeper(services.Dependencies{DB: w.db}, w.orders, nil, services.SweepConfig{})),
		Users:       NewUserController(w.db),
		Settings:    NewSettingsController(w.settings),
	}, RouteAuth{Token: allow, Actor: mockActorMiddleware(actor), Cron: allow, ManageSettings: allow})
	return router
}

func (w *world) createOrder(t *testing.T, status models.OrderStatus, quantity int) *models.Order {
	t.Helper()
	deadline := time.Now().UTC().Add(time.Hour)
	subtotal := utils.LineTotal(w.product.Price, quantity)
	order := models.Order{
		OrderNumber:          fmt.Sprintf("ORD-%s", uuid.NewString()[:8]),
		ClientID:             w.client.ID,
		SellerID:             w.seller.ID,
		Status:               status,
		TotalAmount:          subtotal,
		ConfirmationDeadline: &deadline,
		Items: []models.OrderItem{{
			ProductID:   w.product.ID,
			ProductName: w.product.Name,
			Quantity:    quantity,
			UnitPrice:   w.product.Price,
			Subtotal:    subtotal,
		}},
	}
	require.NoError(t, w.db.Create(&order).Error)
	return &order
}

// apiResponse is the success or error envelope every handler writes
type apiResponse struct {
	Success          bool            `json:"success"`
	Message          string          `json:"message"`
	Data             json.RawMessage `json:"data"`
	AlreadyProcessed bool            `json:"alreadyProcessed"`
	Error            struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w, resp
}

func decodeData(t *testing.T, resp apiResponse, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(resp.Data, out))
}
