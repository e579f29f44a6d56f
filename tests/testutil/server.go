package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/wholesale-orders-api/controllers"
	"github.com/kendall-kelly/wholesale-orders-api/middleware"
	"github.com/kendall-kelly/wholesale-orders-api/services"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// CronSecret is accepted by the cron route of NewServer
const CronSecret = "test-cron-secret"

// Server is the engine mounted on a Gin router over an in-memory database.
// Tokens come from SubjectHeader, actors are resolved by the real middleware.
type Server struct {
	Router *gin.Engine
	DB     *gorm.DB
	Seed   *Seed
	Images *services.MockS3Service
	Events *services.Dispatcher
}

// NewServer wires services, controllers and routes the way main does
func NewServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	db := NewTestDB(t)
	s := &Server{DB: db, Seed: SeedAccounts(t, db), Images: services.NewMockS3Service()}

	s.Events = services.NewDispatcher(logger, 64, services.NewNotificationSink(db))
	s.Events.Start(1)
	t.Cleanup(s.Events.Close)

	deps := services.Dependencies{DB: db, Publisher: s.Events, Logger: logger}
	orders := services.NewOrderService(deps)
	sweeper := services.NewDeadlineSweeper(deps, orders, &services.LocalSweepLocker{}, services.SweepConfig{})

	s.Router = gin.New()
	controllers.RegisterRoutes(s.Router.Group("/api/v1"), controllers.Controllers{
		Orders:      controllers.NewOrderController(orders),
		Returns:     controllers.NewReturnController(services.NewReturnService(deps, decimal.NewFromInt(5), services.NewS3ImageService(s.Images))),
		CreditNotes: controllers.NewCreditNoteController(services.NewCreditService(deps)),
		Cron:        controllers.NewCronController(sweeper),
		Users:       controllers.NewUserController(db),
		Settings:    controllers.NewSettingsController(services.NewConfirmationSettingsService(deps)),
	}, controllers.RouteAuth{
		Token:          MockTokenMiddleware(),
		Actor:          middleware.ResolveActor(db),
		Cron:           middleware.RequireCronSecret(CronSecret),
		ManageSettings: middleware.RequireScope(middleware.ScopeManageSettings),
	})
	return s
}

// Response is the JSON envelope of every engine endpoint
type Response struct {
	Success          bool            `json:"success"`
	Message          string          `json:"message"`
	AlreadyProcessed bool            `json:"alreadyProcessed"`
	Data             json.RawMessage `json:"data"`
	Error            struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Do sends a JSON request as subject. An empty subject sends no identity.
func (s *Server) Do(t *testing.T, method, path, subject string, body interface{}) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if subject != "" {
		req.Header.Set(SubjectHeader, subject)
	}
	return s.Serve(t, req)
}

// Serve runs a prepared request through the router and decodes the envelope
func (s *Server) Serve(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w, resp
}

// DecodeData unmarshals the data field of resp into out
func DecodeData(t *testing.T, resp Response, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(resp.Data, out))
}
