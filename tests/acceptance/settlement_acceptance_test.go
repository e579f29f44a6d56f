package acceptance

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kendall-kelly/wholesale-orders-api/models"
	"github.com/kendall-kelly/wholesale-orders-api/tests/testutil"
	"github.com/kendall-kelly/wholesale-orders-api/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

// SettlementAcceptanceTestSuite drives the engine over a real HTTP listener
type SettlementAcceptanceTestSuite struct {
	suite.Suite
	engine *testutil.Server
	server *httptest.Server
}

// SetupTest runs before each test
func (suite *SettlementAcceptanceTestSuite) SetupTest() {
	suite.engine = testutil.NewServer(suite.T())
	suite.server = httptest.NewServer(suite.engine.Router)
}

// TearDownTest runs after each test
func (suite *SettlementAcceptanceTestSuite) TearDownTest() {
	suite.server.Close()
}

func (suite *SettlementAcceptanceTestSuite) makeRequest(method, path, subject string, body interface{}) (*http.Response, testutil.Response) {
	var buf bytes.Buffer
	if body != nil {
		suite.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, suite.server.URL+path, &buf)
	suite.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	if subject != "" {
		req.Header.Set(testutil.SubjectHeader, subject)
	}

	resp, err := http.DefaultClient.Do(req)
	suite.Require().NoError(err)
	defer resp.Body.Close()

	var envelope testutil.Response
	suite.Require().NoError(json.NewDecoder(resp.Body).Decode(&envelope))
	return resp, envelope
}

func (suite *SettlementAcceptanceTestSuite) TestErrorResponseFormat() {
	resp, envelope := suite.makeRequest(http.MethodGet, "/api/v1/orders/"+uuid.NewString(), testutil.SellerSubject, nil)

	assert.Equal(suite.T(), http.StatusNotFound, resp.StatusCode)
	assert.Equal(suite.T(), "application/json; charset=utf-8", resp.Header.Get("Content-Type"))
	assert.False(suite.T(), envelope.Success)
	assert.Equal(suite.T(), "NOT_FOUND", envelope.Error.Code)
	assert.NotEmpty(suite.T(), envelope.Error.Message)
}

// TestCompleteSettlementWorkflow_Acceptance follows an order to a credit and spends it
func (suite *SettlementAcceptanceTestSuite) TestCompleteSettlementWorkflow_Acceptance() {
	e := suite.engine
	first := testutil.CreateOrder(suite.T(), e.DB, e.Seed, e.Seed.Client, models.OrderPending, 4, time.Hour)
	second := testutil.CreateOrder(suite.T(), e.DB, e.Seed, e.Seed.Client, models.OrderPending, 2, time.Hour)

	// Step 1: buyer places the order, seller completes it
	resp, envelope := suite.makeRequest(http.MethodPut, "/api/v1/orders/"+first.ID+"/placed", testutil.BuyerSubject, nil)
	suite.Require().Equal(http.StatusOK, resp.StatusCode, envelope.Error.Message)
	resp, envelope = suite.makeRequest(http.MethodPut, "/api/v1/orders/"+first.ID+"/complete", testutil.SellerSubject, nil)
	suite.Require().Equal(http.StatusOK, resp.StatusCode, envelope.Error.Message)

	// Step 2: buyer returns one bottle, seller approves
	resp, envelope = suite.makeRequest(http.MethodPost, "/api/v1/returns", testutil.BuyerSubject, map[string]interface{}{
		"orderId": first.ID,
		"reason":  "QUALITY_ISSUE",
		"items":   []map[string]interface{}{{"orderItemId": first.Items[0].ID, "quantity": 1}},
	})
	suite.Require().Equal(http.StatusOK, resp.StatusCode, envelope.Error.Message)
	var ret models.Return
	testutil.DecodeData(suite.T(), envelope, &ret)
	assert.Equal(suite.T(), "23.75", utils.FormatMoney(ret.FinalRefundAmount))

	resp, envelope = suite.makeRequest(http.MethodPost, "/api/v1/returns/"+ret.ID+"/approve", testutil.SellerSubject, nil)
	suite.Require().Equal(http.StatusOK, resp.StatusCode, envelope.Error.Message)
	testutil.DecodeData(suite.T(), envelope, &ret)
	suite.Require().NotNil(ret.CreditNote)
	noteID := ret.CreditNote.ID

	// Step 3: the buyer spends the whole credit on the next order, the retry is a replay
	useBody := map[string]interface{}{
		"idempotencyKey": uuid.NewString(),
		"orderId":        second.ID,
		"amountToUse":    "23.75",
	}
	resp, envelope = suite.makeRequest(http.MethodPost, "/api/v1/credit-notes/"+noteID+"/use", testutil.BuyerSubject, useBody)
	suite.Require().Equal(http.StatusOK, resp.StatusCode, envelope.Error.Message)
	assert.False(suite.T(), envelope.AlreadyProcessed)

	resp, envelope = suite.makeRequest(http.MethodPost, "/api/v1/credit-notes/"+noteID+"/use", testutil.BuyerSubject, useBody)
	suite.Require().Equal(http.StatusOK, resp.StatusCode, envelope.Error.Message)
	assert.True(suite.T(), envelope.AlreadyProcessed)

	// Step 4: the note is spent and drops out of the active list
	resp, envelope = suite.makeRequest(http.MethodPost, "/api/v1/credit-notes/"+noteID+"/use", testutil.BuyerSubject, map[string]interface{}{
		"orderId":     second.ID,
		"amountToUse": "0.01",
	})
	assert.Equal(suite.T(), http.StatusBadRequest, resp.StatusCode)
	assert.Equal(suite.T(), "INSUFFICIENT_BALANCE", envelope.Error.Code)

	resp, envelope = suite.makeRequest(http.MethodGet, "/api/v1/credit-notes?active=true", testutil.BuyerSubject, nil)
	suite.Require().Equal(http.StatusOK, resp.StatusCode)
	var active []models.CreditNote
	testutil.DecodeData(suite.T(), envelope, &active)
	assert.Empty(suite.T(), active)

	var charged models.Order
	suite.Require().NoError(e.DB.First(&charged, "id = ?", second.ID).Error)
	assert.Equal(suite.T(), "26.25", utils.FormatMoney(charged.TotalAmount))
}

// TestConcurrentCreditUse_Acceptance spends one credit from parallel clients
func (suite *SettlementAcceptanceTestSuite) TestConcurrentCreditUse_Acceptance() {
	e := suite.engine
	resp, envelope := suite.makeRequest(http.MethodPost, "/api/v1/returns/manual", testutil.SellerSubject, map[string]interface{}{
		"orderId": testutil.CreateOrder(suite.T(), e.DB, e.Seed, e.Seed.Client, models.OrderCompleted, 4, -time.Hour).ID,
		"amount":  "30.00",
	})
	suite.Require().Equal(http.StatusOK, resp.StatusCode, envelope.Error.Message)
	var ret models.Return
	testutil.DecodeData(suite.T(), envelope, &ret)
	suite.Require().NotNil(ret.CreditNote)

	const clients = 4
	targets := make([]*models.Order, clients)
	for i := range targets {
		targets[i] = testutil.CreateOrder(suite.T(), e.DB, e.Seed, e.Seed.Client, models.OrderPending, 2, time.Hour)
	}

	var wg sync.WaitGroup
	statuses := make([]int, clients)
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body, _ := json.Marshal(map[string]interface{}{"orderId": targets[i].ID, "amountToUse": "10.00"})
			req, _ := http.NewRequest(http.MethodPost, suite.server.URL+"/api/v1/credit-notes/"+ret.CreditNote.ID+"/use", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set(testutil.SubjectHeader, testutil.BuyerSubject)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return
			}
			resp.Body.Close()
			statuses[i] = resp.StatusCode
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, status := range statuses {
		if status == http.StatusOK {
			succeeded++
		}
	}
	assert.Equal(suite.T(), 3, succeeded)

	var note models.CreditNote
	suite.Require().NoError(e.DB.First(&note, "id = ?", ret.CreditNote.ID).Error)
	assert.Equal(suite.T(), "0.00", utils.FormatMoney(note.Balance))
	assert.False(suite.T(), note.IsActive)
}

func TestSettlementAcceptanceSuite(t *testing.T) {
	suite.Run(t, new(SettlementAcceptanceTestSuite))
}
