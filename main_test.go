package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/wholesale-orders-api/config"
	"github.com/kendall-kelly/wholesale-orders-api/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestHealthCheck is a unit test for the healthCheck handler function
func TestHealthCheck(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	healthCheck(c)

	assert.Equal(t, http.StatusOK, w.Code, "Expected status code 200")

	var response map[string]interface{}
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err, "Response should be valid JSON")

	assert.Equal(t, true, response["success"], "Expected success to be true")
	assert.Equal(t, healthMessage, response["message"], "Expected correct message")
}

// TestHealthCheckResponseFormat tests the exact JSON format
func TestHealthCheckResponseFormat(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	healthCheck(c)

	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Len(t, response, 2, "Response should have exactly 2 fields")
	assert.Contains(t, response, "success")
	assert.Contains(t, response, "message")
}

func TestDatabaseStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	previous := config.GetDB()
	t.Cleanup(func() { config.SetDB(previous) })

	t.Run("connected", func(t *testing.T) {
		config.SetDB(testutil.NewTestDB(t))

		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/database/status", nil)
		databaseStatus(c)

		assert.Equal(t, http.StatusOK, w.Code)
		var response struct {
			Success bool     `json:"success"`
			Tables  []string `json:"tables"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.True(t, response.Success)
		assert.Contains(t, response.Tables, "orders")
		assert.Contains(t, response.Tables, "credit_notes")
	})

	t.Run("not connected", func(t *testing.T) {
		config.SetDB(nil)

		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/database/status", nil)
		databaseStatus(c)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestNewApplication_RejectsBadRedisURL(t *testing.T) {
	cfg := testConfig()
	cfg.RedisURL = "not-a-url"

	_, err := newApplication(context.Background(), cfg, config.NewLogger("error"), testutil.NewTestDB(t))
	assert.Error(t, err)
}

func TestNewApplication_RejectsBadSnowflakeNode(t *testing.T) {
	cfg := testConfig()
	cfg.SnowflakeNode = 5000

	_, err := newApplication(context.Background(), cfg, config.NewLogger("error"), testutil.NewTestDB(t))
	assert.Error(t, err)
}
