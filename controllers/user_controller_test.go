package controllers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/wholesale-orders-api/models"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

// profileRouter mounts the profile routes as if the JWT subject were auth0ID
func profileRouter(db *gorm.DB, auth0ID string) *gin.Engine {
	router := setupTestRouter()
	controller := NewUserController(db)
	mockAuth := func(c *gin.Context) {
		c.Set("user_id", auth0ID)
		c.Next()
	}
	router.GET("/users/me", mockAuth, controller.GetMyProfile)
	router.PUT("/users/me", mockAuth, controller.UpdateMyProfile)
	return router
}

func createBuyerUser(t *testing.T, db *gorm.DB, auth0ID, email string) models.User {
	t.Helper()
	clientID := "4b7c2b4e-0d7e-4d55-9d2a-1c1f6a3e9b01"
	user := models.User{
		Auth0ID:  auth0ID,
		Name:     "Test User",
		Email:    email,
		Role:     models.UserRoleBuyer,
		ClientID: &clientID,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("Failed to create user: %v", err)
	}
	return user
}

func TestGetMyProfile_Success(t *testing.T) {
	db := setupTestDB(t)
	createBuyerUser(t, db, "auth0|testuser", "test@example.com")

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	w := httptest.NewRecorder()
	profileRouter(db, "auth0|testuser").ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.True(t, response["success"].(bool))
	data := response["data"].(map[string]interface{})
	assert.Equal(t, "test@example.com", data["email"])
	assert.Equal(t, "buyer", data["role"])
	assert.Equal(t, "4b7c2b4e-0d7e-4d55-9d2a-1c1f6a3e9b01", data["clientId"])
}

func TestGetMyProfile_UserNotFound(t *testing.T) {
	db := setupTestDB(t)

	req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
	w := httptest.NewRecorder()
	profileRouter(db, "auth0|nonexistent").ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.False(t, response["success"].(bool))
	errorData := response["error"].(map[string]interface{})
	assert.Equal(t, "USER_NOT_FOUND", errorData["code"])
}

func TestUpdateMyProfile(t *testing.T) {
	tests := []struct {
		name           string
		auth0ID        string
		payload        UpdateUserRequest
		expectedStatus int
		expectedCode   string
		expectedName   string
		expectedEmail  string
	}{
		{
			name:           "updates name and email",
			auth0ID:        "auth0|testuser",
			payload:        UpdateUserRequest{Name: "New Name", Email: "new@example.com"},
			expectedStatus: http.StatusOK,
			expectedName:   "New Name",
			expectedEmail:  "new@example.com",
		},
		{
			name:           "partial update keeps email",
			auth0ID:        "auth0|testuser",
			payload:        UpdateUserRequest{Name: "Updated Name"},
			expectedStatus: http.StatusOK,
			expectedName:   "Updated Name",
			expectedEmail:  "test@example.com",
		},
		{
			name:           "empty update returns the profile",
			auth0ID:        "auth0|testuser",
			payload:        UpdateUserRequest{},
			expectedStatus: http.StatusOK,
			expectedName:   "Test User",
			expectedEmail:  "test@example.com",
		},
		{
			name:           "invalid email",
			auth0ID:        "auth0|testuser",
			payload:        UpdateUserRequest{Email: "invalid-email"},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_ERROR",
		},
		{
			name:           "email of another user",
			auth0ID:        "auth0|testuser",
			payload:        UpdateUserRequest{Email: "other@example.com"},
			expectedStatus: http.StatusConflict,
			expectedCode:   "EMAIL_EXISTS",
		},
		{
			name:           "unknown user",
			auth0ID:        "auth0|nonexistent",
			payload:        UpdateUserRequest{Name: "New Name"},
			expectedStatus: http.StatusNotFound,
			expectedCode:   "USER_NOT_FOUND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := setupTestDB(t)
			createBuyerUser(t, db, "auth0|testuser", "test@example.com")
			createBuyerUser(t, db, "auth0|otheruser", "other@example.com")

			body, _ := json.Marshal(tt.payload)
			req := httptest.NewRequest(http.MethodPut, "/users/me", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			profileRouter(db, tt.auth0ID).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)

			var response map[string]interface{}
			json.Unmarshal(w.Body.Bytes(), &response)
			if tt.expectedCode != "" {
				assert.False(t, response["success"].(bool))
				errorData := response["error"].(map[string]interface{})
				assert.Equal(t, tt.expectedCode, errorData["code"])
				return
			}
			data := response["data"].(map[string]interface{})
			assert.Equal(t, tt.expectedName, data["name"])
			assert.Equal(t, tt.expectedEmail, data["email"])
		})
	}
}
