package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/wholesale-orders-api/config"
	"github.com/kendall-kelly/wholesale-orders-api/middleware"
	"github.com/kendall-kelly/wholesale-orders-api/services"
)

// statusFor maps an engine error code to its HTTP status
func statusFor(code services.ErrorCode) int {
	switch code {
	case services.CodeUnauthenticated:
		return http.StatusUnauthorized
	case services.CodeForbidden, services.CodeCrossTenant:
		return http.StatusForbidden
	case services.CodeNotFound:
		return http.StatusNotFound
	case services.CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func respondError(c *gin.Context, err error) {
	var engineErr *services.EngineError
	if errors.As(err, &engineErr) {
		c.JSON(statusFor(engineErr.Code), gin.H{
			"success": false,
			"error": gin.H{
				"code":    engineErr.Code,
				"message": engineErr.Message,
			},
		})
		return
	}

	config.GetLogger().WithError(err).WithField("path", c.Request.URL.Path).Error("Unhandled error")
	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "INTERNAL_ERROR",
			"message": "An unexpected error occurred",
		},
	})
}

func respondValidation(c *gin.Context, message string, err error) {
	body := gin.H{
		"code":    services.CodeValidation,
		"message": message,
	}
	if err != nil {
		body["details"] = err.Error()
	}
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   body,
	})
}

// respondOK writes the success envelope. alreadyProcessed marks an idempotent replay.
func respondOK(c *gin.Context, message string, data interface{}, alreadyProcessed bool) {
	c.JSON(http.StatusOK, gin.H{
		"success":          true,
		"message":          message,
		"data":             data,
		"alreadyProcessed": alreadyProcessed,
	})
}

// bindOptionalJSON decodes the body into req. An empty body leaves req at its zero value.
func bindOptionalJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		respondValidation(c, "Invalid request data", err)
		return false
	}
	return true
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		respondValidation(c, "Invalid request data", err)
		return false
	}
	return true
}

// currentActor returns the resolved actor or writes a 401
func currentActor(c *gin.Context) (services.Actor, bool) {
	actor, ok := middleware.GetActor(c)
	if !ok {
		respondError(c, services.ErrUnauthenticated)
		return services.Actor{}, false
	}
	return actor, true
}
