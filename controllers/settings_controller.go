package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/wholesale-orders-api/models"
	"github.com/kendall-kelly/wholesale-orders-api/services"
)

// UpdateConfirmationSettingsRequest represents the request body for a buyer's confirmation policy
type UpdateConfirmationSettingsRequest struct {
	IdempotencyKey     string `json:"idempotencyKey" binding:"omitempty,uuid"`
	ClientID           string `json:"clientId" binding:"required,uuid"`
	Method             string `json:"method" binding:"required,oneof=MANUAL AUTOMATIC"`
	AutoConfirmEnabled *bool  `json:"autoConfirmEnabled"`
	DeadlineMinutes    *int   `json:"deadlineMinutes" binding:"omitempty,min=1,max=60"`
}

// SettingsController serves the seller's order confirmation settings
type SettingsController struct {
	settings *services.ConfirmationSettingsService
}

func NewSettingsController(settings *services.ConfirmationSettingsService) *SettingsController {
	return &SettingsController{settings: settings}
}

// ListConfirmationSettings handles GET /api/v1/order-confirmation-settings
func (sc *SettingsController) ListConfirmationSettings(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	clients, err := sc.settings.List(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Confirmation settings retrieved", clients, false)
}

// UpdateConfirmationSettings handles PUT /api/v1/order-confirmation-settings
func (sc *SettingsController) UpdateConfirmationSettings(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req UpdateConfirmationSettingsRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := sc.settings.Update(c.Request.Context(), actor, services.UpdateConfirmationSettingsInput{
		IdempotencyKey:     req.IdempotencyKey,
		ClientID:           req.ClientID,
		Method:             models.ConfirmationMethod(req.Method),
		AutoConfirmEnabled: req.AutoConfirmEnabled,
		DeadlineMinutes:    req.DeadlineMinutes,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Confirmation settings updated", result.Client, result.Replayed)
}
