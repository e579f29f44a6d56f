package controllers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/wholesale-orders-api/services"
	"github.com/shopspring/decimal"
)

// UseCreditNoteRequest represents the request body for applying a credit note to an order
type UseCreditNoteRequest struct {
	IdempotencyKey string          `json:"idempotencyKey" binding:"omitempty,uuid"`
	OrderID        string          `json:"orderId" binding:"required"`
	AmountToUse    decimal.Decimal `json:"amountToUse"`
	Notes          string          `json:"notes"`
}

// CreditNoteController serves credit note balances and applications
type CreditNoteController struct {
	credits *services.CreditService
}

func NewCreditNoteController(credits *services.CreditService) *CreditNoteController {
	return &CreditNoteController{credits: credits}
}

// ListCreditNotes handles GET /api/v1/credit-notes. ?active=true keeps spendable notes only.
func (cc *CreditNoteController) ListCreditNotes(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	activeOnly := false
	if raw := c.Query("active"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			respondValidation(c, "active must be true or false", err)
			return
		}
		activeOnly = parsed
	}

	notes, err := cc.credits.List(c.Request.Context(), actor, activeOnly)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Credit notes retrieved", notes, false)
}

// GetCreditNote handles GET /api/v1/credit-notes/:id
func (cc *CreditNoteController) GetCreditNote(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	note, err := cc.credits.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Credit note retrieved", note, false)
}

// UseCreditNote handles POST /api/v1/credit-notes/:id/use
func (cc *CreditNoteController) UseCreditNote(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req UseCreditNoteRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := cc.credits.Apply(c.Request.Context(), actor, c.Param("id"), services.ApplyCreditInput{
		IdempotencyKey: req.IdempotencyKey,
		OrderID:        req.OrderID,
		Amount:         req.AmountToUse,
		Notes:          req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Credit applied", result.Application, result.Replayed)
}
