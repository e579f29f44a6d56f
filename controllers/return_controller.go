package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/wholesale-orders-api/models"
	"github.com/kendall-kelly/wholesale-orders-api/services"
	"github.com/shopspring/decimal"
)

// ReturnItemRequest is one order line in a return request
type ReturnItemRequest struct {
	OrderItemID string `json:"orderItemId" binding:"required"`
	Quantity    int    `json:"quantity" binding:"required,gt=0"`
}

// CreateReturnRequest represents the request body for opening a return
type CreateReturnRequest struct {
	IdempotencyKey    string              `json:"idempotencyKey" binding:"omitempty,uuid"`
	OrderID           string              `json:"orderId" binding:"required"`
	Reason            models.ReturnReason `json:"reason" binding:"required"`
	ReasonDescription string              `json:"reasonDescription"`
	RefundMethod      models.RefundMethod `json:"refundMethod"`
	Notes             string              `json:"notes"`
	Items             []ReturnItemRequest `json:"items" binding:"required,min=1,dive"`
}

// ApproveReturnRequest represents the request body for approving a return
type ApproveReturnRequest struct {
	IdempotencyKey string              `json:"idempotencyKey" binding:"omitempty,uuid"`
	RefundMethod   models.RefundMethod `json:"refundMethod"`
	Notes          string              `json:"notes"`
}

// RejectReturnRequest represents the request body for rejecting a return
type RejectReturnRequest struct {
	IdempotencyKey string `json:"idempotencyKey" binding:"omitempty,uuid"`
	Reason         string `json:"reason" binding:"required"`
}

// CompleteReturnRequest represents the request body for completing a return
type CompleteReturnRequest struct {
	IdempotencyKey   string `json:"idempotencyKey" binding:"omitempty,uuid"`
	RestockInventory bool   `json:"restockInventory"`
}

// ChangeRefundMethodRequest represents the request body for switching refund method
type ChangeRefundMethodRequest struct {
	IdempotencyKey string              `json:"idempotencyKey" binding:"omitempty,uuid"`
	RefundMethod   models.RefundMethod `json:"refundMethod" binding:"required"`
}

// ManualReturnRequest represents the request body for a seller-issued credit
type ManualReturnRequest struct {
	IdempotencyKey    string              `json:"idempotencyKey" binding:"omitempty,uuid"`
	OrderID           string              `json:"orderId" binding:"required"`
	Reason            models.ReturnReason `json:"reason"`
	ReasonDescription string              `json:"reasonDescription"`
	Amount            decimal.Decimal     `json:"amount"`
	Notes             string              `json:"notes"`
}

// ReturnController serves return requests and their resolution
type ReturnController struct {
	returns *services.ReturnService
}

func NewReturnController(returns *services.ReturnService) *ReturnController {
	return &ReturnController{returns: returns}
}

func (rc *ReturnController) respond(c *gin.Context, message string, result *services.ReturnResult, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, message, result.Return, result.Replayed)
}

// CreateReturn handles POST /api/v1/returns (buyers only)
func (rc *ReturnController) CreateReturn(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req CreateReturnRequest
	if !bindJSON(c, &req) {
		return
	}

	items := make([]services.ReturnItemInput, len(req.Items))
	for i, item := range req.Items {
		items[i] = services.ReturnItemInput{OrderItemID: item.OrderItemID, Quantity: item.Quantity}
	}
	result, err := rc.returns.Create(c.Request.Context(), actor, services.CreateReturnInput{
		IdempotencyKey:    req.IdempotencyKey,
		OrderID:           req.OrderID,
		Reason:            req.Reason,
		ReasonDescription: req.ReasonDescription,
		RefundMethod:      req.RefundMethod,
		Notes:             req.Notes,
		Items:             items,
	})
	rc.respond(c, "Return requested", result, err)
}

// GetReturn handles GET /api/v1/returns/:id
func (rc *ReturnController) GetReturn(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	ret, err := rc.returns.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Return retrieved", ret, false)
}

// ApproveReturn handles POST /api/v1/returns/:id/approve
func (rc *ReturnController) ApproveReturn(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req ApproveReturnRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	result, err := rc.returns.Approve(c.Request.Context(), actor, c.Param("id"), services.ApproveReturnInput{
		IdempotencyKey: req.IdempotencyKey,
		RefundMethod:   req.RefundMethod,
		Notes:          req.Notes,
	})
	rc.respond(c, "Return approved", result, err)
}

// RejectReturn handles POST /api/v1/returns/:id/reject
func (rc *ReturnController) RejectReturn(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req RejectReturnRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := rc.returns.Reject(c.Request.Context(), actor, c.Param("id"), services.RejectReturnInput{
		IdempotencyKey: req.IdempotencyKey,
		Reason:         req.Reason,
	})
	rc.respond(c, "Return rejected", result, err)
}

// CompleteReturn handles POST /api/v1/returns/:id/complete
func (rc *ReturnController) CompleteReturn(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req CompleteReturnRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	result, err := rc.returns.Complete(c.Request.Context(), actor, c.Param("id"), services.CompleteReturnInput{
		IdempotencyKey:   req.IdempotencyKey,
		RestockInventory: req.RestockInventory,
	})
	rc.respond(c, "Return completed", result, err)
}

// ChangeRefundMethod handles POST /api/v1/returns/:id/refund-method
func (rc *ReturnController) ChangeRefundMethod(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req ChangeRefundMethodRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := rc.returns.ChangeRefundMethod(c.Request.Context(), actor, c.Param("id"), services.ChangeRefundMethodInput{
		IdempotencyKey: req.IdempotencyKey,
		RefundMethod:   req.RefundMethod,
	})
	rc.respond(c, "Refund method updated", result, err)
}

// CreateManualReturn handles POST /api/v1/returns/manual (sellers only)
func (rc *ReturnController) CreateManualReturn(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req ManualReturnRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := rc.returns.CreateManual(c.Request.Context(), actor, services.ManualReturnInput{
		IdempotencyKey:    req.IdempotencyKey,
		OrderID:           req.OrderID,
		Reason:            req.Reason,
		ReasonDescription: req.ReasonDescription,
		Amount:            req.Amount,
		Notes:             req.Notes,
	})
	rc.respond(c, "Manual credit created", result, err)
}

// UploadReturnImage handles POST /api/v1/returns/:id/images with a multipart "image" field
func (rc *ReturnController) UploadReturnImage(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	file, err := c.FormFile("image")
	if err != nil {
		respondValidation(c, "An image file is required in the \"image\" field", err)
		return
	}

	image, err := rc.returns.AttachImage(c.Request.Context(), actor, c.Param("id"), file)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, "Image uploaded", image, false)
}
