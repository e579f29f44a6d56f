package controllers

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/wholesale-orders-api/services"
)

// TransitionRequest is the body shared by the order transitions. Every field is optional.
type TransitionRequest struct {
	IdempotencyKey string `json:"idempotencyKey" binding:"omitempty,uuid"`
	Notes          string `json:"notes"`
	Message        string `json:"message"`
	Reason         string `json:"reason"`
}

// ReportIssueRequest represents the request body for reporting an order issue
type ReportIssueRequest struct {
	IdempotencyKey   string `json:"idempotencyKey" binding:"omitempty,uuid"`
	OrderItemID      string `json:"orderItemId"`
	Type             string `json:"type"`
	Description      string `json:"description" binding:"required"`
	ProposedSolution string `json:"proposedSolution"`
}

// ResolveIssueRequest represents the request body for closing an order issue
type ResolveIssueRequest struct {
	IdempotencyKey string `json:"idempotencyKey" binding:"omitempty,uuid"`
	Message        string `json:"message"`
}

// ConfirmItemRequest represents the request body for confirming one order line.
// Confirmed defaults to true.
type ConfirmItemRequest struct {
	IdempotencyKey    string `json:"idempotencyKey" binding:"omitempty,uuid"`
	Confirmed         *bool  `json:"confirmed"`
	AvailableQuantity *int   `json:"availableQuantity" binding:"omitempty,min=0"`
}

// ConfirmItemsRequest represents the request body for confirming several lines at once
type ConfirmItemsRequest struct {
	IdempotencyKey string   `json:"idempotencyKey" binding:"omitempty,uuid"`
	ItemIDs        []string `json:"itemIds" binding:"required,min=1"`
	Confirmed      *bool    `json:"confirmed"`
}

// OrderController serves the order lifecycle endpoints
type OrderController struct {
	orders *services.OrderService
}

func NewOrderController(orders *services.OrderService) *OrderController {
	return &OrderController{orders: orders}
}

type orderTransitionFunc func(ctx context.Context, actor services.Actor, orderID string, in services.TransitionInput) (*services.OrderResult, error)

// transition binds the optional body and runs one lifecycle operation. note picks
// which body field the operation keeps.
func (oc *OrderController) transition(c *gin.Context, run orderTransitionFunc, message string, note func(TransitionRequest) string) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req TransitionRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	result, err := run(c.Request.Context(), actor, c.Param("id"), services.TransitionInput{
		IdempotencyKey: req.IdempotencyKey,
		Notes:          note(req),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, message, result.Order, result.Replayed)
}

func notesField(req TransitionRequest) string { return req.Notes }

// ConfirmOrder handles PUT /api/v1/orders/:id/confirm
func (oc *OrderController) ConfirmOrder(c *gin.Context) {
	oc.transition(c, oc.orders.Confirm, "Order confirmed", notesField)
}

// LockOrder handles POST /api/v1/orders/:id/lock. The optional message is kept for the buyer.
func (oc *OrderController) LockOrder(c *gin.Context) {
	oc.transition(c, oc.orders.Lock, "Order locked", func(req TransitionRequest) string {
		if req.Message != "" {
			return req.Message
		}
		return req.Notes
	})
}

// CompleteOrder handles PUT /api/v1/orders/:id/complete
func (oc *OrderController) CompleteOrder(c *gin.Context) {
	oc.transition(c, oc.orders.Complete, "Order completed", notesField)
}

// PlaceOrder handles PUT /api/v1/orders/:id/placed
func (oc *OrderController) PlaceOrder(c *gin.Context) {
	oc.transition(c, oc.orders.PlaceManually, "Order placed", notesField)
}

// CancelOrder handles PATCH /api/v1/orders/:id/cancel
func (oc *OrderController) CancelOrder(c *gin.Context) {
	oc.transition(c, oc.orders.Cancel, "Order canceled", func(req TransitionRequest) string {
		if req.Reason != "" {
			return req.Reason
		}
		return req.Notes
	})
}

// StartReview handles POST /api/v1/orders/:id/review
func (oc *OrderController) StartReview(c *gin.Context) {
	oc.transition(c, oc.orders.StartReview, "Order review started", notesField)
}

// ReportIssue handles POST /api/v1/orders/:id/issues
func (oc *OrderController) ReportIssue(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req ReportIssueRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := oc.orders.ReportIssue(c.Request.Context(), actor, c.Param("id"), services.ReportIssueInput{
		IdempotencyKey:   req.IdempotencyKey,
		OrderItemID:      req.OrderItemID,
		Type:             req.Type,
		Description:      req.Description,
		ProposedSolution: req.ProposedSolution,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Issue reported", result.Order, result.Replayed)
}

// ResolveIssue handles POST /api/v1/orders/:id/issues/:issueId/resolve
func (oc *OrderController) ResolveIssue(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req ResolveIssueRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	issue, replayed, err := oc.orders.ResolveIssue(c.Request.Context(), actor, c.Param("id"), c.Param("issueId"), services.ResolveIssueInput{
		IdempotencyKey: req.IdempotencyKey,
		Message:        req.Message,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Issue resolved", issue, replayed)
}

// ConfirmItem handles PATCH /api/v1/orders/:id/items/:itemId/confirm
func (oc *OrderController) ConfirmItem(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req ConfirmItemRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	result, err := oc.orders.ConfirmItem(c.Request.Context(), actor, c.Param("id"), c.Param("itemId"), services.ConfirmItemInput{
		IdempotencyKey:    req.IdempotencyKey,
		Confirmed:         req.Confirmed,
		AvailableQuantity: req.AvailableQuantity,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	message := "Item confirmed"
	if req.Confirmed != nil && !*req.Confirmed {
		message = "Item confirmation removed"
	}
	respondOK(c, message, result.Confirmation, result.Replayed)
}

// ConfirmItems handles POST /api/v1/orders/:id/items/bulk/confirm
func (oc *OrderController) ConfirmItems(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req ConfirmItemsRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := oc.orders.ConfirmItems(c.Request.Context(), actor, c.Param("id"), services.ConfirmItemsInput{
		IdempotencyKey: req.IdempotencyKey,
		ItemIDs:        req.ItemIDs,
		Confirmed:      req.Confirmed,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Items updated", result.Confirmation, result.Replayed)
}

// GetOrder handles GET /api/v1/orders/:id
func (oc *OrderController) GetOrder(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	order, err := oc.orders.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Order retrieved", order, false)
}

// GetOrderHistory handles GET /api/v1/orders/:id/history
func (oc *OrderController) GetOrderHistory(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	history, err := oc.orders.History(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, "Order history retrieved", history, false)
}
