package services

import (
	"context"
	"fmt"
	"mime/multipart"

	"github.com/kendall-kelly/wholesale-orders-api/models"
	"github.com/kendall-kelly/wholesale-orders-api/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	OpCreateReturn       = "return.create"
	OpApproveReturn      = "return.approve"
	OpRejectReturn       = "return.reject"
	OpCompleteReturn     = "return.complete"
	OpManualReturn       = "return.manual"
	OpChangeRefundMethod = "return.change_refund_method"
)

// ReturnItemInput is one order line the buyer wants to send back
type ReturnItemInput struct {
	OrderItemID string
	Quantity    int
}

// CreateReturnInput is a buyer's return request
type CreateReturnInput struct {
	IdempotencyKey    string
	OrderID           string
	Reason            models.ReturnReason
	ReasonDescription string
	RefundMethod      models.RefundMethod
	Notes             string
	Items             []ReturnItemInput
}

// ApproveReturnInput optionally overrides the refund method chosen by the buyer
type ApproveReturnInput struct {
	IdempotencyKey string
	RefundMethod   models.RefundMethod
	Notes          string
}

// RejectReturnInput carries the mandatory rejection reason
type RejectReturnInput struct {
	IdempotencyKey string
	Reason         string
}

// CompleteReturnInput decides whether returned goods go back to stock
type CompleteReturnInput struct {
	IdempotencyKey   string
	RestockInventory bool
}

// ManualReturnInput is a seller-initiated, pre-approved credit
type ManualReturnInput struct {
	IdempotencyKey    string
	OrderID           string
	Reason            models.ReturnReason
	ReasonDescription string
	Amount            decimal.Decimal
	Notes             string
}

// ChangeRefundMethodInput switches a pending return between CREDIT and REFUND
type ChangeRefundMethodInput struct {
	IdempotencyKey string
	RefundMethod   models.RefundMethod
}

// ReturnResult is the return after a mutation, including its credit note when one exists
type ReturnResult struct {
	Return   *models.Return
	Replayed bool
}

// ReturnService manages return requests and the credit notes they produce
type ReturnService struct {
	engine
	restockFeePercent decimal.Decimal
	images            ImageService
}

// NewReturnService creates the service. images may be nil when evidence uploads are disabled.
func NewReturnService(deps Dependencies, restockFeePercent decimal.Decimal, images ImageService) *ReturnService {
	return &ReturnService{
		engine:            newEngine(deps),
		restockFeePercent: restockFeePercent,
		images:            images,
	}
}

// Create opens a PENDING return for items of a COMPLETED order owned by the buyer
func (s *ReturnService) Create(ctx context.Context, actor Actor, in CreateReturnInput) (*ReturnResult, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if !actor.IsBuyer() {
		return nil, newError(CodeForbidden, "only buyers can request returns")
	}
	if err := validateReturnRequest(in); err != nil {
		return nil, err
	}

	order, err := loadOrder(s.db.WithContext(ctx), in.OrderID)
	if err != nil {
		return nil, err
	}
	if order.ClientID != actor.ID {
		return nil, newError(CodeForbidden, "order %s belongs to another buyer", order.OrderNumber)
	}

	method := in.RefundMethod
	if method == "" {
		method = models.RefundCredit
	}

	ret, replayed, err := execute(ctx, &s.engine, mutation[*models.Return]{
		Operation:  OpCreateReturn,
		EntityType: "order",
		EntityID:   order.ID,
		Key:        in.IdempotencyKey,
		Actor:      actor,
		Apply: func(tx *gorm.DB) (outcome[*models.Return], error) {
			var o outcome[*models.Return]

			current, err := loadOrder(tx, order.ID)
			if err != nil {
				return o, err
			}
			if current.Status != models.OrderCompleted {
				return o, newError(CodeInvalidTransition, "only completed orders can be returned, order %s is %s", current.OrderNumber, current.Status)
			}
			// Claims the order row so concurrent returns see each other's quantities
			if err := compareAndSwap(tx, &models.Order{}, current.ID, current.Version, map[string]interface{}{}); err != nil {
				return o, err
			}

			returned, err := returnedQuantities(tx, current.ID)
			if err != nil {
				return o, err
			}

			items := make([]models.ReturnItem, 0, len(in.Items))
			requested := decimal.Zero
			for _, req := range in.Items {
				line := findOrderItem(current, req.OrderItemID)
				if line == nil {
					return o, newError(CodeValidation, "item %s is not part of order %s", req.OrderItemID, current.OrderNumber)
				}
				if available := line.Quantity - returned[line.ID]; req.Quantity > available {
					return o, newError(CodePolicyViolation, "cannot return %d of %s, only %d remain returnable", req.Quantity, line.ProductName, available)
				}
				subtotal := utils.LineTotal(line.UnitPrice, req.Quantity)
				requested = requested.Add(subtotal)
				items = append(items, models.ReturnItem{
					OrderItemID:      line.ID,
					ProductID:        line.ProductID,
					ProductName:      line.ProductName,
					QuantityReturned: req.Quantity,
					PricePerUnit:     line.UnitPrice,
					Subtotal:         subtotal,
				})
			}

			requested = utils.RoundMoney(requested)
			fee := utils.PercentOf(requested, s.restockFeePercent)
			ret := models.Return{
				ReturnNumber:      s.numbers.Next(utils.ReturnNumberPrefix),
				OrderID:           current.ID,
				ClientID:          current.ClientID,
				SellerID:          current.SellerID,
				Status:            models.ReturnPending,
				Reason:            in.Reason,
				ReasonDescription: in.ReasonDescription,
				RefundMethod:      method,
				RequestedAmount:   requested,
				RestockFee:        fee,
				FinalRefundAmount: utils.RoundMoney(requested.Sub(fee)),
				ApprovedAmount:    decimal.Zero,
				Notes:             in.Notes,
				Items:             items,
			}
			if err := tx.Create(&ret).Error; err != nil {
				return o, fmt.Errorf("failed to create return: %w", err)
			}

			loaded, err := loadReturn(tx, ret.ID)
			if err != nil {
				return o, err
			}
			o.Result = loaded
			o.Next = string(models.ReturnPending)
			o.Events = []Event{s.returnEvent(EventReturnRequested, loaded, RoleSeller, loaded.SellerID, actor,
				"Return requested", fmt.Sprintf("Return %s was requested for order %s.", loaded.ReturnNumber, current.OrderNumber))}
			return o, nil
		},
	})
	if err != nil {
		return nil, err
	}
	return &ReturnResult{Return: ret, Replayed: replayed}, nil
}

// Approve approves a PENDING return. A CREDIT refund issues its credit note in the same transaction.
func (s *ReturnService) Approve(ctx context.Context, actor Actor, returnID string, in ApproveReturnInput) (*ReturnResult, error) {
	if in.RefundMethod != "" && !in.RefundMethod.Valid() {
		return nil, newError(CodeValidation, "unknown refund method %q", in.RefundMethod)
	}
	return s.sellerMutation(ctx, actor, returnID, OpApproveReturn, in.IdempotencyKey, func(tx *gorm.DB, ret *models.Return) ([]Event, error) {
		if ret.Status != models.ReturnPending {
			return nil, newError(CodeInvalidTransition, "return %s is %s, only pending returns can be approved", ret.ReturnNumber, ret.Status)
		}

		method := ret.RefundMethod
		if in.RefundMethod != "" {
			method = in.RefundMethod
		}
		now := s.now()
		err := compareAndSwap(tx, &models.Return{}, ret.ID, ret.Version, map[string]interface{}{
			"status":          string(models.ReturnApproved),
			"refund_method":   string(method),
			"approved_amount": ret.FinalRefundAmount,
			"approved_by":     actor.ID,
			"approved_at":     now,
			"notes":           appendNote(ret.Notes, in.Notes),
		})
		if err != nil {
			return nil, err
		}
		ret.RefundMethod = method

		events := []Event{s.returnEvent(EventReturnApproved, ret, RoleBuyer, ret.ClientID, actor,
			"Return approved", fmt.Sprintf("Your return %s has been approved.", ret.ReturnNumber))}
		if method == models.RefundCredit {
			note, created, err := s.issueCreditNote(tx, ret)
			if err != nil {
				return nil, err
			}
			if created {
				events = append(events, s.creditIssuedEvent(ret, note, actor))
			}
		}
		return events, nil
	})
}

// Reject rejects a PENDING return with a reason
func (s *ReturnService) Reject(ctx context.Context, actor Actor, returnID string, in RejectReturnInput) (*ReturnResult, error) {
	if in.Reason == "" {
		return nil, newError(CodeValidation, "rejection reason is required")
	}
	return s.sellerMutation(ctx, actor, returnID, OpRejectReturn, in.IdempotencyKey, func(tx *gorm.DB, ret *models.Return) ([]Event, error) {
		if ret.Status != models.ReturnPending {
			return nil, newError(CodeInvalidTransition, "return %s is %s, only pending returns can be rejected", ret.ReturnNumber, ret.Status)
		}
		err := compareAndSwap(tx, &models.Return{}, ret.ID, ret.Version, map[string]interface{}{
			"status":           string(models.ReturnRejected),
			"rejection_reason": in.Reason,
			"rejected_at":      s.now(),
			"notes":            appendNote(ret.Notes, "Rejected: "+in.Reason),
		})
		if err != nil {
			return nil, err
		}
		return []Event{s.returnEvent(EventReturnRejected, ret, RoleBuyer, ret.ClientID, actor,
			"Return rejected", fmt.Sprintf("Your return %s was rejected: %s", ret.ReturnNumber, in.Reason))}, nil
	})
}

// Complete closes an APPROVED return, optionally putting the goods back into stock.
// A credit note is only issued here if approval did not already issue one.
func (s *ReturnService) Complete(ctx context.Context, actor Actor, returnID string, in CompleteReturnInput) (*ReturnResult, error) {
	return s.sellerMutation(ctx, actor, returnID, OpCompleteReturn, in.IdempotencyKey, func(tx *gorm.DB, ret *models.Return) ([]Event, error) {
		if ret.Status != models.ReturnApproved {
			return nil, newError(CodeInvalidTransition, "return %s is %s, only approved returns can be completed", ret.ReturnNumber, ret.Status)
		}

		now := s.now()
		if in.RestockInventory {
			for _, item := range ret.Items {
				if item.Restocked {
					continue
				}
				err := tx.Model(&models.Product{}).Where("id = ?", item.ProductID).
					UpdateColumn("stock", gorm.Expr("stock + ?", item.QuantityReturned)).Error
				if err != nil {
					return nil, fmt.Errorf("failed to restock product %s: %w", item.ProductID, err)
				}
				err = tx.Model(&models.ReturnItem{}).Where("id = ?", item.ID).
					Updates(map[string]interface{}{"restocked": true, "restocked_at": now}).Error
				if err != nil {
					return nil, fmt.Errorf("failed to mark item %s restocked: %w", item.ID, err)
				}
			}
		}

		err := compareAndSwap(tx, &models.Return{}, ret.ID, ret.Version, map[string]interface{}{
			"status":       string(models.ReturnCompleted),
			"completed_at": now,
		})
		if err != nil {
			return nil, err
		}

		events := []Event{s.returnEvent(EventReturnCompleted, ret, RoleBuyer, ret.ClientID, actor,
			"Return completed", fmt.Sprintf("Return %s has been completed.", ret.ReturnNumber))}
		if ret.RefundMethod == models.RefundCredit {
			note, created, err := s.issueCreditNote(tx, ret)
			if err != nil {
				return nil, err
			}
			if created {
				events = append(events, s.creditIssuedEvent(ret, note, actor))
			}
		}
		return events, nil
	})
}

// ChangeRefundMethod lets the buyer switch a PENDING return between CREDIT and REFUND
func (s *ReturnService) ChangeRefundMethod(ctx context.Context, actor Actor, returnID string, in ChangeRefundMethodInput) (*ReturnResult, error) {
	if !in.RefundMethod.Valid() {
		return nil, newError(CodeValidation, "unknown refund method %q", in.RefundMethod)
	}
	return s.mutate(ctx, actor, returnID, OpChangeRefundMethod, in.IdempotencyKey, []Role{RoleBuyer}, func(tx *gorm.DB, ret *models.Return) ([]Event, error) {
		if ret.Status != models.ReturnPending {
			return nil, newError(CodeInvalidTransition, "return %s is %s, the refund method can only change while pending", ret.ReturnNumber, ret.Status)
		}
		err := compareAndSwap(tx, &models.Return{}, ret.ID, ret.Version, map[string]interface{}{
			"refund_method": string(in.RefundMethod),
		})
		return nil, err
	})
}

// CreateManual records a pre-approved CREDIT return for a completed order and issues
// its credit note in one transaction
func (s *ReturnService) CreateManual(ctx context.Context, actor Actor, in ManualReturnInput) (*ReturnResult, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if !actor.IsSeller() {
		return nil, newError(CodeForbidden, "only sellers can record manual returns")
	}
	amount := utils.RoundMoney(in.Amount)
	if !amount.IsPositive() {
		return nil, newError(CodeValidation, "amount must be greater than zero")
	}
	reason := in.Reason
	if reason == "" {
		reason = models.ReasonOther
	}
	if !reason.Valid() {
		return nil, newError(CodeValidation, "unknown return reason %q", in.Reason)
	}

	order, err := loadOrder(s.db.WithContext(ctx), in.OrderID)
	if err != nil {
		return nil, err
	}
	if order.SellerID != actor.ID {
		return nil, newError(CodeForbidden, "order %s is not assigned to this seller", order.OrderNumber)
	}

	ret, replayed, err := execute(ctx, &s.engine, mutation[*models.Return]{
		Operation:  OpManualReturn,
		EntityType: "order",
		EntityID:   order.ID,
		Key:        in.IdempotencyKey,
		Actor:      actor,
		Apply: func(tx *gorm.DB) (outcome[*models.Return], error) {
			var o outcome[*models.Return]

			current, err := loadOrder(tx, order.ID)
			if err != nil {
				return o, err
			}
			if current.Status != models.OrderCompleted {
				return o, newError(CodeInvalidTransition, "manual returns need a completed order, order %s is %s", current.OrderNumber, current.Status)
			}
			if amount.GreaterThan(current.TotalAmount) {
				return o, newError(CodePolicyViolation, "amount %s exceeds order total %s", utils.FormatMoney(amount), utils.FormatMoney(current.TotalAmount))
			}

			now := s.now()
			ret := models.Return{
				ReturnNumber:      s.numbers.Next(utils.ReturnNumberPrefix),
				OrderID:           current.ID,
				ClientID:          current.ClientID,
				SellerID:          current.SellerID,
				Status:            models.ReturnApproved,
				Reason:            reason,
				ReasonDescription: in.ReasonDescription,
				RefundMethod:      models.RefundCredit,
				RequestedAmount:   amount,
				RestockFee:        decimal.Zero,
				FinalRefundAmount: amount,
				ApprovedAmount:    amount,
				IsManual:          true,
				Notes:             in.Notes,
				ApprovedBy:        actor.ID,
				ApprovedAt:        &now,
			}
			if err := tx.Create(&ret).Error; err != nil {
				return o, fmt.Errorf("failed to create manual return: %w", err)
			}

			note, _, err := s.issueCreditNote(tx, &ret)
			if err != nil {
				return o, err
			}

			loaded, err := loadReturn(tx, ret.ID)
			if err != nil {
				return o, err
			}
			o.Result = loaded
			o.Next = string(models.ReturnApproved)
			o.Events = []Event{s.creditIssuedEvent(loaded, note, actor)}
			return o, nil
		},
	})
	if err != nil {
		return nil, err
	}
	return &ReturnResult{Return: ret, Replayed: replayed}, nil
}

// AttachImage stores an evidence photo for a PENDING return owned by the buyer
func (s *ReturnService) AttachImage(ctx context.Context, actor Actor, returnID string, file *multipart.FileHeader) (*models.ReturnImage, error) {
	if s.images == nil {
		return nil, newError(CodePreconditionFailed, "image uploads are not configured")
	}
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	if err := utils.ValidateImageFile(file); err != nil {
		return nil, newError(CodeValidation, "%s", err.Error())
	}
	ret, err := loadReturn(s.db.WithContext(ctx), returnID)
	if err != nil {
		return nil, err
	}
	if err := authorizeReturn(actor, ret, RoleBuyer); err != nil {
		return nil, err
	}
	if ret.Status != models.ReturnPending {
		return nil, newError(CodeInvalidTransition, "evidence can only be added while the return is pending")
	}

	key, err := s.images.UploadImage(ctx, ret.ID, file)
	if err != nil {
		return nil, err
	}

	image := models.ReturnImage{ReturnID: ret.ID, S3Key: key}
	if err := s.db.WithContext(ctx).Create(&image).Error; err != nil {
		if delErr := s.images.DeleteImage(ctx, key); delErr != nil {
			s.logger.WithError(delErr).WithField("s3_key", key).Warn("Failed to remove orphaned image")
		}
		return nil, fmt.Errorf("failed to save return image: %w", err)
	}
	s.attachImageURL(ctx, &image)
	return &image, nil
}

// Get returns a return the actor is a party to, with presigned image URLs
func (s *ReturnService) Get(ctx context.Context, actor Actor, returnID string) (*models.Return, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	ret, err := loadReturn(s.db.WithContext(ctx), returnID)
	if err != nil {
		return nil, err
	}
	if err := authorizeReturn(actor, ret, RoleBuyer, RoleSeller); err != nil {
		return nil, err
	}
	for i := range ret.Images {
		s.attachImageURL(ctx, &ret.Images[i])
	}
	return ret, nil
}

func (s *ReturnService) attachImageURL(ctx context.Context, image *models.ReturnImage) {
	if s.images == nil {
		return
	}
	url, err := s.images.GetImageURL(ctx, image.S3Key)
	if err != nil {
		s.logger.WithError(err).WithField("s3_key", image.S3Key).Warn("Failed to presign return image")
		return
	}
	image.ImageURL = &url
}

func (s *ReturnService) sellerMutation(ctx context.Context, actor Actor, returnID, operation, key string, apply func(tx *gorm.DB, ret *models.Return) ([]Event, error)) (*ReturnResult, error) {
	return s.mutate(ctx, actor, returnID, operation, key, []Role{RoleSeller}, apply)
}

// mutate authorizes, then runs apply against a fresh copy of the return inside the transaction
func (s *ReturnService) mutate(ctx context.Context, actor Actor, returnID, operation, key string, roles []Role, apply func(tx *gorm.DB, ret *models.Return) ([]Event, error)) (*ReturnResult, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	ret, err := loadReturn(s.db.WithContext(ctx), returnID)
	if err != nil {
		return nil, err
	}
	if err := authorizeReturn(actor, ret, roles...); err != nil {
		return nil, err
	}

	result, replayed, err := execute(ctx, &s.engine, mutation[*models.Return]{
		Operation:  operation,
		EntityType: "return",
		EntityID:   ret.ID,
		Key:        key,
		Actor:      actor,
		Apply: func(tx *gorm.DB) (outcome[*models.Return], error) {
			var o outcome[*models.Return]

			current, err := loadReturn(tx, ret.ID)
			if err != nil {
				return o, err
			}
			prior := current.Status

			events, err := apply(tx, current)
			if err != nil {
				return o, err
			}

			updated, err := loadReturn(tx, current.ID)
			if err != nil {
				return o, err
			}
			o.Result = updated
			o.Prior = string(prior)
			o.Next = string(updated.Status)
			o.Events = events
			return o, nil
		},
	})
	if err != nil {
		return nil, err
	}
	return &ReturnResult{Return: result, Replayed: replayed}, nil
}

// issueCreditNote creates the single credit note backed by ret. An existing note is returned with created=false.
func (s *ReturnService) issueCreditNote(tx *gorm.DB, ret *models.Return) (*models.CreditNote, bool, error) {
	var existing models.CreditNote
	res := tx.Where("return_id = ?", ret.ID).Limit(1).Find(&existing)
	if res.Error != nil {
		return nil, false, fmt.Errorf("failed to look up credit note: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return &existing, false, nil
	}

	amount := utils.RoundMoney(ret.FinalRefundAmount)
	if !amount.IsPositive() {
		return nil, false, newError(CodePolicyViolation, "return %s has no refundable amount", ret.ReturnNumber)
	}

	now := s.now()
	note := models.CreditNote{
		CreditNoteNumber: s.numbers.Next(utils.CreditNoteNumberPrefix),
		ReturnID:         ret.ID,
		ClientID:         ret.ClientID,
		SellerID:         ret.SellerID,
		Amount:           amount,
		Balance:          amount,
		UsedAmount:       decimal.Zero,
		ExpiresAt:        now.AddDate(CreditNoteValidityYears, 0, 0),
		IsActive:         true,
	}
	if err := note.CheckLedger(); err != nil {
		return nil, false, err
	}
	if err := tx.Create(&note).Error; err != nil {
		return nil, false, fmt.Errorf("failed to create credit note: %w", err)
	}
	s.metrics.creditIssued()
	return &note, true, nil
}

func (s *ReturnService) returnEvent(t EventType, ret *models.Return, role Role, recipientID string, actor Actor, title, message string) Event {
	return Event{
		Type:          t,
		OccurredAt:    s.now(),
		RecipientRole: role,
		RecipientID:   recipientID,
		Title:         title,
		Message:       message,
		Channels:      []Channel{ChannelInApp},
		OrderID:       ret.OrderID,
		ReturnID:      ret.ID,
		ActorID:       actor.ID,
	}
}

func (s *ReturnService) creditIssuedEvent(ret *models.Return, note *models.CreditNote, actor Actor) Event {
	evt := s.returnEvent(EventCreditNoteIssued, ret, RoleBuyer, ret.ClientID, actor, "Credit note issued",
		fmt.Sprintf("Credit note %s for %s is available until %s.", note.CreditNoteNumber, utils.FormatMoney(note.Amount), note.ExpiresAt.Format("2006-01-02")))
	evt.CreditNoteID = note.ID
	evt.Channels = []Channel{ChannelInApp, ChannelEmail}
	return evt
}

func validateReturnRequest(in CreateReturnInput) error {
	if in.OrderID == "" {
		return newError(CodeValidation, "orderId is required")
	}
	if !in.Reason.Valid() {
		return newError(CodeValidation, "unknown return reason %q", in.Reason)
	}
	if in.RefundMethod != "" && !in.RefundMethod.Valid() {
		return newError(CodeValidation, "unknown refund method %q", in.RefundMethod)
	}
	if len(in.Items) == 0 {
		return newError(CodeValidation, "at least one item is required")
	}
	seen := make(map[string]bool, len(in.Items))
	for _, item := range in.Items {
		if item.Quantity <= 0 {
			return newError(CodeValidation, "quantity for item %s must be positive", item.OrderItemID)
		}
		if seen[item.OrderItemID] {
			return newError(CodeValidation, "item %s is listed twice", item.OrderItemID)
		}
		seen[item.OrderItemID] = true
	}
	return nil
}

func findOrderItem(order *models.Order, itemID string) *models.OrderItem {
	for i := range order.Items {
		if order.Items[i].ID == itemID {
			return &order.Items[i]
		}
	}
	return nil
}

// returnedQuantities sums quantities already claimed by non-rejected returns of an order, per order item
func returnedQuantities(tx *gorm.DB, orderID string) (map[string]int, error) {
	var rows []struct {
		OrderItemID string
		Total       int
	}
	err := tx.Model(&models.ReturnItem{}).
		Select("return_items.order_item_id AS order_item_id, SUM(return_items.quantity_returned) AS total").
		Joins("JOIN returns ON returns.id = return_items.return_id").
		Where("returns.order_id = ? AND returns.status <> ?", orderID, string(models.ReturnRejected)).
		Group("return_items.order_item_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to sum returned quantities: %w", err)
	}
	totals := make(map[string]int, len(rows))
	for _, r := range rows {
		totals[r.OrderItemID] = r.Total
	}
	return totals, nil
}

func loadReturn(db *gorm.DB, returnID string) (*models.Return, error) {
	var ret models.Return
	err := db.Preload("Items").Preload("Images").Preload("CreditNote").First(&ret, "id = ?", returnID).Error
	if err != nil {
		if isNotFound(err) {
			return nil, newError(CodeNotFound, "return %s not found", returnID)
		}
		return nil, fmt.Errorf("failed to load return: %w", err)
	}
	return &ret, nil
}

// authorizeReturn checks the actor's role and its relation to the return
func authorizeReturn(actor Actor, ret *models.Return, allowed ...Role) error {
	if !hasRole(actor, allowed) {
		return newError(CodeForbidden, "a %s may not perform this operation", actor.Role)
	}
	switch actor.Role {
	case RoleBuyer:
		if ret.ClientID != actor.ID {
			return newError(CodeForbidden, "return %s belongs to another buyer", ret.ReturnNumber)
		}
	case RoleSeller:
		if ret.SellerID != actor.ID {
			return newError(CodeForbidden, "return %s belongs to another seller", ret.ReturnNumber)
		}
	}
	return nil
}
