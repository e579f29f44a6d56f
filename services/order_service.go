package services

import (
	"context"
	"fmt"
	"time"

	"github.com/kendall-kelly/wholesale-orders-api/models"
	"gorm.io/gorm"
)

const (
	OpConfirmOrder  = "order.confirm"
	OpPlaceOrder    = "order.place"
	OpLockOrder     = "order.lock"
	OpCompleteOrder = "order.complete"
	OpCancelOrder   = "order.cancel"
	OpReviewOrder   = "order.review"
	OpReportIssue   = "order.report_issue"
	OpResolveIssue  = "order.resolve_issue"
)

var lockChannels = []Channel{ChannelInApp, ChannelEmail, ChannelSMS, ChannelWhatsApp}

// TransitionInput carries the optional idempotency key and free-text notes of a transition.
// Lock stores Notes as the seller's message and Cancel as the cancellation reason.
type TransitionInput struct {
	IdempotencyKey string
	Notes          string
}

// OrderResult is the order after a transition. Replayed is set when the outcome
// came from an earlier request with the same idempotency key.
type OrderResult struct {
	Order    *models.Order
	Replayed bool
}

// OrderConfirmer is the slice of the order service the deadline sweep needs
type OrderConfirmer interface {
	Confirm(ctx context.Context, actor Actor, orderID string, in TransitionInput) (*OrderResult, error)
}

// OrderService drives the order lifecycle state machine
type OrderService struct {
	engine
}

func NewOrderService(deps Dependencies) *OrderService {
	return &OrderService{engine: newEngine(deps)}
}

// orderTransition describes one edge of the lifecycle graph
type orderTransition struct {
	operation string
	from      []models.OrderStatus
	to        models.OrderStatus
	roles     []Role
	check     func(tx *gorm.DB, order *models.Order, now time.Time) error
	updates   func(order *models.Order, now time.Time) map[string]interface{}
	after     func(tx *gorm.DB, order *models.Order, now time.Time) error
	events    func(order *models.Order) []Event
}

// Confirm moves a PENDING order to CONFIRMED. Sellers confirm their own orders;
// the system actor confirms orders whose deadline passed.
func (s *OrderService) Confirm(ctx context.Context, actor Actor, orderID string, in TransitionInput) (*OrderResult, error) {
	return s.transition(ctx, actor, orderID, in, orderTransition{
		operation: OpConfirmOrder,
		from:      []models.OrderStatus{models.OrderPending},
		to:        models.OrderConfirmed,
		roles:     []Role{RoleSeller, RoleSystem},
		updates: func(order *models.Order, now time.Time) map[string]interface{} {
			return map[string]interface{}{
				"confirmed_at": now,
				"notes":        appendNote(order.Notes, in.Notes),
			}
		},
		after: func(tx *gorm.DB, order *models.Order, now time.Time) error {
			return tx.Model(&models.OrderItem{}).Where("order_id = ?", order.ID).Update("confirmed", true).Error
		},
		events: func(order *models.Order) []Event {
			if actor.IsSystem() {
				return []Event{
					s.orderEvent(EventOrderAutoConfirmed, order, RoleSeller, order.SellerID, actor,
						"Order auto-confirmed", fmt.Sprintf("Order %s was confirmed automatically after its deadline passed.", order.OrderNumber)),
					s.orderEvent(EventOrderConfirmed, order, RoleBuyer, order.ClientID, actor,
						"Order confirmed", fmt.Sprintf("Your order %s has been confirmed.", order.OrderNumber)),
				}
			}
			return []Event{s.orderEvent(EventOrderConfirmed, order, RoleBuyer, order.ClientID, actor,
				"Order confirmed", fmt.Sprintf("Your order %s has been confirmed by the seller.", order.OrderNumber))}
		},
	})
}

// PlaceManually lets a buyer on the MANUAL confirmation policy confirm a PENDING order
func (s *OrderService) PlaceManually(ctx context.Context, actor Actor, orderID string, in TransitionInput) (*OrderResult, error) {
	return s.transition(ctx, actor, orderID, in, orderTransition{
		operation: OpPlaceOrder,
		from:      []models.OrderStatus{models.OrderPending},
		to:        models.OrderConfirmed,
		roles:     []Role{RoleBuyer},
		check: func(tx *gorm.DB, order *models.Order, now time.Time) error {
			var client models.Client
			if err := tx.First(&client, "id = ?", order.ClientID).Error; err != nil {
				if isNotFound(err) {
					return newError(CodeNotFound, "client %s not found", order.ClientID)
				}
				return fmt.Errorf("failed to load client: %w", err)
			}
			if !client.AllowsManualPlacement() {
				return newError(CodePolicyViolation, "orders of this buyer are confirmed %s, manual placement is disabled", client.ConfirmationMethod)
			}
			return nil
		},
		updates: func(order *models.Order, now time.Time) map[string]interface{} {
			return map[string]interface{}{
				"confirmed_at": now,
				"notes":        appendNote(order.Notes, in.Notes),
			}
		},
		events: func(order *models.Order) []Event {
			return []Event{s.orderEvent(EventOrderPlaced, order, RoleSeller, order.SellerID, actor,
				"Order placed", fmt.Sprintf("The buyer placed order %s.", order.OrderNumber))}
		},
	})
}

// Lock freezes an order for fulfilment once every reported issue is closed
func (s *OrderService) Lock(ctx context.Context, actor Actor, orderID string, in TransitionInput) (*OrderResult, error) {
	return s.transition(ctx, actor, orderID, in, orderTransition{
		operation: OpLockOrder,
		from:      []models.OrderStatus{models.OrderPending, models.OrderReviewing, models.OrderIssueReported},
		to:        models.OrderLocked,
		roles:     []Role{RoleSeller},
		check: func(tx *gorm.DB, order *models.Order, now time.Time) error {
			var open int64
			err := tx.Model(&models.OrderIssue{}).
				Where("order_id = ? AND status NOT IN ?", order.ID, models.ClosedIssueStatusValues()).
				Count(&open).Error
			if err != nil {
				return fmt.Errorf("failed to count open issues: %w", err)
			}
			if open > 0 {
				return newError(CodePreconditionFailed, "order %s has %d unresolved issue(s)", order.OrderNumber, open)
			}
			return nil
		},
		updates: func(order *models.Order, now time.Time) map[string]interface{} {
			return map[string]interface{}{
				"locked_at":       now,
				"confirmed_at":    now,
				"locked_by":       actor.ID,
				"has_issues":      false,
				"general_message": in.Notes,
			}
		},
		events: func(order *models.Order) []Event {
			evt := s.orderEvent(EventOrderLocked, order, RoleBuyer, order.ClientID, actor,
				"Order locked", fmt.Sprintf("Order %s is locked and being prepared.", order.OrderNumber))
			if order.GeneralMessage != "" {
				evt.Message += " Seller message: " + order.GeneralMessage
			}
			evt.Channels = lockChannels
			return []Event{evt}
		},
	})
}

// Complete closes a CONFIRMED order
func (s *OrderService) Complete(ctx context.Context, actor Actor, orderID string, in TransitionInput) (*OrderResult, error) {
	return s.transition(ctx, actor, orderID, in, orderTransition{
		operation: OpCompleteOrder,
		from:      []models.OrderStatus{models.OrderConfirmed},
		to:        models.OrderCompleted,
		roles:     []Role{RoleSeller},
		updates: func(order *models.Order, now time.Time) map[string]interface{} {
			return map[string]interface{}{
				"completed_at": now,
				"notes":        appendNote(order.Notes, in.Notes),
			}
		},
		events: func(order *models.Order) []Event {
			return []Event{s.orderEvent(EventOrderCompleted, order, RoleBuyer, order.ClientID, actor,
				"Order completed", fmt.Sprintf("Order %s has been completed.", order.OrderNumber))}
		},
	})
}

// Cancel cancels a PENDING order before its confirmation deadline and puts the stock back
func (s *OrderService) Cancel(ctx context.Context, actor Actor, orderID string, in TransitionInput) (*OrderResult, error) {
	return s.transition(ctx, actor, orderID, in, orderTransition{
		operation: OpCancelOrder,
		from:      []models.OrderStatus{models.OrderPending},
		to:        models.OrderCanceled,
		roles:     []Role{RoleBuyer, RoleSeller},
		check: func(tx *gorm.DB, order *models.Order, now time.Time) error {
			if order.DeadlinePassed(now) {
				return newError(CodeDeadlineExceeded, "confirmation deadline of order %s passed at %s",
					order.OrderNumber, order.ConfirmationDeadline.UTC().Format(time.RFC3339))
			}
			return nil
		},
		updates: func(order *models.Order, now time.Time) map[string]interface{} {
			reason := in.Notes
			if reason == "" {
				reason = "no reason given"
			}
			return map[string]interface{}{
				"canceled_at": now,
				"notes":       appendNote(order.Notes, fmt.Sprintf("Canceled by %s: %s", actor.Role, reason)),
			}
		},
		after: func(tx *gorm.DB, order *models.Order, now time.Time) error {
			for _, item := range order.Items {
				err := tx.Model(&models.Product{}).Where("id = ?", item.ProductID).
					UpdateColumn("stock", gorm.Expr("stock + ?", item.Quantity)).Error
				if err != nil {
					return fmt.Errorf("failed to restore stock for product %s: %w", item.ProductID, err)
				}
			}
			return nil
		},
		events: func(order *models.Order) []Event {
			if actor.IsSeller() {
				return []Event{s.orderEvent(EventOrderCanceled, order, RoleBuyer, order.ClientID, actor,
					"Order canceled", fmt.Sprintf("The seller canceled order %s.", order.OrderNumber))}
			}
			return []Event{s.orderEvent(EventOrderCanceled, order, RoleSeller, order.SellerID, actor,
				"Order canceled", fmt.Sprintf("The buyer canceled order %s.", order.OrderNumber))}
		},
	})
}

// StartReview marks a PENDING order as being reviewed by the seller
func (s *OrderService) StartReview(ctx context.Context, actor Actor, orderID string, in TransitionInput) (*OrderResult, error) {
	return s.transition(ctx, actor, orderID, in, orderTransition{
		operation: OpReviewOrder,
		from:      []models.OrderStatus{models.OrderPending},
		to:        models.OrderReviewing,
		roles:     []Role{RoleSeller},
		updates: func(order *models.Order, now time.Time) map[string]interface{} {
			return map[string]interface{}{"notes": appendNote(order.Notes, in.Notes)}
		},
		events: func(order *models.Order) []Event {
			return []Event{s.orderEvent(EventOrderInReview, order, RoleBuyer, order.ClientID, actor,
				"Order in review", fmt.Sprintf("The seller is reviewing order %s.", order.OrderNumber))}
		},
	})
}

// ReportIssueInput describes a problem found while reviewing an order
type ReportIssueInput struct {
	IdempotencyKey   string
	OrderItemID      string
	Type             string
	Description      string
	ProposedSolution string
}

// ReportIssue records an open issue and moves the order to ISSUE_REPORTED
func (s *OrderService) ReportIssue(ctx context.Context, actor Actor, orderID string, in ReportIssueInput) (*OrderResult, error) {
	if in.Description == "" {
		return nil, newError(CodeValidation, "issue description is required")
	}
	issueType := in.Type
	if issueType == "" {
		issueType = "OTHER"
	}

	return s.transition(ctx, actor, orderID, TransitionInput{IdempotencyKey: in.IdempotencyKey, Notes: in.Description}, orderTransition{
		operation: OpReportIssue,
		from:      []models.OrderStatus{models.OrderPending, models.OrderReviewing, models.OrderIssueReported},
		to:        models.OrderIssueReported,
		roles:     []Role{RoleSeller},
		check: func(tx *gorm.DB, order *models.Order, now time.Time) error {
			if in.OrderItemID == "" {
				return nil
			}
			for _, item := range order.Items {
				if item.ID == in.OrderItemID {
					return nil
				}
			}
			return newError(CodeValidation, "item %s is not part of order %s", in.OrderItemID, order.OrderNumber)
		},
		updates: func(order *models.Order, now time.Time) map[string]interface{} {
			return map[string]interface{}{"has_issues": true}
		},
		after: func(tx *gorm.DB, order *models.Order, now time.Time) error {
			issue := models.OrderIssue{
				OrderID:          order.ID,
				OrderItemID:      optional(in.OrderItemID),
				Type:             issueType,
				Description:      in.Description,
				ProposedSolution: in.ProposedSolution,
				Status:           models.IssueReported,
				ReportedBy:       actor.ID,
			}
			if err := tx.Create(&issue).Error; err != nil {
				return fmt.Errorf("failed to create order issue: %w", err)
			}
			return nil
		},
		events: func(order *models.Order) []Event {
			return []Event{s.orderEvent(EventOrderIssueReported, order, RoleBuyer, order.ClientID, actor,
				"Issue reported", fmt.Sprintf("The seller reported an issue with order %s: %s", order.OrderNumber, in.Description))}
		},
	})
}

// ResolveIssueInput closes an open issue
type ResolveIssueInput struct {
	IdempotencyKey string
	Message        string
}

// ResolveIssue closes an open issue. The seller marks it RESOLVED, the buyer
// accepts it (ACCEPTED). When no open issue remains the order stops flagging issues.
func (s *OrderService) ResolveIssue(ctx context.Context, actor Actor, orderID, issueID string, in ResolveIssueInput) (*models.OrderIssue, bool, error) {
	if err := actor.Validate(); err != nil {
		return nil, false, err
	}
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, false, err
	}
	if err := authorizeOrder(actor, order, RoleBuyer, RoleSeller); err != nil {
		return nil, false, err
	}

	closedAs := models.IssueResolved
	if actor.IsBuyer() {
		closedAs = models.IssueAccepted
	}

	issue, replayed, err := execute(ctx, &s.engine, mutation[*models.OrderIssue]{
		Operation:  OpResolveIssue,
		EntityType: "order_issue",
		EntityID:   issueID,
		Key:        in.IdempotencyKey,
		Actor:      actor,
		Apply: func(tx *gorm.DB) (outcome[*models.OrderIssue], error) {
			var o outcome[*models.OrderIssue]

			var issue models.OrderIssue
			if err := tx.First(&issue, "id = ? AND order_id = ?", issueID, order.ID).Error; err != nil {
				if isNotFound(err) {
					return o, newError(CodeNotFound, "issue %s not found on order %s", issueID, order.OrderNumber)
				}
				return o, fmt.Errorf("failed to load issue: %w", err)
			}
			if !issue.IsOpen() {
				return o, newError(CodeInvalidTransition, "issue %s is already %s", issue.ID, issue.Status)
			}

			now := s.now()
			prior := issue.Status
			res := tx.Model(&models.OrderIssue{}).
				Where("id = ? AND status = ?", issue.ID, string(prior)).
				Updates(map[string]interface{}{
					"status":             string(closedAs),
					"resolved_by":        actor.ID,
					"resolution_message": in.Message,
					"resolved_at":        now,
				})
			if res.Error != nil {
				return o, fmt.Errorf("failed to resolve issue: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return o, errStaleWrite
			}

			var open int64
			err := tx.Model(&models.OrderIssue{}).
				Where("order_id = ? AND status NOT IN ?", order.ID, models.ClosedIssueStatusValues()).
				Count(&open).Error
			if err != nil {
				return o, fmt.Errorf("failed to count open issues: %w", err)
			}
			if open == 0 {
				if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).Update("has_issues", false).Error; err != nil {
					return o, fmt.Errorf("failed to clear issue flag: %w", err)
				}
			}

			if err := tx.First(&issue, "id = ?", issue.ID).Error; err != nil {
				return o, fmt.Errorf("failed to reload issue: %w", err)
			}

			recipientRole, recipientID := RoleSeller, order.SellerID
			if actor.IsSeller() {
				recipientRole, recipientID = RoleBuyer, order.ClientID
			}
			o.Result = &issue
			o.Prior = string(prior)
			o.Next = string(closedAs)
			o.Events = []Event{s.orderEvent(EventOrderIssueResolved, order, recipientRole, recipientID, actor,
				"Issue closed", fmt.Sprintf("An issue on order %s was marked %s.", order.OrderNumber, closedAs))}
			return o, nil
		},
	})
	if err != nil {
		return nil, false, err
	}
	return issue, replayed, nil
}

// Get returns an order the actor is a party to
func (s *OrderService) Get(ctx context.Context, actor Actor, orderID string) (*models.Order, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := authorizeOrder(actor, order, RoleBuyer, RoleSeller, RoleSystem); err != nil {
		return nil, err
	}
	return order, nil
}

// History returns the order's status changes, oldest first
func (s *OrderService) History(ctx context.Context, actor Actor, orderID string) ([]models.OrderStatusHistory, error) {
	if _, err := s.Get(ctx, actor, orderID); err != nil {
		return nil, err
	}
	var history []models.OrderStatusHistory
	if err := s.db.WithContext(ctx).Where("order_id = ?", orderID).Order("id ASC").Find(&history).Error; err != nil {
		return nil, fmt.Errorf("failed to load order history: %w", err)
	}
	return history, nil
}

func (s *OrderService) transition(ctx context.Context, actor Actor, orderID string, in TransitionInput, t orderTransition) (*OrderResult, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := authorizeOrder(actor, order, t.roles...); err != nil {
		return nil, err
	}

	result, replayed, err := execute(ctx, &s.engine, mutation[*models.Order]{
		Operation:  t.operation,
		EntityType: "order",
		EntityID:   order.ID,
		Key:        in.IdempotencyKey,
		Actor:      actor,
		Apply: func(tx *gorm.DB) (outcome[*models.Order], error) {
			var o outcome[*models.Order]

			current, err := loadOrder(tx, order.ID)
			if err != nil {
				return o, err
			}
			if !statusIn(current.Status, t.from) || !current.Status.CanTransitionTo(t.to) {
				return o, newError(CodeInvalidTransition, "order %s cannot move from %s to %s",
					current.OrderNumber, current.Status, t.to)
			}

			now := s.now()
			if t.check != nil {
				if err := t.check(tx, current, now); err != nil {
					return o, err
				}
			}

			updates := map[string]interface{}{}
			if t.updates != nil {
				updates = t.updates(current, now)
			}
			updates["status"] = string(t.to)
			if err := compareAndSwap(tx, &models.Order{}, current.ID, current.Version, updates); err != nil {
				return o, err
			}

			if t.after != nil {
				if err := t.after(tx, current, now); err != nil {
					return o, err
				}
			}

			if err := recordStatusChange(tx, current.ID, current.Status, t.to, actor, in); err != nil {
				return o, err
			}

			updated, err := loadOrder(tx, current.ID)
			if err != nil {
				return o, err
			}

			o.Result = updated
			o.Prior = string(current.Status)
			o.Next = string(t.to)
			if t.events != nil {
				o.Events = t.events(updated)
			}
			return o, nil
		},
	})
	if err != nil {
		return nil, err
	}
	return &OrderResult{Order: result, Replayed: replayed}, nil
}

func (s *OrderService) findOrder(ctx context.Context, orderID string) (*models.Order, error) {
	return loadOrder(s.db.WithContext(ctx), orderID)
}

func (s *OrderService) orderEvent(t EventType, order *models.Order, role Role, recipientID string, actor Actor, title, message string) Event {
	return Event{
		Type:          t,
		OccurredAt:    s.now(),
		RecipientRole: role,
		RecipientID:   recipientID,
		Title:         title,
		Message:       message,
		Channels:      []Channel{ChannelInApp},
		OrderID:       order.ID,
		ActorID:       actor.ID,
	}
}

func loadOrder(db *gorm.DB, orderID string) (*models.Order, error) {
	var order models.Order
	if err := db.Preload("Items").First(&order, "id = ?", orderID).Error; err != nil {
		if isNotFound(err) {
			return nil, newError(CodeNotFound, "order %s not found", orderID)
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return &order, nil
}

func recordStatusChange(tx *gorm.DB, orderID string, prior, next models.OrderStatus, actor Actor, in TransitionInput) error {
	entry := models.OrderStatusHistory{
		OrderID:        orderID,
		PreviousStatus: prior,
		NewStatus:      next,
		ChangedBy:      actor.ID,
		ChangedByRole:  string(actor.Role),
		Notes:          in.Notes,
		IdempotencyKey: optional(in.IdempotencyKey),
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to record status change: %w", err)
	}
	return nil
}

// authorizeOrder checks the actor's role and its relation to the order
func authorizeOrder(actor Actor, order *models.Order, allowed ...Role) error {
	if !hasRole(actor, allowed) {
		return newError(CodeForbidden, "a %s may not perform this operation", actor.Role)
	}
	switch actor.Role {
	case RoleBuyer:
		if order.ClientID != actor.ID {
			return newError(CodeForbidden, "order %s belongs to another buyer", order.OrderNumber)
		}
	case RoleSeller:
		if order.SellerID != actor.ID {
			return newError(CodeForbidden, "order %s is not assigned to this seller", order.OrderNumber)
		}
	}
	return nil
}

func statusIn(status models.OrderStatus, allowed []models.OrderStatus) bool {
	for _, s := range allowed {
		if status == s {
			return true
		}
	}
	return false
}
