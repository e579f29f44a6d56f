package services

import (
	"context"
	"fmt"

	"github.com/kendall-kelly/wholesale-orders-api/models"
	"gorm.io/gorm"
)

const (
	OpConfirmItem  = "order.confirm_item"
	OpConfirmItems = "order.confirm_items"
)

// itemConfirmableStatuses are the order states in which the seller may still check lines
var itemConfirmableStatuses = []models.OrderStatus{
	models.OrderPending,
	models.OrderReviewing,
	models.OrderIssueReported,
}

// ConfirmItemInput marks one order line as checked by the seller. Confirmed defaults
// to true. A confirmed line is available in full unless AvailableQuantity says otherwise.
type ConfirmItemInput struct {
	IdempotencyKey    string
	Confirmed         *bool
	AvailableQuantity *int
}

// ConfirmItemsInput applies the same confirmation flag to several lines of one order
type ConfirmItemsInput struct {
	IdempotencyKey string
	ItemIDs        []string
	Confirmed      *bool
}

// ItemConfirmation is the state of the touched lines. Updated counts lines that changed.
type ItemConfirmation struct {
	OrderID string             `json:"orderId"`
	Updated int                `json:"updated"`
	Items   []models.OrderItem `json:"items"`
}

// ItemConfirmationResult wraps ItemConfirmation with the replay flag
type ItemConfirmationResult struct {
	Confirmation *ItemConfirmation
	Replayed     bool
}

// itemChange is the target state of one line
type itemChange struct {
	itemID    string
	confirmed bool
	available *int
}

// ConfirmItem sets the seller's confirmation and available quantity on one order line
func (s *OrderService) ConfirmItem(ctx context.Context, actor Actor, orderID, itemID string, in ConfirmItemInput) (*ItemConfirmationResult, error) {
	confirmed := in.Confirmed == nil || *in.Confirmed
	return s.confirmItems(ctx, actor, orderID, OpConfirmItem, itemID, in.IdempotencyKey, []itemChange{{
		itemID:    itemID,
		confirmed: confirmed,
		available: in.AvailableQuantity,
	}})
}

// ConfirmItems confirms or unconfirms several lines at once
func (s *OrderService) ConfirmItems(ctx context.Context, actor Actor, orderID string, in ConfirmItemsInput) (*ItemConfirmationResult, error) {
	if len(in.ItemIDs) == 0 {
		return nil, newError(CodeValidation, "at least one item id is required")
	}
	confirmed := in.Confirmed == nil || *in.Confirmed
	changes := make([]itemChange, 0, len(in.ItemIDs))
	seen := make(map[string]bool, len(in.ItemIDs))
	for _, id := range in.ItemIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		changes = append(changes, itemChange{itemID: id, confirmed: confirmed})
	}
	if len(changes) == 0 {
		return nil, newError(CodeValidation, "at least one item id is required")
	}
	return s.confirmItems(ctx, actor, orderID, OpConfirmItems, orderID, in.IdempotencyKey, changes)
}

func (s *OrderService) confirmItems(ctx context.Context, actor Actor, orderID, operation, entityID, key string, changes []itemChange) (*ItemConfirmationResult, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	order, err := s.findOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := authorizeOrder(actor, order, RoleSeller); err != nil {
		return nil, err
	}

	confirmation, replayed, err := execute(ctx, &s.engine, mutation[*ItemConfirmation]{
		Operation:  operation,
		EntityType: "order_item",
		EntityID:   entityID,
		Key:        key,
		Actor:      actor,
		Apply: func(tx *gorm.DB) (outcome[*ItemConfirmation], error) {
			var o outcome[*ItemConfirmation]

			current, err := loadOrder(tx, order.ID)
			if err != nil {
				return o, err
			}
			if !statusIn(current.Status, itemConfirmableStatuses) {
				return o, newError(CodeInvalidTransition, "items of order %s cannot be confirmed while it is %s",
					current.OrderNumber, current.Status)
			}

			type pending struct {
				line    *models.OrderItem
				updates map[string]interface{}
			}
			var writes []pending
			for _, change := range changes {
				line := findOrderItem(current, change.itemID)
				if line == nil {
					return o, newError(CodeNotFound, "item %s is not part of order %s", change.itemID, current.OrderNumber)
				}
				available, err := targetAvailability(line, change)
				if err != nil {
					return o, err
				}
				if line.Confirmed == change.confirmed && sameQuantity(line.AvailableQuantity, available) {
					continue
				}
				writes = append(writes, pending{line: line, updates: map[string]interface{}{
					"confirmed":          change.confirmed,
					"available_quantity": available,
				}})
			}

			if len(writes) > 0 {
				// Serializes with lifecycle transitions of the same order
				if err := compareAndSwap(tx, &models.Order{}, current.ID, current.Version, map[string]interface{}{}); err != nil {
					return o, err
				}
				for _, w := range writes {
					if err := tx.Model(&models.OrderItem{}).Where("id = ?", w.line.ID).Updates(w.updates).Error; err != nil {
						return o, fmt.Errorf("failed to update order item: %w", err)
					}
				}
			}

			ids := make([]string, len(changes))
			for i, change := range changes {
				ids[i] = change.itemID
			}
			var items []models.OrderItem
			if err := tx.Where("id IN ?", ids).Order("created_at ASC, id ASC").Find(&items).Error; err != nil {
				return o, fmt.Errorf("failed to reload order items: %w", err)
			}

			o.Result = &ItemConfirmation{OrderID: current.ID, Updated: len(writes), Items: items}
			o.Prior = string(current.Status)
			o.Next = string(current.Status)
			return o, nil
		},
	})
	if err != nil {
		return nil, err
	}
	return &ItemConfirmationResult{Confirmation: confirmation, Replayed: replayed}, nil
}

// targetAvailability resolves the available quantity a change leaves on line
func targetAvailability(line *models.OrderItem, change itemChange) (*int, error) {
	if change.available != nil {
		if *change.available < 0 || *change.available > line.Quantity {
			return nil, newError(CodeValidation, "available quantity of %s must be between 0 and %d",
				line.ProductName, line.Quantity)
		}
		v := *change.available
		return &v, nil
	}
	if change.confirmed {
		v := line.Quantity
		return &v, nil
	}
	return line.AvailableQuantity, nil
}

func sameQuantity(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
