package services

import (
	"context"
	"fmt"

	"github.com/kendall-kelly/wholesale-orders-api/models"
	"github.com/kendall-kelly/wholesale-orders-api/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const OpApplyCredit = "credit_note.apply"

// CreditNoteValidityYears is how long a credit note can be spent after issue
const CreditNoteValidityYears = 1

// ApplyCreditInput spends part of a credit note against an order
type ApplyCreditInput struct {
	IdempotencyKey string
	OrderID        string
	Amount         decimal.Decimal
	Notes          string
}

// CreditApplication is the ledger state after an application
type CreditApplication struct {
	Usage      *models.CreditNoteUsage `json:"usage"`
	CreditNote *models.CreditNote      `json:"creditNote"`
	Order      *models.Order           `json:"order"`
}

// CreditResult wraps an application with its replay flag
type CreditResult struct {
	Application *CreditApplication
	Replayed    bool
}

// CreditService applies credit notes to orders
type CreditService struct {
	engine
}

func NewCreditService(deps Dependencies) *CreditService {
	return &CreditService{engine: newEngine(deps)}
}

// Apply deducts in.Amount from the note's balance and from the order total in one transaction
func (s *CreditService) Apply(ctx context.Context, actor Actor, noteID string, in ApplyCreditInput) (*CreditResult, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	amount := utils.RoundMoney(in.Amount)
	if !amount.IsPositive() {
		return nil, newError(CodeValidation, "amount to use must be greater than zero")
	}
	if in.OrderID == "" {
		return nil, newError(CodeValidation, "orderId is required")
	}

	note, err := loadCreditNote(s.db.WithContext(ctx), noteID)
	if err != nil {
		return nil, err
	}
	if err := authorizeCreditNote(actor, note); err != nil {
		return nil, err
	}

	app, replayed, err := execute(ctx, &s.engine, mutation[*CreditApplication]{
		Operation:  OpApplyCredit,
		EntityType: "credit_note",
		EntityID:   note.ID,
		Key:        in.IdempotencyKey,
		Actor:      actor,
		Apply: func(tx *gorm.DB) (outcome[*CreditApplication], error) {
			var o outcome[*CreditApplication]
			now := s.now()

			current, err := loadCreditNote(tx, note.ID)
			if err != nil {
				return o, err
			}
			// A spent note reports its empty balance, a deactivated one that still holds credit is inactive
			if !current.IsActive && current.Balance.IsPositive() {
				return o, newError(CodeInactive, "credit note %s is no longer active", current.CreditNoteNumber)
			}
			if amount.GreaterThan(current.Balance) {
				return o, newError(CodeInsufficientBalance, "credit note %s has %s left, %s requested",
					current.CreditNoteNumber, utils.FormatMoney(current.Balance), utils.FormatMoney(amount))
			}
			if current.Expired(now) {
				return o, newError(CodeExpired, "credit note %s expired on %s", current.CreditNoteNumber, current.ExpiresAt.Format("2006-01-02"))
			}

			order, err := loadOrder(tx, in.OrderID)
			if err != nil {
				return o, err
			}
			if order.ClientID != current.ClientID {
				return o, newError(CodeCrossTenant, "order %s does not belong to the credit note's client", order.OrderNumber)
			}
			if order.Status == models.OrderCanceled {
				return o, newError(CodeInvalidTransition, "credit cannot be applied to canceled order %s", order.OrderNumber)
			}
			if amount.GreaterThan(order.TotalAmount) {
				return o, newError(CodePolicyViolation, "amount %s exceeds order total %s",
					utils.FormatMoney(amount), utils.FormatMoney(order.TotalAmount))
			}

			next := *current
			next.Balance = utils.RoundMoney(current.Balance.Sub(amount))
			next.UsedAmount = utils.RoundMoney(current.UsedAmount.Add(amount))
			next.IsActive = next.Balance.IsPositive()
			if err := next.CheckLedger(); err != nil {
				return o, err
			}

			usage := models.CreditNoteUsage{
				CreditNoteID: current.ID,
				OrderID:      order.ID,
				AmountUsed:   amount,
				AppliedBy:    actor.ID,
				Notes:        in.Notes,
			}
			if err := tx.Create(&usage).Error; err != nil {
				return o, fmt.Errorf("failed to record credit usage: %w", err)
			}

			err = compareAndSwap(tx, &models.CreditNote{}, current.ID, current.Version, map[string]interface{}{
				"balance":     next.Balance,
				"used_amount": next.UsedAmount,
				"is_active":   next.IsActive,
			})
			if err != nil {
				return o, err
			}

			err = compareAndSwap(tx, &models.Order{}, order.ID, order.Version, map[string]interface{}{
				"total_amount": utils.RoundMoney(order.TotalAmount.Sub(amount)),
				"notes": appendNote(order.Notes, fmt.Sprintf("Credit applied: %s (%s)",
					utils.FormatMoney(amount), current.CreditNoteNumber)),
			})
			if err != nil {
				return o, err
			}

			updatedNote, err := loadCreditNote(tx, current.ID)
			if err != nil {
				return o, err
			}
			updatedOrder, err := loadOrder(tx, order.ID)
			if err != nil {
				return o, err
			}

			s.metrics.creditApplied(amount.InexactFloat64())
			o.Result = &CreditApplication{Usage: &usage, CreditNote: updatedNote, Order: updatedOrder}
			o.Prior = utils.FormatMoney(current.Balance)
			o.Next = utils.FormatMoney(updatedNote.Balance)
			o.Events = []Event{{
				Type:          EventCreditApplied,
				OccurredAt:    now,
				RecipientRole: RoleBuyer,
				RecipientID:   current.ClientID,
				Title:         "Credit applied",
				Message: fmt.Sprintf("%s from credit note %s was applied to order %s. Remaining balance: %s.",
					utils.FormatMoney(amount), current.CreditNoteNumber, order.OrderNumber, utils.FormatMoney(updatedNote.Balance)),
				Channels:     []Channel{ChannelInApp},
				OrderID:      order.ID,
				CreditNoteID: current.ID,
				ActorID:      actor.ID,
			}}
			return o, nil
		},
	})
	if err != nil {
		return nil, err
	}
	return &CreditResult{Application: app, Replayed: replayed}, nil
}

// Get returns a credit note with its usages
func (s *CreditService) Get(ctx context.Context, actor Actor, noteID string) (*models.CreditNote, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	var note models.CreditNote
	err := s.db.WithContext(ctx).Preload("Usages", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC")
	}).First(&note, "id = ?", noteID).Error
	if err != nil {
		if isNotFound(err) {
			return nil, newError(CodeNotFound, "credit note %s not found", noteID)
		}
		return nil, fmt.Errorf("failed to load credit note: %w", err)
	}
	if err := authorizeCreditNote(actor, &note); err != nil {
		return nil, err
	}
	return &note, nil
}

// List returns the buyer's notes or the notes a seller issued, newest first
func (s *CreditService) List(ctx context.Context, actor Actor, activeOnly bool) ([]models.CreditNote, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}
	q := s.db.WithContext(ctx).Model(&models.CreditNote{})
	switch actor.Role {
	case RoleBuyer:
		q = q.Where("client_id = ?", actor.ID)
	case RoleSeller:
		q = q.Where("seller_id = ?", actor.ID)
	default:
		return nil, newError(CodeForbidden, "a %s may not list credit notes", actor.Role)
	}
	if activeOnly {
		q = q.Where("is_active = ? AND expires_at > ?", true, s.now())
	}

	var notes []models.CreditNote
	if err := q.Order("created_at DESC").Find(&notes).Error; err != nil {
		return nil, fmt.Errorf("failed to list credit notes: %w", err)
	}
	return notes, nil
}

func loadCreditNote(db *gorm.DB, noteID string) (*models.CreditNote, error) {
	var note models.CreditNote
	if err := db.First(&note, "id = ?", noteID).Error; err != nil {
		if isNotFound(err) {
			return nil, newError(CodeNotFound, "credit note %s not found", noteID)
		}
		return nil, fmt.Errorf("failed to load credit note: %w", err)
	}
	return &note, nil
}

func authorizeCreditNote(actor Actor, note *models.CreditNote) error {
	switch actor.Role {
	case RoleBuyer:
		if note.ClientID == actor.ID {
			return nil
		}
	case RoleSeller:
		if note.SellerID == actor.ID {
			return nil
		}
	}
	return newError(CodeForbidden, "credit note %s is not accessible to this actor", note.CreditNoteNumber)
}
