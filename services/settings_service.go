package services

import (
	"context"
	"fmt"

	"github.com/kendall-kelly/wholesale-orders-api/models"
	"gorm.io/gorm"
)

const OpUpdateConfirmationSettings = "client.update_confirmation_settings"

const (
	MinDeadlineMinutes = 1
	MaxDeadlineMinutes = 60
)

// UpdateConfirmationSettingsInput sets how one buyer's orders leave PENDING.
// AutoConfirmEnabled defaults to true for AUTOMATIC and false for MANUAL.
type UpdateConfirmationSettingsInput struct {
	IdempotencyKey     string
	ClientID           string
	Method             models.ConfirmationMethod
	AutoConfirmEnabled *bool
	DeadlineMinutes    *int
}

// ClientSettingsResult is the buyer after a settings update
type ClientSettingsResult struct {
	Client   *models.Client
	Replayed bool
}

// ConfirmationSettingsService manages the per-buyer confirmation policy of a seller
type ConfirmationSettingsService struct {
	engine
}

func NewConfirmationSettingsService(deps Dependencies) *ConfirmationSettingsService {
	return &ConfirmationSettingsService{engine: newEngine(deps)}
}

// List returns the seller's buyers with their confirmation policy, by name
func (s *ConfirmationSettingsService) List(ctx context.Context, actor Actor) ([]models.Client, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	var clients []models.Client
	if err := s.db.WithContext(ctx).Where("seller_id = ?", actor.ID).Order("name ASC").Find(&clients).Error; err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	return clients, nil
}

// Update stores a buyer's confirmation method, auto-confirm flag and deadline
func (s *ConfirmationSettingsService) Update(ctx context.Context, actor Actor, in UpdateConfirmationSettingsInput) (*ClientSettingsResult, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	if err := validateConfirmationSettings(in); err != nil {
		return nil, err
	}

	client, replayed, err := execute(ctx, &s.engine, mutation[*models.Client]{
		Operation:  OpUpdateConfirmationSettings,
		EntityType: "client",
		EntityID:   in.ClientID,
		Key:        in.IdempotencyKey,
		Actor:      actor,
		Apply: func(tx *gorm.DB) (outcome[*models.Client], error) {
			var o outcome[*models.Client]

			current, err := loadClient(tx, in.ClientID)
			if err != nil {
				return o, err
			}
			if current.SellerID != actor.ID {
				return o, newError(CodeForbidden, "client %s belongs to another seller", current.ID)
			}

			autoConfirm := in.Method == models.ConfirmationAutomatic
			if in.AutoConfirmEnabled != nil {
				autoConfirm = *in.AutoConfirmEnabled
			}
			updates := map[string]interface{}{
				"confirmation_method":  string(in.Method),
				"auto_confirm_enabled": autoConfirm,
			}
			if in.DeadlineMinutes != nil {
				updates["deadline_minutes"] = *in.DeadlineMinutes
			}
			if err := tx.Model(&models.Client{}).Where("id = ?", current.ID).Updates(updates).Error; err != nil {
				return o, fmt.Errorf("failed to update confirmation settings: %w", err)
			}

			updated, err := loadClient(tx, current.ID)
			if err != nil {
				return o, err
			}
			o.Result = updated
			o.Prior = string(current.ConfirmationMethod)
			o.Next = string(updated.ConfirmationMethod)
			return o, nil
		},
	})
	if err != nil {
		return nil, err
	}
	return &ClientSettingsResult{Client: client, Replayed: replayed}, nil
}

func (s *ConfirmationSettingsService) authorize(actor Actor) error {
	if err := actor.Validate(); err != nil {
		return err
	}
	if !actor.IsSeller() {
		return newError(CodeForbidden, "only sellers manage confirmation settings")
	}
	return nil
}

func validateConfirmationSettings(in UpdateConfirmationSettingsInput) error {
	if in.ClientID == "" {
		return newError(CodeValidation, "clientId is required")
	}
	switch in.Method {
	case models.ConfirmationManual, models.ConfirmationAutomatic:
	default:
		return newError(CodeValidation, "method must be MANUAL or AUTOMATIC")
	}
	if in.DeadlineMinutes != nil && (*in.DeadlineMinutes < MinDeadlineMinutes || *in.DeadlineMinutes > MaxDeadlineMinutes) {
		return newError(CodeValidation, "deadlineMinutes must be between %d and %d", MinDeadlineMinutes, MaxDeadlineMinutes)
	}
	return nil
}

func loadClient(db *gorm.DB, clientID string) (*models.Client, error) {
	var client models.Client
	if err := db.First(&client, "id = ?", clientID).Error; err != nil {
		if isNotFound(err) {
			return nil, newError(CodeNotFound, "client %s not found", clientID)
		}
		return nil, fmt.Errorf("failed to load client: %w", err)
	}
	return &client, nil
}
