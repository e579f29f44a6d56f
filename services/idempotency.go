package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kendall-kelly/wholesale-orders-api/models"
	"gorm.io/gorm"
)

// errKeyClaimed means another request inserted the same key first
var errKeyClaimed = errors.New("idempotency key already claimed")

// IdempotencyLedger persists keyed mutation outcomes
type IdempotencyLedger struct {
	db *gorm.DB
}

func NewIdempotencyLedger(db *gorm.DB) *IdempotencyLedger {
	return &IdempotencyLedger{db: db}
}

// Find returns the record for key, or nil when the key was never used
func (l *IdempotencyLedger) Find(ctx context.Context, key string) (*models.IdempotencyRecord, error) {
	var record models.IdempotencyRecord
	res := l.db.WithContext(ctx).Where("idempotency_key = ?", key).Limit(1).Find(&record)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to look up idempotency key: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &record, nil
}

// Claim inserts the record inside tx. The unique index on key makes the first
// committed claim win.
func (l *IdempotencyLedger) Claim(tx *gorm.DB, record *models.IdempotencyRecord) error {
	if err := tx.Create(record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return errKeyClaimed
		}
		return fmt.Errorf("failed to claim idempotency key: %w", err)
	}
	return nil
}

// Complete stores the response snapshot and status change on a claimed record
func (l *IdempotencyLedger) Complete(tx *gorm.DB, record *models.IdempotencyRecord, prior, next string, result interface{}) error {
	snapshot, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode idempotency snapshot: %w", err)
	}

	record.PriorStatus = prior
	record.NewStatus = next
	record.Snapshot = string(snapshot)
	err = tx.Model(record).Updates(map[string]interface{}{
		"prior_status": prior,
		"new_status":   next,
		"snapshot":     record.Snapshot,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to complete idempotency record: %w", err)
	}
	return nil
}

// replay decodes a stored outcome after checking it belongs to the same request
func replay[T any](record *models.IdempotencyRecord, operation, entityID string) (T, error) {
	var result T
	if record.Operation != operation || record.EntityID != entityID {
		return result, newError(CodeConflict, "idempotency key %q was already used for a different request", record.Key)
	}
	if !record.Completed() {
		return result, newError(CodeConflict, "request with idempotency key %q is still in progress", record.Key)
	}
	if err := json.Unmarshal([]byte(record.Snapshot), &result); err != nil {
		return result, fmt.Errorf("failed to decode idempotency snapshot: %w", err)
	}
	return result, nil
}
