package models

import "time"

// IdempotencyRecord remembers the outcome of a keyed mutation so retries replay it
type IdempotencyRecord struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Key         string    `gorm:"column:idempotency_key;size:64;not null;uniqueIndex" json:"key"`
	Operation   string    `gorm:"size:64;not null" json:"operation"`
	EntityType  string    `gorm:"size:32;not null" json:"entityType"`
	EntityID    string    `gorm:"size:36;not null;index" json:"entityId"`
	ActorID     string    `gorm:"size:64" json:"actorId"`
	PriorStatus string    `gorm:"size:20" json:"priorStatus,omitempty"`
	NewStatus   string    `gorm:"size:20" json:"newStatus,omitempty"`
	Snapshot    string    `gorm:"type:text" json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (IdempotencyRecord) TableName() string {
	return "idempotency_records"
}

// Completed reports whether the mutation that claimed the key committed its outcome
func (r IdempotencyRecord) Completed() bool {
	return r.Snapshot != ""
}
