package models

import "time"

// OrderStatusHistory is the audit trail of order transitions
type OrderStatusHistory struct {
	ID             uint        `gorm:"primaryKey" json:"id"`
	OrderID        string      `gorm:"size:36;not null;index" json:"orderId"`
	PreviousStatus OrderStatus `gorm:"size:20" json:"previousStatus"`
	NewStatus      OrderStatus `gorm:"size:20;not null" json:"newStatus"`
	ChangedBy      string      `gorm:"size:64;not null" json:"changedBy"`
	ChangedByRole  string      `gorm:"size:16;not null" json:"changedByRole"`
	Notes          string      `gorm:"type:text" json:"notes,omitempty"`
	IdempotencyKey *string     `gorm:"size:64" json:"idempotencyKey,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
}

func (OrderStatusHistory) TableName() string {
	return "order_status_history"
}
