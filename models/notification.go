package models

import "time"

// Notification is an in-app message for a buyer or seller account
type Notification struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	RecipientRole string     `gorm:"size:16;not null;index:idx_notifications_recipient,priority:1" json:"recipientRole"`
	RecipientID   string     `gorm:"size:36;not null;index:idx_notifications_recipient,priority:2" json:"recipientId"`
	Type          string     `gorm:"size:48;not null" json:"type"`
	Title         string     `gorm:"not null" json:"title"`
	Message       string     `gorm:"type:text;not null" json:"message"`
	OrderID       *string    `gorm:"size:36;index" json:"orderId,omitempty"`
	ReturnID      *string    `gorm:"size:36" json:"returnId,omitempty"`
	CreditNoteID  *string    `gorm:"size:36" json:"creditNoteId,omitempty"`
	ReadAt        *time.Time `json:"readAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

func (Notification) TableName() string {
	return "notifications"
}
