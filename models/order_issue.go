package models

import (
	"time"

	"gorm.io/gorm"
)

// IssueStatus tracks a reported problem with an order
type IssueStatus string

const (
	IssueReported IssueStatus = "REPORTED"
	IssueAccepted IssueStatus = "ACCEPTED"
	IssueRejected IssueStatus = "REJECTED"
	IssueResolved IssueStatus = "RESOLVED"
)

// OrderIssue is a problem the seller raised while reviewing an order.
// Open issues block locking.
type OrderIssue struct {
	ID                string      `gorm:"primaryKey;size:36" json:"id"`
	OrderID           string      `gorm:"size:36;not null;index" json:"orderId"`
	OrderItemID       *string     `gorm:"size:36" json:"orderItemId,omitempty"`
	Type              string      `gorm:"size:32;not null" json:"type"`
	Description       string      `gorm:"type:text;not null" json:"description"`
	ProposedSolution  string      `gorm:"type:text" json:"proposedSolution,omitempty"`
	Status            IssueStatus `gorm:"size:16;not null;default:'REPORTED'" json:"status"`
	ReportedBy        string      `gorm:"size:64" json:"reportedBy"`
	ResolvedBy        string      `gorm:"size:64" json:"resolvedBy,omitempty"`
	ResolutionMessage string      `gorm:"type:text" json:"resolutionMessage,omitempty"`
	ResolvedAt        *time.Time  `json:"resolvedAt,omitempty"`
	CreatedAt         time.Time   `json:"createdAt"`
	UpdatedAt         time.Time   `json:"updatedAt"`
}

func (OrderIssue) TableName() string {
	return "order_issues"
}

func (i *OrderIssue) BeforeCreate(tx *gorm.DB) error {
	assignID(&i.ID)
	return nil
}

// ClosedIssueStatuses no longer block a lock
var ClosedIssueStatuses = []IssueStatus{IssueAccepted, IssueResolved}

// IsOpen reports whether the issue still blocks locking
func (i OrderIssue) IsOpen() bool {
	for _, s := range ClosedIssueStatuses {
		if i.Status == s {
			return false
		}
	}
	return true
}

// ClosedIssueStatusValues returns ClosedIssueStatuses as plain strings for queries
func ClosedIssueStatusValues() []string {
	values := make([]string, len(ClosedIssueStatuses))
	for i, s := range ClosedIssueStatuses {
		values[i] = string(s)
	}
	return values
}
