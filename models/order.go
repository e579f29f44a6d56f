package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OrderStatus is a node of the order lifecycle graph
type OrderStatus string

const (
	OrderPending       OrderStatus = "PENDING"
	OrderReviewing     OrderStatus = "REVIEWING"
	OrderIssueReported OrderStatus = "ISSUE_REPORTED"
	OrderConfirmed     OrderStatus = "CONFIRMED"
	OrderLocked        OrderStatus = "LOCKED"
	OrderCompleted     OrderStatus = "COMPLETED"
	OrderCanceled      OrderStatus = "CANCELED"
)

// orderTransitions lists the edges of the lifecycle graph. Statuses without
// outgoing edges are terminal for this engine.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:       {OrderConfirmed, OrderLocked, OrderCanceled, OrderReviewing, OrderIssueReported},
	OrderReviewing:     {OrderLocked, OrderIssueReported},
	OrderIssueReported: {OrderLocked, OrderIssueReported},
	OrderConfirmed:     {OrderCompleted},
}

// CanTransitionTo reports whether next is reachable from s in one step
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, candidate := range orderTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition leaves s
func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

// Order is a buyer's purchase from a seller
type Order struct {
	ID                   string          `gorm:"primaryKey;size:36" json:"id"`
	OrderNumber          string          `gorm:"size:32;uniqueIndex;not null" json:"orderNumber"`
	ClientID             string          `gorm:"size:36;not null;index" json:"clientId"`
	Client               *Client         `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	SellerID             string          `gorm:"size:36;not null;index" json:"sellerId"`
	Status               OrderStatus     `gorm:"size:20;not null;default:'PENDING';index:idx_orders_status_deadline,priority:1" json:"status"`
	TotalAmount          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"totalAmount"`
	ConfirmationDeadline *time.Time      `gorm:"index:idx_orders_status_deadline,priority:2" json:"confirmationDeadline"`
	ConfirmedAt          *time.Time      `json:"confirmedAt,omitempty"`
	LockedAt             *time.Time      `json:"lockedAt,omitempty"`
	LockedBy             string          `gorm:"size:64" json:"lockedBy,omitempty"`
	CanceledAt           *time.Time      `json:"canceledAt,omitempty"`
	CompletedAt          *time.Time      `json:"completedAt,omitempty"`
	HasIssues            bool            `gorm:"not null;default:false" json:"hasIssues"`
	GeneralMessage       string          `gorm:"type:text" json:"generalMessage,omitempty"`
	Notes                string          `gorm:"type:text" json:"notes,omitempty"`
	Items                []OrderItem     `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	Version              int             `gorm:"not null;default:1" json:"version"`
	CreatedAt            time.Time       `json:"createdAt"`
	UpdatedAt            time.Time       `json:"updatedAt"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	assignID(&o.ID)
	if o.Version == 0 {
		o.Version = 1
	}
	return nil
}

// DeadlinePassed reports whether the confirmation window has closed at now
func (o Order) DeadlinePassed(now time.Time) bool {
	return o.ConfirmationDeadline != nil && !now.Before(*o.ConfirmationDeadline)
}

// OrderItem is one product line of an order
type OrderItem struct {
	ID                string          `gorm:"primaryKey;size:36" json:"id"`
	OrderID           string          `gorm:"size:36;not null;index" json:"orderId"`
	ProductID         string          `gorm:"size:36;not null;index" json:"productId"`
	ProductName       string          `json:"productName"`
	Quantity          int             `gorm:"not null;check:quantity > 0" json:"quantity"`
	UnitPrice         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unitPrice"`
	Subtotal          decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	Confirmed         bool            `gorm:"not null;default:false" json:"confirmed"`
	AvailableQuantity *int            `json:"availableQuantity,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	assignID(&i.ID)
	return nil
}
