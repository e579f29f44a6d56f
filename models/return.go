package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReturnStatus is the lifecycle of a return request
type ReturnStatus string

const (
	ReturnPending   ReturnStatus = "PENDING"
	ReturnApproved  ReturnStatus = "APPROVED"
	ReturnRejected  ReturnStatus = "REJECTED"
	ReturnCompleted ReturnStatus = "COMPLETED"
)

// RefundMethod decides whether an approved return becomes a credit note
type RefundMethod string

const (
	RefundCredit RefundMethod = "CREDIT"
	RefundCash   RefundMethod = "REFUND"
)

// Valid reports whether m is a known refund method
func (m RefundMethod) Valid() bool {
	return m == RefundCredit || m == RefundCash
}

// ReturnReason categorizes why goods come back
type ReturnReason string

const (
	ReasonDamaged    ReturnReason = "DAMAGED"
	ReasonWrongItem  ReturnReason = "WRONG_ITEM"
	ReasonExpired    ReturnReason = "EXPIRED"
	ReasonQuality    ReturnReason = "QUALITY_ISSUE"
	ReasonNotOrdered ReturnReason = "NOT_ORDERED"
	ReasonOther      ReturnReason = "OTHER"
)

var returnReasons = map[ReturnReason]bool{
	ReasonDamaged: true, ReasonWrongItem: true, ReasonExpired: true,
	ReasonQuality: true, ReasonNotOrdered: true, ReasonOther: true,
}

// Valid reports whether r is a known reason
func (r ReturnReason) Valid() bool {
	return returnReasons[r]
}

// Return is a buyer's request to send back goods from a completed order
type Return struct {
	ID                string          `gorm:"primaryKey;size:36" json:"id"`
	ReturnNumber      string          `gorm:"size:32;uniqueIndex;not null" json:"returnNumber"`
	OrderID           string          `gorm:"size:36;not null;index" json:"orderId"`
	ClientID          string          `gorm:"size:36;not null;index" json:"clientId"`
	SellerID          string          `gorm:"size:36;not null;index" json:"sellerId"`
	Status            ReturnStatus    `gorm:"size:16;not null;default:'PENDING'" json:"status"`
	Reason            ReturnReason    `gorm:"size:32;not null" json:"reason"`
	ReasonDescription string          `gorm:"type:text" json:"reasonDescription,omitempty"`
	RefundMethod      RefundMethod    `gorm:"size:16;not null;default:'CREDIT'" json:"refundMethod"`
	RequestedAmount   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"requestedAmount"`
	RestockFee        decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"restockFee"`
	FinalRefundAmount decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"finalRefundAmount"`
	ApprovedAmount    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"approvedAmount"`
	IsManual          bool            `gorm:"not null;default:false" json:"isManual"`
	Notes             string          `gorm:"type:text" json:"notes,omitempty"`
	RejectionReason   string          `gorm:"type:text" json:"rejectionReason,omitempty"`
	ApprovedBy        string          `gorm:"size:64" json:"approvedBy,omitempty"`
	ApprovedAt        *time.Time      `json:"approvedAt,omitempty"`
	RejectedAt        *time.Time      `json:"rejectedAt,omitempty"`
	CompletedAt       *time.Time      `json:"completedAt,omitempty"`
	Items             []ReturnItem    `gorm:"foreignKey:ReturnID" json:"items,omitempty"`
	Images            []ReturnImage   `gorm:"foreignKey:ReturnID" json:"images,omitempty"`
	CreditNote        *CreditNote     `gorm:"foreignKey:ReturnID" json:"creditNote,omitempty"`
	Version           int             `gorm:"not null;default:1" json:"version"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

func (Return) TableName() string {
	return "returns"
}

func (r *Return) BeforeCreate(tx *gorm.DB) error {
	assignID(&r.ID)
	if r.Version == 0 {
		r.Version = 1
	}
	return nil
}

// ReturnItem is a returned quantity of one order line
type ReturnItem struct {
	ID               string          `gorm:"primaryKey;size:36" json:"id"`
	ReturnID         string          `gorm:"size:36;not null;index" json:"returnId"`
	OrderItemID      string          `gorm:"size:36;not null;index" json:"orderItemId"`
	ProductID        string          `gorm:"size:36;not null" json:"productId"`
	ProductName      string          `json:"productName"`
	QuantityReturned int             `gorm:"not null;check:quantity_returned > 0" json:"quantityReturned"`
	PricePerUnit     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"pricePerUnit"`
	Subtotal         decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"subtotal"`
	Restocked        bool            `gorm:"not null;default:false" json:"restocked"`
	RestockedAt      *time.Time      `json:"restockedAt,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
}

func (ReturnItem) TableName() string {
	return "return_items"
}

func (i *ReturnItem) BeforeCreate(tx *gorm.DB) error {
	assignID(&i.ID)
	return nil
}

// ReturnImage is a photo the buyer attached as evidence
type ReturnImage struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	ReturnID  string    `gorm:"size:36;not null;index" json:"returnId"`
	S3Key     string    `gorm:"not null" json:"s3Key"`
	ImageURL  *string   `gorm:"-" json:"imageUrl,omitempty"` // computed field, presigned URL for image
	CreatedAt time.Time `json:"createdAt"`
}

func (ReturnImage) TableName() string {
	return "return_images"
}

func (i *ReturnImage) BeforeCreate(tx *gorm.DB) error {
	assignID(&i.ID)
	return nil
}
