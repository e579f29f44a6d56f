package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CreditNote is store credit issued to a buyer from an approved return
type CreditNote struct {
	ID               string            `gorm:"primaryKey;size:36" json:"id"`
	CreditNoteNumber string            `gorm:"size:32;uniqueIndex;not null" json:"creditNoteNumber"`
	ReturnID         string            `gorm:"size:36;not null;uniqueIndex" json:"returnId"`
	ClientID         string            `gorm:"size:36;not null;index" json:"clientId"`
	SellerID         string            `gorm:"size:36;not null;index" json:"sellerId"`
	Amount           decimal.Decimal   `gorm:"type:decimal(12,2);not null" json:"amount"`
	Balance          decimal.Decimal   `gorm:"type:decimal(12,2);not null" json:"balance"`
	UsedAmount       decimal.Decimal   `gorm:"type:decimal(12,2);not null;default:0" json:"usedAmount"`
	ExpiresAt        time.Time         `gorm:"not null" json:"expiresAt"`
	IsActive         bool              `gorm:"not null;default:true" json:"isActive"`
	Usages           []CreditNoteUsage `gorm:"foreignKey:CreditNoteID" json:"usages,omitempty"`
	Version          int               `gorm:"not null;default:1" json:"version"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
}

func (CreditNote) TableName() string {
	return "credit_notes"
}

func (n *CreditNote) BeforeCreate(tx *gorm.DB) error {
	assignID(&n.ID)
	if n.Version == 0 {
		n.Version = 1
	}
	return nil
}

// Expired reports whether the note can no longer be spent at now
func (n CreditNote) Expired(now time.Time) bool {
	return now.After(n.ExpiresAt)
}

// CheckLedger verifies balance + usedAmount = amount, balance >= 0 and isActive = (balance > 0)
func (n CreditNote) CheckLedger() error {
	if n.Balance.IsNegative() {
		return fmt.Errorf("credit note %s has negative balance %s", n.ID, n.Balance)
	}
	if !n.Balance.Add(n.UsedAmount).Equal(n.Amount) {
		return fmt.Errorf("credit note %s ledger mismatch: balance %s + used %s != amount %s",
			n.ID, n.Balance, n.UsedAmount, n.Amount)
	}
	if n.IsActive != n.Balance.IsPositive() {
		return fmt.Errorf("credit note %s active flag %t disagrees with balance %s", n.ID, n.IsActive, n.Balance)
	}
	return nil
}

// CreditNoteUsage records one application of credit to an order
type CreditNoteUsage struct {
	ID           string          `gorm:"primaryKey;size:36" json:"id"`
	CreditNoteID string          `gorm:"size:36;not null;index" json:"creditNoteId"`
	OrderID      string          `gorm:"size:36;not null;index" json:"orderId"`
	AmountUsed   decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amountUsed"`
	AppliedBy    string          `gorm:"size:64" json:"appliedBy"`
	Notes        string          `gorm:"type:text" json:"notes,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

func (CreditNoteUsage) TableName() string {
	return "credit_note_usages"
}

func (u *CreditNoteUsage) BeforeCreate(tx *gorm.DB) error {
	assignID(&u.ID)
	return nil
}
