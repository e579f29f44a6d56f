package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a sellable item whose stock is restored by cancellations and restocked returns
type Product struct {
	ID        string          `gorm:"primaryKey;size:36" json:"id"`
	SellerID  string          `gorm:"size:36;not null;index" json:"sellerId"`
	Name      string          `gorm:"not null" json:"name"`
	SKU       string          `gorm:"size:64;index" json:"sku,omitempty"`
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Stock     int             `gorm:"not null;default:0" json:"stock"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
	DeletedAt gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (Product) TableName() string {
	return "products"
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	assignID(&p.ID)
	return nil
}
