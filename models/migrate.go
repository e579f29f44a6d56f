package models

import "gorm.io/gorm"

// All lists every persisted model in migration order
func All() []interface{} {
	return []interface{}{
		&User{},
		&Seller{},
		&Client{},
		&Product{},
		&Order{},
		&OrderItem{},
		&OrderIssue{},
		&OrderStatusHistory{},
		&IdempotencyRecord{},
		&Return{},
		&ReturnItem{},
		&ReturnImage{},
		&CreditNote{},
		&CreditNoteUsage{},
		&Notification{},
	}
}

// AutoMigrate creates or updates the schema for every model
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(All()...)
}
