package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	UserRoleBuyer  = "buyer"
	UserRoleSeller = "seller"
)

// User is an authenticated identity mapped to the buyer (client) or seller account it acts for
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Auth0ID   string         `gorm:"uniqueIndex;not null" json:"auth0Id"` // Auth0 user ID (from 'sub' claim)
	Name      string         `gorm:"not null" json:"name"`
	Email     string         `gorm:"uniqueIndex;not null" json:"email"`
	Role      string         `gorm:"not null;default:'buyer'" json:"role"` // "buyer" or "seller"
	ClientID  *string        `gorm:"size:36;index" json:"clientId,omitempty"`
	SellerID  *string        `gorm:"size:36;index" json:"sellerId,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}

// AccountID returns the client or seller the user acts for, empty when the mapping is incomplete
func (u User) AccountID() string {
	switch u.Role {
	case UserRoleBuyer:
		if u.ClientID != nil {
			return *u.ClientID
		}
	case UserRoleSeller:
		if u.SellerID != nil {
			return *u.SellerID
		}
	}
	return ""
}
