package models

import (
	"time"

	"gorm.io/gorm"
)

// ConfirmationMethod is how a buyer's orders leave PENDING
type ConfirmationMethod string

const (
	ConfirmationManual    ConfirmationMethod = "MANUAL"
	ConfirmationAutomatic ConfirmationMethod = "AUTOMATIC"
)

// Client is a buyer account together with its order confirmation policy
type Client struct {
	ID                 string             `gorm:"primaryKey;size:36" json:"id"`
	SellerID           string             `gorm:"size:36;not null;index" json:"sellerId"`
	Name               string             `gorm:"not null" json:"name"`
	Email              string             `json:"email"`
	Phone              string             `json:"phone,omitempty"`
	PreferredChannel   string             `gorm:"size:16;default:'EMAIL'" json:"preferredChannel"`
	ConfirmationMethod ConfirmationMethod `gorm:"size:16;not null;default:'MANUAL'" json:"confirmationMethod"`
	AutoConfirmEnabled bool               `gorm:"not null;default:false" json:"autoConfirmEnabled"`
	DeadlineMinutes    int                `gorm:"not null;default:30" json:"deadlineMinutes"`
	CreatedAt          time.Time          `json:"createdAt"`
	UpdatedAt          time.Time          `json:"updatedAt"`
	DeletedAt          gorm.DeletedAt     `gorm:"index" json:"-"`
}

func (Client) TableName() string {
	return "clients"
}

func (c *Client) BeforeCreate(tx *gorm.DB) error {
	assignID(&c.ID)
	return nil
}

// AllowsManualPlacement reports whether the buyer may confirm its own orders
func (c Client) AllowsManualPlacement() bool {
	return c.ConfirmationMethod == ConfirmationManual
}
