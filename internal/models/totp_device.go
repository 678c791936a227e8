package models

import (
	"time"
)

// TOTPDevice is a user's second-factor secret. At most one device exists
// per user; an unconfirmed device is a pending setup and may be replaced
// or cancelled freely.
type TOTPDevice struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"not null;uniqueIndex" json:"user_id"`
	Secret      string     `gorm:"not null" json:"-"`
	Confirmed   bool       `gorm:"not null;default:false" json:"confirmed"`
	CreatedAt   time.Time  `json:"created_at"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}
