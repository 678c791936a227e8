// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents an account in the Quill application.
// IsActive stays false until the activation token from the registration
// email is redeemed.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Username  string         `gorm:"unique;not null" json:"username"`
	Email     string         `gorm:"unique;not null" json:"email"`
	Password  string         `gorm:"not null" json:"-"`
	IsActive  bool           `gorm:"not null;default:false" json:"is_active"`
	IsStaff   bool           `gorm:"not null;default:false" json:"is_staff"`
	IsAdmin   bool           `gorm:"not null;default:false" json:"is_admin"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Profile *Profile           `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"profile,omitempty"`
	Metrics *PopularityMetrics `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"metrics,omitempty"`
	Posts   []Post             `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"posts,omitempty"`
}

// Moderator reports whether the user may approve content and act on
// other users' resources.
func (u *User) Moderator() bool {
	return u.IsStaff || u.IsAdmin
}
