package models

import (
	"time"

	"gorm.io/gorm"
)

// Comment represents a comment on a post. Approval is moderated
// independently of the post it belongs to.
type Comment struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Content    string         `gorm:"not null" json:"content"`
	UserID     uint           `gorm:"not null;index" json:"user_id"`
	PostID     uint           `gorm:"not null;index" json:"post_id"`
	IsApproved bool           `gorm:"not null;default:true" json:"is_approved"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Post Post `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"post,omitempty"`
}
