package models

import (
	"time"
)

// TagTarget is the closed set of entity kinds a profile tag may reference.
// Kind membership is validated at construction instead of dynamic lookup.
type TagTarget string

const (
	// TagTargetPost marks a mention attached to a post.
	TagTargetPost TagTarget = "post"
	// TagTargetComment marks a mention attached to a comment.
	TagTargetComment TagTarget = "comment"
)

// ValidTagTarget reports whether the kind belongs to the allowed set.
func ValidTagTarget(kind TagTarget) bool {
	switch kind {
	case TagTargetPost, TagTargetComment:
		return true
	}
	return false
}

// ProfileTag is a mention of a user on a post or comment. A user can be
// tagged at most once per target entity.
type ProfileTag struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	TaggedUserID uint      `gorm:"not null;uniqueIndex:idx_tag_target" json:"tagged_user_id"`
	TaggerID     uint      `gorm:"not null" json:"tagger_id"`
	TargetType   TagTarget `gorm:"type:varchar(16);not null;uniqueIndex:idx_tag_target" json:"target_type"`
	TargetID     uint      `gorm:"not null;uniqueIndex:idx_tag_target" json:"target_id"`
	CreatedAt    time.Time `json:"created_at"`

	TaggedUser User `gorm:"foreignKey:TaggedUserID;constraint:OnDelete:CASCADE" json:"tagged_user,omitempty"`
	Tagger     User `gorm:"foreignKey:TaggerID;constraint:OnDelete:CASCADE" json:"tagger,omitempty"`
}
