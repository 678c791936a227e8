package models

import (
	"time"
)

// BlacklistedToken is the durable denylist of token identifiers. A token
// whose jti appears here is rejected even when cryptographically valid and
// unexpired. Rows past ExpiresAt can be purged since the token itself has
// expired anyway.
type BlacklistedToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	JTI       string    `gorm:"column:jti;unique;not null" json:"jti"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName overrides the default pluralization.
func (BlacklistedToken) TableName() string {
	return "blacklisted_tokens"
}
