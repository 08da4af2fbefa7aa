package models

import "time"

// PasswordReset is a single-use recovery token.
type PasswordReset struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Token     string    `gorm:"size:64;not null;uniqueIndex" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	Used      bool      `gorm:"not null;default:false" json:"used"`
	CreatedAt time.Time `json:"created_at"`
}

func (PasswordReset) TableName() string { return "password_resets" }

// All returns every model managed by the service, in migration order.
func All() []interface{} {
	return []interface{}{
		&User{},
		&SnippetPoint{},
		&GameScore{},
		&GameUserStats{},
		&Event{},
		&DeviceToken{},
		&PasswordReset{},
	}
}
