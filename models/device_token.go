package models

import "time"

// DeviceToken is a push registration token. UserID stays nil for anonymous devices.
type DeviceToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Token     string    `gorm:"size:255;not null;uniqueIndex" json:"token"`
	UserID    *uint     `gorm:"index" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (DeviceToken) TableName() string { return "fcm_tokens" }
