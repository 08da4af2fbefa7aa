package services

import "errors"

var (
	ErrUserNotFound          = errors.New("user not found")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrSnippetAlreadyAwarded = errors.New("snippet points already granted today")
	ErrEventNotFound         = errors.New("event not found")
	ErrInvalidEventTime      = errors.New("event end is before its start")
	ErrInvalidResetToken     = errors.New("invalid reset token")
	ErrResetTokenUsed        = errors.New("reset token already used")
	ErrResetTokenExpired     = errors.New("reset token expired")
	ErrPasswordTooShort      = errors.New("password too short")
	ErrPasswordMismatch      = errors.New("passwords do not match")
	ErrPushNotConfigured     = errors.New("push notifications not configured")
	ErrCalendarNotConfigured = errors.New("google calendar not configured")
)
