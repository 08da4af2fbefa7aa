package services

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cajaoblatos/oblatos34/models"
)

// DeviceService stores push registration tokens.
type DeviceService struct {
	db *gorm.DB
}

func NewDeviceService(db *gorm.DB) *DeviceService {
	return &DeviceService{db: db}
}

// SaveToken inserts the token or rebinds an existing one to userID (nil for anonymous devices).
// It reports whether the token was new.
func (s *DeviceService) SaveToken(ctx context.Context, token string, userID *uint) (bool, error) {
	token = strings.TrimSpace(token)
	db := s.db.WithContext(ctx)

	var existing int64
	if err := db.Model(&models.DeviceToken{}).Where("token = ?", token).Count(&existing).Error; err != nil {
		return false, err
	}

	now := time.Now()
	row := models.DeviceToken{Token: token, UserID: userID, CreatedAt: now, UpdatedAt: now}
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"user_id": userID, "updated_at": now}),
	}).Create(&row).Error
	if err != nil {
		return false, err
	}
	return existing == 0, nil
}
