// Package testutil holds helpers shared by package tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cajaoblatos/oblatos34/config"
	"github.com/cajaoblatos/oblatos34/models"
	"github.com/cajaoblatos/oblatos34/utils"
)

var dbSeq atomic.Int64

// NewDB opens a private in-memory SQLite database with every model migrated.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:oblatos%d?mode=memory&cache=shared", dbSeq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// a single connection keeps transactions from waiting on the SQLite write lock
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	config.Migrate(db, models.All()...)
	return db
}

// UseConfig installs a test configuration with the given admins.
func UseConfig(admins ...string) config.AppConfig {
	cfg := config.AppConfig{
		JWTSecret:          "test-secret",
		GinMode:            "test",
		GinPath:            "/tmp/oblatos34-test-gin.log",
		AdminUsernames:     admins,
		AllowedOrigins:     []string{"*"},
		PublicBaseURL:      "https://app.example.com",
		RateLimitPerMinute: 6000,
	}
	config.Set(cfg)
	return config.Get()
}

// CreateUser inserts a user with the given password.
func CreateUser(t testing.TB, db *gorm.DB, username, email, password string) models.User {
	t.Helper()
	hash, err := utils.HashPassword(password)
	require.NoError(t, err)
	user := models.User{
		Username:     username,
		ChildName:    "Niño " + username,
		ParentName:   "Padre " + username,
		Email:        email,
		PasswordHash: hash,
		ProfileImage: 1,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}
