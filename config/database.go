package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var db *gorm.DB

// InitDatabase establishes a connection to MySQL using configuration values and migrates missing tables.
func InitDatabase(modelDefs ...interface{}) *gorm.DB {
	if db != nil {
		return db
	}

	cfg := Get()
	var dsn string
	if cfg.DatabaseURI != "" {
		dsn = cfg.DatabaseURI
	} else {
		dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			cfg.DBUser,
			cfg.DBPassword,
			cfg.DBHost,
			cfg.DBPort,
			cfg.DBName,
		)
	}

	gormCfg := &gorm.Config{
		Logger:                                   NewGormLogger(cfg.LogLevel),
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	}

	var err error
	db, err = gorm.Open(mysql.Open(dsn), gormCfg)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get sql.DB: %v", err)
	}

	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	// Idle connections are dropped before the server's wait_timeout does it for us
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		log.Fatalf("database ping failed: %v", err)
	}

	Migrate(db, modelDefs...)
	return db
}

// Migrate creates tables that do not exist yet. Existing legacy tables are left untouched apart from
// additive column changes, the production schema predates this service.
func Migrate(conn *gorm.DB, modelDefs ...interface{}) {
	for _, model := range modelDefs {
		if !conn.Migrator().HasTable(model) {
			if err := conn.AutoMigrate(model); err != nil {
				log.Printf("auto migration failed for %T: %v", model, err)
			}
			continue
		}
		if cm, ok := model.(interface{ AdditiveColumns() []string }); ok {
			for _, col := range cm.AdditiveColumns() {
				if conn.Migrator().HasColumn(model, col) {
					continue
				}
				if err := conn.Migrator().AddColumn(model, col); err != nil {
					log.Printf("failed to add column %s for %T: %v", col, model, err)
				}
			}
		}
	}
}

// NewGormLogger derives the GORM log level from the application level and only reports slow SQL above 2s.
func NewGormLogger(level string) logger.Interface {
	return logger.New(
		log.New(os.Stdout, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             2 * time.Second,
			LogLevel:                  toGormLogLevel(level),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// toGormLogLevel maps application LogLevel to GORM's logger level.
func toGormLogLevel(level string) logger.LogLevel {
	switch level {
	case "debug":
		// GORM 'Info' shows SQL; use with caution
		return logger.Info
	case "info", "", "warn":
		return logger.Warn
	case "error":
		return logger.Error
	case "silent":
		return logger.Silent
	default:
		return logger.Warn
	}
}

// DB provides access to initialized gorm DB instance.
func DB() *gorm.DB {
	if db == nil {
		log.Fatal("database not initialized, call InitDatabase first")
	}
	return db
}
