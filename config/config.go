package config

import (
	"encoding/json"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds environment driven configuration values.
// Secrets have no defaults in code and must come from config.json, a .env file or the environment.
type AppConfig struct {
	AppPort        string
	JWTSecret      string
	AdminUsernames []string
	AllowedOrigins []string
	PublicBaseURL  string
	// Per-IP budget for the auth and recovery endpoints
	RateLimitPerMinute int
	// Gin framework configuration
	GinMode string
	GinPath string
	// Database
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Redis is optional; an empty host disables it
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// In-process cache size in megabytes
	CacheSizeMB int
	// SMTP for password recovery mails
	SMTPHost       string
	SMTPPort       int
	SMTPUsername   string
	SMTPPassword   string
	SMTPFrom       string
	SMTPFromName   string
	SMTPEncryption string
	// Google Calendar
	GoogleCalendarID      string
	GoogleAPIKey          string
	GoogleCredentialsFile string
	// OneSignal push
	OneSignalAppID   string
	OneSignalRESTKey string
	OneSignalAPIURL  string
	// Scheduler
	SchedulerEnabled      bool
	CalendarSyncInterval  time.Duration
	EventReminderInterval time.Duration
	ResetTokenTTL         time.Duration
	RecoveryCooldown      time.Duration
	StreakRankingCacheTTL time.Duration
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	// Precedence: config/config.json -> defaults -> .env -> environment variable overrides
	if err := loadJSONConfig(filepath.Join("config", "config.json"), &cfg); err != nil {
		log.Fatalf("invalid config/config.json: %v", err)
	}

	applyDefaults(&cfg)

	// godotenv never overrides variables already present in the environment
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// Set replaces the cached configuration. Used by tests and tools that build config in code.
func Set(c AppConfig) {
	applyDefaults(&c)
	cfg = c
	loaded = true
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// loadJSONConfig reads the grouped JSON file into out if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var raw map[string]any
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return err
	}

	getString := func(m map[string]any, key string) string {
		if v, ok := m[key]; ok {
			if s, ok := v.(string); ok {
				return s
			}
		}
		return ""
	}
	getInt := func(m map[string]any, key string) int {
		if v, ok := m[key]; ok {
			switch t := v.(type) {
			case float64:
				return int(t)
			case int:
				return t
			}
		}
		return 0
	}
	getBool := func(m map[string]any, key string) bool {
		if v, ok := m[key]; ok {
			if b, ok := v.(bool); ok {
				return b
			}
		}
		return false
	}
	getStringSlice := func(m map[string]any, key string) []string {
		if arr, ok := m[key].([]any); ok {
			res := make([]string, 0, len(arr))
			for _, it := range arr {
				if s, ok := it.(string); ok {
					res = append(res, s)
				}
			}
			return res
		}
		return nil
	}
	getSeconds := func(m map[string]any, key string) time.Duration {
		return time.Duration(getInt(m, key)) * time.Second
	}

	if app, ok := raw["app"].(map[string]any); ok {
		out.AppPort = getString(app, "AppPort")
		out.JWTSecret = getString(app, "JWTSecret")
		out.PublicBaseURL = getString(app, "PublicBaseURL")
		out.RateLimitPerMinute = getInt(app, "RateLimitPerMinute")
		out.AllowedOrigins = getStringSlice(app, "AllowedOrigins")
		out.AdminUsernames = getStringSlice(app, "AdminUsernames")
		out.ResetTokenTTL = getSeconds(app, "ResetTokenTTLSec")
		out.RecoveryCooldown = getSeconds(app, "RecoveryCooldownSec")
	}

	if g, ok := raw["gin"].(map[string]any); ok {
		out.GinMode = getString(g, "Mode")
		out.GinPath = getString(g, "LogPath")
	}

	if dbs, ok := raw["database"].(map[string]any); ok {
		out.DatabaseURI = getString(dbs, "DatabaseURI")
		out.DBHost = getString(dbs, "DBHost")
		out.DBPort = getString(dbs, "DBPort")
		out.DBUser = getString(dbs, "DBUser")
		out.DBPassword = getString(dbs, "DBPassword")
		out.DBName = getString(dbs, "DBName")
	}

	if rds, ok := raw["redis"].(map[string]any); ok {
		out.RedisHost = getString(rds, "RedisHost")
		out.RedisPort = getInt(rds, "RedisPort")
		out.RedisDB = getInt(rds, "RedisDB")
		out.RedisPassword = getString(rds, "RedisPassword")
	}

	if c, ok := raw["cache"].(map[string]any); ok {
		out.CacheSizeMB = getInt(c, "SizeMB")
		out.StreakRankingCacheTTL = getSeconds(c, "StreakRankingTTLSec")
	}

	if sm, ok := raw["smtp"].(map[string]any); ok {
		out.SMTPHost = getString(sm, "SMTPHost")
		out.SMTPPort = getInt(sm, "SMTPPort")
		out.SMTPUsername = getString(sm, "SMTPUsername")
		out.SMTPPassword = getString(sm, "SMTPPassword")
		out.SMTPFrom = getString(sm, "SMTPFrom")
		out.SMTPFromName = getString(sm, "SMTPFromName")
		out.SMTPEncryption = getString(sm, "SMTPEncryption")
	}

	if gg, ok := raw["google"].(map[string]any); ok {
		out.GoogleCalendarID = getString(gg, "CalendarID")
		out.GoogleAPIKey = getString(gg, "APIKey")
		out.GoogleCredentialsFile = getString(gg, "CredentialsFile")
	}

	if push, ok := raw["onesignal"].(map[string]any); ok {
		out.OneSignalAppID = getString(push, "AppID")
		out.OneSignalRESTKey = getString(push, "RESTKey")
		out.OneSignalAPIURL = getString(push, "APIURL")
	}

	if sc, ok := raw["scheduler"].(map[string]any); ok {
		out.SchedulerEnabled = getBool(sc, "Enabled")
		out.CalendarSyncInterval = getSeconds(sc, "CalendarSyncIntervalSec")
		out.EventReminderInterval = getSeconds(sc, "EventReminderIntervalSec")
	}

	if lg, ok := raw["log"].(map[string]any); ok {
		out.LogLevel = getString(lg, "Level")
		out.LogPath = getString(lg, "Path")
		out.LogMaxSizeMB = getInt(lg, "MaxSizeMB")
		out.LogMaxBackups = getInt(lg, "MaxBackups")
		out.LogMaxAgeDays = getInt(lg, "MaxAgeDays")
		out.LogCompress = getBool(lg, "Compress")
	}

	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 30
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.PublicBaseURL == "" {
		c.PublicBaseURL = "http://localhost:8080"
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "oblatos34"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.CacheSizeMB == 0 {
		c.CacheSizeMB = 16
	}
	if c.StreakRankingCacheTTL == 0 {
		c.StreakRankingCacheTTL = time.Minute
	}
	if c.SMTPPort == 0 {
		c.SMTPPort = 587
	}
	if c.SMTPEncryption == "" {
		c.SMTPEncryption = "starttls"
	}
	if c.SMTPFromName == "" {
		c.SMTPFromName = "Oblatos 34"
	}
	if c.GoogleCalendarID == "" {
		c.GoogleCalendarID = "primary"
	}
	if c.OneSignalAPIURL == "" {
		c.OneSignalAPIURL = "https://onesignal.com/api/v1/notifications"
	}
	if c.CalendarSyncInterval == 0 {
		c.CalendarSyncInterval = 6 * time.Hour
	}
	if c.EventReminderInterval == 0 {
		c.EventReminderInterval = 15 * time.Minute
	}
	if c.ResetTokenTTL == 0 {
		c.ResetTokenTTL = time.Hour
	}
	if c.RecoveryCooldown == 0 {
		c.RecoveryCooldown = time.Minute
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	if v := getEnv("APP_PORT", ""); v != "" {
		c.AppPort = v
	}
	if v := getEnv("JWT_SECRET", ""); v != "" {
		c.JWTSecret = v
	}
	if v := getEnv("ADMIN_USERNAMES", ""); v != "" {
		c.AdminUsernames = splitAndTrim(v)
	}
	if v := getEnv("CORS_ALLOWED_ORIGINS", ""); v != "" {
		c.AllowedOrigins = splitAndTrim(v)
	}
	if v := getEnv("PUBLIC_BASE_URL", ""); v != "" {
		c.PublicBaseURL = strings.TrimRight(v, "/")
	}
	if v := getEnv("RATE_LIMIT_PER_MINUTE", ""); v != "" {
		c.RateLimitPerMinute = mustParseInt(v)
	}
	if v := getEnv("GIN_MODE", ""); v != "" {
		c.GinMode = v
	}
	if v := getEnv("GIN_PATH", ""); v != "" {
		c.GinPath = v
	}
	if v := getEnv("DATABASE_URI", ""); v != "" {
		c.DatabaseURI = v
	}
	if v := getEnv("DB_HOST", ""); v != "" {
		c.DBHost = v
	}
	if v := getEnv("DB_PORT", ""); v != "" {
		c.DBPort = v
	}
	if v := getEnv("DB_USER", ""); v != "" {
		c.DBUser = v
	}
	if v := getEnv("DB_PASSWORD", ""); v != "" {
		c.DBPassword = v
	}
	if v := getEnv("DB_NAME", ""); v != "" {
		c.DBName = v
	}
	if v := getEnv("REDIS_HOST", ""); v != "" {
		c.RedisHost = v
	}
	if v := getEnv("REDIS_PORT", ""); v != "" {
		c.RedisPort = mustParseInt(v)
	}
	if v := getEnv("REDIS_DB", ""); v != "" {
		c.RedisDB = mustParseInt(v)
	}
	if v := getEnv("REDIS_PASSWORD", ""); v != "" {
		c.RedisPassword = v
	}
	if v := getEnv("CACHE_SIZE_MB", ""); v != "" {
		c.CacheSizeMB = mustParseInt(v)
	}
	if v := getEnv("SMTP_HOST", ""); v != "" {
		c.SMTPHost = v
	}
	if v := getEnv("SMTP_PORT", ""); v != "" {
		c.SMTPPort = mustParseInt(v)
	}
	if v := getEnv("SMTP_USERNAME", ""); v != "" {
		c.SMTPUsername = v
	}
	if v := getEnv("SMTP_PASSWORD", ""); v != "" {
		c.SMTPPassword = v
	}
	if v := getEnv("SMTP_FROM", ""); v != "" {
		c.SMTPFrom = v
	}
	if v := getEnv("SMTP_FROM_NAME", ""); v != "" {
		c.SMTPFromName = v
	}
	if v := getEnv("SMTP_ENCRYPTION", ""); v != "" {
		c.SMTPEncryption = strings.ToLower(v)
	}
	if v := getEnv("GOOGLE_CALENDAR_ID", ""); v != "" {
		c.GoogleCalendarID = v
	}
	if v := getEnv("GOOGLE_API_KEY", ""); v != "" {
		c.GoogleAPIKey = v
	}
	if v := getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""); v != "" {
		c.GoogleCredentialsFile = v
	}
	if v := getEnv("ONESIGNAL_APP_ID", ""); v != "" {
		c.OneSignalAppID = v
	}
	if v := getEnv("ONESIGNAL_REST_API_KEY", ""); v != "" {
		c.OneSignalRESTKey = v
	}
	if v := getEnv("ONESIGNAL_API_URL", ""); v != "" {
		c.OneSignalAPIURL = v
	}
	if v := getEnv("SCHEDULER_ENABLED", ""); v != "" {
		c.SchedulerEnabled = v == "true"
	}
	if v := getEnv("CALENDAR_SYNC_INTERVAL_SEC", ""); v != "" {
		c.CalendarSyncInterval = time.Duration(mustParseInt(v)) * time.Second
	}
	if v := getEnv("EVENT_REMINDER_INTERVAL_SEC", ""); v != "" {
		c.EventReminderInterval = time.Duration(mustParseInt(v)) * time.Second
	}
	if v := getEnv("LOG_LEVEL", ""); v != "" {
		c.LogLevel = v
	}
	if v := getEnv("LOG_PATH", ""); v != "" {
		c.LogPath = v
	}
	if v := getEnv("LOG_MAX_SIZE_MB", ""); v != "" {
		c.LogMaxSizeMB = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_BACKUPS", ""); v != "" {
		c.LogMaxBackups = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_AGE_DAYS", ""); v != "" {
		c.LogMaxAgeDays = mustParseInt(v)
	}
	if v := getEnv("LOG_COMPRESS", ""); v != "" {
		c.LogCompress = v == "true"
	}
}

func mustParseInt(val string) int {
	i, err := strconv.Atoi(val)
	if err != nil {
		log.Fatalf("invalid integer value %s: %v", val, err)
	}
	return i
}

func splitAndTrim(raw string) []string {
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// IsAdmin reports whether username is listed in AdminUsernames (case-insensitive).
func (c AppConfig) IsAdmin(username string) bool {
	if username == "" {
		return false
	}
	for _, u := range c.AdminUsernames {
		if strings.EqualFold(strings.TrimSpace(u), username) {
			return true
		}
	}
	return false
}
