package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort string
	AppName string
	// Gin framework configuration
	GinMode string
	GinPath string
	// Tokens
	JWTSecret             string
	AccessTokenTTLMinutes int
	RefreshTokenTTLHours  int
	// Database: DBDriver is "mysql" or "sqlite"
	DBDriver    string
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Redis for caching and token revocation; empty host disables it
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	// In-process settings cache
	SettingsCacheTTLSeconds int
	SettingsCacheMB         int
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// HTTP
	RateLimitPerMinute int
	AllowedOrigins     []string
	// SMTP for moderation mail
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
	SMTPFromName string
	SMTPTLS      bool
	// Accounts granted ADMIN on registration
	AdminUsernames []string
	// Roles that pass the maintenance gate when the stored row names none
	MaintenanceAllowedRoles []string
}

var (
	cfg    AppConfig
	loaded bool
	mu     sync.RWMutex
)

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	mu.Lock()
	defer mu.Unlock()
	if loaded {
		return cfg
	}

	// Precedence: .env -> config/config.{yaml,json} -> defaults -> environment variable overrides
	_ = godotenv.Load()

	if err := loadFileConfig(&cfg); err != nil {
		log.Printf("config file ignored: %v", err)
	}
	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)

	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET must be set in environment variables")
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	mu.RLock()
	if loaded {
		defer mu.RUnlock()
		return cfg
	}
	mu.RUnlock()
	return Load()
}

// Set replaces the cached configuration. Defaults are applied to zero fields.
func Set(c AppConfig) {
	mu.Lock()
	defer mu.Unlock()
	applyDefaults(&c)
	cfg = c
	loaded = true
}

// loadFileConfig reads config/config.yaml (or .json) when present. A missing file is not an error.
func loadFileConfig(out *AppConfig) error {
	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath("config")
	v.AddConfigPath(".")
	v.SetEnvPrefix("QAFORUM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}
	}

	out.AppPort = v.GetString("app.port")
	out.AppName = v.GetString("app.name")
	out.JWTSecret = v.GetString("app.jwt_secret")
	out.AccessTokenTTLMinutes = v.GetInt("app.access_token_ttl_minutes")
	out.RefreshTokenTTLHours = v.GetInt("app.refresh_token_ttl_hours")
	out.RateLimitPerMinute = v.GetInt("app.rate_limit_per_minute")
	out.AllowedOrigins = v.GetStringSlice("app.allowed_origins")
	out.AdminUsernames = v.GetStringSlice("admin.usernames")
	out.MaintenanceAllowedRoles = v.GetStringSlice("admin.maintenance_allowed_roles")

	out.GinMode = v.GetString("gin.mode")
	out.GinPath = v.GetString("gin.log_path")

	out.DBDriver = v.GetString("database.driver")
	out.DatabaseURI = v.GetString("database.uri")
	out.DBHost = v.GetString("database.host")
	out.DBPort = v.GetString("database.port")
	out.DBUser = v.GetString("database.user")
	out.DBPassword = v.GetString("database.password")
	out.DBName = v.GetString("database.name")

	out.RedisHost = v.GetString("redis.host")
	out.RedisPort = v.GetInt("redis.port")
	out.RedisDB = v.GetInt("redis.db")
	out.RedisPassword = v.GetString("redis.password")

	out.SettingsCacheTTLSeconds = v.GetInt("cache.settings_ttl_seconds")
	out.SettingsCacheMB = v.GetInt("cache.settings_mb")

	out.LogLevel = v.GetString("log.level")
	out.LogPath = v.GetString("log.path")
	out.LogMaxSizeMB = v.GetInt("log.max_size_mb")
	out.LogMaxBackups = v.GetInt("log.max_backups")
	out.LogMaxAgeDays = v.GetInt("log.max_age_days")
	out.LogCompress = v.GetBool("log.compress")

	out.SMTPHost = v.GetString("smtp.host")
	out.SMTPPort = v.GetInt("smtp.port")
	out.SMTPUsername = v.GetString("smtp.username")
	out.SMTPPassword = v.GetString("smtp.password")
	out.SMTPFrom = v.GetString("smtp.from")
	out.SMTPFromName = v.GetString("smtp.from_name")
	out.SMTPTLS = v.GetBool("smtp.tls")
	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.AppName == "" {
		c.AppName = "QAForum"
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.AccessTokenTTLMinutes == 0 {
		c.AccessTokenTTLMinutes = 30
	}
	if c.RefreshTokenTTLHours == 0 {
		c.RefreshTokenTTLHours = 24 * 14
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if len(c.MaintenanceAllowedRoles) == 0 {
		c.MaintenanceAllowedRoles = []string{"ADMIN"}
	}
	if c.DBDriver == "" {
		c.DBDriver = "mysql"
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
		c.DBName = "qaforum"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.SettingsCacheTTLSeconds == 0 {
		c.SettingsCacheTTLSeconds = 30
	}
	if c.SettingsCacheMB == 0 {
		c.SettingsCacheMB = 8
	}
	if c.SMTPPort == 0 {
		c.SMTPPort = 587
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

type envBinding struct {
	key   string
	apply func(c *AppConfig, v string)
}

func str(dst func(*AppConfig) *string) func(*AppConfig, string) {
	return func(c *AppConfig, v string) { *dst(c) = v }
}

func num(dst func(*AppConfig) *int) func(*AppConfig, string) {
	return func(c *AppConfig, v string) { *dst(c) = mustParseInt(v) }
}

func flag(dst func(*AppConfig) *bool) func(*AppConfig, string) {
	return func(c *AppConfig, v string) { *dst(c) = v == "true" }
}

func list(dst func(*AppConfig) *[]string) func(*AppConfig, string) {
	return func(c *AppConfig, v string) { *dst(c) = splitAndTrim(v) }
}

// envBindings lists every environment variable that overrides file and default values.
var envBindings = []envBinding{
	{"APP_PORT", str(func(c *AppConfig) *string { return &c.AppPort })},
	{"APP_NAME", str(func(c *AppConfig) *string { return &c.AppName })},
	{"JWT_SECRET", str(func(c *AppConfig) *string { return &c.JWTSecret })},
	{"ACCESS_TOKEN_TTL_MINUTES", num(func(c *AppConfig) *int { return &c.AccessTokenTTLMinutes })},
	{"REFRESH_TOKEN_TTL_HOURS", num(func(c *AppConfig) *int { return &c.RefreshTokenTTLHours })},
	{"GIN_MODE", str(func(c *AppConfig) *string { return &c.GinMode })},
	{"GIN_PATH", str(func(c *AppConfig) *string { return &c.GinPath })},
	{"DB_DRIVER", str(func(c *AppConfig) *string { return &c.DBDriver })},
	{"DATABASE_URI", str(func(c *AppConfig) *string { return &c.DatabaseURI })},
	{"DB_HOST", str(func(c *AppConfig) *string { return &c.DBHost })},
	{"DB_PORT", str(func(c *AppConfig) *string { return &c.DBPort })},
	{"DB_USER", str(func(c *AppConfig) *string { return &c.DBUser })},
	{"DB_PASSWORD", str(func(c *AppConfig) *string { return &c.DBPassword })},
	{"DB_NAME", str(func(c *AppConfig) *string { return &c.DBName })},
	{"RATE_LIMIT_PER_MINUTE", num(func(c *AppConfig) *int { return &c.RateLimitPerMinute })},
	{"CORS_ALLOWED_ORIGINS", list(func(c *AppConfig) *[]string { return &c.AllowedOrigins })},
	{"ADMIN_USERNAMES", list(func(c *AppConfig) *[]string { return &c.AdminUsernames })},
	{"MAINTENANCE_ALLOWED_ROLES", list(func(c *AppConfig) *[]string { return &c.MaintenanceAllowedRoles })},
	{"SMTP_HOST", str(func(c *AppConfig) *string { return &c.SMTPHost })},
	{"SMTP_PORT", num(func(c *AppConfig) *int { return &c.SMTPPort })},
	{"SMTP_USERNAME", str(func(c *AppConfig) *string { return &c.SMTPUsername })},
	{"SMTP_PASSWORD", str(func(c *AppConfig) *string { return &c.SMTPPassword })},
	{"SMTP_FROM", str(func(c *AppConfig) *string { return &c.SMTPFrom })},
	{"SMTP_FROM_NAME", str(func(c *AppConfig) *string { return &c.SMTPFromName })},
	{"SMTP_TLS", flag(func(c *AppConfig) *bool { return &c.SMTPTLS })},
	{"REDIS_HOST", str(func(c *AppConfig) *string { return &c.RedisHost })},
	{"REDIS_PORT", num(func(c *AppConfig) *int { return &c.RedisPort })},
	{"REDIS_DB", num(func(c *AppConfig) *int { return &c.RedisDB })},
	{"REDIS_PASSWORD", str(func(c *AppConfig) *string { return &c.RedisPassword })},
	{"SETTINGS_CACHE_TTL_SECONDS", num(func(c *AppConfig) *int { return &c.SettingsCacheTTLSeconds })},
	{"SETTINGS_CACHE_MB", num(func(c *AppConfig) *int { return &c.SettingsCacheMB })},
	{"LOG_LEVEL", str(func(c *AppConfig) *string { return &c.LogLevel })},
	{"LOG_PATH", str(func(c *AppConfig) *string { return &c.LogPath })},
	{"LOG_MAX_SIZE_MB", num(func(c *AppConfig) *int { return &c.LogMaxSizeMB })},
	{"LOG_MAX_BACKUPS", num(func(c *AppConfig) *int { return &c.LogMaxBackups })},
	{"LOG_MAX_AGE_DAYS", num(func(c *AppConfig) *int { return &c.LogMaxAgeDays })},
	{"LOG_COMPRESS", flag(func(c *AppConfig) *bool { return &c.LogCompress })},
}

// applyEnvOverrides applies every set, non-empty variable in envBindings.
func applyEnvOverrides(c *AppConfig) {
	for _, b := range envBindings {
		if v := strings.TrimSpace(os.Getenv(b.key)); v != "" {
			b.apply(c, v)
		}
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
