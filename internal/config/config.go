package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // display time zone must resolve on slim images

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

// Config holds application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	CORS      CORSConfig
	Telegram  TelegramConfig
	Email     EmailConfig
	Notify    NotifyConfig
	Telemetry TelemetryConfig
	Log       LogConfig
}

// AppConfig holds application-level configuration
type AppConfig struct {
	Name            string
	Version         string
	Env             string
	Debug           bool
	Port            string
	Host            string
	DisplayTimezone string
	Location        *time.Location
}

// IsDevelopment reports whether error details may be exposed to clients
func (c *AppConfig) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL         string
	AutoMigrate bool
}

// AuthConfig holds admin authentication configuration
type AuthConfig struct {
	AdminToken         string
	SecretKey          string
	TokenExpiryMinutes int
	PINHashCost        int
}

// SessionsEnabled reports whether admin session tokens can be issued
func (c *AuthConfig) SessionsEnabled() bool {
	return c.SecretKey != ""
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedMethods []string
	AllowedHeaders []string
	MaxAge         int
}

// TelegramConfig holds the staff chat notifier configuration
type TelegramConfig struct {
	BotToken    string
	ChatID      string
	APIEndpoint string
	AdminURL    string
}

// Enabled reports whether both the bot token and the destination chat are set
func (c *TelegramConfig) Enabled() bool {
	return c.BotToken != "" && c.ChatID != ""
}

// EmailConfig holds email service configuration
type EmailConfig struct {
	Enabled    bool
	SMTPHost   string
	SMTPPort   int
	Username   string
	Password   string
	FromEmail  string
	FromName   string
	AdminEmail string
}

// NotifyConfig holds notifier delivery settings
type NotifyConfig struct {
	Timeout time.Duration
}

// TelemetryConfig holds OpenTelemetry exporter settings
type TelemetryConfig struct {
	OTLPEndpoint string
	Insecure     bool
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		App: AppConfig{
			Name:            getEnv("APP_NAME", "Hazacheck API"),
			Version:         getEnv("APP_VERSION", "1.0.0"),
			Env:             getEnv("APP_ENV", "production"),
			Debug:           getEnvAsBool("DEBUG", false),
			Port:            getEnv("PORT", "8000"),
			Host:            getEnv("HOST", "0.0.0.0"),
			DisplayTimezone: getEnv("DISPLAY_TIMEZONE", "Asia/Seoul"),
		},
		Database: DatabaseConfig{
			URL:         getEnv("DATABASE_URL", getEnv("POSTGRES_URL", "sqlite:///./hazacheck.db")),
			AutoMigrate: getEnvAsBool("DB_AUTO_MIGRATE", true),
		},
		Auth: AuthConfig{
			AdminToken:         getEnv("ADMIN_TOKEN", ""),
			SecretKey:          getEnv("SECRET_KEY", ""),
			TokenExpiryMinutes: getEnvAsInt("ACCESS_TOKEN_EXPIRE_MINUTES", 720),
			PINHashCost:        getEnvAsInt("PIN_HASH_COST", bcrypt.DefaultCost),
		},
		CORS: CORSConfig{
			AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
			MaxAge:         86400,
		},
		Telegram: TelegramConfig{
			BotToken:    getEnv("TELEGRAM_BOT_TOKEN", ""),
			ChatID:      getEnv("TELEGRAM_CHAT_ID", ""),
			APIEndpoint: getEnv("TELEGRAM_API_ENDPOINT", "https://api.telegram.org/bot%s/%s"),
			AdminURL:    getEnv("ADMIN_PAGE_URL", "https://www.hazacheck.com/admin.html"),
		},
		Email: EmailConfig{
			Enabled:    getEnvAsBool("EMAIL_ENABLED", false),
			SMTPHost:   getEnv("SMTP_HOST", "smtp.gmail.com"),
			SMTPPort:   getEnvAsInt("SMTP_PORT", 587),
			Username:   getEnv("SMTP_USERNAME", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			FromEmail:  getEnv("EMAIL_FROM", "noreply@hazacheck.com"),
			FromName:   getEnv("EMAIL_FROM_NAME", "하자체크"),
			AdminEmail: getEnv("ADMIN_EMAIL", ""),
		},
		Notify: NotifyConfig{
			Timeout: getEnvAsDuration("NOTIFY_TIMEOUT", 10*time.Second),
		},
		Telemetry: TelemetryConfig{
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Insecure:     getEnvAsBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate configuration
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// validateConfig validates the configuration and resolves derived values
func validateConfig(cfg *Config) error {
	if cfg.App.Port == "" {
		return fmt.Errorf("PORT must be set")
	}
	if cfg.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL must be set")
	}
	if cfg.Auth.TokenExpiryMinutes <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_EXPIRE_MINUTES must be greater than 0")
	}
	if cfg.Auth.PINHashCost < bcrypt.MinCost || cfg.Auth.PINHashCost > bcrypt.MaxCost {
		return fmt.Errorf("PIN_HASH_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if cfg.Notify.Timeout <= 0 {
		return fmt.Errorf("NOTIFY_TIMEOUT must be greater than 0")
	}
	loc, err := time.LoadLocation(cfg.App.DisplayTimezone)
	if err != nil {
		return fmt.Errorf("DISPLAY_TIMEZONE %q: %w", cfg.App.DisplayTimezone, err)
	}
	cfg.App.Location = loc
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

// IsPostgres checks if the database URL is for PostgreSQL
func (c *DatabaseConfig) IsPostgres() bool {
	return strings.HasPrefix(c.URL, "postgres://") || strings.HasPrefix(c.URL, "postgresql://") ||
		strings.Contains(c.URL, "host=")
}

// GetSQLitePath extracts SQLite database path from URL
func (c *DatabaseConfig) GetSQLitePath() string {
	url := c.URL
	if strings.HasPrefix(url, "sqlite:///") {
		return url[len("sqlite:///"):]
	}
	return strings.TrimPrefix(url, "sqlite://")
}
