// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	// Server Configuration
	GinMode          string        `mapstructure:"GIN_MODE"`
	ServerHost       string        `mapstructure:"SERVER_HOST"`
	ServerPort       string        `mapstructure:"SERVER_PORT"`
	ServerTimeout    time.Duration `mapstructure:"SERVER_TIMEOUT_SECONDS"`
	WSAllowedOrigins []string      `mapstructure:"WS_ALLOWED_ORIGINS"`

	// Database Configuration
	DBDriver          string        `mapstructure:"DB_DRIVER"`
	DBHost            string        `mapstructure:"DB_HOST"`
	DBPort            string        `mapstructure:"DB_PORT"`
	DBUser            string        `mapstructure:"DB_USER"`
	DBPassword        string        `mapstructure:"DB_PASSWORD"`
	DBName            string        `mapstructure:"DB_NAME"`
	DBSSLMode         string        `mapstructure:"DB_SSL_MODE"`
	DBTimezone        string        `mapstructure:"DB_TIMEZONE"`
	DBMaxIdleConns    int           `mapstructure:"DB_MAX_IDLE_CONNS"`
	DBMaxOpenConns    int           `mapstructure:"DB_MAX_OPEN_CONNS"`
	DBConnMaxLifetime time.Duration `mapstructure:"DB_CONN_MAX_LIFETIME_MINUTES"`
	DBSQLitePath      string        `mapstructure:"DB_SQLITE_PATH"`
	DBAutoMigrate     bool          `mapstructure:"DB_AUTO_MIGRATE"`

	// Logging Configuration
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// Auth
	JWTSecretKey         string        `mapstructure:"JWT_SECRET_KEY"`
	JWTAccessTokenExpiry time.Duration `mapstructure:"JWT_ACCESS_TOKEN_EXPIRY_MINUTES"`
	ProfileCacheTTL      time.Duration `mapstructure:"PROFILE_CACHE_TTL_SECONDS"`

	// Matching
	DefaultRadiusKM       float64 `mapstructure:"DEFAULT_RADIUS_KM"`
	ValueTolerancePercent float64 `mapstructure:"VALUE_TOLERANCE_PERCENT"`
	MaxSwipeDeckSize      int     `mapstructure:"MAX_SWIPE_DECK_SIZE"`
	MatchExpiryDays       int     `mapstructure:"MATCH_EXPIRY_DAYS"`

	// Listings
	MaxImagesPerListing int    `mapstructure:"MAX_IMAGES_PER_LISTING"`
	ImageStoragePath    string `mapstructure:"IMAGE_STORAGE_PATH"`
	ImagePublicBaseURL  string `mapstructure:"IMAGE_PUBLIC_BASE_URL"`

	// AI collaborators
	GeminiAPIKey     string        `mapstructure:"GEMINI_API_KEY"`
	GeminiModel      string        `mapstructure:"GEMINI_MODEL"`
	GeminiBaseURL    string        `mapstructure:"GEMINI_BASE_URL"`
	VisionEnabled    bool          `mapstructure:"VISION_ENABLED"`
	VisionServiceURL string        `mapstructure:"VISION_SERVICE_URL"`
	AIRequestTimeout time.Duration `mapstructure:"AI_REQUEST_TIMEOUT_SECONDS"`

	// Cron Jobs
	MatchExpiryAuditSchedule string `mapstructure:"MATCH_EXPIRY_AUDIT_SCHEDULE"`

	// Elasticsearch Configuration
	ElasticsearchURL string `mapstructure:"ELASTICSEARCH_URL"`
}

// MatchTTL is how long a new match stays open before it is considered stale.
func (c *Config) MatchTTL() time.Duration {
	return time.Duration(c.MatchExpiryDays) * 24 * time.Hour
}

// Load attempts to load configuration from a .env file (if present) and environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling configuration: %w", err)
	}

	// Durations are configured as plain integers.
	cfg.ServerTimeout = time.Duration(v.GetInt("SERVER_TIMEOUT_SECONDS")) * time.Second
	cfg.DBConnMaxLifetime = time.Duration(v.GetInt("DB_CONN_MAX_LIFETIME_MINUTES")) * time.Minute
	cfg.JWTAccessTokenExpiry = time.Duration(v.GetInt("JWT_ACCESS_TOKEN_EXPIRY_MINUTES")) * time.Minute
	cfg.ProfileCacheTTL = time.Duration(v.GetInt("PROFILE_CACHE_TTL_SECONDS")) * time.Second
	cfg.AIRequestTimeout = time.Duration(v.GetInt("AI_REQUEST_TIMEOUT_SECONDS")) * time.Second
	cfg.WSAllowedOrigins = splitList(v.GetString("WS_ALLOWED_ORIGINS"))

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_TIMEOUT_SECONDS", 30)
	v.SetDefault("WS_ALLOWED_ORIGINS", "*")

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "barter_db")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_TIMEZONE", "UTC")
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_MAX_OPEN_CONNS", 100)
	v.SetDefault("DB_CONN_MAX_LIFETIME_MINUTES", 60)
	v.SetDefault("DB_SQLITE_PATH", "barter.db")
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("JWT_SECRET_KEY", "")
	v.SetDefault("JWT_ACCESS_TOKEN_EXPIRY_MINUTES", 60*24*7)
	v.SetDefault("PROFILE_CACHE_TTL_SECONDS", 60)

	v.SetDefault("DEFAULT_RADIUS_KM", 25.0)
	v.SetDefault("VALUE_TOLERANCE_PERCENT", 0.30)
	v.SetDefault("MAX_SWIPE_DECK_SIZE", 50)
	v.SetDefault("MATCH_EXPIRY_DAYS", 7)

	v.SetDefault("MAX_IMAGES_PER_LISTING", 6)
	v.SetDefault("IMAGE_STORAGE_PATH", "./uploads")
	v.SetDefault("IMAGE_PUBLIC_BASE_URL", "/uploads")

	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("GEMINI_MODEL", "gemini-1.5-flash")
	v.SetDefault("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("VISION_ENABLED", false)
	v.SetDefault("VISION_SERVICE_URL", "")
	v.SetDefault("AI_REQUEST_TIMEOUT_SECONDS", 30)

	v.SetDefault("MATCH_EXPIRY_AUDIT_SCHEDULE", "@hourly")

	// Empty disables search indexing.
	v.SetDefault("ELASTICSEARCH_URL", "")
}

func (c *Config) validate() error {
	if c.DBDriver != "postgres" && c.DBDriver != "sqlite" {
		return fmt.Errorf("DB_DRIVER must be 'postgres' or 'sqlite', got %q", c.DBDriver)
	}
	if strings.TrimSpace(c.JWTSecretKey) == "" {
		if c.GinMode == "release" {
			return fmt.Errorf("FATAL: JWT_SECRET_KEY is not set. This is required in release mode")
		}
		c.JWTSecretKey = "changeme-use-a-real-secret-in-prod"
	}
	if c.ValueTolerancePercent < 0 || c.ValueTolerancePercent >= 1 {
		return fmt.Errorf("VALUE_TOLERANCE_PERCENT must be in [0, 1), got %v", c.ValueTolerancePercent)
	}
	if c.MaxSwipeDeckSize <= 0 {
		return fmt.Errorf("MAX_SWIPE_DECK_SIZE must be positive, got %d", c.MaxSwipeDeckSize)
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
