package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	Port        string
	GinMode     string
	Environment string
	LogLevel    string

	DBHost     string
	DBPort     string
	DBDatabase string
	DBUsername string
	DBPassword string
	DebugSQL   bool

	JWTSecret      string
	JWTExpireHours int

	SMTP SMTPConfig

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AnnouncementCacheTTL time.Duration
	PageContentCacheTTL  time.Duration

	EmailDispatchCron string
	AllowedOrigins    []string
	AppBaseURL        string
	AppLogoURL        string
	AutoMigrate       bool
}

type SMTPConfig struct {
	Host          string
	Port          int
	User          string
	Pass          string
	From          string // e.g. "Coalition Portal <no-reply@your.org>"
	SkipTLSVerify bool
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{
		Port:        envOr("SERVER_PORT", "8080"),
		GinMode:     os.Getenv("GIN_MODE"),
		Environment: strings.ToLower(envOr("ENVIRONMENT", "development")),
		LogLevel:    strings.ToLower(envOr("LOG_LEVEL", "info")),

		DBHost:     envOr("DB_HOST", "127.0.0.1"),
		DBPort:     envOr("DB_PORT", "3306"),
		DBDatabase: os.Getenv("DB_DATABASE"),
		DBUsername: os.Getenv("DB_USERNAME"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DebugSQL:   strings.EqualFold(os.Getenv("DEBUG_SQL"), "true"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		SMTP: SMTPConfig{
			Host:          os.Getenv("SMTP_HOST"),
			User:          os.Getenv("SMTP_USER"),
			Pass:          os.Getenv("SMTP_PASS"),
			From:          os.Getenv("SMTP_FROM"),
			SkipTLSVerify: os.Getenv("SMTP_SKIP_TLS_VERIFY") == "1",
		},

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		EmailDispatchCron: envOr("EMAIL_DISPATCH_CRON", "@every 1m"),
		AppBaseURL:        envOr("APP_BASE_URL", "http://localhost:5173"),
		AppLogoURL:        os.Getenv("APP_LOGO_URL"),
		AutoMigrate:       strings.EqualFold(os.Getenv("AUTO_MIGRATE"), "true"),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is not set")
	}
	if cfg.DBDatabase == "" {
		return nil, fmt.Errorf("DB_DATABASE is not set")
	}

	var err error
	if cfg.JWTExpireHours, err = envInt("JWT_EXPIRE_HOURS", 24); err != nil {
		return nil, err
	}
	if cfg.SMTP.Port, err = envInt("SMTP_PORT", 587); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = envInt("REDIS_DB", 0); err != nil {
		return nil, err
	}
	if cfg.AnnouncementCacheTTL, err = envDuration("ANNOUNCEMENT_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.PageContentCacheTTL, err = envDuration("PAGE_CONTENT_CACHE_TTL", time.Hour); err != nil {
		return nil, err
	}

	for _, origin := range strings.Split(os.Getenv("ALLOWED_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
		}
	}

	return cfg, nil
}

func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "staging"
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
