package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"catalogadmin/utils"

	"github.com/joho/godotenv"
)

const (
	DefaultBasePath = "/admin"
	DefaultIssuer   = "catalog-admin"
)

type AppConfig struct {
	Port        string
	BasePath    string
	Origin      string
	Environment string
	LogLevel    string
}

type JWTConfig struct {
	SecretKey            string
	Issuer               string
	AccessTokenDuration  time.Duration
	RefreshTokenDuration time.Duration
}

type SessionConfig struct {
	Timeout           time.Duration
	WarningTime       time.Duration
	CheckInterval     time.Duration
	Duration          time.Duration
	MaxActiveSessions int
}

type SecurityConfig struct {
	MaxLoginAttempts        int
	LockoutDuration         time.Duration
	LoginBucketCapacity     int
	LoginBucketRefillPerSec float64
	SaveBucketCapacity      int
	SaveBucketRefillPerSec  float64
	TwoFactorMaxAttempts    int
	TwoFactorWindow         time.Duration
	APIRateRPS              float64
	APIRateBurst            int
	PermissionsFile         string
	MaxRequestBytes         int64
}

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Session  SessionConfig
	Security SecurityConfig
}

// IsTest reports whether GO_ENV is "test".
func IsTest() bool {
	return os.Getenv("GO_ENV") == "test"
}

// LoadEnvFile loads a .env file when one is present. A missing file is not an
// error outside production.
func LoadEnvFile(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil {
		if errors.Is(err, os.ErrNotExist) && os.Getenv("GO_ENV") != "production" {
			slog.Debug("no .env file found, using process environment")
			return nil
		}
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Port:        utils.GetEnvAsString("PORT", "8080"),
			BasePath:    normalizeBasePath(utils.GetEnvAsString("APP_BASE_PATH", DefaultBasePath)),
			Origin:      strings.TrimRight(utils.GetEnvAsString("APP_ORIGIN", ""), "/"),
			Environment: utils.GetEnvAsString("GO_ENV", "development"),
			LogLevel:    utils.GetEnvAsString("LOG_LEVEL", "info"),
		},
		Database: LoadDatabaseConfig(),
		Redis:    LoadRedisConfig(),
		JWT: JWTConfig{
			SecretKey:            os.Getenv("JWT_SECRET_KEY"),
			Issuer:               utils.GetEnvAsString("JWT_ISSUER", DefaultIssuer),
			AccessTokenDuration:  utils.GetEnvAsDuration("JWT_EXPIRATION_TIME", time.Hour),
			RefreshTokenDuration: utils.GetEnvAsDuration("REFRESH_TOKEN_EXPIRATION_TIME", 7*24*time.Hour),
		},
		Session: SessionConfig{
			Timeout:           utils.GetEnvAsDuration("SESSION_TIMEOUT", 30*time.Minute),
			WarningTime:       utils.GetEnvAsDuration("SESSION_WARNING_TIME", 5*time.Minute),
			CheckInterval:     utils.GetEnvAsDuration("SESSION_CHECK_INTERVAL", time.Minute),
			Duration:          utils.GetEnvAsDuration("SESSION_DURATION", 24*time.Hour),
			MaxActiveSessions: utils.GetEnvAsInt("MAX_ACTIVE_SESSIONS", 5),
		},
		Security: SecurityConfig{
			MaxLoginAttempts:        utils.GetEnvAsInt("MAX_LOGIN_ATTEMPTS", 5),
			LockoutDuration:         utils.GetEnvAsDuration("LOCKOUT_DURATION", 15*time.Minute),
			LoginBucketCapacity:     utils.GetEnvAsInt("LOGIN_BUCKET_CAPACITY", 5),
			LoginBucketRefillPerSec: utils.GetEnvAsFloat("LOGIN_BUCKET_REFILL_PER_SEC", 1.0/120),
			SaveBucketCapacity:      utils.GetEnvAsInt("SAVE_BUCKET_CAPACITY", 10),
			SaveBucketRefillPerSec:  utils.GetEnvAsFloat("SAVE_BUCKET_REFILL_PER_SEC", 1.0/10),
			TwoFactorMaxAttempts:    utils.GetEnvAsInt("TWO_FACTOR_MAX_ATTEMPTS", 5),
			TwoFactorWindow:         utils.GetEnvAsDuration("TWO_FACTOR_WINDOW", 15*time.Minute),
			APIRateRPS:              utils.GetEnvAsFloat("API_RATE_RPS", 10),
			APIRateBurst:            utils.GetEnvAsInt("API_RATE_BURST", 20),
			PermissionsFile:         utils.GetEnvAsString("PERMISSIONS_FILE", ""),
			MaxRequestBytes:         int64(utils.GetEnvAsInt("MAX_REQUEST_BYTES", 1<<20)),
		},
	}

	if cfg.JWT.SecretKey == "" && IsTest() {
		cfg.JWT.SecretKey = "test_secret_key"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var problems []string
	if c.JWT.SecretKey == "" {
		problems = append(problems, "JWT_SECRET_KEY is not set")
	}
	if c.JWT.AccessTokenDuration <= 0 || c.JWT.RefreshTokenDuration <= 0 {
		problems = append(problems, "token durations must be positive")
	}
	if c.Session.Timeout <= 0 || c.Session.CheckInterval <= 0 {
		problems = append(problems, "session timeout and check interval must be positive")
	}
	if c.Session.WarningTime < 0 || c.Session.WarningTime > c.Session.Timeout {
		problems = append(problems, "SESSION_WARNING_TIME must be between 0 and SESSION_TIMEOUT")
	}
	if c.Security.MaxLoginAttempts <= 0 || c.Security.LockoutDuration <= 0 {
		problems = append(problems, "lockout settings must be positive")
	}
	if c.Security.LoginBucketCapacity <= 0 || c.Security.LoginBucketRefillPerSec <= 0 {
		problems = append(problems, "login bucket settings must be positive")
	}
	if c.Security.SaveBucketCapacity < 0 || c.Security.SaveBucketRefillPerSec < 0 || c.Security.TwoFactorMaxAttempts < 0 {
		problems = append(problems, "save bucket and 2FA attempt settings must not be negative")
	}
	if !strings.HasPrefix(c.App.BasePath, "/") {
		problems = append(problems, "APP_BASE_PATH must start with /")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return DefaultBasePath
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
	}
	return p
}
