package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultJWTSecret = "change-me-in-production"

type Config struct {
	Port         string
	IsProduction bool
	CORSOrigin   string

	MongoURI             string
	DBName               string
	MongoUseTransactions bool

	JWTSecret string
	JWTExpiry time.Duration

	AdminEmail    string
	AdminPassword string

	S3Bucket      string
	S3Region      string
	S3AccessKeyID string
	S3SecretKey   string
	MaxUploadMB   int64

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string

	SweepEnabled  bool
	SweepAt       string // HH:MM, local time
	SweepInterval time.Duration

	AuthRateLimit string // ulule/limiter formatted rate, e.g. "5-M"

	PostHogAPIKey   string
	PostHogEndpoint string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("IS_PRODUCTION", false)
	v.SetDefault("CORS_ORIGIN", "*")
	v.SetDefault("MONGODB_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGODB_DB", "bookstore")
	v.SetDefault("MONGODB_TRANSACTIONS", false)
	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("JWT_EXPIRY", "168h")
	v.SetDefault("ADMIN_EMAIL", "")
	v.SetDefault("ADMIN_PASSWORD", "")
	v.SetDefault("AWS_S3_BUCKET", "")
	v.SetDefault("AWS_REGION", "us-east-1")
	v.SetDefault("AWS_ACCESS_KEY_ID", "")
	v.SetDefault("AWS_SECRET_ACCESS_KEY", "")
	v.SetDefault("MAX_UPLOAD_MB", 5)
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("MAIL_FROM", "bookstore@localhost")
	v.SetDefault("SWEEP_ENABLED", true)
	v.SetDefault("SWEEP_AT", "00:00")
	v.SetDefault("SWEEP_INTERVAL", "24h")
	v.SetDefault("AUTH_RATE_LIMIT", "5-M")
	v.SetDefault("POSTHOG_API_KEY", "")
	v.SetDefault("POSTHOG_ENDPOINT", "")
}

// Load reads .env (if present) and the environment. Environment values win.
func Load() (*Config, error) {
	_ = godotenv.Load()
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:                 v.GetString("PORT"),
		IsProduction:         v.GetBool("IS_PRODUCTION"),
		CORSOrigin:           v.GetString("CORS_ORIGIN"),
		MongoURI:             v.GetString("MONGODB_URI"),
		DBName:               v.GetString("MONGODB_DB"),
		MongoUseTransactions: v.GetBool("MONGODB_TRANSACTIONS"),
		JWTSecret:            v.GetString("JWT_SECRET"),
		AdminEmail:           strings.TrimSpace(v.GetString("ADMIN_EMAIL")),
		AdminPassword:        v.GetString("ADMIN_PASSWORD"),
		S3Bucket:             v.GetString("AWS_S3_BUCKET"),
		S3Region:             v.GetString("AWS_REGION"),
		S3AccessKeyID:        v.GetString("AWS_ACCESS_KEY_ID"),
		S3SecretKey:          v.GetString("AWS_SECRET_ACCESS_KEY"),
		MaxUploadMB:          v.GetInt64("MAX_UPLOAD_MB"),
		SMTPHost:             v.GetString("SMTP_HOST"),
		SMTPPort:             v.GetInt("SMTP_PORT"),
		SMTPUsername:         v.GetString("SMTP_USERNAME"),
		SMTPPassword:         v.GetString("SMTP_PASSWORD"),
		MailFrom:             v.GetString("MAIL_FROM"),
		SweepEnabled:         v.GetBool("SWEEP_ENABLED"),
		SweepAt:              v.GetString("SWEEP_AT"),
		AuthRateLimit:        v.GetString("AUTH_RATE_LIMIT"),
		PostHogAPIKey:        v.GetString("POSTHOG_API_KEY"),
		PostHogEndpoint:      v.GetString("POSTHOG_ENDPOINT"),
	}
	var err error
	if cfg.JWTExpiry, err = time.ParseDuration(v.GetString("JWT_EXPIRY")); err != nil {
		return nil, fmt.Errorf("JWT_EXPIRY: %w", err)
	}
	if cfg.SweepInterval, err = time.ParseDuration(v.GetString("SWEEP_INTERVAL")); err != nil {
		return nil, fmt.Errorf("SWEEP_INTERVAL: %w", err)
	}
	return cfg, nil
}

// Validate reports every setting the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET must be set"))
	} else if c.IsProduction && c.JWTSecret == defaultJWTSecret {
		errs = append(errs, errors.New("JWT_SECRET must be changed from the default in production"))
	}
	if c.JWTExpiry <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRY must be positive"))
	}
	if c.SweepInterval <= 0 {
		errs = append(errs, errors.New("SWEEP_INTERVAL must be positive"))
	}
	if _, _, err := c.SweepTime(); err != nil {
		errs = append(errs, err)
	}
	if c.MaxUploadMB <= 0 {
		errs = append(errs, errors.New("MAX_UPLOAD_MB must be positive"))
	}
	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		errs = append(errs, errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set together"))
	}
	return errors.Join(errs...)
}

// SweepTime parses SweepAt into an hour and minute.
func (c *Config) SweepTime() (hour, minute int, err error) {
	t, err := time.Parse("15:04", strings.TrimSpace(c.SweepAt))
	if err != nil {
		return 0, 0, fmt.Errorf("SWEEP_AT must be HH:MM, got %q", c.SweepAt)
	}
	return t.Hour(), t.Minute(), nil
}

func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}

func (c *Config) StorageEnabled() bool { return c.S3Bucket != "" }

func (c *Config) MailEnabled() bool { return c.SMTPHost != "" }
