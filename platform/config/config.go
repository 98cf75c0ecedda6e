// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
}

// SchedulerConfig provides settings for the asynq scheduler/worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// SMSConfig provides settings for the outbound messaging provider.
type SMSConfig interface {
	GetSMSBaseURL() string
	GetSMSAccountID() string
	GetSMSAuthToken() string
	GetSMSSendRatePerSecond() float64
	GetSMSSendBurst() int
}

// TelephonyConfig provides settings for validating voice/SMS webhooks and
// building recording callback URLs.
type TelephonyConfig interface {
	GetTelephonyAuthToken() string
	GetPublicBaseURL() string
}

// BillingConfig provides settings for billing-provider webhook verification.
type BillingConfig interface {
	GetBillingWebhookSecret() string
	GetBillingSignatureTolerance() time.Duration
}

// IntentConfig provides settings for the intent-classification service.
type IntentConfig interface {
	GetGeminiAPIKey() string
	GetGeminiModel() string
	IsIntentEnabled() bool
}

// FollowupConfig provides settings for the grace-period poll job.
type FollowupConfig interface {
	GetPollJobToken() string
	GetGraceWindow() time.Duration
	GetPollConcurrency() int
	GetPollInterval() time.Duration
	GetTicketingBaseURL() string
}

// EmailConfig provides settings for owner email notifications.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// PhoneConfig provides phone-number parsing settings.
type PhoneConfig interface {
	GetDefaultPhoneRegion() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                       string
	HTTPAddr                  string
	DatabaseURL               string
	CORSAllowAll              bool
	CORSOrigins               []string
	RedisURL                  string
	RedisTLSInsecure          bool
	AsynqQueueName            string
	AsynqConcurrency          int
	SMSBaseURL                string
	SMSAccountID              string
	SMSAuthToken              string
	SMSSendRatePerSecond      float64
	SMSSendBurst              int
	TelephonyAuthToken        string
	PublicBaseURL             string
	BillingWebhookSecret      string
	BillingSignatureTolerance time.Duration
	GeminiAPIKey              string
	GeminiModel               string
	PollJobToken              string
	GraceWindow               time.Duration
	PollConcurrency           int
	PollInterval              time.Duration
	TicketingBaseURL          string
	EmailEnabled              bool
	SMTPHost                  string
	SMTPPort                  int
	SMTPUsername              string
	SMTPPassword              string
	EmailFromName             string
	EmailFromAddress          string
	DefaultPhoneRegion        string
}

// Load reads configuration from the environment, optionally seeded by a .env file.
func Load() (*Config, error) {
	// .env is optional; real deployments set env vars directly.
	_ = godotenv.Load()

	cfg := &Config{
		Env:                       getEnv("APP_ENV", "development"),
		HTTPAddr:                  getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:               os.Getenv("DATABASE_URL"),
		CORSAllowAll:              getEnvBool("CORS_ALLOW_ALL", false),
		CORSOrigins:               splitList(os.Getenv("CORS_ORIGINS")),
		RedisURL:                  os.Getenv("REDIS_URL"),
		RedisTLSInsecure:          getEnvBool("REDIS_TLS_INSECURE", false),
		AsynqQueueName:            getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:          getEnvInt("ASYNQ_CONCURRENCY", 10),
		SMSBaseURL:                os.Getenv("SMS_BASE_URL"),
		SMSAccountID:              os.Getenv("SMS_ACCOUNT_ID"),
		SMSAuthToken:              os.Getenv("SMS_AUTH_TOKEN"),
		SMSSendRatePerSecond:      getEnvFloat("SMS_SEND_RATE_PER_SECOND", 10),
		SMSSendBurst:              getEnvInt("SMS_SEND_BURST", 20),
		TelephonyAuthToken:        os.Getenv("TELEPHONY_AUTH_TOKEN"),
		PublicBaseURL:             strings.TrimRight(os.Getenv("PUBLIC_BASE_URL"), "/"),
		BillingWebhookSecret:      os.Getenv("BILLING_WEBHOOK_SECRET"),
		BillingSignatureTolerance: getEnvDuration("BILLING_SIGNATURE_TOLERANCE", 5*time.Minute),
		GeminiAPIKey:              os.Getenv("GEMINI_API_KEY"),
		GeminiModel:               getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		PollJobToken:              os.Getenv("POLL_JOB_TOKEN"),
		GraceWindow:               getEnvDuration("SMS_GRACE_WINDOW", 3*time.Minute),
		PollConcurrency:           getEnvInt("POLL_CONCURRENCY", 4),
		PollInterval:              getEnvDuration("POLL_INTERVAL", time.Minute),
		TicketingBaseURL:          os.Getenv("TICKETING_BASE_URL"),
		EmailEnabled:              getEnvBool("EMAIL_ENABLED", false),
		SMTPHost:                  os.Getenv("SMTP_HOST"),
		SMTPPort:                  getEnvInt("SMTP_PORT", 587),
		SMTPUsername:              os.Getenv("SMTP_USERNAME"),
		SMTPPassword:              os.Getenv("SMTP_PASSWORD"),
		EmailFromName:             getEnv("EMAIL_FROM_NAME", "TextBack"),
		EmailFromAddress:          os.Getenv("EMAIL_FROM_ADDRESS"),
		DefaultPhoneRegion:        getEnv("DEFAULT_PHONE_REGION", "US"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

// =============================================================================
// Interface implementations
// =============================================================================

func (c *Config) GetDatabaseURL() string                      { return c.DatabaseURL }
func (c *Config) GetHTTPAddr() string                         { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool                       { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string                    { return c.CORSOrigins }
func (c *Config) GetRedisURL() string                         { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool                   { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string                   { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int                    { return c.AsynqConcurrency }
func (c *Config) GetSMSBaseURL() string                       { return c.SMSBaseURL }
func (c *Config) GetSMSAccountID() string                     { return c.SMSAccountID }
func (c *Config) GetSMSAuthToken() string                     { return c.SMSAuthToken }
func (c *Config) GetSMSSendRatePerSecond() float64            { return c.SMSSendRatePerSecond }
func (c *Config) GetSMSSendBurst() int                        { return c.SMSSendBurst }
func (c *Config) GetTelephonyAuthToken() string               { return c.TelephonyAuthToken }
func (c *Config) GetPublicBaseURL() string                    { return c.PublicBaseURL }
func (c *Config) GetBillingWebhookSecret() string             { return c.BillingWebhookSecret }
func (c *Config) GetBillingSignatureTolerance() time.Duration { return c.BillingSignatureTolerance }
func (c *Config) GetGeminiAPIKey() string                     { return c.GeminiAPIKey }
func (c *Config) GetGeminiModel() string                      { return c.GeminiModel }
func (c *Config) IsIntentEnabled() bool                       { return c.GeminiAPIKey != "" }
func (c *Config) GetPollJobToken() string                     { return c.PollJobToken }
func (c *Config) GetGraceWindow() time.Duration               { return c.GraceWindow }
func (c *Config) GetPollConcurrency() int                     { return c.PollConcurrency }
func (c *Config) GetPollInterval() time.Duration              { return c.PollInterval }
func (c *Config) GetTicketingBaseURL() string                 { return c.TicketingBaseURL }
func (c *Config) GetEmailEnabled() bool                       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string                         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int                            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string                     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string                     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string                    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string                 { return c.EmailFromAddress }
func (c *Config) GetDefaultPhoneRegion() string               { return c.DefaultPhoneRegion }

// =============================================================================
// Helpers
// =============================================================================

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
