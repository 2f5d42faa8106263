package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration. It is built once at startup and
// only read afterwards.
type Config struct {
	Port               string
	Env                string
	LogLevel           string
	CORSAllowedOrigins []string
	MetricsEnabled     bool
	OutboundTimeout    time.Duration

	// Cloudflare Turnstile
	TurnstileSecretKey string
	TurnstileVerifyURL string

	// Automation webhook (Zapier)
	ZapierWebhookURL string

	// Email delivery
	EmailProvider               string
	SendGridAPIKey              string
	SendGridFromEmail           string
	SendGridFromName            string
	SendGridToEmails            []string
	CustomerConfirmationEnabled bool

	// AWS (SES email provider)
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	SESConfigurationSet string

	// SMTP email provider
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string

	// Brand
	BrandName       string
	BrandPhone      string
	BrandEmail      string
	BrandSiteURL    string
	BrandTimezone   string
	BrandConfigPath string
}

const (
	DefaultTurnstileVerifyURL = "https://challenges.cloudflare.com/turnstile/v0/siteverify"
	DefaultFromEmail          = "noreply@1031exchangedenver.com"
)

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		MetricsEnabled:     getEnvAsBool("METRICS_ENABLED", true),
		OutboundTimeout:    getEnvAsDuration("OUTBOUND_TIMEOUT", 10*time.Second),

		TurnstileSecretKey: getEnv("TURNSTILE_SECRET_KEY", ""),
		TurnstileVerifyURL: getEnv("TURNSTILE_VERIFY_URL", DefaultTurnstileVerifyURL),

		ZapierWebhookURL: getEnv("ZAPIER_WEBHOOK_URL", ""),

		EmailProvider:               strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "auto"))),
		SendGridAPIKey:              getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail:           getEnv("SENDGRID_FROM_EMAIL", DefaultFromEmail),
		SendGridFromName:            getEnv("SENDGRID_FROM_NAME", ""),
		SendGridToEmails:            getEnvAsList("SENDGRID_TO_EMAIL"),
		CustomerConfirmationEnabled: getEnvAsBool("CUSTOMER_CONFIRMATION_ENABLED", true),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		SESConfigurationSet: getEnv("SES_CONFIGURATION_SET", ""),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		BrandName:       getEnv("BRAND_NAME", "1031 Exchange Denver"),
		BrandPhone:      getEnv("BRAND_PHONE", ""),
		BrandEmail:      getEnv("BRAND_EMAIL", ""),
		BrandSiteURL:    getEnv("BRAND_SITE_URL", "https://www.1031exchangedenver.com"),
		BrandTimezone:   getEnv("BRAND_TIMEZONE", "America/Denver"),
		BrandConfigPath: getEnv("BRAND_CONFIG_PATH", ""),
	}
}

// TurnstileEnabled reports whether submissions must carry a bot-check token.
func (c *Config) TurnstileEnabled() bool {
	return c != nil && strings.TrimSpace(c.TurnstileSecretKey) != ""
}

// MissingIntegrations names the optional integrations left unconfigured.
func (c *Config) MissingIntegrations() []string {
	var missing []string
	if key := c.missingEmailSetting(); key != "" {
		missing = append(missing, key)
	}
	if !c.TurnstileEnabled() {
		missing = append(missing, "TURNSTILE_SECRET_KEY")
	}
	if strings.TrimSpace(c.ZapierWebhookURL) == "" {
		missing = append(missing, "ZAPIER_WEBHOOK_URL")
	}
	return missing
}

// missingEmailSetting names the setting the selected email provider lacks.
// SES credentials come from the AWS default chain, so SES is never reported.
func (c *Config) missingEmailSetting() string {
	hasKey := strings.TrimSpace(c.SendGridAPIKey) != ""
	hasHost := strings.TrimSpace(c.SMTPHost) != ""
	switch strings.ToLower(strings.TrimSpace(c.EmailProvider)) {
	case "", "auto":
		if !hasKey && !hasHost {
			return "SENDGRID_API_KEY"
		}
	case "sendgrid":
		if !hasKey {
			return "SENDGRID_API_KEY"
		}
	case "smtp":
		if !hasHost {
			return "SMTP_HOST"
		}
	}
	return ""
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	raw := strings.TrimSpace(getEnv(key, ""))
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
