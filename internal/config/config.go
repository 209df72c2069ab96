package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/tobolak1/ppc-checker/internal/models"
)

// Config holds all configuration for the checker service.
type Config struct {
	// Service addresses
	HTTPPort    string
	DatabaseURL string
	RedisAddr   string
	NatsURL     string

	// Sweep scheduling
	CheckInterval time.Duration
	DigestHour    int // hour of day the digest posts, local clock
	DigestEnabled bool

	// Platform API endpoints
	GoogleAdsBaseURL      string
	SklikBaseURL          string
	MerchantCenterBaseURL string

	// Alerting policy
	Alerting AlertingConfig

	// Slack delivery
	SlackBotToken   string
	SlackWebhookURL string
}

// AlertingConfig is the suppression and routing policy for outbound alerts.
type AlertingConfig struct {
	MinSeverity     models.Severity
	QuietHoursStart int
	QuietHoursEnd   int
	CooldownMinutes int
	DefaultChannel  string
	CriticalChannel string
}

// Load reads configuration from environment variables and .env file.
func Load() (*Config, error) {
	envPaths := []string{
		".env",
		"../.env",
		"/app/.env", // Docker
	}

	envLoaded := false
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			log.Printf("Loaded config from: %s", path)
			envLoaded = true
			break
		}
	}

	if !envLoaded {
		log.Printf("No .env file found, using environment variables")
	}

	config := &Config{
		HTTPPort:    getEnvOrDefault("HTTP_PORT", "8080"),
		DatabaseURL: getEnvOrDefault("DATABASE_URL", ""),
		RedisAddr:   getEnvOrDefault("REDIS_ADDR", ""),
		NatsURL:     getEnvOrDefault("NATS_URL", ""),

		CheckInterval: time.Duration(parseIntOrDefault("CHECK_INTERVAL_MINUTES", 60)) * time.Minute,
		DigestHour:    parseIntOrDefault("DIGEST_HOUR", 8),
		DigestEnabled: getEnvOrDefault("DIGEST_ENABLED", "true") == "true",

		GoogleAdsBaseURL:      getEnvOrDefault("GOOGLE_ADS_BASE_URL", "https://googleads.googleapis.com/v17"),
		SklikBaseURL:          getEnvOrDefault("SKLIK_BASE_URL", "https://api.sklik.cz/drak"),
		MerchantCenterBaseURL: getEnvOrDefault("MERCHANT_CENTER_BASE_URL", "https://shoppingcontent.googleapis.com/content/v2.1"),

		Alerting: AlertingConfig{
			MinSeverity:     models.Severity(getEnvOrDefault("ALERT_MIN_SEVERITY", "MEDIUM")),
			QuietHoursStart: parseIntOrDefault("QUIET_HOURS_START", 22),
			QuietHoursEnd:   parseIntOrDefault("QUIET_HOURS_END", 7),
			CooldownMinutes: parseIntOrDefault("ALERT_COOLDOWN_MINUTES", 60),
			DefaultChannel:  getEnvOrDefault("ALERT_CHANNEL", "#ppc-alerts"),
			CriticalChannel: getEnvOrDefault("ALERT_CHANNEL_CRITICAL", "#ppc-alerts-critical"),
		},

		SlackBotToken:   getEnvOrDefault("SLACK_BOT_TOKEN", ""),
		SlackWebhookURL: getEnvOrDefault("SLACK_WEBHOOK_URL", ""),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks that required configuration is present and sane.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT is required")
	}

	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Alerting.MinSeverity.Rank() < 0 {
		return fmt.Errorf("ALERT_MIN_SEVERITY must be one of INFO, LOW, MEDIUM, HIGH, CRITICAL")
	}

	if c.Alerting.QuietHoursStart < 0 || c.Alerting.QuietHoursStart > 23 {
		return fmt.Errorf("QUIET_HOURS_START must be between 0 and 23")
	}

	if c.Alerting.QuietHoursEnd < 0 || c.Alerting.QuietHoursEnd > 23 {
		return fmt.Errorf("QUIET_HOURS_END must be between 0 and 23")
	}

	if c.Alerting.CooldownMinutes < 0 {
		return fmt.Errorf("ALERT_COOLDOWN_MINUTES must not be negative")
	}

	if c.DigestHour < 0 || c.DigestHour > 23 {
		return fmt.Errorf("DIGEST_HOUR must be between 0 and 23")
	}

	if c.CheckInterval < time.Minute {
		return fmt.Errorf("CHECK_INTERVAL_MINUTES must be at least 1")
	}

	return nil
}

// Helper functions
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
