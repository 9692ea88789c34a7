package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Settings struct {
	Port              string
	DatabaseURL       string
	JWTSecret         string
	AppEnv            string
	ClassAPIBaseURL   string
	ClassAPIToken     string
	ClassAPITimeout   time.Duration
	ScheduleCacheTTL  time.Duration
	ReconcileSchedule string
	IntegritySchedule string
	BrevoAPIKey       string
	AlertEmail        string
	AlertSenderEmail  string
	AlertSenderName   string
}

func Load() (*Settings, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("Warning: .env file not found, reading from system environment variables")
	}

	s := &Settings{
		Port:              Config("PORT", "8080"),
		DatabaseURL:       Config("DATABASE_URL", ""),
		JWTSecret:         Config("JWT_SECRET", ""),
		AppEnv:            normalizeEnv(Config("APP_ENV", "production")),
		ClassAPIBaseURL:   strings.TrimRight(Config("CLASS_API_BASE_URL", ""), "/"),
		ClassAPIToken:     Config("CLASS_API_SERVICE_TOKEN", ""),
		ClassAPITimeout:   durationOr("CLASS_API_TIMEOUT", 15*time.Second),
		ScheduleCacheTTL:  durationOr("SCHEDULE_CACHE_TTL", 2*time.Minute),
		ReconcileSchedule: Config("RECONCILE_SCHEDULE", "*/5 * * * *"),
		IntegritySchedule: Config("INTEGRITY_SCHEDULE", "0 * * * *"),
		BrevoAPIKey:       Config("BREVO_API_KEY", ""),
		AlertEmail:        Config("ALERT_EMAIL", ""),
		AlertSenderEmail:  Config("ALERT_SENDER_EMAIL", ""),
		AlertSenderName:   Config("ALERT_SENDER_NAME", "Class Portal"),
	}

	var missing []string
	if s.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if s.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if s.ClassAPIBaseURL == "" {
		missing = append(missing, "CLASS_API_BASE_URL")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return s, nil
}

// Config returns the environment value for key, or fallback when unset.
func Config(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationOr(key string, fallback time.Duration) time.Duration {
	raw := Config(key, "")
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("⚠️ Invalid duration for %s (%q), using %s", key, raw, fallback)
		return fallback
	}
	return d
}

func normalizeEnv(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "develop", "development", "local":
		return "development"
	case "prod", "production":
		return "production"
	case "stage", "staging":
		return "staging"
	case "test", "testing":
		return "test"
	default:
		return strings.ToLower(strings.TrimSpace(value))
	}
}
