package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Ledger backend selection.
const (
	LedgerBackendFirestore = "firestore"
	LedgerBackendPostgres  = "postgres"
)

// AppConfig holds all configuration for the application.
type AppConfig struct {
	GoogleCloudProject string
	LedgerBackend      string // firestore or postgres
	DatabaseURL        string // required only for the postgres ledger backend

	SendGridAPIKey string // empty disables the email channel globally
	EmailFrom      string
	EmailFromName  string

	BirthdayOffsets   []int
	EmailBatchTimeout time.Duration
	EmailSendDelay    time.Duration
	RetentionDays     int

	CronSpecDaily string
	HTTPAddr      string

	TelegramToken string // empty disables ops reporting
	OpsChatID     int64

	LogLevel    string
	Environment string
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.GoogleCloudProject = os.Getenv("GOOGLE_CLOUD_PROJECT")
	if cfg.GoogleCloudProject == "" {
		return nil, fmt.Errorf("GOOGLE_CLOUD_PROJECT is not set")
	}

	cfg.LedgerBackend = strings.ToLower(os.Getenv("LEDGER_BACKEND"))
	if cfg.LedgerBackend == "" {
		cfg.LedgerBackend = LedgerBackendFirestore
	}
	if cfg.LedgerBackend != LedgerBackendFirestore && cfg.LedgerBackend != LedgerBackendPostgres {
		return nil, fmt.Errorf("invalid LEDGER_BACKEND %q (want %q or %q)",
			cfg.LedgerBackend, LedgerBackendFirestore, LedgerBackendPostgres)
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.LedgerBackend == LedgerBackendPostgres && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set but LEDGER_BACKEND is postgres")
	}

	cfg.SendGridAPIKey = os.Getenv("SENDGRID_API_KEY")
	cfg.EmailFrom = os.Getenv("EMAIL_FROM")
	cfg.EmailFromName = os.Getenv("EMAIL_FROM_NAME")
	if cfg.SendGridAPIKey != "" && cfg.EmailFrom == "" {
		return nil, fmt.Errorf("EMAIL_FROM is not set but SENDGRID_API_KEY is configured")
	}
	if cfg.EmailFromName == "" {
		cfg.EmailFromName = "Birthday Reminders"
	}

	cfg.BirthdayOffsets, err = parseOffsets(os.Getenv("BIRTHDAY_OFFSETS"))
	if err != nil {
		return nil, err
	}

	cfg.EmailBatchTimeout, err = parseDuration("EMAIL_BATCH_TIMEOUT", 20*time.Second)
	if err != nil {
		return nil, err
	}
	cfg.EmailSendDelay, err = parseDuration("EMAIL_SEND_DELAY", 300*time.Millisecond)
	if err != nil {
		return nil, err
	}

	retentionStr := os.Getenv("RETENTION_DAYS")
	if retentionStr == "" {
		cfg.RetentionDays = 90
	} else {
		cfg.RetentionDays, err = strconv.Atoi(retentionStr)
		if err != nil || cfg.RetentionDays <= 0 {
			return nil, fmt.Errorf("invalid RETENTION_DAYS %q", retentionStr)
		}
	}

	cfg.CronSpecDaily = os.Getenv("CRON_SPEC_DAILY")
	if cfg.CronSpecDaily == "" {
		cfg.CronSpecDaily = "0 6 * * *" // 06:00 daily
	}

	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	opsChatStr := os.Getenv("OPS_CHAT_ID")
	if cfg.TelegramToken != "" {
		if opsChatStr == "" {
			return nil, fmt.Errorf("OPS_CHAT_ID is not set but TELEGRAM_TOKEN is configured")
		}
		cfg.OpsChatID, err = strconv.ParseInt(opsChatStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid OPS_CHAT_ID: %w", err)
		}
	}

	cfg.LogLevel = strings.ToLower(os.Getenv("LOG_LEVEL"))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	cfg.Environment = strings.ToLower(os.Getenv("ENVIRONMENT"))
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	return cfg, nil
}

func parseOffsets(raw string) ([]int, error) {
	if raw == "" {
		return []int{7, 3, 1, 0}, nil
	}
	parts := strings.Split(raw, ",")
	offsets := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid BIRTHDAY_OFFSETS entry %q", p)
		}
		offsets = append(offsets, n)
	}
	return offsets, nil
}

func parseDuration(envVar string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(envVar)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q", envVar, raw)
	}
	return d, nil
}
