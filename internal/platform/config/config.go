package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Addr               string
	DatabaseURL        string
	Environment        string
	HRAPIBaseURL       string
	HRAPIKey           string
	ObjectivesPath     string
	ReviewFormPath     string
	KeyResultPath      string
	RecordsPath        string
	AssistantID        string
	AssistantName      string
	RosterFile         string
	CacheTTL           time.Duration
	EndCallDelay       time.Duration
	SilenceNudgeAfter  time.Duration
	SilenceOfferAfter  time.Duration
	SilenceEndAfter    time.Duration
	MaxBodyBytes       int64
	RateLimitPerMinute int
	MetricsEnabled     bool
	RunMigrations      bool
}

func Load() Config {
	return Config{
		Addr:               getEnv("APP_ADDR", ":8080"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		Environment:        getEnv("APP_ENV", "development"),
		HRAPIBaseURL:       getEnv("HR_API_BASE_URL", ""),
		HRAPIKey:           getEnv("HR_API_KEY", ""),
		ObjectivesPath:     getEnv("HR_OBJECTIVES_PATH", "/employees/{employeeId}/objectives"),
		ReviewFormPath:     getEnv("HR_REVIEW_FORM_PATH", "/review-forms/{view}/{employeeId}"),
		KeyResultPath:      getEnv("HR_KEY_RESULT_PATH", "/key-results/{keyResultId}"),
		RecordsPath:        getEnv("HR_RECORDS_PATH", "/review-records"),
		AssistantID:        getEnv("ASSISTANT_ID", ""),
		AssistantName:      getEnv("ASSISTANT_NAME", "Ava"),
		RosterFile:         getEnv("ROSTER_FILE", ""),
		CacheTTL:           getEnvDuration("CACHE_TTL", 30*time.Second),
		EndCallDelay:       getEnvDuration("END_CALL_DELAY", 8*time.Second),
		SilenceNudgeAfter:  getEnvDuration("SILENCE_NUDGE_AFTER", 15*time.Second),
		SilenceOfferAfter:  getEnvDuration("SILENCE_OFFER_AFTER", 30*time.Second),
		SilenceEndAfter:    getEnvDuration("SILENCE_END_AFTER", 60*time.Second),
		MaxBodyBytes:       int64(getEnvInt("MAX_BODY_BYTES", 1048576)),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		MetricsEnabled:     getEnvBool("METRICS_ENABLED", true),
		RunMigrations:      getEnvBool("RUN_MIGRATIONS", true),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if strings.TrimSpace(c.HRAPIBaseURL) == "" {
		return fmt.Errorf("HR_API_BASE_URL is required")
	}
	if c.Environment == "production" && strings.TrimSpace(c.HRAPIKey) == "" {
		return fmt.Errorf("HR_API_KEY must be set in production")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive")
	}
	if c.SilenceNudgeAfter >= c.SilenceOfferAfter || c.SilenceOfferAfter >= c.SilenceEndAfter {
		return fmt.Errorf("silence stage delays must be strictly increasing")
	}
	return nil
}
