package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultAPIBaseURL is the local-development address of the screening service.
const DefaultAPIBaseURL = "http://127.0.0.1:8000"

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server (BFF)
	Port string
	Env  string // development, staging, production

	// Screening service
	API APIConfig

	// Redis (distributed rate limiter)
	Redis RedisConfig

	// Page sessions
	Session SessionConfig

	// Side-store refresh jobs
	Schedule ScheduleConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// APIConfig holds the remote screening service settings
type APIConfig struct {
	BaseURL        string
	RateLimitRPS   float64 // 0 = disabled
	RateLimitBurst int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// SessionConfig controls screening session behavior
type SessionConfig struct {
	Policy          string        // reject | supersede
	MaxIdle         time.Duration // page session expiry
	PageSize        int
	PreserveResults bool // keep the last results when a run fails
}

// ScheduleConfig holds cron expressions for background refresh jobs.
// Empty expression disables the job.
type ScheduleConfig struct {
	WatchlistRefresh string
	HistoryRefresh   string
	SessionSweep     string
	IndexRefresh     string
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8089"),
		Env:  getEnv("ENV", "development"),

		API: APIConfig{
			// NEXT_PUBLIC_API_URL: 기존 프론트엔드 .env 호환
			BaseURL:        getEnv("API_BASE_URL", getEnv("NEXT_PUBLIC_API_URL", DefaultAPIBaseURL)),
			RateLimitRPS:   getEnvAsFloat("API_RATE_LIMIT_RPS", 0),
			RateLimitBurst: getEnvAsInt("API_RATE_LIMIT_BURST", 1),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		Session: SessionConfig{
			Policy:          strings.ToLower(getEnv("SESSION_POLICY", "reject")),
			MaxIdle:         getEnvAsDuration("SESSION_MAX_IDLE", "2h"),
			PageSize:        getEnvAsInt("PAGE_SIZE", 20),
			PreserveResults: getEnvAsBool("SESSION_PRESERVE_RESULTS", true),
		},

		Schedule: ScheduleConfig{
			WatchlistRefresh: getEnv("WATCHLIST_REFRESH_CRON", "0 */5 * * * *"),
			HistoryRefresh:   getEnv("HISTORY_REFRESH_CRON", "0 */10 * * * *"),
			SessionSweep:     getEnv("SESSION_SWEEP_CRON", "0 */15 * * * *"),
			IndexRefresh:     getEnv("INDICES_REFRESH_CRON", "0 0 * * * *"),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if configuration values are usable
func (c *Config) validate() error {
	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API_BASE_URL must be an absolute URL, got %q", c.API.BaseURL)
	}

	if c.Session.Policy != "reject" && c.Session.Policy != "supersede" {
		return fmt.Errorf("SESSION_POLICY must be one of: reject, supersede")
	}

	if c.Session.PageSize <= 0 {
		return fmt.Errorf("PAGE_SIZE must be > 0")
	}

	if c.API.RateLimitRPS < 0 {
		return fmt.Errorf("API_RATE_LIMIT_RPS must be >= 0")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{".env"}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
