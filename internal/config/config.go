package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the server and the batch jobs read from the
// environment. A missing .env file is fine; real deployments set env vars.
type Config struct {
	Port   string
	DBPath string

	CORSAllowedOrigins []string

	PrimaryBaseURL   string
	PrimaryAPIKey    string
	SecondaryBaseURL string
	SecondaryAPIKey  string
	ProviderTimeout  time.Duration

	SnapshotSchedule string
	AlertSchedule    string
	SnapshotPacing   time.Duration
	LiveCallBudget   int

	RunJobsOnStartup bool
}

// Load reads .env (if present) and the environment into a Config
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:               getEnv("PORT", "8080"),
		DBPath:             getEnv("DB_PATH", "./binderbay.db"),
		CORSAllowedOrigins: splitEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
		PrimaryBaseURL:     getEnv("CARDMARKET_BASE_URL", "https://api.cardmarket-prices.example.com/v1"),
		PrimaryAPIKey:      os.Getenv("CARDMARKET_API_KEY"),
		SecondaryBaseURL:   getEnv("CARDTRADER_BASE_URL", "https://api.cardtrader.example.com/v2"),
		SecondaryAPIKey:    os.Getenv("CARDTRADER_API_KEY"),
		ProviderTimeout:    getDuration("PROVIDER_TIMEOUT", 10*time.Second),
		SnapshotSchedule:   getEnv("SNAPSHOT_CRON", "0 15 5 * * *"),
		AlertSchedule:      getEnv("ALERT_CRON", "0 */30 * * * *"),
		SnapshotPacing:     getDuration("SNAPSHOT_PACING", 250*time.Millisecond),
		LiveCallBudget:     getInt("LIVE_CALL_BUDGET", 50),
		RunJobsOnStartup:   getEnv("RUN_JOBS_ON_STARTUP", "true") == "true",
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitEnv(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		return strings.Split(v, ",")
	}
	return fallback
}
