package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                  string
	DatabaseURL           string
	PhonePolicy           string
	SessionTTL            time.Duration
	SMSProvider           string
	NotifyInterval        time.Duration
	NotifyBatchSize       int
	DisplayInterval       time.Duration
	DisplayBatchSize      int
	RateLimitPerMinute    int
	RateLimitBurst        int
	OrgRateLimitPerMinute int
	OrgRateLimitBurst     int
}

func Load() Config {
	_ = godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	return Config{
		Port:                  port,
		DatabaseURL:           os.Getenv("DB_DSN"),
		PhonePolicy:           os.Getenv("PHONE_POLICY"),
		SessionTTL:            readDurationSeconds("SESSION_TTL_SECONDS", 8*60*60),
		SMSProvider:           os.Getenv("SMS_PROVIDER"),
		NotifyInterval:        readDurationSeconds("NOTIFY_POLL_INTERVAL_SECONDS", 2),
		NotifyBatchSize:       readInt("NOTIFY_BATCH_SIZE", 50),
		DisplayInterval:       readDurationSeconds("DISPLAY_POLL_INTERVAL_SECONDS", 1),
		DisplayBatchSize:      readInt("DISPLAY_BATCH_SIZE", 100),
		RateLimitPerMinute:    readInt("RATE_LIMIT_PER_MIN", 120),
		RateLimitBurst:        readInt("RATE_LIMIT_BURST", 30),
		OrgRateLimitPerMinute: readInt("ORG_RATE_LIMIT_PER_MIN", 600),
		OrgRateLimitBurst:     readInt("ORG_RATE_LIMIT_BURST", 120),
	}
}

func readDurationSeconds(key string, fallback int) time.Duration {
	value := readInt(key, fallback)
	if value <= 0 {
		return 0
	}
	return time.Duration(value) * time.Second
}

func readInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
