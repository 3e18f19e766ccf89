package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string
	AppPort    string
	AppEnv     string

	RedisAddr     string
	RedisPassword string
	KafkaBrokers  string

	JWTSecret     string
	WebhookSecret string

	// Transactional core tuning.
	ReservationTTL      time.Duration
	SweepInterval       time.Duration
	PendingOrderTimeout time.Duration
	DefaultLocationID   string
}

func LoadConfig() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
		DBPort:     os.Getenv("DB_PORT"),
		AppPort:    os.Getenv("APP_PORT"),
		AppEnv:     os.Getenv("APP_ENV"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		KafkaBrokers:  os.Getenv("KAFKA_BROKERS"),

		JWTSecret:     os.Getenv("JWT_SECRET"),
		WebhookSecret: os.Getenv("WEBHOOK_SECRET"),

		ReservationTTL:      durationEnv("RESERVATION_TTL_MINUTES", 15) * time.Minute,
		SweepInterval:       durationEnv("SWEEP_INTERVAL_SECONDS", 60) * time.Second,
		PendingOrderTimeout: durationEnv("PENDING_ORDER_TIMEOUT_MINUTES", 30) * time.Minute,
		DefaultLocationID:   os.Getenv("DEFAULT_LOCATION_ID"),
	}

	if cfg.DBHost == "" {
		log.Fatal("Environment variables not loaded properly")
	}

	if cfg.DefaultLocationID == "" {
		cfg.DefaultLocationID = "main"
	}

	return cfg
}

func durationEnv(key string, fallback int64) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return time.Duration(fallback)
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return time.Duration(fallback)
	}
	return time.Duration(n)
}
