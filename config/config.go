package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration, loaded from the environment.
type Config struct {
	Env      string
	HTTPPort string
	BaseURL  string

	Postgres PostgresConfig
	JWT      JWTConfig
	SMTP     SMTPConfig
	Kafka    KafkaConfig
	Redis    RedisConfig
	Jobs     JobsConfig
}

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
}

// DSN builds the postgres connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode)
}

type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	From     string
}

type KafkaConfig struct {
	Brokers     string
	EventsTopic string
}

type RedisConfig struct {
	Addr     string
	Password string
}

type JobsConfig struct {
	OrderExpirySchedule   string
	ItemExpirySchedule    string
	DiscountSchedule      string
	SalesReportSchedule   string
	OrderExpiryCutoff     time.Duration
	MilestoneOrderCount   int
	MilestoneWindowDays   int
	PremiumFoodPriceFloor float64
}

// Load reads configuration from .env (if present) and the environment.
func Load() (*Config, error) {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("APP_ENV", "development"),
		HTTPPort: getEnv("PORT", "8080"),
		BaseURL:  getEnv("APP_BASE_URL", "http://localhost:8080"),
		Postgres: PostgresConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Database: getEnv("DB_NAME", "restaurant"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			Secret: os.Getenv("JWT_SECRET"),
			TTL:    getEnvDuration("JWT_TTL", 24*time.Hour),
		},
		SMTP: SMTPConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getEnv("SMTP_PORT", "587"),
			User:     os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASS"),
			From:     getEnv("SMTP_FROM", "no-reply@geekyair.com"),
		},
		Kafka: KafkaConfig{
			Brokers:     os.Getenv("KAFKA_BROKERS"),
			EventsTopic: getEnv("KAFKA_EVENTS_TOPIC", "backoffice.events"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		Jobs: JobsConfig{
			OrderExpirySchedule:   getEnv("JOB_ORDER_EXPIRY_SCHEDULE", "*/30 * * * *"),
			ItemExpirySchedule:    getEnv("JOB_ITEM_EXPIRY_SCHEDULE", "0 8 * * *"),
			DiscountSchedule:      getEnv("JOB_DISCOUNT_SCHEDULE", "0 9 * * *"),
			SalesReportSchedule:   getEnv("JOB_SALES_REPORT_SCHEDULE", "0 7 * * 1"),
			OrderExpiryCutoff:     getEnvDuration("ORDER_EXPIRY_CUTOFF", 4*time.Hour),
			MilestoneOrderCount:   getEnvInt("MILESTONE_ORDER_COUNT", 500),
			MilestoneWindowDays:   getEnvInt("MILESTONE_WINDOW_DAYS", 10),
			PremiumFoodPriceFloor: getEnvFloat("PREMIUM_FOOD_PRICE_FLOOR", 200),
		},
	}

	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
