// Package config reads the service settings from the environment, loading
// a .env file first when one is present.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"inkwell/app/mail"

	"github.com/joho/godotenv"
)

// Store drivers.
const (
	DriverBadger   = "badger"
	DriverPostgres = "postgres"
)

// Mail transports.
const (
	MailConsole = "console"
	MailSMTP    = "smtp"
	MailKafka   = "kafka"
)

type Config struct {
	Addr    string
	BaseURL string

	StoreDriver string
	BadgerPath  string
	DatabaseURL string
	AutoMigrate bool

	MailTransport string
	MailFrom      string
	SMTP          mail.SMTPConfig

	KafkaBrokers string
	KafkaTopic   string
	KafkaGroupID string

	RedisAddr  string
	RateLimit  int64
	RateWindow time.Duration
	TrustProxy bool

	OTLPEndpoint string
	ServiceName  string

	AutocertDomain string
	AutocertCache  string
}

// Load reads .env (if any) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using the environment")
	}
	return FromEnv()
}

// FromEnv builds the configuration from the process environment only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		Addr:    getEnv("ADDR", ":8080"),
		BaseURL: getEnv("BASE_URL", "http://localhost:8080"),

		StoreDriver: getEnv("STORE_DRIVER", DriverBadger),
		BadgerPath:  getEnv("BADGER_PATH", "data/badger"),
		DatabaseURL: os.Getenv("DATABASE_URL"),

		MailTransport: getEnv("MAIL_TRANSPORT", MailConsole),
		MailFrom:      getEnv("MAIL_FROM", "admin@myblog.com"),
		SMTP: mail.SMTPConfig{
			Host:     getEnv("SMTP_HOST", "localhost"),
			Username: os.Getenv("SMTP_USERNAME"),
			Password: os.Getenv("SMTP_PASSWORD"),
		},

		KafkaBrokers: getEnv("KAFKA_BOOTSTRAP_SERVERS", "localhost:9092"),
		KafkaTopic:   getEnv("KAFKA_MAIL_TOPIC", "mail.outbound"),
		KafkaGroupID: getEnv("KAFKA_GROUP_ID", "inkwell-mailer"),

		RedisAddr: os.Getenv("REDIS_ADDR"),

		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		ServiceName:  getEnv("OTEL_SERVICE_NAME", "inkwell"),

		AutocertDomain: os.Getenv("AUTOCERT_DOMAIN"),
		AutocertCache:  getEnv("AUTOCERT_CACHE", "data/autocert"),
	}

	var err error
	if cfg.AutoMigrate, err = strconv.ParseBool(getEnv("AUTO_MIGRATE", "true")); err != nil {
		return nil, fmt.Errorf("AUTO_MIGRATE: %w", err)
	}
	if cfg.TrustProxy, err = strconv.ParseBool(getEnv("TRUST_PROXY", "false")); err != nil {
		return nil, fmt.Errorf("TRUST_PROXY: %w", err)
	}
	if cfg.SMTP.Port, err = strconv.Atoi(getEnv("SMTP_PORT", "587")); err != nil {
		return nil, fmt.Errorf("SMTP_PORT: %w", err)
	}
	if cfg.RateLimit, err = strconv.ParseInt(getEnv("RATE_LIMIT", "5"), 10, 64); err != nil {
		return nil, fmt.Errorf("RATE_LIMIT: %w", err)
	}
	if cfg.RateWindow, err = time.ParseDuration(getEnv("RATE_WINDOW", "1m")); err != nil {
		return nil, fmt.Errorf("RATE_WINDOW: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings that have a closed set of values.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverBadger:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required with STORE_DRIVER=%s", DriverPostgres)
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.MailTransport {
	case MailConsole, MailSMTP, MailKafka:
	default:
		return fmt.Errorf("unknown MAIL_TRANSPORT %q", c.MailTransport)
	}

	if c.RateLimit < 1 {
		return fmt.Errorf("RATE_LIMIT must be positive, got %d", c.RateLimit)
	}
	if c.RateWindow <= 0 {
		return fmt.Errorf("RATE_WINDOW must be positive, got %s", c.RateWindow)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
