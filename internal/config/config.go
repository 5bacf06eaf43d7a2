package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Stripe   StripeConfig
	Payment  PaymentConfig
	Poller   PollerConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	NewRelic NewRelicConfig
	Log      LogConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// StripeConfig holds payment gateway credentials and the reader to drive.
type StripeConfig struct {
	SecretKey     string
	ReaderID      string
	WebhookSecret string
	APIURL        string
	Timeout       time.Duration
}

// PaymentConfig holds defaults applied to new payment intents.
type PaymentConfig struct {
	DefaultCurrency        string
	Description            string
	CollectCustomerContact bool
	ContactTimeout         time.Duration
	ReaderReleaseTimeout   time.Duration
}

// PollerConfig bounds the intent completion poll loop.
type PollerConfig struct {
	Interval       time.Duration
	MaxWait        time.Duration
	MaxAttempts    int
	MaxQueryErrors int
}

// RedisConfig holds Redis configuration. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig holds the notification relay settings. No brokers disables it.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables.
// A .env file in the working directory is read first when present;
// variables already set in the environment win.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "4242"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 0),
		},
		Stripe: StripeConfig{
			SecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
			ReaderID:      getEnv("READER_ID", ""),
			WebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
			APIURL:        getEnv("STRIPE_API_URL", ""),
			Timeout:       getDurationEnv("STRIPE_TIMEOUT", 30*time.Second),
		},
		Payment: PaymentConfig{
			DefaultCurrency:        strings.ToLower(getEnv("DEFAULT_CURRENCY", "usd")),
			Description:            getEnv("PAYMENT_DESCRIPTION", "Event sale"),
			CollectCustomerContact: getBoolEnv("COLLECT_CUSTOMER_CONTACT", false),
			ContactTimeout:         getDurationEnv("CONTACT_TIMEOUT", 30*time.Second),
			ReaderReleaseTimeout:   getDurationEnv("READER_RELEASE_TIMEOUT", 10*time.Second),
		},
		Poller: PollerConfig{
			Interval:       getDurationEnv("POLL_INTERVAL", 1500*time.Millisecond),
			MaxWait:        getDurationEnv("POLL_MAX_WAIT", 2*time.Minute),
			MaxAttempts:    getIntEnv("POLL_MAX_ATTEMPTS", 80),
			MaxQueryErrors: getIntEnv("POLL_MAX_QUERY_ERRORS", 3),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers: getListEnv("KAFKA_BROKERS"),
			Topic:   getEnv("KAFKA_TOPIC", "payment-notifications"),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "pos-terminal"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// The write timeout must outlast the slowest process-on-reader request.
	if minimum := cfg.ProcessOnReaderBudget() + writeTimeoutMargin; cfg.Server.WriteTimeout < minimum {
		cfg.Server.WriteTimeout = minimum
	}

	return cfg
}

const writeTimeoutMargin = 5 * time.Second

// ProcessOnReaderBudget is the longest a process-on-reader request can run:
// the dispatch call, the poll window plus the query started just before it
// closes, and the reader release after a timeout.
func (c *Config) ProcessOnReaderBudget() time.Duration {
	return c.Stripe.Timeout + c.Poller.MaxWait + c.Stripe.Timeout + c.Payment.ReaderReleaseTimeout
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getListEnv splits a comma separated variable, dropping empty entries.
func getListEnv(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
