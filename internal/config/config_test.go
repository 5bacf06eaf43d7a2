package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "STRIPE_SECRET_KEY", "READER_ID", "DEFAULT_CURRENCY",
		"POLL_INTERVAL", "POLL_MAX_WAIT", "POLL_MAX_ATTEMPTS", "KAFKA_BROKERS", "REDIS_ADDR",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, "4242", cfg.Server.Port)
	assert.Equal(t, "usd", cfg.Payment.DefaultCurrency)
	assert.Equal(t, "Event sale", cfg.Payment.Description)
	assert.Equal(t, 1500*time.Millisecond, cfg.Poller.Interval)
	assert.Equal(t, 2*time.Minute, cfg.Poller.MaxWait)
	assert.Equal(t, 80, cfg.Poller.MaxAttempts)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Empty(t, cfg.Redis.Addr)
	assert.False(t, cfg.Payment.CollectCustomerContact)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("READER_ID", "tmr_abc")
	t.Setenv("DEFAULT_CURRENCY", "EUR")
	t.Setenv("POLL_INTERVAL", "250ms")
	t.Setenv("POLL_MAX_ATTEMPTS", "5")
	t.Setenv("COLLECT_CUSTOMER_CONTACT", "true")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, ,kafka-2:9092")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "sk_test_123", cfg.Stripe.SecretKey)
	assert.Equal(t, "tmr_abc", cfg.Stripe.ReaderID)
	assert.Equal(t, "eur", cfg.Payment.DefaultCurrency)
	assert.Equal(t, 250*time.Millisecond, cfg.Poller.Interval)
	assert.Equal(t, 5, cfg.Poller.MaxAttempts)
	assert.True(t, cfg.Payment.CollectCustomerContact)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("POLL_MAX_WAIT", "soon")
	t.Setenv("POLL_MAX_ATTEMPTS", "many")
	t.Setenv("NEW_RELIC_ENABLED", "maybe")

	cfg := Load()

	assert.Equal(t, 2*time.Minute, cfg.Poller.MaxWait)
	assert.Equal(t, 80, cfg.Poller.MaxAttempts)
	assert.False(t, cfg.NewRelic.Enabled)
}

func TestLoad_WriteTimeoutCoversProcessOnReader(t *testing.T) {
	t.Setenv("SERVER_WRITE_TIMEOUT", "")
	t.Setenv("STRIPE_TIMEOUT", "")
	t.Setenv("POLL_MAX_WAIT", "")
	t.Setenv("READER_RELEASE_TIMEOUT", "")

	cfg := Load()
	assert.Equal(t, 3*time.Minute+10*time.Second, cfg.ProcessOnReaderBudget())
	assert.Equal(t, 3*time.Minute+15*time.Second, cfg.Server.WriteTimeout)
}

func TestLoad_WriteTimeoutFollowsPollWindow(t *testing.T) {
	t.Setenv("SERVER_WRITE_TIMEOUT", "3m")
	t.Setenv("STRIPE_TIMEOUT", "20s")
	t.Setenv("POLL_MAX_WAIT", "10m")
	t.Setenv("READER_RELEASE_TIMEOUT", "5s")

	cfg := Load()
	assert.Equal(t, 10*time.Minute+45*time.Second, cfg.ProcessOnReaderBudget())
	assert.Equal(t, 10*time.Minute+50*time.Second, cfg.Server.WriteTimeout)
}

func TestLoad_LongerWriteTimeoutIsKept(t *testing.T) {
	t.Setenv("SERVER_WRITE_TIMEOUT", "15m")
	t.Setenv("POLL_MAX_WAIT", "")

	cfg := Load()
	assert.Equal(t, 15*time.Minute, cfg.Server.WriteTimeout)
}
