package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("SLUG_DEBOUNCE_MS", "")
	t.Setenv("LISTENER_PORT", "")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 400*time.Millisecond, cfg.SlugDebounce)
	assert.Equal(t, []string{"localhost:9093"}, cfg.KafkaBrokers)
	assert.Equal(t, "slabs.stock", cfg.KafkaTopicStock)
	assert.Equal(t, "8082", cfg.ListenerPort)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("BACKEND_URL", "https://api.example.com/")
	t.Setenv("QUOTE_TTL", "120")
	t.Setenv("DRAFT_TTL", "2h")
	t.Setenv("USE_KAFKA", "false")
	t.Setenv("KAFKA_BROKERS", "k1:9092, ,k2:9092")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg := Load()

	assert.Equal(t, "https://api.example.com", cfg.BackendURL)
	assert.Equal(t, 2*time.Minute, cfg.QuoteTTL)
	assert.Equal(t, 2*time.Hour, cfg.DraftTTL)
	assert.False(t, cfg.UseKafka)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 0, cfg.RedisDB)
}

func TestRedisAddr(t *testing.T) {
	cfg := &Config{RedisHost: "cache", RedisPort: "6380"}

	assert.Equal(t, "cache:6380", cfg.RedisAddr())
}
