package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Environment string

	// Inventory API
	BackendURL     string
	BackendTimeout time.Duration

	// Exchange quote provider
	QuoteURL string
	QuoteTTL time.Duration

	// Public base for issued link URLs when the backend omits one
	PublicLinkBaseURL string

	// JWT Configuration
	JWTSecret string

	// Redis Configuration
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	UseCache      bool

	// Draft and debounce settings
	DraftTTL       time.Duration
	IdempotencyTTL time.Duration
	SlugDebounce   time.Duration

	// Kafka Configuration
	UseKafka        bool
	KafkaBrokers    []string
	KafkaTopicStock string
	KafkaTopicLinks string
	KafkaClientID   string
	KafkaGroupID    string
	KafkaRetries    int

	// SQLite activity log
	SQLitePath   string
	ListenerPort string

	// Listener processing retries
	MaxRetries int
	RetryDelay time.Duration

	// Web front end
	WebDir  string
	WebPort string
	APIURL  string
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		BackendURL:     strings.TrimRight(getEnv("BACKEND_URL", "http://localhost:3333/api"), "/"),
		BackendTimeout: time.Duration(getEnvAsInt("BACKEND_TIMEOUT_MS", 10000)) * time.Millisecond,

		QuoteURL: getEnv("QUOTE_URL", "https://economia.awesomeapi.com.br/json/last/USD-BRL"),
		QuoteTTL: getEnvAsDuration("QUOTE_TTL", 5*time.Minute),

		PublicLinkBaseURL: strings.TrimRight(getEnv("PUBLIC_LINK_BASE_URL", "http://localhost:3000/l"), "/"),

		JWTSecret: getEnv("JWT_SECRET", "your-secret-key-change-in-production-min-32-chars"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		UseCache:      getEnvAsBool("USE_CACHE", true),

		DraftTTL:       getEnvAsDuration("DRAFT_TTL", 24*time.Hour),
		IdempotencyTTL: getEnvAsDuration("IDEMPOTENCY_TTL", 10*time.Minute),
		SlugDebounce:   time.Duration(getEnvAsInt("SLUG_DEBOUNCE_MS", 400)) * time.Millisecond,

		UseKafka:        getEnvAsBool("USE_KAFKA", true),
		KafkaBrokers:    getEnvAsList("KAFKA_BROKERS", "localhost:9093"),
		KafkaTopicStock: getEnv("KAFKA_TOPIC_STOCK", "slabs.stock"),
		KafkaTopicLinks: getEnv("KAFKA_TOPIC_LINKS", "slabs.links"),
		KafkaClientID:   getEnv("KAFKA_CLIENT_ID", "slabdesk"),
		KafkaGroupID:    getEnv("KAFKA_GROUP_ID", "slabdesk-activity"),
		KafkaRetries:    getEnvAsInt("KAFKA_RETRIES", 3),

		SQLitePath:   getEnv("SQLITE_PATH", "./data/activity.db"),
		ListenerPort: getEnv("LISTENER_PORT", "8082"),

		MaxRetries: getEnvAsInt("MAX_RETRIES", 3),
		RetryDelay: time.Duration(getEnvAsInt("RETRY_DELAY_MS", 1000)) * time.Millisecond,

		WebDir:  getEnv("WEB_DIR", "./web"),
		WebPort: getEnv("WEB_PORT", "8000"),
		APIURL:  strings.TrimRight(getEnv("API_URL", "http://localhost:8080"), "/"),
	}
}

// RedisAddr returns host:port for the redis client.
func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return result
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	result, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return result
}

// getEnvAsDuration accepts Go durations ("90s") or a bare number of seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}

// getEnvAsList splits a comma-separated value, dropping blanks.
func getEnvAsList(key, defaultValue string) []string {
	raw := strings.Split(getEnv(key, defaultValue), ",")
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
