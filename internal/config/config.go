package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig captures all tunable parameters for the HTTP API process.
// Values come from environment variables (or an optional config file named
// by CONFIG_FILE) with defaults good enough to run locally on fixtures.
type ServerConfig struct {
	HTTPAddr        string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	RedisAddr       string
	RedisPassword   string
	RedisOffersKey  string
	RedisPendingKey string
	RedisCacheTTL   time.Duration

	KafkaBrokers     []string
	KafkaEventsTopic string

	PGDSN         string
	RunMigrations bool
	MigrationsDir string

	FixturesFile string

	LogLevel  string
	LogFormat string
}

// ConsumerConfig drives cmd/consumer, which feeds ride requests into redis.
type ConsumerConfig struct {
	MetricsAddr        string
	KafkaBrokers       []string
	KafkaRequestsTopic string
	KafkaGroup         string
	RedisAddr          string
	RedisPassword      string
	RedisPendingKey    string
	LogLevel           string
	LogFormat          string
}

var defaults = map[string]any{
	"HTTP_ADDR":             ":8080",
	"HTTP_READ_TIMEOUT":     "5s",
	"HTTP_WRITE_TIMEOUT":    "10s",
	"HTTP_IDLE_TIMEOUT":     "120s",
	"HTTP_SHUTDOWN_TIMEOUT": "15s",
	"REDIS_OFFERS_KEY":      "catalog:offers",
	"REDIS_PENDING_KEY":     "ride_requests:pending",
	"REDIS_CACHE_TTL":       "1m",
	"KAFKA_EVENTS_TOPIC":    "booking-events",
	"KAFKA_REQUESTS_TOPIC":  "ride-requests",
	"KAFKA_GROUP":           "ride-dashboards-consumer",
	"MIGRATIONS_DIR":        "migrations",
	"METRICS_ADDR":          ":2112",
	"LOG_LEVEL":             "info",
	"LOG_FORMAT":            "json",
}

// New returns a viper instance reading the environment, plus the file named
// by CONFIG_FILE when set.
func New() (*viper.Viper, error) {
	v := viper.New()
	for k, d := range defaults {
		v.SetDefault(k, d)
	}
	v.AutomaticEnv()
	if path := strings.TrimSpace(v.GetString("CONFIG_FILE")); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	return v, nil
}

func LoadServerConfig(v *viper.Viper) (ServerConfig, error) {
	var errs []error
	cfg := ServerConfig{
		HTTPAddr:         str(v, "HTTP_ADDR"),
		ReadTimeout:      duration(v, "HTTP_READ_TIMEOUT", &errs),
		WriteTimeout:     duration(v, "HTTP_WRITE_TIMEOUT", &errs),
		IdleTimeout:      duration(v, "HTTP_IDLE_TIMEOUT", &errs),
		ShutdownTimeout:  duration(v, "HTTP_SHUTDOWN_TIMEOUT", &errs),
		RedisAddr:        str(v, "REDIS_ADDR"),
		RedisPassword:    v.GetString("REDIS_PASSWORD"),
		RedisOffersKey:   str(v, "REDIS_OFFERS_KEY"),
		RedisPendingKey:  str(v, "REDIS_PENDING_KEY"),
		RedisCacheTTL:    duration(v, "REDIS_CACHE_TTL", &errs),
		KafkaBrokers:     splitAndTrim(v.GetString("KAFKA_BROKERS")),
		KafkaEventsTopic: str(v, "KAFKA_EVENTS_TOPIC"),
		PGDSN:            v.GetString("PG_DSN"),
		RunMigrations:    strings.EqualFold(str(v, "MIGRATE"), "true"),
		MigrationsDir:    str(v, "MIGRATIONS_DIR"),
		FixturesFile:     str(v, "FIXTURES_FILE"),
		LogLevel:         strings.ToLower(str(v, "LOG_LEVEL")),
		LogFormat:        strings.ToLower(str(v, "LOG_FORMAT")),
	}

	if cfg.HTTPAddr == "" {
		errs = append(errs, fmt.Errorf("HTTP_ADDR must not be empty"))
	}
	if cfg.RedisCacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("REDIS_CACHE_TTL must be > 0"))
	}
	if cfg.RunMigrations && cfg.PGDSN == "" {
		errs = append(errs, fmt.Errorf("MIGRATE=true requires PG_DSN"))
	}
	if err := checkFormat(cfg.LogFormat); err != nil {
		errs = append(errs, err)
	}

	return cfg, errors.Join(errs...)
}

func LoadConsumerConfig(v *viper.Viper) (ConsumerConfig, error) {
	var errs []error
	cfg := ConsumerConfig{
		MetricsAddr:        str(v, "METRICS_ADDR"),
		KafkaBrokers:       splitAndTrim(v.GetString("KAFKA_BROKERS")),
		KafkaRequestsTopic: str(v, "KAFKA_REQUESTS_TOPIC"),
		KafkaGroup:         str(v, "KAFKA_GROUP"),
		RedisAddr:          str(v, "REDIS_ADDR"),
		RedisPassword:      v.GetString("REDIS_PASSWORD"),
		RedisPendingKey:    str(v, "REDIS_PENDING_KEY"),
		LogLevel:           strings.ToLower(str(v, "LOG_LEVEL")),
		LogFormat:          strings.ToLower(str(v, "LOG_FORMAT")),
	}
	if len(cfg.KafkaBrokers) == 0 {
		cfg.KafkaBrokers = []string{"localhost:9092"}
	}
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = "localhost:6379"
	}
	if err := checkFormat(cfg.LogFormat); err != nil {
		errs = append(errs, err)
	}
	return cfg, errors.Join(errs...)
}

func checkFormat(f string) error {
	switch f {
	case "json", "text":
		return nil
	}
	return fmt.Errorf("LOG_FORMAT must be json or text, got %q", f)
}

func duration(v *viper.Viper, key string, errs *[]error) time.Duration {
	raw := str(v, key)
	if raw == "" {
		return 0
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s: %w", key, err))
		return 0
	}
	return d
}

func str(v *viper.Viper, key string) string {
	return strings.TrimSpace(v.GetString(key))
}

func splitAndTrim(v string) []string {
	raw := strings.Split(v, ",")
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		out = append(out, r)
	}
	return out
}
