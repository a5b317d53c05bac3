// Package config reads the storefront's settings from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPPort           string
	GRPCPort           string
	MongoURI           string
	MongoDBName        string
	RedisAddr          string
	RedisPassword      string
	KafkaBrokers       []string
	CheckoutTopic      string
	CheckoutDelay      time.Duration
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	LogLevel           string
	TracingEnabled     bool
	PublicBaseURL      string
	MaxRequestBodySize int64
	MaxUploadSize      int64
}

// KafkaEnabled reports whether checkouts go to a broker instead of the simulated submitter.
func (c Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func atoiEnv(key string, def int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return def
	}
	return n
}

func durEnv(key string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil {
		return def
	}
	return d
}

func csvEnv(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func Load() Config {
	return Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		GRPCPort:           getEnv("GRPC_PORT", "50060"),
		MongoURI:           getEnv("MONGO_URI", "mongodb://localhost:27017/?directConnection=true"),
		MongoDBName:        getEnv("MONGO_DB_NAME", "storefront"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		KafkaBrokers:       csvEnv("KAFKA_BROKERS"),
		CheckoutTopic:      getEnv("CHECKOUT_TOPIC", "checkout-completed"),
		CheckoutDelay:      time.Duration(atoiEnv("CHECKOUT_DELAY_MS", 1500)) * time.Millisecond,
		RequestTimeout:     durEnv("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout:    durEnv("SHUTDOWN_TIMEOUT", 10*time.Second),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		TracingEnabled:     os.Getenv("ENABLE_TRACING") == "1",
		PublicBaseURL:      getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		MaxRequestBodySize: 1 << 20,  // 1MB
		MaxUploadSize:      10 << 20, // 10MB
	}
}
