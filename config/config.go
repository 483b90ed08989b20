package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Broker
	BrokerURL string
	Username  string
	Password  string
	AMQPURL   string

	// Run
	ConfigPath  string
	Wait        time.Duration
	HTTPTimeout time.Duration

	// Outputs
	MetricsFile string
	JournalType string
	JournalPath string

	// Daemon
	ListenAddr      string
	Interval        time.Duration
	ApiUsername     string
	ApiPassword     string
	ApiPasswordHash string
	JwtSecret       string

	Version string

	// Logging
	LogLevel string
}

// LoadConfig loads configuration from .env file, environment variables, or defaults
// Priority: environment variables > .env file > default values
func LoadConfig(version string) *Config {
	// Try to load .env file (ignore error if file doesn't exist)
	_ = godotenv.Load()

	return &Config{
		BrokerURL: getEnv("OTTERCONF_BROKER_URL", "http://localhost:15672"),
		Username:  getEnv("OTTERCONF_USERNAME", "guest"),
		Password:  getEnv("OTTERCONF_PASSWORD", "guest"),
		AMQPURL:   getEnv("OTTERCONF_AMQP_URL", ""),

		ConfigPath:  getEnv("OTTERCONF_CONFIG_PATH", "broker.yaml"),
		Wait:        getEnvAsSeconds("OTTERCONF_WAIT", 0),
		HTTPTimeout: getEnvAsSeconds("OTTERCONF_HTTP_TIMEOUT", 30*time.Second),

		MetricsFile: getEnv("OTTERCONF_METRICS_FILE", ""),
		JournalType: getEnv("OTTERCONF_JOURNAL_TYPE", "sqlite"),
		JournalPath: getEnv("OTTERCONF_JOURNAL_PATH", ""),

		ListenAddr:      getEnv("OTTERCONF_LISTEN_ADDR", ":8080"),
		Interval:        getEnvAsSeconds("OTTERCONF_INTERVAL", 5*time.Minute),
		ApiUsername:     getEnv("OTTERCONF_API_USERNAME", "admin"),
		ApiPassword:     getEnv("OTTERCONF_API_PASSWORD", ""),
		ApiPasswordHash: getEnv("OTTERCONF_API_PASSWORD_HASH", ""),
		JwtSecret:       getEnv("OTTERCONF_JWT_SECRET", ""),
		Version:         version,

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsSeconds reads a whole number of seconds. Negative values are invalid.
func getEnvAsSeconds(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil || value < 0 {
		fmt.Printf("Warning: Invalid value for %s: %s, using default: %s\n", key, valueStr, defaultValue)
		return defaultValue
	}
	return time.Duration(value) * time.Second
}
