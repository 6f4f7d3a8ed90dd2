// Package config reads runtime settings from the environment (and an optional
// .env file) for the MCP server, the chat server and the CLI.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Cart backends accepted by CART_BACKEND.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

type Config struct {
	MedusaURL      string
	PublishableKey string
	OrderEmail     string

	MCPAddr  string
	LogLevel string

	CartBackend     string
	RedisAddr       string
	RedisPassword   string
	CartDBPath      string
	CartAutoClose   time.Duration
	ShutdownTimeout time.Duration

	Twilio TwilioConfig

	ChatAddr     string
	ChatDBPath   string
	ChatModel    string
	ChatHistory  int
	MCPServerURL string
}

// TwilioConfig is only considered usable when every field is set.
type TwilioConfig struct {
	AccountSID  string
	AuthToken   string
	PhoneNumber string
	NotifyTo    string
}

func (t TwilioConfig) Configured() bool {
	return t.AccountSID != "" && t.AuthToken != "" && t.PhoneNumber != "" && t.NotifyTo != ""
}

// Load loads .env (when present) and builds Config with defaults, overridden
// by environment variables.
func Load() Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds Config from the current environment only.
func FromEnv() Config {
	return Config{
		MedusaURL:      getEnv("MEDUSA_BACKEND_URL", "http://localhost:9000"),
		PublishableKey: getEnv("MEDUSA_PUBLISHABLE_KEY", "publishableApiKey"),
		OrderEmail:     getEnv("ORDER_EMAIL", "orders@example.com"),

		MCPAddr:  getEnv("MCP_ADDR", ":8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		CartBackend:     strings.ToLower(getEnv("CART_BACKEND", BackendMemory)),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		CartDBPath:      getEnv("CART_DB_PATH", "./cart.db"),
		CartAutoClose:   envDuration("CART_AUTO_CLOSE", 5*time.Second),
		ShutdownTimeout: envDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		Twilio: TwilioConfig{
			AccountSID:  getEnv("TWILIO_ACCOUNT_SID", ""),
			AuthToken:   getEnv("TWILIO_AUTH_TOKEN", ""),
			PhoneNumber: getEnv("TWILIO_PHONE_NUMBER", ""),
			NotifyTo:    getEnv("ORDER_NOTIFY_PHONE", ""),
		},

		ChatAddr:     getEnv("CHAT_SERVER_ADDR", ":8090"),
		ChatDBPath:   getEnv("CHAT_DB_PATH", "./chat_history.db"),
		ChatModel:    getEnv("CHAT_MODEL", "gpt-4o"),
		ChatHistory:  envInt("CHAT_HISTORY_SIZE", 10),
		MCPServerURL: getEnv("MCP_SERVER_URL", "http://localhost:8080"),
	}
}

// getEnv returns the value of the environment variable or a default.
func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// envDuration accepts Go durations ("5s") or a bare number of seconds.
func envDuration(key string, def time.Duration) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if seconds, err := strconv.Atoi(v); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return def
}

func envInt(key string, def int) int {
	if n, err := strconv.Atoi(getEnv(key, "")); err == nil && n > 0 {
		return n
	}
	return def
}
