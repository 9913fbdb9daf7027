package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server struct {
		Port    string
		Env     string
		Timeout time.Duration
		BaseURL string
	}

	// Database configuration
	Database struct {
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		SSLMode  string
		MaxConns int
		Timeout  time.Duration
	}

	// Session token configuration
	Session struct {
		Secret      string
		CookieName  string
		TokenExpiry time.Duration // zero disables expiry
		Secure      bool
	}

	// Chat configuration
	Chat struct {
		DefaultPageSize int
		MaxPageSize     int
		MaxContentBytes int
		// LiveFeedRequiresSession tightens the live feed to authenticated
		// clients. The default mirrors the public-read behavior the chat
		// always had: anyone who knows a chat id may watch it.
		LiveFeedRequiresSession bool
		SubscriberBuffer        int
	}

	// Broker configuration
	Broker struct {
		Backend   string // "memory" or "redis"
		RedisAddr string
		RedisDB   int
	}

	// WebSocket configuration
	WebSocket struct {
		WriteWait      time.Duration
		PongWait       time.Duration
		MaxMessageSize int64
	}

	// Security configuration
	Security struct {
		RateLimit      float64
		RateLimitBurst int
		AllowedOrigins []string
		TrustedProxies []string
	}

	// Logging configuration
	Logging struct {
		Level  string
		Format string
	}

	// Cache settings
	Cache struct {
		Enabled     bool
		TTL         time.Duration
		MaxSize     int
		PurgeWindow time.Duration
	}
}

var (
	instance *Config
	once     sync.Once
)

// New creates a new Config instance with values from environment variables
// Uses singleton pattern to ensure only one instance exists
func New() *Config {
	once.Do(func() {
		// Load .env file if exists
		godotenv.Load()

		instance = &Config{}

		// Server config
		instance.Server.Port = getEnvString("PORT", "8081")
		instance.Server.Env = getEnvString("APP_ENV", "development")
		instance.Server.Timeout = getEnvDuration("SERVER_TIMEOUT", 30*time.Second)
		instance.Server.BaseURL = getEnvString("BASE_URL", "http://localhost:"+instance.Server.Port)

		// Database config
		instance.Database.Host = getEnvString("DB_HOST", "localhost")
		instance.Database.Port = getEnvString("DB_PORT", "5432")
		instance.Database.User = getEnvString("DB_USER", "postgres")
		instance.Database.Password = getEnvString("DB_PASSWORD", "postgres")
		instance.Database.Name = getEnvString("DB_NAME", "flight-chat")
		instance.Database.SSLMode = getEnvString("DB_SSL_MODE", "disable")
		instance.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 20)
		instance.Database.Timeout = getEnvDuration("DB_TIMEOUT", 5*time.Second)

		// Session config
		instance.Session.Secret = getEnvString("SESSION_SECRET", "default-session-secret-do-not-use-in-production")
		instance.Session.CookieName = getEnvString("SESSION_COOKIE_NAME", "session")
		instance.Session.TokenExpiry = getEnvDuration("SESSION_TOKEN_EXPIRY", 30*24*time.Hour)
		instance.Session.Secure = getEnvBool("SESSION_COOKIE_SECURE", instance.Server.Env == "production")

		// Chat config
		instance.Chat.DefaultPageSize = getEnvInt("CHAT_DEFAULT_PAGE_SIZE", 50)
		instance.Chat.MaxPageSize = getEnvInt("CHAT_MAX_PAGE_SIZE", 200)
		instance.Chat.MaxContentBytes = getEnvInt("CHAT_MAX_CONTENT_BYTES", 4096)
		instance.Chat.LiveFeedRequiresSession = getEnvBool("LIVE_FEED_REQUIRES_SESSION", false)
		instance.Chat.SubscriberBuffer = getEnvInt("CHAT_SUBSCRIBER_BUFFER", 64)

		// Broker config
		instance.Broker.Backend = getEnvString("BROKER_BACKEND", "memory")
		instance.Broker.RedisAddr = getEnvString("REDIS_URL", "localhost:6379")
		instance.Broker.RedisDB = getEnvInt("REDIS_DB", 0)

		// WebSocket config
		instance.WebSocket.WriteWait = getEnvDuration("WS_WRITE_WAIT", 10*time.Second)
		instance.WebSocket.PongWait = getEnvDuration("WS_PONG_WAIT", 60*time.Second)
		instance.WebSocket.MaxMessageSize = getEnvInt64("WS_MAX_MESSAGE_SIZE", 4096)

		// Security config
		instance.Security.RateLimit = float64(getEnvInt("RATE_LIMIT", 5))
		instance.Security.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", 10)
		instance.Security.AllowedOrigins = getEnvStringSlice("ALLOWED_ORIGINS", []string{"*"})
		instance.Security.TrustedProxies = getEnvStringSlice("TRUSTED_PROXIES", []string{"127.0.0.1"})

		// Logging config
		instance.Logging.Level = getEnvString("LOG_LEVEL", "info")
		instance.Logging.Format = getEnvString("LOG_FORMAT", "json")

		// Cache settings
		instance.Cache.Enabled = getEnvBool("CACHE_ENABLED", true)
		instance.Cache.TTL = getEnvDuration("CACHE_TTL", 5*time.Minute)
		instance.Cache.MaxSize = getEnvInt("CACHE_MAX_SIZE", 1000)
		instance.Cache.PurgeWindow = getEnvDuration("CACHE_PURGE_WINDOW", 10*time.Minute)
	})

	return instance
}

// Get returns the singleton Config instance
func Get() *Config {
	if instance == nil {
		return New()
	}
	return instance
}

// Helper functions to read environment variables with default values

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
