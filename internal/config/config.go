package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	// Application
	Version     string
	Environment string
	WorkerID    string
	Port        int
	LogLevel    string

	// Logdy (lightweight web log viewer)
	LogdyEnabled bool
	LogdyHost    string
	LogdyPort    int

	// Video source (file path, RTSP URL or device index)
	Source string

	// Detection
	DetectorEndpoint string
	DetectorTimeout  time.Duration
	ConfThreshold    float64
	TargetClasses    []int // class id allow-list; empty = accept everything

	// Alert debounce
	ConsecutiveThreshold int
	AlertCooldown        time.Duration

	// Dashboard
	DashboardEnabled bool
	PendingLimit     int

	// Telegram bot channel
	TelegramEnabled      bool
	TelegramBotToken     string
	TelegramChatID       int64
	TelegramPollTimeout  time.Duration
	TelegramSendTimeout  time.Duration
	TelegramErrorBackoff time.Duration

	// NATS alert fan-out
	NatsEnabled        bool
	NatsURL            string
	NatsConnectTimeout time.Duration
	NatsReconnectWait  time.Duration
	NatsMaxReconnects  int
	NatsDrainTimeout   time.Duration
	AlertsSubject      string

	// Snapshot encoding
	OutputQuality int // JPEG quality (1-100)

	// Graceful Shutdown
	ShutdownTimeout time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file found or error loading .env file, using environment variables and defaults")
	} else {
		log.Info().Msg("Loaded configuration from .env file")
	}

	return &Config{
		// Application
		Version:     getEnv("VERSION", "1.0.0"),
		Environment: getEnv("ENVIRONMENT", "development"),
		WorkerID:    getEnv("WORKER_ID", "firewatch-1"),
		Port:        getEnvInt("PORT", 8000),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Logdy (lightweight web log viewer)
		LogdyEnabled: getEnvBool("LOGDY_ENABLED", false),
		LogdyHost:    getEnv("LOGDY_HOST", "localhost"),
		LogdyPort:    getEnvInt("LOGDY_PORT", 8080),

		// Video source
		Source: getEnv("SOURCE", "./samples/video.mp4"),

		// Detection
		DetectorEndpoint: getEnv("DETECTOR_ENDPOINT", "http://localhost:9000/detect"),
		DetectorTimeout:  getEnvDuration("DETECTOR_TIMEOUT", 10*time.Second),
		ConfThreshold:    getEnvFloat("CONF_THRESH", 0.25),
		TargetClasses:    getEnvIntList("TARGET_CLASSES", nil),

		// Alert debounce
		ConsecutiveThreshold: getEnvInt("CONSECUTIVE_THRESHOLD", 3),
		AlertCooldown:        getEnvDuration("ALERT_COOLDOWN", 30*time.Second),

		// Dashboard
		DashboardEnabled: getEnvBool("DASHBOARD_ENABLED", true),
		PendingLimit:     getEnvInt("PENDING_LIMIT", 50),

		// Telegram bot channel
		TelegramEnabled:      getEnvBool("TELEGRAM_ENABLED", false),
		TelegramBotToken:     getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:       getEnvInt64("TELEGRAM_CHAT_ID", 0),
		TelegramPollTimeout:  getEnvDuration("TELEGRAM_POLL_TIMEOUT", 30*time.Second),
		TelegramSendTimeout:  getEnvDuration("TELEGRAM_SEND_TIMEOUT", 30*time.Second),
		TelegramErrorBackoff: getEnvDuration("TELEGRAM_ERROR_BACKOFF", 5*time.Second),

		// NATS (configured for Docker Compose setup)
		NatsEnabled:        getEnvBool("NATS_ENABLED", false),
		NatsURL:            getNatsURL(),
		NatsConnectTimeout: getEnvDuration("NATS_CONNECT_TIMEOUT", 10*time.Second),
		NatsReconnectWait:  getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		NatsMaxReconnects:  getEnvInt("NATS_MAX_RECONNECTS", -1), // -1 = unlimited
		NatsDrainTimeout:   getEnvDuration("NATS_DRAIN_TIMEOUT", 5*time.Second),
		AlertsSubject:      getEnv("ALERTS_SUBJECT", "alerts.fire"),

		// Snapshot encoding
		OutputQuality: getEnvInt("OUTPUT_QUALITY", 85),

		// Graceful Shutdown
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvIntList parses a comma-separated list of integers, e.g. "0,1".
// Unparseable entries are skipped with a warning.
func getEnvIntList(key string, defaultValue []int) []int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parts := strings.Split(value, ",")
	result := make([]int, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		parsed, err := strconv.Atoi(part)
		if err != nil {
			log.Warn().Str("key", key).Str("value", part).Msg("Skipping unparseable class id")
			continue
		}
		result = append(result, parsed)
	}
	return result
}

// Helper functions for Docker environment detection
func isRunningInDocker() bool {
	// Check for Docker-specific environment indicators
	if os.Getenv("DOCKER_CONTAINER") == "true" {
		return true
	}

	// Check for .dockerenv file
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}

	return false
}

// getNatsURL returns the appropriate NATS URL based on environment
func getNatsURL() string {
	if envURL := os.Getenv("NATS_URL"); envURL != "" {
		return envURL
	}

	// If running in Docker, use service name; otherwise use localhost
	if isRunningInDocker() {
		return "nats://nats:4222"
	}

	return "nats://localhost:4222"
}
