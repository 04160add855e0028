package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Data source names.
const (
	SourceLive = "live"
	SourceMock = "mock"
	SourceMQTT = "mqtt"
)

// Config holds the console's runtime settings.
type Config struct {
	APIBaseURL    string
	WSBaseURL     string
	MQTTBrokerURL string
	DataSource    string

	HTTPTimeout       time.Duration
	ReconnectBase     time.Duration
	ReconnectMax      time.Duration
	ReconnectAttempts int

	StateDir    string
	StateSecret string
	MongoURI    string
	MongoDB     string

	LogLevel  string
	LogFormat string
	OrgID     string
}

// Load reads .env (if present) and the environment.
func Load() Config {
	// A missing .env file is normal outside development.
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv, applying defaults for unset or
// unparsable values.
func FromEnv(getenv func(string) string) Config {
	str := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}
	dur := func(key string, def time.Duration) time.Duration {
		if v := getenv(key); v != "" {
			if parsed, err := time.ParseDuration(v); err == nil && parsed > 0 {
				return parsed
			}
		}
		return def
	}
	num := func(key string, def int) int {
		if v := getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				return n
			}
		}
		return def
	}

	cfg := Config{
		APIBaseURL:        strings.TrimRight(str("AERO_API_BASE_URL", "http://localhost:8000/api/v1"), "/"),
		WSBaseURL:         str("AERO_WS_BASE_URL", "ws://localhost:8000/api/v1/telemetry/ws"),
		MQTTBrokerURL:     str("AERO_MQTT_BROKER_URL", "ws://localhost:8083/mqtt"),
		DataSource:        strings.ToLower(str("AERO_DATA_SOURCE", SourceLive)),
		HTTPTimeout:       dur("AERO_HTTP_TIMEOUT", 15*time.Second),
		ReconnectBase:     dur("AERO_RECONNECT_BASE", time.Second),
		ReconnectMax:      dur("AERO_RECONNECT_MAX", 30*time.Second),
		ReconnectAttempts: num("AERO_RECONNECT_ATTEMPTS", 10),
		StateDir:          str("AERO_STATE_DIR", defaultStateDir()),
		StateSecret:       getenv("AERO_STATE_SECRET"),
		MongoURI:          getenv("MONGO_URI"),
		MongoDB:           str("MONGO_DB", "aero_console"),
		LogLevel:          str("AERO_LOG_LEVEL", "info"),
		LogFormat:         str("AERO_LOG_FORMAT", "text"),
		OrgID:             getenv("AERO_ORG_ID"),
	}
	if mock, err := strconv.ParseBool(getenv("AERO_MOCK_MODE")); err == nil && mock {
		cfg.DataSource = SourceMock
	}
	switch cfg.DataSource {
	case SourceLive, SourceMock, SourceMQTT:
	default:
		cfg.DataSource = SourceLive
	}
	return cfg
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".aero-console"
	}
	return filepath.Join(home, ".aero-console")
}

// ConfigureLogger applies the level and format to logger.
func (c Config) ConfigureLogger(logger *log.Logger) error {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	logger.SetLevel(level)
	if c.LogFormat == "json" {
		logger.SetFormatter(&log.JSONFormatter{})
	} else {
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}
