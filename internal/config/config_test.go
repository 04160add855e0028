package config

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg := FromEnv(envOf(nil))

	assert.Equal(t, "http://localhost:8000/api/v1", cfg.APIBaseURL)
	assert.Equal(t, "ws://localhost:8000/api/v1/telemetry/ws", cfg.WSBaseURL)
	assert.Equal(t, SourceLive, cfg.DataSource)
	assert.Equal(t, 15*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, time.Second, cfg.ReconnectBase)
	assert.Equal(t, 30*time.Second, cfg.ReconnectMax)
	assert.Equal(t, 10, cfg.ReconnectAttempts)
	assert.Equal(t, "aero_console", cfg.MongoDB)
	assert.NotEmpty(t, cfg.StateDir)
	assert.Empty(t, cfg.MongoURI)
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg := FromEnv(envOf(map[string]string{
		"AERO_API_BASE_URL":       "https://ops.example.com/api/v1/",
		"AERO_DATA_SOURCE":        "MQTT",
		"AERO_HTTP_TIMEOUT":       "5s",
		"AERO_RECONNECT_ATTEMPTS": "3",
		"AERO_ORG_ID":             "org-9",
	}))

	assert.Equal(t, "https://ops.example.com/api/v1", cfg.APIBaseURL)
	assert.Equal(t, SourceMQTT, cfg.DataSource)
	assert.Equal(t, 5*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 3, cfg.ReconnectAttempts)
	assert.Equal(t, "org-9", cfg.OrgID)
}

func TestFromEnv_InvalidValuesFallBack(t *testing.T) {
	cfg := FromEnv(envOf(map[string]string{
		"AERO_HTTP_TIMEOUT":       "soon",
		"AERO_RECONNECT_MAX":      "-1s",
		"AERO_RECONNECT_ATTEMPTS": "many",
		"AERO_DATA_SOURCE":        "carrier-pigeon",
	}))

	assert.Equal(t, 15*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 30*time.Second, cfg.ReconnectMax)
	assert.Equal(t, 10, cfg.ReconnectAttempts)
	assert.Equal(t, SourceLive, cfg.DataSource)
}

func TestFromEnv_MockModeWins(t *testing.T) {
	cfg := FromEnv(envOf(map[string]string{"AERO_DATA_SOURCE": "mqtt", "AERO_MOCK_MODE": "true"}))
	assert.Equal(t, SourceMock, cfg.DataSource)
}

func TestConfigureLogger(t *testing.T) {
	logger := logrus.New()
	require.NoError(t, Config{LogLevel: "debug", LogFormat: "json"}.ConfigureLogger(logger))
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	assert.Error(t, Config{LogLevel: "loud"}.ConfigureLogger(logger))
}
