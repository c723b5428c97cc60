package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefault_IsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, 15*time.Minute, c.SessionTTL())
	assert.Equal(t, 48*time.Hour, c.TradeQueueTTL())
}

func TestLoad_OverlaysDefaults(t *testing.T) {
	path := writeConfig(t, `
environment: staging
server:
  port: 9100
backtest:
  years: 3
live:
  session_minutes: 5
`)
	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "staging", c.Environment)
	assert.Equal(t, 9100, c.Server.Port)
	assert.Equal(t, 3, c.Backtest.Years)
	assert.Equal(t, 504, c.Backtest.TrainDays)
	assert.Equal(t, 5*time.Minute, c.SessionTTL())
}

func TestLoad_RejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"step":        "backtest:\n  step_days: 0\n",
		"source":      "data:\n  source: csv\n",
		"session":     "live:\n  session_minutes: 0\n",
		"environment": "environment: \"\"\n",
		"remote":      "analytics:\n  mode: remote\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadWithEnv_Overrides(t *testing.T) {
	t.Setenv("LIVE_UNLOCK_PIN", "2468")
	t.Setenv("HTTP_PORT", "8181")
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	c, err := LoadWithEnv(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "2468", c.Live.PIN)
	assert.Equal(t, 8181, c.Server.Port)
	assert.True(t, c.Redis.Enabled)
	assert.Equal(t, "cache", c.Redis.Host)
	assert.Equal(t, 6380, c.Redis.Port)
	assert.True(t, c.Kafka.Enabled)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Kafka.Brokers)
}

func TestLoadWithEnv_BadPort(t *testing.T) {
	t.Setenv("HTTP_PORT", "eighty")
	_, err := LoadWithEnv(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestPINNeverReadFromYAML(t *testing.T) {
	path := writeConfig(t, "live:\n  pin: \"1234\"\n")
	c, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, c.Live.PIN)
}
