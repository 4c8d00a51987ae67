package util

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig(filepath.Join(t.TempDir(), "app.env"))
	require.NoError(t, err)

	assert.Equal(t, []string{"*"}, config.AllowedOrigins)
	assert.Equal(t, BrokerDriverRedis, config.BrokerDriver)
	assert.Equal(t, 2*time.Hour, config.DrawTTL)
	assert.Equal(t, 15*time.Second, config.KeepAliveInterval)
	assert.Equal(t, 500*time.Millisecond, config.SimulatorDelay)
	assert.Equal(t, "Asia/Ho_Chi_Minh", config.Timezone)
	assert.Equal(t, 100, config.InitialRateLimit)
	assert.Equal(t, time.Minute, config.InitialRateWindow)
	assert.Equal(t, 5000, config.StreamRateLimit)
	assert.Equal(t, 15*time.Minute, config.StreamRateWindow)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.env")
	content := "REDIS_URL=redis://cache:6379/1\nDRAW_TIME=18:30\nKEEP_ALIVE_INTERVAL=5s\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("DRAW_TIME", "19:00")

	config, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "redis://cache:6379/1", config.RedisURL)
	assert.Equal(t, 5*time.Second, config.KeepAliveInterval)
	assert.Equal(t, "19:00", config.DrawTime)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.env")

	t.Setenv("BROKER_DRIVER", "kafka")
	_, err := LoadConfig(path)
	assert.Error(t, err)

	t.Setenv("BROKER_DRIVER", BrokerDriverRedis)
	t.Setenv("DRAW_TIME", "6pm")
	_, err = LoadConfig(path)
	assert.Error(t, err)
}

func TestParseClock(t *testing.T) {
	hour, minute, err := ParseClock("18:15")
	require.NoError(t, err)
	assert.Equal(t, uint(18), hour)
	assert.Equal(t, uint(15), minute)

	_, _, err = ParseClock("25:00")
	assert.Error(t, err)
}

func TestLoadLocationFallback(t *testing.T) {
	loc := LoadLocation("Nowhere/Invalid")
	_, offset := time.Date(2025, 1, 1, 0, 0, 0, 0, loc).Zone()
	assert.Equal(t, 7*60*60, offset)
}
