package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lumenrelay/sfu-core/internal/config"
)

func TestLoadConfig_Defaults(t *testing.T) {
	for _, key := range []string{
		"SFU_HOST", "SFU_SIGNALING_PORT", "SFU_MAX_ROOMS", "REDIS_ADDR", "LOG_LEVEL",
	} {
		os.Unsetenv(key)
	}

	cfg := config.LoadConfig()

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 4001, cfg.Server.Port)
	assert.Equal(t, 1000, cfg.Server.MaxRooms)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, -80.0, cfg.MediaWorker.AudioLevelThreshold)
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	os.Setenv("SFU_HOST", "127.0.0.1")
	os.Setenv("SFU_SIGNALING_PORT", "9999")
	os.Setenv("METRICS_ENABLED", "false")
	defer os.Unsetenv("SFU_HOST")
	defer os.Unsetenv("SFU_SIGNALING_PORT")
	defer os.Unsetenv("METRICS_ENABLED")

	cfg := config.LoadConfig()

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestLoadConfig_InvalidIntFallsBackToDefault(t *testing.T) {
	os.Setenv("SFU_MAX_ROOMS", "not-a-number")
	defer os.Unsetenv("SFU_MAX_ROOMS")

	cfg := config.LoadConfig()
	assert.Equal(t, 1000, cfg.Server.MaxRooms)
}
