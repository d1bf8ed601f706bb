package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weatho/weatho/internal/weather"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10*time.Minute, cfg.CacheDuration)
	assert.Equal(t, 5*time.Minute, cfg.StaleDuration)
	assert.Equal(t, time.Minute, cfg.PollInterval)
	assert.Equal(t, weather.DefaultLocation(), cfg.DefaultLocation)
	assert.Equal(t, "8080", cfg.Port)
	assert.False(t, cfg.UseStatic)
}

func TestLoadDurationOverrides(t *testing.T) {
	t.Setenv("CACHE_DURATION", "30m")
	t.Setenv("STALE_DURATION", "2m")
	t.Setenv("POLL_INTERVAL", "15s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 30*time.Minute, cfg.CacheDuration)
	assert.Equal(t, 2*time.Minute, cfg.StaleDuration)
	assert.Equal(t, 15*time.Second, cfg.PollInterval)
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("CACHE_DURATION", "soon")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadDefaultLocationOverride(t *testing.T) {
	t.Setenv("DEFAULT_LOCATION_LAT", "35.6762")
	t.Setenv("DEFAULT_LOCATION_LON", "139.6503")
	t.Setenv("DEFAULT_LOCATION_NAME", "Tokyo")
	t.Setenv("DEFAULT_LOCATION_COUNTRY", "JP")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 35.6762, cfg.DefaultLocation.Lat)
	assert.Equal(t, 139.6503, cfg.DefaultLocation.Lon)
	assert.Equal(t, "Tokyo", cfg.DefaultLocation.Name)
	assert.Equal(t, "JP", cfg.DefaultLocation.Country)
}

func TestLoadDefaultLocationRequiresBothCoords(t *testing.T) {
	t.Setenv("DEFAULT_LOCATION_LAT", "35.6762")

	_, err := Load()
	assert.Error(t, err)
}
