package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/weatho/weatho/internal/weather"
)

type AppConfig struct {
	OpenWeatherAPIKey string

	// Storage backend: Redis when RedisURL is set, files otherwise.
	RedisURL   string
	StorageDir string

	// Refresh timings.
	CacheDuration time.Duration
	StaleDuration time.Duration
	PollInterval  time.Duration

	// Fallback location when geolocation fails.
	DefaultLocation weather.Location

	// Geolocation resolution.
	GeolocationTimeout time.Duration
	GeolocationMaxAge  time.Duration

	// Optional pinned coordinates; when set, device geolocation is skipped.
	StaticLat float64
	StaticLon float64
	UseStatic bool

	Port string
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")

	cfg.RedisURL = os.Getenv("REDIS_URL")
	cfg.StorageDir = getenvDefault("STORAGE_DIR", "data")

	cacheDur, err := getenvDuration("CACHE_DURATION", "10m")
	if err != nil {
		return nil, err
	}
	cfg.CacheDuration = cacheDur

	staleDur, err := getenvDuration("STALE_DURATION", "5m")
	if err != nil {
		return nil, err
	}
	cfg.StaleDuration = staleDur

	pollInterval, err := getenvDuration("POLL_INTERVAL", "60s")
	if err != nil {
		return nil, err
	}
	cfg.PollInterval = pollInterval

	defaultLoc, err := loadDefaultLocation()
	if err != nil {
		return nil, err
	}
	cfg.DefaultLocation = defaultLoc

	geoTimeout, err := getenvDuration("GEOLOCATION_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	cfg.GeolocationTimeout = geoTimeout

	geoMaxAge, err := getenvDuration("GEOLOCATION_MAX_AGE", "5m")
	if err != nil {
		return nil, err
	}
	cfg.GeolocationMaxAge = geoMaxAge

	latStr := os.Getenv("WEATHER_LATITUDE")
	lonStr := os.Getenv("WEATHER_LONGITUDE")
	if latStr != "" && lonStr != "" {
		lat, latErr := strconv.ParseFloat(latStr, 64)
		lon, lonErr := strconv.ParseFloat(lonStr, 64)
		if latErr != nil || lonErr != nil {
			return nil, fmt.Errorf("invalid WEATHER_LATITUDE/WEATHER_LONGITUDE")
		}
		cfg.StaticLat = lat
		cfg.StaticLon = lon
		cfg.UseStatic = true
	}

	cfg.Port = getenvDefault("PORT", "8080")

	return cfg, nil
}

// loadDefaultLocation starts from the stock fallback and applies any
// per-field overrides from the environment.
func loadDefaultLocation() (weather.Location, error) {
	loc := weather.DefaultLocation()

	latStr := os.Getenv("DEFAULT_LOCATION_LAT")
	lonStr := os.Getenv("DEFAULT_LOCATION_LON")
	if latStr != "" || lonStr != "" {
		if latStr == "" || lonStr == "" {
			return weather.Location{}, fmt.Errorf("DEFAULT_LOCATION_LAT and DEFAULT_LOCATION_LON must be set together")
		}
		lat, latErr := strconv.ParseFloat(latStr, 64)
		lon, lonErr := strconv.ParseFloat(lonStr, 64)
		if latErr != nil || lonErr != nil {
			return weather.Location{}, fmt.Errorf("invalid DEFAULT_LOCATION_LAT/DEFAULT_LOCATION_LON")
		}
		loc.Lat = lat
		loc.Lon = lon
	}

	if name := os.Getenv("DEFAULT_LOCATION_NAME"); name != "" {
		loc.Name = name
	}
	if country := os.Getenv("DEFAULT_LOCATION_COUNTRY"); country != "" {
		loc.Country = country
	}

	return loc, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
