package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	httpapi "github.com/weatho/weatho/internal/api/http"
	"github.com/weatho/weatho/internal/config"
	"github.com/weatho/weatho/internal/geo"
	"github.com/weatho/weatho/internal/recent"
	"github.com/weatho/weatho/internal/storage"
	"github.com/weatho/weatho/internal/weather"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}

	// Durable backend for the recent-search list.
	var backend storage.Backend
	if cfg.RedisURL != "" {
		redisBackend, err := storage.NewRedisBackend(cfg.RedisURL, "weatho:")
		if err != nil {
			logrus.Fatalf("failed to connect storage backend: %v", err)
		}
		defer redisBackend.Close()
		backend = redisBackend
	} else {
		fileBackend, err := storage.NewFileBackend(cfg.StorageDir)
		if err != nil {
			logrus.Fatalf("failed to open storage directory: %v", err)
		}
		backend = fileBackend
	}

	store := recent.NewStore(context.Background(), backend)

	// Shared HTTP client for outbound calls.
	httpClient := &http.Client{
		Timeout: 30 * time.Second,
	}

	client := weather.NewClient(httpClient, cfg.OpenWeatherAPIKey)

	var provider geo.Provider
	if cfg.UseStatic {
		provider = &geo.StaticProvider{Position: geo.Position{Lat: cfg.StaticLat, Lon: cfg.StaticLon}}
	} else {
		provider = geo.NewIPProvider(httpClient, geo.Options{
			Timeout:    cfg.GeolocationTimeout,
			MaximumAge: cfg.GeolocationMaxAge,
		})
	}
	resolver := weather.NewResolver(provider, client, cfg.DefaultLocation)

	monitorCfg := weather.MonitorConfig{
		CacheDuration: cfg.CacheDuration,
		StaleDuration: cfg.StaleDuration,
		PollInterval:  cfg.PollInterval,
	}

	// GPS-derived locations are recorded in the recent-search store here;
	// the monitor itself never persists anything.
	monitor := weather.NewMonitor(client, resolver, monitorCfg, func(loc weather.Location, isGPS bool) {
		if isGPS {
			store.Add(loc)
		}
	})
	defer monitor.Close()

	if err := monitor.Start(); err != nil {
		logrus.Fatalf("failed to start refresh poller: %v", err)
	}

	// Initial load.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		monitor.FetchWeather(ctx, nil)
	}()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "weatho",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          45 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weatho",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, monitor, store, client)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logrus.Errorf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logrus.Errorf("error during shutdown: %v", err)
	}
}
