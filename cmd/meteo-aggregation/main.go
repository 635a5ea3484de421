package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"

	httpapi "github.com/i474232898/meteo-aggregation/internal/api/http"
	"github.com/i474232898/meteo-aggregation/internal/cache"
	"github.com/i474232898/meteo-aggregation/internal/config"
	"github.com/i474232898/meteo-aggregation/internal/events"
	"github.com/i474232898/meteo-aggregation/internal/geocode"
	"github.com/i474232898/meteo-aggregation/internal/logging"
	"github.com/i474232898/meteo-aggregation/internal/meteo"
	"github.com/i474232898/meteo-aggregation/internal/meteo/sources"
	"github.com/i474232898/meteo-aggregation/internal/scheduler"
	"github.com/i474232898/meteo-aggregation/internal/upstream"
)

const appName = "meteo-aggregation"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logging.New(cfg.AppEnv, cfg.Level, appName)
	slog.SetDefault(log)

	// Shared HTTP client for outbound upstream calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	respCache, purger, closeCache := buildCache(cfg, log)
	defer closeCache()

	newClient := func(name string, ttl time.Duration) *upstream.Client {
		opts := upstream.Options{
			HTTPClient: httpClient,
			Retry: upstream.RetryConfig{
				MaxRetries:  cfg.UpstreamRetries,
				MaxInterval: 5 * time.Second,
			},
			Logger: log,
		}
		if respCache != nil {
			opts.Cache = respCache
			opts.CacheTTL = ttl
		}
		return upstream.New(name, opts)
	}

	// One client per source so each gets its own circuit breaker.
	fetchers := meteo.Fetchers{
		Power: sources.NewPowerFetcher(
			newClient(string(meteo.SourcePower), cfg.Cache.PowerTTL), cfg.Upstreams.PowerURL),
		Forecast: sources.NewForecastFetcher(
			newClient(string(meteo.SourceForecast), cfg.Cache.OpenMeteoTTL), cfg.Upstreams.ForecastURL),
		AirQuality: sources.NewAirQualityFetcher(
			newClient(string(meteo.SourceAirQuality), cfg.Cache.OpenMeteoTTL), cfg.Upstreams.AirQualityURL),
		Pollen: sources.NewPollenFetcher(
			newClient(string(meteo.SourcePollen), cfg.Cache.OpenMeteoTTL), cfg.Upstreams.AirQualityURL),
	}
	service := meteo.NewService(fetchers, log)

	var reverser geocode.Reverser
	if cfg.GoogleGeocoderAPIKey != "" {
		reverser = geocode.NewGoogle(cfg.GoogleGeocoderAPIKey)
	} else {
		reverser = geocode.NewNominatim(newClient("nominatim", 0), cfg.Upstreams.NominatimURL, cfg.ContactEmail)
	}

	sched := scheduler.New(service, scheduler.Options{
		Locations:       cfg.Prewarm.Locations,
		PrewarmInterval: cfg.Prewarm.Interval,
		Purger:          purger,
		PurgeInterval:   cfg.Cache.PurgeInterval,
	}, log)
	if err := sched.Start(); err != nil {
		log.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               appName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		// Leave room for a full upstream timeout plus merging.
		WriteTimeout: cfg.HTTPTimeout + 5*time.Second,
		ErrorHandler: httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(requestid.New(requestid.Config{
		Generator:  uuid.NewString,
		ContextKey: "requestid",
	}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": appName,
		})
	})

	eonet := events.NewEONETClient(newClient("nasa_eonet", cfg.Cache.EONETTTL), cfg.Upstreams.EONETURL)
	httpapi.RegisterRoutes(app, httpapi.Deps{
		Meteo:    service,
		EONET:    eonet,
		Feed:     eonet,
		FIRMS:    events.NewFIRMSClient(newClient("nasa_firms", cfg.Cache.FIRMSTTL), cfg.Upstreams.FIRMSURL, cfg.FIRMSKey),
		Geocoder: reverser,
		Logger:   log,
	})

	go func() {
		log.Info("listening", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("fiber server stopped", "error", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("error during shutdown", "error", err)
	}
}

// buildCache picks Valkey when configured and reachable, the in-memory cache
// otherwise. A nil cache disables response caching.
func buildCache(cfg *config.AppConfig, log *slog.Logger) (cache.Cache, cache.Purger, func()) {
	if !cfg.Cache.Enabled {
		return nil, nil, func() {}
	}

	if cfg.Cache.ValkeyAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		client, err := cache.DialValkey(ctx, cfg.Cache.ValkeyAddr)
		if err == nil {
			log.Info("using valkey response cache", "addr", cfg.Cache.ValkeyAddr)
			vc := cache.NewValkeyCache(client, appName)
			return vc, nil, vc.Close
		}
		log.Warn("valkey unavailable, falling back to memory cache", "error", err)
	}

	mem := cache.NewMemoryCache(cfg.Cache.MaxEntries)
	return mem, mem, func() {}
}
