package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/i474232898/meteo-aggregation/internal/logging"
	"github.com/i474232898/meteo-aggregation/internal/meteo"
)

const defaultConfigPath = "configs/config.yaml"

type AppConfig struct {
	AppEnv   string     `yaml:"appEnv"`
	LogLevel string     `yaml:"logLevel"`
	Level    slog.Level `yaml:"-"`
	Port     string     `yaml:"port"`

	// HTTPTimeout bounds every outbound upstream call.
	HTTPTimeout time.Duration `yaml:"httpTimeout"`
	// UpstreamRetries is the number of extra attempts per upstream call (0 = single attempt).
	UpstreamRetries int `yaml:"upstreamRetries"`

	Upstreams UpstreamConfig `yaml:"upstreams"`
	Cache     CacheConfig    `yaml:"cache"`
	Prewarm   PrewarmConfig  `yaml:"prewarm"`

	FIRMSKey             string `yaml:"firmsKey"`
	ContactEmail         string `yaml:"contactEmail"`
	GoogleGeocoderAPIKey string `yaml:"googleGeocoderApiKey"`
}

// UpstreamConfig overrides upstream base URLs; empty means the public default.
type UpstreamConfig struct {
	PowerURL      string `yaml:"powerUrl"`
	ForecastURL   string `yaml:"forecastUrl"`
	AirQualityURL string `yaml:"airQualityUrl"`
	EONETURL      string `yaml:"eonetUrl"`
	FIRMSURL      string `yaml:"firmsUrl"`
	NominatimURL  string `yaml:"nominatimUrl"`
}

// CacheConfig controls upstream response caching.
type CacheConfig struct {
	Enabled       bool          `yaml:"enabled"`
	PowerTTL      time.Duration `yaml:"powerTtl"`
	OpenMeteoTTL  time.Duration `yaml:"openMeteoTtl"`
	EONETTTL      time.Duration `yaml:"eonetTtl"`
	FIRMSTTL      time.Duration `yaml:"firmsTtl"`
	MaxEntries    int           `yaml:"maxEntries"`
	PurgeInterval time.Duration `yaml:"purgeInterval"`
	// ValkeyAddr selects the shared Valkey backend; empty keeps the in-memory cache.
	ValkeyAddr string `yaml:"valkeyAddr"`
}

// PrewarmConfig lists locations refreshed in the background so their upstream
// responses are cached before users ask.
type PrewarmConfig struct {
	Locations []meteo.Coordinate `yaml:"locations"`
	Interval  time.Duration      `yaml:"interval"`
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		AppEnv:       "dev",
		LogLevel:     "info",
		Port:         "8080",
		HTTPTimeout:  10 * time.Second,
		ContactEmail: "contact@example.com",
		Cache: CacheConfig{
			Enabled:       true,
			PowerTTL:      30 * time.Minute,
			OpenMeteoTTL:  15 * time.Minute,
			EONETTTL:      5 * time.Minute,
			FIRMSTTL:      time.Hour,
			MaxEntries:    1024,
			PurgeInterval: 5 * time.Minute,
		},
		Prewarm: PrewarmConfig{
			Interval: 15 * time.Minute,
		},
	}
}

// Load reads .env, an optional YAML file and the environment, in that order of precedence
// from lowest to highest.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file found or error loading it", "error", err)
	}
	cfg := defaultConfig()

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		if err := hydrateFromFile(cfg, path); err != nil {
			return nil, err
		}
	} else if _, err := os.Stat(defaultConfigPath); err == nil {
		if err := hydrateFromFile(cfg, defaultConfigPath); err != nil {
			return nil, err
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	cfg.Level = level

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func hydrateFromFile(cfg *AppConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *AppConfig) error {
	cfg.AppEnv = getenvDefault("APP_ENV", cfg.AppEnv)
	cfg.LogLevel = getenvDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.Port = getenvDefault("PORT", cfg.Port)
	cfg.UpstreamRetries = getenvInt("UPSTREAM_RETRIES", cfg.UpstreamRetries)

	cfg.Upstreams.PowerURL = getenvDefault("POWER_BASE_URL", cfg.Upstreams.PowerURL)
	cfg.Upstreams.ForecastURL = getenvDefault("FORECAST_BASE_URL", cfg.Upstreams.ForecastURL)
	cfg.Upstreams.AirQualityURL = getenvDefault("AIR_QUALITY_BASE_URL", cfg.Upstreams.AirQualityURL)
	cfg.Upstreams.EONETURL = getenvDefault("EONET_BASE_URL", cfg.Upstreams.EONETURL)
	cfg.Upstreams.FIRMSURL = getenvDefault("FIRMS_BASE_URL", cfg.Upstreams.FIRMSURL)
	cfg.Upstreams.NominatimURL = getenvDefault("NOMINATIM_BASE_URL", cfg.Upstreams.NominatimURL)

	cfg.FIRMSKey = getenvDefault("NASA_FIRMS_KEY", cfg.FIRMSKey)
	cfg.ContactEmail = getenvDefault("CONTACT_EMAIL", cfg.ContactEmail)
	cfg.GoogleGeocoderAPIKey = getenvDefault("GOOGLE_GEOCODER_API_KEY", cfg.GoogleGeocoderAPIKey)

	if v := os.Getenv("CACHE_ENABLED"); v != "" {
		cfg.Cache.Enabled = v == "1" || strings.EqualFold(v, "true")
	}
	cfg.Cache.MaxEntries = getenvInt("CACHE_MAX_ENTRIES", cfg.Cache.MaxEntries)
	cfg.Cache.ValkeyAddr = getenvDefault("VALKEY_ADDR", cfg.Cache.ValkeyAddr)

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"HTTP_TIMEOUT", &cfg.HTTPTimeout},
		{"CACHE_POWER_TTL", &cfg.Cache.PowerTTL},
		{"CACHE_OPEN_METEO_TTL", &cfg.Cache.OpenMeteoTTL},
		{"CACHE_EONET_TTL", &cfg.Cache.EONETTTL},
		{"CACHE_FIRMS_TTL", &cfg.Cache.FIRMSTTL},
		{"CACHE_PURGE_INTERVAL", &cfg.Cache.PurgeInterval},
		{"PREWARM_INTERVAL", &cfg.Prewarm.Interval},
	}
	for _, d := range durations {
		v := os.Getenv(d.key)
		if v == "" {
			continue
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = parsed
	}

	if v := os.Getenv("PREWARM_LOCATIONS"); v != "" {
		locs, err := ParseLocations(v)
		if err != nil {
			return fmt.Errorf("invalid PREWARM_LOCATIONS: %w", err)
		}
		cfg.Prewarm.Locations = locs
	}
	return nil
}

// ParseLocations reads "lat,lon;lat,lon" into coordinates.
func ParseLocations(s string) ([]meteo.Coordinate, error) {
	var locs []meteo.Coordinate
	for _, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.Split(pair, ",")
		if len(parts) != 2 {
			return nil, fmt.Errorf("location %q must be lat,lon", pair)
		}
		lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("location %q: %w", pair, err)
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("location %q: %w", pair, err)
		}
		coord, err := meteo.NewCoordinate(lat, lon)
		if err != nil {
			return nil, fmt.Errorf("location %q: %w", pair, err)
		}
		locs = append(locs, coord)
	}
	return locs, nil
}

// Validate checks ranges that would otherwise surface as runtime misbehaviour.
func (c *AppConfig) Validate() error {
	var errs []error
	switch c.AppEnv {
	case "dev", "prod":
	default:
		errs = append(errs, fmt.Errorf("APP_ENV %q (allowed: dev, prod)", c.AppEnv))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, errors.New("HTTP_TIMEOUT must be positive"))
	}
	if c.UpstreamRetries < 0 {
		errs = append(errs, errors.New("UPSTREAM_RETRIES must not be negative"))
	}
	if c.Port == "" {
		errs = append(errs, errors.New("PORT must not be empty"))
	}
	if len(c.Prewarm.Locations) > 0 && c.Prewarm.Interval <= 0 {
		errs = append(errs, errors.New("PREWARM_INTERVAL must be positive when locations are set"))
	}
	for _, loc := range c.Prewarm.Locations {
		if _, err := meteo.NewCoordinate(loc.Lat, loc.Lon); err != nil {
			errs = append(errs, fmt.Errorf("prewarm location: %w", err))
		}
	}
	return errors.Join(errs...)
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}
