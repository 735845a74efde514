// Package config loads runtime settings from the environment, optionally
// seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const DefaultDatabaseURL = "sqlite:///todos.db"

type Config struct {
	Port               string
	DatabaseURL        string
	LogLevel           string
	RateLimitRPS       float64
	RateLimitBurst     int
	CORSAllowedOrigins []string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	TracingExporter    string
	ServiceName        string
}

func (c Config) Addr() string { return ":" + c.Port }

// Load reads the given .env files (missing files are skipped; variables
// already in the environment win) and then the environment itself.
func Load(envFiles ...string) (Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from lookup, which has the shape of os.LookupEnv.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	get := func(key, fallback string) string {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		return fallback
	}

	cfg := Config{
		Port:            get("PORT", "8080"),
		DatabaseURL:     get("DATABASE_URL", DefaultDatabaseURL),
		LogLevel:        strings.ToLower(get("LOG_LEVEL", "info")),
		TracingExporter: strings.ToLower(get("TRACING_EXPORTER", "none")),
		ServiceName:     get("SERVICE_NAME", "todos-web"),
	}

	var errs []error
	var err error
	if cfg.RateLimitRPS, err = strconv.ParseFloat(get("RATE_LIMIT_RPS", "0"), 64); err != nil {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_RPS: %w", err))
	}
	if cfg.RateLimitBurst, err = strconv.Atoi(get("RATE_LIMIT_BURST", "20")); err != nil {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_BURST: %w", err))
	}
	if cfg.RequestTimeout, err = time.ParseDuration(get("REQUEST_TIMEOUT", "15s")); err != nil {
		errs = append(errs, fmt.Errorf("REQUEST_TIMEOUT: %w", err))
	}
	if cfg.ShutdownTimeout, err = time.ParseDuration(get("SHUTDOWN_TIMEOUT", "10s")); err != nil {
		errs = append(errs, fmt.Errorf("SHUTDOWN_TIMEOUT: %w", err))
	}
	for _, o := range strings.Split(get("CORS_ALLOWED_ORIGINS", "*"), ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSAllowedOrigins = append(cfg.CORSAllowedOrigins, o)
		}
	}

	if _, err := strconv.Atoi(cfg.Port); err != nil {
		errs = append(errs, fmt.Errorf("PORT: %w", err))
	}
	switch cfg.TracingExporter {
	case "none", "stdout", "otlp":
	default:
		errs = append(errs, fmt.Errorf("TRACING_EXPORTER: unknown exporter %q", cfg.TracingExporter))
	}

	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, nil
}
