// Package config loads the process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config is the validated process configuration.
type Config struct {
	Env      string `validate:"required,oneof=development test staging production"`
	Port     string `validate:"required,numeric"`
	LogLevel string `validate:"required,oneof=trace debug info warn error"`

	JMABaseURL     string        `validate:"required,url"`
	JMATimeout     time.Duration `validate:"gte=1s"`
	TimezoneOffset time.Duration `validate:"gte=-12h,lte=14h"`

	RefreshInterval        time.Duration `validate:"gte=1m"`
	StationRefreshInterval time.Duration `validate:"gte=1h"`

	OTelEnabled  bool
	OTLPEndpoint string `validate:"required_if=OTelEnabled true"`

	PubSubProjectID    string
	PubSubSubscription string `validate:"required_with=PubSubProjectID"`

	RequireTLS bool
}

// Load reads an optional .env file (or the given files) into the environment
// and builds the configuration from it. Variables already set win over the file.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading env file: %w", err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds the configuration from lookup and validates it.
func FromLookup(lookup func(string) (string, bool)) (*Config, error) {
	env := envReader{lookup: lookup}

	cfg := &Config{
		Env:                    env.str("APP_ENV", "development"),
		Port:                   env.str("APP_PORT", "8080"),
		LogLevel:               env.str("LOG_LEVEL", "info"),
		JMABaseURL:             env.str("JMA_BASE_URL", "https://www.jma.go.jp/bosai/amedas"),
		JMATimeout:             env.duration("JMA_TIMEOUT", 10*time.Second),
		TimezoneOffset:         env.duration("AMEDAS_TIMEZONE_OFFSET", 9*time.Hour),
		RefreshInterval:        env.duration("REFRESH_INTERVAL", 10*time.Minute),
		StationRefreshInterval: env.duration("STATION_REFRESH_INTERVAL", 24*time.Hour),
		OTelEnabled:            env.boolean("OTEL_ENABLED", false),
		OTLPEndpoint:           env.str("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		PubSubProjectID:        env.str("PUBSUB_PROJECT_ID", ""),
		PubSubSubscription:     env.str("PUBSUB_SUBSCRIPTION", ""),
		RequireTLS:             env.boolean("REQUIRE_TLS", false),
	}
	if env.err != nil {
		return nil, env.err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Location returns the fixed zone every upstream timestamp is expressed in.
func (c *Config) Location() *time.Location {
	if c.TimezoneOffset == 9*time.Hour {
		return time.FixedZone("JST", 9*60*60)
	}
	return time.FixedZone("UTC"+c.TimezoneOffset.String(), int(c.TimezoneOffset.Seconds()))
}

// ZerologLevel returns the parsed log level, info when unparseable.
func (c *Config) ZerologLevel() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}

// PubSubEnabled reports whether the Pub/Sub trigger is configured.
func (c *Config) PubSubEnabled() bool {
	return c.PubSubProjectID != "" && c.PubSubSubscription != ""
}

// IsProduction reports whether the process runs in production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// envReader reads typed values and keeps the first parse error.
type envReader struct {
	lookup func(string) (string, bool)
	err    error
}

func (r *envReader) str(key, def string) string {
	if v, ok := r.lookup(key); ok && v != "" {
		return v
	}
	return def
}

func (r *envReader) duration(key string, def time.Duration) time.Duration {
	v, ok := r.lookup(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return d
}

func (r *envReader) boolean(key string, def bool) bool {
	v, ok := r.lookup(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(fmt.Errorf("invalid %s: %w", key, err))
		return def
	}
	return b
}

func (r *envReader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}
