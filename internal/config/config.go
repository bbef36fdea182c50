// Package config resolves seeder settings from defaults, an optional YAML
// file and SEEDER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/estatehub/seeder/internal/fixtures"
	"github.com/estatehub/seeder/internal/images"
	"github.com/estatehub/seeder/internal/logging"
	"github.com/estatehub/seeder/internal/seeding"
	"github.com/estatehub/seeder/internal/shutdown"
	"github.com/estatehub/seeder/internal/upload"
	"gopkg.in/yaml.v3"
)

const (
	DefaultAPIURL      = "http://localhost:8080"
	DefaultUploadField = "file"
	envPrefix          = "SEEDER_"
)

// Config holds everything the seed command needs.
type Config struct {
	APIURL              string        `yaml:"api_url"`
	FallbackImageURL    string        `yaml:"fallback_image_url"`
	PhotoBaseURL        string        `yaml:"photo_base_url"`
	ImageBaseURL        string        `yaml:"image_base_url"`
	UploadField         string        `yaml:"upload_field"`
	FetchTimeout        time.Duration `yaml:"fetch_timeout"`
	UploadTimeout       time.Duration `yaml:"upload_timeout"`
	ShutdownTimeout     time.Duration `yaml:"shutdown_timeout"`
	Concurrency         int           `yaml:"concurrency"`
	PropertyConcurrency int           `yaml:"property_concurrency"`
	Log                 LogConfig     `yaml:"log"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	FluentHost string `yaml:"fluent_host"`
	FluentPort int    `yaml:"fluent_port"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		APIURL:           DefaultAPIURL,
		FallbackImageURL: upload.DefaultFallbackURL,
		PhotoBaseURL:     fixtures.DefaultPhotoBase,
		ImageBaseURL:     fixtures.DefaultImageBase,
		UploadField:      DefaultUploadField,
		FetchTimeout:     images.DefaultFetchTimeout,
		UploadTimeout:    upload.DefaultRequestTimeout,
		ShutdownTimeout:  shutdown.DefaultTimeout,
		Concurrency:      seeding.DefaultConcurrency,
		Log: LogConfig{
			Level:      "info",
			Format:     logging.FormatText,
			FluentPort: logging.DefaultFluentPort,
		},
	}
}

// Load layers the YAML file at path (skipped when empty) and then the
// environment over Default, and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	var errs []error
	c.APIURL = getEnvAsString("API_URL", c.APIURL)
	c.FallbackImageURL = getEnvAsString("FALLBACK_IMAGE_URL", c.FallbackImageURL)
	c.PhotoBaseURL = getEnvAsString("PHOTO_BASE_URL", c.PhotoBaseURL)
	c.ImageBaseURL = getEnvAsString("IMAGE_BASE_URL", c.ImageBaseURL)
	c.UploadField = getEnvAsString("UPLOAD_FIELD", c.UploadField)
	c.Log.Level = getEnvAsString("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnvAsString("LOG_FORMAT", c.Log.Format)
	c.Log.FluentHost = getEnvAsString("FLUENT_HOST", c.Log.FluentHost)

	var err error
	if c.FetchTimeout, err = getEnvAsDuration("FETCH_TIMEOUT", c.FetchTimeout); err != nil {
		errs = append(errs, err)
	}
	if c.UploadTimeout, err = getEnvAsDuration("UPLOAD_TIMEOUT", c.UploadTimeout); err != nil {
		errs = append(errs, err)
	}
	if c.ShutdownTimeout, err = getEnvAsDuration("SHUTDOWN_TIMEOUT", c.ShutdownTimeout); err != nil {
		errs = append(errs, err)
	}
	if c.Concurrency, err = getEnvAsInt("CONCURRENCY", c.Concurrency); err != nil {
		errs = append(errs, err)
	}
	if c.PropertyConcurrency, err = getEnvAsInt("PROPERTY_CONCURRENCY", c.PropertyConcurrency); err != nil {
		errs = append(errs, err)
	}
	if c.Log.FluentPort, err = getEnvAsInt("FLUENT_PORT", c.Log.FluentPort); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	for name, raw := range map[string]string{
		"api_url":            c.APIURL,
		"fallback_image_url": c.FallbackImageURL,
		"photo_base_url":     c.PhotoBaseURL,
		"image_base_url":     c.ImageBaseURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			errs = append(errs, fmt.Errorf("%s must be an absolute http(s) URL, got %q", name, raw))
		}
	}
	if c.UploadField == "" {
		errs = append(errs, errors.New("upload_field must not be empty"))
	}
	if c.FetchTimeout <= 0 || c.UploadTimeout <= 0 || c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("timeouts must be positive"))
	}
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency))
	}
	if c.PropertyConcurrency < 0 {
		errs = append(errs, fmt.Errorf("property_concurrency must not be negative, got %d", c.PropertyConcurrency))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case logging.FormatText, logging.FormatJSON:
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// LoggingOptions converts the log section for logging.New.
func (c Config) LoggingOptions() logging.Options {
	level, _ := logging.ParseLevel(c.Log.Level)
	return logging.Options{
		Level:      level,
		Format:     c.Log.Format,
		FluentHost: c.Log.FluentHost,
		FluentPort: c.Log.FluentPort,
	}
}

func getEnvAsString(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(envPrefix + key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	value, exists := os.LookupEnv(envPrefix + key)
	if !exists || value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s%s: invalid integer %q", envPrefix, key, value)
	}
	return n, nil
}

// getEnvAsDuration accepts Go durations ("10s") or plain milliseconds ("10000").
func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value, exists := os.LookupEnv(envPrefix + key)
	if !exists || value == "" {
		return defaultValue, nil
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s%s: invalid duration %q", envPrefix, key, value)
	}
	return d, nil
}
