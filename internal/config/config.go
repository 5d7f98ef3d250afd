// Package config handles loading and validation of service configuration.
// Supports both development (env vars, optional .env) and production
// (Secret Manager) modes.
package config

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/joho/godotenv"

	"storefront/internal/model"
)

// Config holds all service configuration.
// Environment determines whether secrets load from env vars (development)
// or Secret Manager (production).
type Config struct {
	// Server settings
	Port        string
	Environment string // "development" or "production"
	LogLevel    string // "debug", "info", "warn", "error"

	// GCP settings (required in production)
	GCPProject string
	StoreID    string // secret name holding the store config

	// Session settings
	RedisAddr     string // empty means the in-memory store
	RedisPassword string
	RedisDB       int
	SessionTTL    time.Duration

	// Cart sync settings
	DebounceWindow time.Duration

	// Minimum accepted Storefront-Client version, empty disables the gate
	MinClientVersion string

	// Store-specific configuration (loaded from secrets)
	Store StoreConfig
}

// StoreConfig contains store-specific settings.
// In production, this is loaded from Secret Manager as JSON.
// In development, loaded from individual env vars or CONFIG_FILE.
type StoreConfig struct {
	SiteURL        string `json:"site_url"`
	RESTKey        string `json:"rest_key"`
	RESTSecret     string `json:"rest_secret"`
	GoogleClientID string `json:"google_client_id,omitempty"`

	// Free shipping threshold in major currency units; zero disables the
	// threshold so every cart is eligible.
	FreeShippingThreshold float64 `json:"free_shipping_threshold,omitempty"`
	FreeShippingMethodID  string  `json:"free_shipping_method_id,omitempty"`

	CountryCode       string `json:"country_code,omitempty"`        // defaults to PH
	CurrencyMinorUnit int    `json:"currency_minor_unit,omitempty"` // defaults to 2
}

// FreeShippingThresholdMinor converts the configured major-unit threshold
// to the minor units the Store API reports totals in.
func (s StoreConfig) FreeShippingThresholdMinor() int64 {
	exp := s.CurrencyMinorUnit
	if exp == 0 {
		exp = 2
	}
	return model.MajorToMinor(s.FreeShippingThreshold, exp)
}

// Load reads configuration from file, environment, or Secret Manager.
// Priority: CONFIG_FILE (if set) → ENV vars / Secret Manager.
// Validates all required fields and returns an error if any are missing.
func Load(ctx context.Context) (*Config, error) {
	// Local development keeps its settings in .env; missing file is fine.
	_ = godotenv.Load()

	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromFile(configPath)
	}

	cfg := &Config{
		Port:             envOrDefault("PORT", "8080"),
		Environment:      envOrDefault("ENVIRONMENT", "development"),
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
		GCPProject:       os.Getenv("GCP_PROJECT"),
		StoreID:          os.Getenv("STORE_ID"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		MinClientVersion: os.Getenv("MIN_CLIENT_VERSION"),
	}

	var err error
	if cfg.SessionTTL, err = envDuration("SESSION_TTL", 72*time.Hour); err != nil {
		return nil, err
	}
	if cfg.DebounceWindow, err = envDuration("DEBOUNCE_WINDOW", 200*time.Millisecond); err != nil {
		return nil, err
	}
	if db := os.Getenv("REDIS_DB"); db != "" {
		if _, err := fmt.Sscanf(db, "%d", &cfg.RedisDB); err != nil {
			return nil, fmt.Errorf("parsing REDIS_DB: %w", err)
		}
	}

	if cfg.Environment == "production" {
		if cfg.GCPProject == "" {
			return nil, fmt.Errorf("GCP_PROJECT required in production environment")
		}
		if cfg.StoreID == "" {
			return nil, fmt.Errorf("STORE_ID required in production environment")
		}
		err = cfg.loadFromSecretManager(ctx)
	} else {
		err = cfg.loadFromEnv()
	}
	if err != nil {
		return nil, fmt.Errorf("loading store config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile reads all configuration from a JSON file.
// Used for local development to avoid multiple ENV vars.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var fileConfig struct {
		Port             string      `json:"port"`
		Environment      string      `json:"environment"`
		LogLevel         string      `json:"log_level"`
		RedisAddr        string      `json:"redis_addr"`
		RedisPassword    string      `json:"redis_password"`
		RedisDB          int         `json:"redis_db"`
		SessionTTL       string      `json:"session_ttl"`
		DebounceWindow   string      `json:"debounce_window"`
		MinClientVersion string      `json:"min_client_version"`
		Store            StoreConfig `json:"store"`
	}
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg := &Config{
		Port:             withDefault(fileConfig.Port, "8080"),
		Environment:      withDefault(fileConfig.Environment, "development"),
		LogLevel:         withDefault(fileConfig.LogLevel, "info"),
		RedisAddr:        fileConfig.RedisAddr,
		RedisPassword:    fileConfig.RedisPassword,
		RedisDB:          fileConfig.RedisDB,
		MinClientVersion: fileConfig.MinClientVersion,
		Store:            fileConfig.Store,
	}
	if cfg.SessionTTL, err = parseDuration(fileConfig.SessionTTL, 72*time.Hour); err != nil {
		return nil, fmt.Errorf("parsing session_ttl: %w", err)
	}
	if cfg.DebounceWindow, err = parseDuration(fileConfig.DebounceWindow, 200*time.Millisecond); err != nil {
		return nil, fmt.Errorf("parsing debounce_window: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromSecretManager fetches store config from GCP Secret Manager.
// Secret name format: projects/{project}/secrets/{store_id}/versions/latest
func (c *Config) loadFromSecretManager(ctx context.Context) error {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("creating secret manager client: %w", err)
	}
	defer client.Close()

	secretName := fmt.Sprintf("projects/%s/secrets/%s/versions/latest",
		c.GCPProject, c.StoreID)

	result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: secretName,
	})
	if err != nil {
		return fmt.Errorf("accessing secret %s: %w", secretName, err)
	}

	if err := json.Unmarshal(result.Payload.Data, &c.Store); err != nil {
		return fmt.Errorf("parsing secret JSON: %w", err)
	}
	return nil
}

// loadFromEnv reads store config from individual environment variables.
// Used in development mode for local testing.
func (c *Config) loadFromEnv() error {
	c.Store = StoreConfig{
		SiteURL:              os.Getenv("STORE_SITE_URL"),
		RESTKey:              os.Getenv("STORE_REST_KEY"),
		RESTSecret:           os.Getenv("STORE_REST_SECRET"),
		GoogleClientID:       os.Getenv("GOOGLE_CLIENT_ID"),
		FreeShippingMethodID: os.Getenv("FREE_SHIPPING_METHOD_ID"),
		CountryCode:          os.Getenv("STORE_COUNTRY"),
	}

	if threshold := os.Getenv("FREE_SHIPPING_THRESHOLD"); threshold != "" {
		if _, err := fmt.Sscanf(threshold, "%f", &c.Store.FreeShippingThreshold); err != nil {
			return fmt.Errorf("parsing FREE_SHIPPING_THRESHOLD: %w", err)
		}
	}
	return nil
}

// validate checks that all required configuration fields are present.
func (c *Config) validate() error {
	if c.Store.SiteURL == "" {
		return fmt.Errorf("site_url is required")
	}
	u, err := url.Parse(c.Store.SiteURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid site_url %q", c.Store.SiteURL)
	}
	if c.Store.RESTKey == "" {
		return fmt.Errorf("rest_key is required")
	}
	if c.Store.RESTSecret == "" {
		return fmt.Errorf("rest_secret is required")
	}
	if c.Store.FreeShippingThreshold < 0 {
		return fmt.Errorf("free_shipping_threshold must not be negative")
	}
	if c.Store.CountryCode == "" {
		c.Store.CountryCode = "PH"
	}
	c.Store.SiteURL = strings.TrimSuffix(c.Store.SiteURL, "/")
	return nil
}

// withDefault returns val if non-empty, otherwise defaultVal.
func withDefault(val, defaultVal string) string {
	if val != "" {
		return val
	}
	return defaultVal
}

// envOrDefault returns the environment variable value or the default if not set.
func envOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func envDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	d, err := parseDuration(os.Getenv(key), defaultVal)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return d, nil
}

func parseDuration(s string, defaultVal time.Duration) (time.Duration, error) {
	if s == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(s)
}
