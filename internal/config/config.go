// Package config handles loading and validation of client configuration.
// Supports both development (env vars or a JSON file) and production
// (Secret Manager) modes.
package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/joho/godotenv"
	"golang.org/x/mod/semver"

	"storefront/internal/model"
)

const (
	defaultTimeout           = 30 * time.Second
	defaultMerchantName      = "fella.io"
	defaultThemeColor        = "#000000"
	defaultFreeDeliveryAbove = "999"
	defaultDeliveryFee       = "49"
)

// Config holds all client configuration.
type Config struct {
	// Local MCP server settings
	Port        string
	Environment string // "development" or "production"
	LogLevel    string // "debug", "info", "warn", "error"

	// GCP settings (required in production)
	GCPProject string
	SecretName string

	// StateDir holds the persisted session.
	StateDir string

	Storefront StorefrontConfig
}

// StorefrontConfig describes the remote store. In production it is loaded
// from Secret Manager as JSON.
type StorefrontConfig struct {
	APIURL        string        `json:"api_url"`
	MinAPIVersion string        `json:"min_api_version,omitempty"`
	ChromeTLS     bool          `json:"chrome_tls,omitempty"`
	Timeout       time.Duration `json:"-"`
	MerchantName  string        `json:"merchant_name,omitempty"`
	ThemeColor    string        `json:"theme_color,omitempty"`

	// Display-only delivery rule, in rupees.
	FreeDeliveryAbove model.Money `json:"-"`
	DeliveryFee       model.Money `json:"-"`

	RawTimeout           string `json:"timeout,omitempty"`
	RawFreeDeliveryAbove string `json:"free_delivery_above,omitempty"`
	RawDeliveryFee       string `json:"delivery_fee,omitempty"`
}

// Load reads configuration from file, environment, or Secret Manager.
// A .env file in the working directory is applied first when present.
// Priority: CONFIG_FILE (if set), then env vars / Secret Manager.
func Load(ctx context.Context) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromFile(configPath)
	}

	cfg := &Config{
		Port:        envOrDefault("PORT", "8080"),
		Environment: envOrDefault("ENVIRONMENT", "development"),
		LogLevel:    envOrDefault("LOG_LEVEL", "info"),
		GCPProject:  os.Getenv("GCP_PROJECT"),
		SecretName:  envOrDefault("STOREFRONT_SECRET", "storefront"),
		StateDir:    os.Getenv("STOREFRONT_STATE_DIR"),
	}

	var err error
	if cfg.Environment == "production" {
		if cfg.GCPProject == "" {
			return nil, fmt.Errorf("GCP_PROJECT required in production environment")
		}
		err = cfg.loadFromSecretManager(ctx)
	} else {
		err = cfg.loadFromEnv()
	}
	if err != nil {
		return nil, fmt.Errorf("loading storefront config: %w", err)
	}

	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromFile reads all configuration from a JSON file.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var fileConfig struct {
		Port        string           `json:"port"`
		Environment string           `json:"environment"`
		LogLevel    string           `json:"log_level"`
		StateDir    string           `json:"state_dir"`
		Storefront  StorefrontConfig `json:"storefront"`
	}
	if err := json.Unmarshal(data, &fileConfig); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg := &Config{
		Port:        withDefault(fileConfig.Port, "8080"),
		Environment: withDefault(fileConfig.Environment, "development"),
		LogLevel:    withDefault(fileConfig.LogLevel, "info"),
		StateDir:    fileConfig.StateDir,
		Storefront:  fileConfig.Storefront,
	}
	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFromSecretManager fetches the storefront config from GCP Secret Manager.
// Secret name format: projects/{project}/secrets/{secret}/versions/latest
func (c *Config) loadFromSecretManager(ctx context.Context) error {
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("creating secret manager client: %w", err)
	}
	defer client.Close()

	secretName := fmt.Sprintf("projects/%s/secrets/%s/versions/latest",
		c.GCPProject, c.SecretName)

	result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{
		Name: secretName,
	})
	if err != nil {
		return fmt.Errorf("accessing secret %s: %w", secretName, err)
	}

	if err := json.Unmarshal(result.Payload.Data, &c.Storefront); err != nil {
		return fmt.Errorf("parsing secret JSON: %w", err)
	}
	return nil
}

// loadFromEnv reads the storefront config from individual environment variables.
func (c *Config) loadFromEnv() error {
	c.Storefront = StorefrontConfig{
		APIURL:               os.Getenv("STOREFRONT_API_URL"),
		MinAPIVersion:        os.Getenv("STOREFRONT_MIN_API_VERSION"),
		MerchantName:         os.Getenv("STOREFRONT_MERCHANT_NAME"),
		ThemeColor:           os.Getenv("STOREFRONT_THEME_COLOR"),
		RawTimeout:           os.Getenv("STOREFRONT_TIMEOUT"),
		RawFreeDeliveryAbove: os.Getenv("STOREFRONT_FREE_DELIVERY_ABOVE"),
		RawDeliveryFee:       os.Getenv("STOREFRONT_DELIVERY_FEE"),
	}

	if v := os.Getenv("STOREFRONT_CHROME_TLS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parsing STOREFRONT_CHROME_TLS: %w", err)
		}
		c.Storefront.ChromeTLS = b
	}
	return nil
}

// finish applies defaults, parses the raw fields and validates.
func (c *Config) finish() error {
	if c.StateDir == "" {
		dir, err := os.UserConfigDir()
		if err != nil {
			return fmt.Errorf("locating state directory: %w", err)
		}
		c.StateDir = filepath.Join(dir, "storefront")
	}

	s := &c.Storefront
	s.APIURL = strings.TrimSuffix(s.APIURL, "/")
	s.MerchantName = withDefault(s.MerchantName, defaultMerchantName)
	s.ThemeColor = withDefault(s.ThemeColor, defaultThemeColor)

	s.Timeout = defaultTimeout
	if s.RawTimeout != "" {
		d, err := time.ParseDuration(s.RawTimeout)
		if err != nil {
			return fmt.Errorf("invalid timeout %q: %w", s.RawTimeout, err)
		}
		s.Timeout = d
	}

	var err error
	if s.FreeDeliveryAbove, err = parseRupees("free_delivery_above", withDefault(s.RawFreeDeliveryAbove, defaultFreeDeliveryAbove)); err != nil {
		return err
	}
	if s.DeliveryFee, err = parseRupees("delivery_fee", withDefault(s.RawDeliveryFee, defaultDeliveryFee)); err != nil {
		return err
	}

	return c.validate()
}

// validate checks that all required configuration fields are present and well formed.
func (c *Config) validate() error {
	s := c.Storefront
	if s.APIURL == "" {
		return fmt.Errorf("api_url is required")
	}
	u, err := url.Parse(s.APIURL)
	if err != nil {
		return fmt.Errorf("invalid api_url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid api_url %q: need an http(s) URL with a host", s.APIURL)
	}

	if s.MinAPIVersion != "" && !semver.IsValid(canonical(s.MinAPIVersion)) {
		return fmt.Errorf("invalid min_api_version %q", s.MinAPIVersion)
	}
	if s.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	level, _ := parseLevel(c.LogLevel)
	return level
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log_level %q", s)
	}
	return level, nil
}

// parseRupees parses a decimal rupee amount such as "999" or "49.50".
func parseRupees(field, s string) (model.Money, error) {
	m, err := model.ParseMoney(s)
	if err != nil || m < 0 {
		return 0, fmt.Errorf("invalid %s %q", field, s)
	}
	return m, nil
}

func canonical(v string) string {
	if !strings.HasPrefix(v, "v") {
		return "v" + v
	}
	return v
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
