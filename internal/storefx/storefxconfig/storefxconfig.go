// Copyright 2026 Peter Edge
//
// All rights reserved.

// Package storefxconfig provides configuration parsing and validation for storefx.
//
// Configuration is stored at ~/.config/storefx/config.yaml (or $STOREFX_CONFIG_DIR/config.yaml).
// The preference file is stored at ~/.local/share/storefx (or $STOREFX_DATA_DIR).
package storefxconfig

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/bufdev/storefx/internal/pkg/exchangerateapi"
	"github.com/bufdev/storefx/internal/pkg/yamlstrict"
	"github.com/bufdev/storefx/internal/storefx/storefxcurrency"
	"github.com/bufdev/storefx/internal/storefx/storefxpath"
	"github.com/bufdev/storefx/internal/storefx/storefxpref"
)

const (
	// PreferenceBackendFile stores the preference in a YAML file in the data directory.
	PreferenceBackendFile PreferenceBackend = "file"
	// PreferenceBackendRedis stores the preference in a Redis string.
	PreferenceBackendRedis PreferenceBackend = "redis"

	// RedisPasswordEnvVar is the environment variable holding the Redis password.
	RedisPasswordEnvVar = "STOREFX_REDIS_PASSWORD"

	defaultRatesURL        = "http://localhost:8080/rates"
	defaultRefreshInterval = time.Hour
	defaultRequestTimeout  = 10 * time.Second
	defaultMaxAttempts     = 3
	defaultRedisAddress    = "localhost:6379"
	defaultServerAddress   = "localhost:8080"
	defaultCacheTTL        = time.Hour
)

// configTemplate is the default configuration file template with comments.
// yaml.v3 does not preserve comments, so we hardcode the template string.
const configTemplate = `# The configuration file version.
#
# Required. The only current valid version is v1.
version: v1
# The display currency used until a preference is stored.
#
# Optional. One of XOF, USD, EUR. Defaults to XOF.
default_currency: XOF
# Rate-quote service configuration.
rates:
  # The rate endpoint. Requests are sent as GET <url>?base=<CODE>.
  #
  # Optional. Defaults to the endpoint served by "storefx serve".
  url: http://localhost:8080/rates
  # How often rates are refreshed while watching.
  #
  # Optional. A Go duration. Defaults to 1h.
  refresh_interval: 1h
  # The time limit for one fetch, retries included.
  #
  # Optional. A Go duration. Defaults to 10s.
  timeout: 10s
  # The number of attempts per request, including the first.
  #
  # Optional. Defaults to 3.
  max_attempts: 3
# Preference storage configuration.
preference:
  # Where the preferred currency is stored, either file or redis.
  #
  # Optional. Defaults to file, stored in the storefx data directory.
  # The Redis password must be set via the STOREFX_REDIS_PASSWORD environment variable.
  backend: file
  # redis:
  #   address: localhost:6379
  #   db: 0
  #   key: preferredCurrency
# Rate-quote server configuration, used by "storefx serve".
server:
  # The address to listen on.
  #
  # Optional. Defaults to localhost:8080.
  address: localhost:8080
  # The upstream latest-rates endpoint. The base currency is appended.
  #
  # Optional. Defaults to https://api.exchangerate-api.com/v4/latest/.
  upstream_url: https://api.exchangerate-api.com/v4/latest/
  # How long upstream rates are cached per base currency.
  #
  # Optional. A Go duration. Defaults to 1h.
  cache_ttl: 1h
  # Origins allowed to call the server from a browser.
  #
  # Optional. Defaults to none.
  # allowed_origins:
  #   - https://shop.example.com
`

// PreferenceBackend is where the preferred currency is stored.
type PreferenceBackend string

// ExternalConfig is the YAML-serializable configuration file structure.
type ExternalConfig struct {
	// Version is the configuration file version (must be "v1").
	Version string `yaml:"version"`
	// DefaultCurrency is the currency used until a preference is stored.
	DefaultCurrency string `yaml:"default_currency"`
	// Rates holds the rate-quote service configuration.
	Rates ExternalRatesConfig `yaml:"rates"`
	// Preference holds the preference storage configuration.
	Preference ExternalPreferenceConfig `yaml:"preference"`
	// Server holds the rate-quote server configuration.
	Server ExternalServerConfig `yaml:"server"`
}

// ExternalRatesConfig holds rate-quote service configuration.
type ExternalRatesConfig struct {
	// URL is the rate endpoint.
	URL string `yaml:"url"`
	// RefreshInterval is a Go duration string.
	RefreshInterval string `yaml:"refresh_interval"`
	// Timeout is a Go duration string.
	Timeout string `yaml:"timeout"`
	// MaxAttempts is the number of attempts per request.
	MaxAttempts int `yaml:"max_attempts"`
}

// ExternalPreferenceConfig holds preference storage configuration.
type ExternalPreferenceConfig struct {
	// Backend is "file" or "redis".
	Backend string `yaml:"backend"`
	// Redis holds the Redis backend configuration.
	Redis ExternalRedisConfig `yaml:"redis"`
}

// ExternalRedisConfig holds Redis connection configuration.
type ExternalRedisConfig struct {
	// Address is the host:port of the Redis server.
	Address string `yaml:"address"`
	// DB is the Redis database number.
	DB int `yaml:"db"`
	// Key is the key the preference is stored under.
	Key string `yaml:"key"`
}

// ExternalServerConfig holds rate-quote server configuration.
type ExternalServerConfig struct {
	// Address is the address to listen on.
	Address string `yaml:"address"`
	// UpstreamURL is the upstream latest-rates endpoint.
	UpstreamURL string `yaml:"upstream_url"`
	// CacheTTL is a Go duration string.
	CacheTTL string `yaml:"cache_ttl"`
	// AllowedOrigins are the CORS origins allowed to call the server.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Config is the validated runtime configuration derived from the config file.
type Config struct {
	// DefaultCurrency is the currency used until a preference is stored.
	DefaultCurrency storefxcurrency.Code
	// RatesURL is the rate-quote endpoint.
	RatesURL string
	// RefreshInterval is the time between periodic refreshes.
	RefreshInterval time.Duration
	// RequestTimeout bounds one fetch, retries included.
	RequestTimeout time.Duration
	// MaxAttempts is the number of attempts per rate-quote request.
	MaxAttempts int
	// PreferenceBackend is where the preferred currency is stored.
	PreferenceBackend PreferenceBackend
	// Redis is the Redis configuration, used when PreferenceBackend is redis.
	Redis RedisConfig
	// Server is the rate-quote server configuration.
	Server ServerConfig
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	// Address is the host:port of the Redis server.
	Address string
	// DB is the Redis database number.
	DB int
	// Key is the key the preference is stored under.
	Key string
}

// ServerConfig holds rate-quote server configuration.
type ServerConfig struct {
	// Address is the address to listen on.
	Address string
	// UpstreamURL is the upstream latest-rates endpoint.
	UpstreamURL string
	// CacheTTL is how long upstream rates are cached per base.
	CacheTTL time.Duration
	// AllowedOrigins are the CORS origins allowed to call the server.
	AllowedOrigins []string
}

// NewConfig validates an ExternalConfig and returns a runtime Config.
//
// Omitted optional fields take their defaults.
func NewConfig(externalConfig ExternalConfig) (*Config, error) {
	if externalConfig.Version != "v1" {
		return nil, fmt.Errorf("unsupported config version %q, must be v1", externalConfig.Version)
	}
	defaultCurrency := storefxcurrency.Default
	if externalConfig.DefaultCurrency != "" {
		code, err := storefxcurrency.Parse(externalConfig.DefaultCurrency)
		if err != nil {
			return nil, fmt.Errorf("default_currency: %w", err)
		}
		defaultCurrency = code
	}
	ratesURL, err := parseURL("rates.url", externalConfig.Rates.URL, defaultRatesURL)
	if err != nil {
		return nil, err
	}
	refreshInterval, err := parseDuration("rates.refresh_interval", externalConfig.Rates.RefreshInterval, defaultRefreshInterval)
	if err != nil {
		return nil, err
	}
	requestTimeout, err := parseDuration("rates.timeout", externalConfig.Rates.Timeout, defaultRequestTimeout)
	if err != nil {
		return nil, err
	}
	maxAttempts := externalConfig.Rates.MaxAttempts
	switch {
	case maxAttempts == 0:
		maxAttempts = defaultMaxAttempts
	case maxAttempts < 0:
		return nil, fmt.Errorf("rates.max_attempts must be positive, got %d", maxAttempts)
	}
	redisConfig := RedisConfig{
		Address: externalConfig.Preference.Redis.Address,
		DB:      externalConfig.Preference.Redis.DB,
		Key:     externalConfig.Preference.Redis.Key,
	}
	if redisConfig.Address == "" {
		redisConfig.Address = defaultRedisAddress
	}
	if redisConfig.Key == "" {
		redisConfig.Key = storefxpref.Key
	}
	if redisConfig.DB < 0 {
		return nil, fmt.Errorf("preference.redis.db must not be negative, got %d", redisConfig.DB)
	}
	var preferenceBackend PreferenceBackend
	switch backend := PreferenceBackend(externalConfig.Preference.Backend); backend {
	case "", PreferenceBackendFile:
		preferenceBackend = PreferenceBackendFile
	case PreferenceBackendRedis:
		preferenceBackend = PreferenceBackendRedis
	default:
		return nil, fmt.Errorf("unknown preference.backend %q, must be one of: file, redis", backend)
	}
	upstreamURL, err := parseURL("server.upstream_url", externalConfig.Server.UpstreamURL, exchangerateapi.DefaultBaseURL)
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parseDuration("server.cache_ttl", externalConfig.Server.CacheTTL, defaultCacheTTL)
	if err != nil {
		return nil, err
	}
	serverAddress := externalConfig.Server.Address
	if serverAddress == "" {
		serverAddress = defaultServerAddress
	}
	for _, origin := range externalConfig.Server.AllowedOrigins {
		if origin == "" {
			return nil, errors.New("server.allowed_origins must not contain empty values")
		}
	}
	return &Config{
		DefaultCurrency:   defaultCurrency,
		RatesURL:          ratesURL,
		RefreshInterval:   refreshInterval,
		RequestTimeout:    requestTimeout,
		MaxAttempts:       maxAttempts,
		PreferenceBackend: preferenceBackend,
		Redis:             redisConfig,
		Server: ServerConfig{
			Address:        serverAddress,
			UpstreamURL:    upstreamURL,
			CacheTTL:       cacheTTL,
			AllowedOrigins: externalConfig.Server.AllowedOrigins,
		},
	}, nil
}

// ReadConfig reads and validates the configuration file from the given config directory.
// Returns a clear error message directing users to run "storefx config init" if the file is missing.
func ReadConfig(configDirPath string) (*Config, error) {
	filePath := storefxpath.ConfigFilePath(configDirPath)
	var externalConfig ExternalConfig
	if err := yamlstrict.ReadFile(filePath, &externalConfig); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("configuration file not found at %s, run \"storefx config init\" to create one", filePath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return NewConfig(externalConfig)
}

// InitConfig creates a new configuration file with a documented template.
// Creates the config directory if it does not exist.
// Returns the path to the created file, or an error if the file already exists.
func InitConfig(configDirPath string) (string, error) {
	filePath := storefxpath.ConfigFilePath(configDirPath)
	if _, err := os.Stat(filePath); err == nil {
		return "", fmt.Errorf("configuration file already exists: %s", filePath)
	}
	// Create the config directory if it does not exist.
	if err := os.MkdirAll(configDirPath, 0o755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(filePath, []byte(configTemplate), 0o644); err != nil {
		return "", err
	}
	return filePath, nil
}

// ValidateConfig reads and validates the configuration file from the given config directory.
func ValidateConfig(configDirPath string) error {
	_, err := ReadConfig(configDirPath)
	return err
}

// *** PRIVATE ***

// parseDuration parses a Go duration string, returning defaultValue if value is empty.
func parseDuration(fieldName string, value string, defaultValue time.Duration) (time.Duration, error) {
	if value == "" {
		return defaultValue, nil
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", fieldName, err)
	}
	if duration <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", fieldName, value)
	}
	return duration, nil
}

// parseURL validates an absolute http(s) URL, returning defaultValue if value is empty.
func parseURL(fieldName string, value string, defaultValue string) (string, error) {
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := url.Parse(value)
	if err != nil {
		return "", fmt.Errorf("%s: %w", fieldName, err)
	}
	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return "", fmt.Errorf("%s must be an absolute http or https URL, got %q", fieldName, value)
	}
	return value, nil
}
