// Package config loads and validates daemon config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds daemon configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the JSON API listens on (e.g. :7002).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
	// LogLevel is a zap level name.
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// LMSBaseURL is the root of the LMS REST services. Mutually exclusive with LMSFixtures.
	LMSBaseURL string `mapstructure:"LMS_BASE_URL"`
	// LMSOAuthTokenURL is the client-credentials token endpoint; defaults to <LMS_BASE_URL>/oauth2/access_token.
	LMSOAuthTokenURL string `mapstructure:"LMS_OAUTH_TOKEN_URL"`
	LMSClientID      string `mapstructure:"LMS_CLIENT_ID"`
	LMSClientSecret  string `mapstructure:"LMS_CLIENT_SECRET"`
	// LMSFixtures is a YAML fixture file served instead of a live LMS.
	LMSFixtures string `mapstructure:"LMS_FIXTURES"`
	// LMSTimeout bounds a single LMS HTTP request.
	LMSTimeout time.Duration `mapstructure:"LMS_TIMEOUT"`

	// FetchTimeout bounds each record-set fetch, retries included.
	FetchTimeout time.Duration `mapstructure:"FETCH_TIMEOUT"`
	// MaxConcurrentFetches caps simultaneous record-set fetches per aggregation.
	MaxConcurrentFetches int `mapstructure:"MAX_CONCURRENT_FETCHES"`
	// MaxInflightRequests caps concurrently served API requests.
	MaxInflightRequests int `mapstructure:"MAX_INFLIGHT_REQUESTS"`

	// SessionHashKey and SessionBlockKey sign and encrypt the session cookie.
	// Random keys are generated when empty, outside production.
	SessionHashKey  string `mapstructure:"SESSION_HASH_KEY"`
	SessionBlockKey string `mapstructure:"SESSION_BLOCK_KEY"`

	// CORSAllowedOrigins is a comma-separated list of browser origins allowed
	// to call the API with credentials. Empty means same-origin only.
	CORSAllowedOrigins string `mapstructure:"CORS_ALLOWED_ORIGINS"`

	// DisableTLS serves plain HTTP instead of a self-signed certificate.
	DisableTLS bool `mapstructure:"DISABLE_TLS"`

	// OTLPEndpoint is the OTLP gRPC collector; tracing exports nothing when empty.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName  string `mapstructure:"OTEL_SERVICE_NAME"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored. Env vars override .env.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":7002")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LMS_BASE_URL", "")
	v.SetDefault("LMS_OAUTH_TOKEN_URL", "")
	v.SetDefault("LMS_CLIENT_ID", "")
	v.SetDefault("LMS_CLIENT_SECRET", "")
	v.SetDefault("LMS_FIXTURES", "")
	v.SetDefault("LMS_TIMEOUT", "10s")
	v.SetDefault("FETCH_TIMEOUT", "8s")
	v.SetDefault("MAX_CONCURRENT_FETCHES", 7)
	v.SetDefault("MAX_INFLIGHT_REQUESTS", 100)
	v.SetDefault("SESSION_HASH_KEY", "")
	v.SetDefault("SESSION_BLOCK_KEY", "")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")
	v.SetDefault("DISABLE_TLS", false)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_SERVICE_NAME", "celerix-support")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the cross-field rules.
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}
	if (c.LMSBaseURL == "") == (c.LMSFixtures == "") {
		return errors.New("config: exactly one of LMS_BASE_URL and LMS_FIXTURES must be set")
	}
	if (c.LMSClientID == "") != (c.LMSClientSecret == "") {
		return errors.New("config: LMS_CLIENT_ID and LMS_CLIENT_SECRET must be set together")
	}
	if c.Production() && (c.SessionHashKey == "" || c.SessionBlockKey == "") {
		return errors.New("config: SESSION_HASH_KEY and SESSION_BLOCK_KEY are required when APP_ENV=production")
	}
	if c.MaxConcurrentFetches < 1 {
		return errors.New("config: MAX_CONCURRENT_FETCHES must be at least 1")
	}
	if c.MaxInflightRequests < 1 {
		return errors.New("config: MAX_INFLIGHT_REQUESTS must be at least 1")
	}
	if c.LMSTimeout <= 0 || c.FetchTimeout <= 0 {
		return errors.New("config: LMS_TIMEOUT and FETCH_TIMEOUT must be positive")
	}
	for _, o := range c.AllowedOrigins() {
		if o == "*" {
			return errors.New("config: CORS_ALLOWED_ORIGINS cannot be * because the API uses a session cookie")
		}
	}
	return nil
}

// Production reports whether APP_ENV is production.
func (c *Config) Production() bool {
	return c.Env == "production"
}

// TokenURL returns the OAuth2 token endpoint, or "" when client credentials are not configured.
func (c *Config) TokenURL() string {
	if c.LMSClientID == "" {
		return ""
	}
	if c.LMSOAuthTokenURL != "" {
		return c.LMSOAuthTokenURL
	}
	return strings.TrimRight(c.LMSBaseURL, "/") + "/oauth2/access_token"
}

// AllowedOrigins splits CORS_ALLOWED_ORIGINS, dropping blanks.
func (c *Config) AllowedOrigins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			out = append(out, o)
		}
	}
	return out
}
