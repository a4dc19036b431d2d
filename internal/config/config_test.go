package config

import (
	"testing"
	"time"
)

// setenv clears every key Load reads, then applies kv.
func setenv(t *testing.T, kv map[string]string) {
	t.Helper()
	for _, k := range []string{
		"HTTP_ADDR", "APP_ENV", "LOG_LEVEL", "LMS_BASE_URL", "LMS_OAUTH_TOKEN_URL",
		"LMS_CLIENT_ID", "LMS_CLIENT_SECRET", "LMS_FIXTURES", "LMS_TIMEOUT", "FETCH_TIMEOUT",
		"MAX_CONCURRENT_FETCHES", "MAX_INFLIGHT_REQUESTS", "SESSION_HASH_KEY", "SESSION_BLOCK_KEY",
		"CORS_ALLOWED_ORIGINS", "DISABLE_TLS", "OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_SERVICE_NAME",
	} {
		t.Setenv(k, "")
	}
	for k, v := range kv {
		t.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setenv(t, map[string]string{"HTTP_ADDR": ":7002", "LMS_FIXTURES": "fixtures.yaml"})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":7002" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":7002")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
	}
	if cfg.LMSTimeout != 10*time.Second {
		t.Errorf("LMSTimeout = %v, want 10s", cfg.LMSTimeout)
	}
	if cfg.FetchTimeout != 8*time.Second {
		t.Errorf("FetchTimeout = %v, want 8s", cfg.FetchTimeout)
	}
	if cfg.MaxConcurrentFetches != 7 {
		t.Errorf("MaxConcurrentFetches = %d, want 7", cfg.MaxConcurrentFetches)
	}
	if cfg.MaxInflightRequests != 100 {
		t.Errorf("MaxInflightRequests = %d, want 100", cfg.MaxInflightRequests)
	}
	if cfg.ServiceName != "celerix-support" {
		t.Errorf("ServiceName = %q, want celerix-support", cfg.ServiceName)
	}
	if cfg.DisableTLS {
		t.Error("DisableTLS should default to false")
	}
	if cfg.TokenURL() != "" {
		t.Errorf("TokenURL = %q, want empty without client credentials", cfg.TokenURL())
	}
	if origins := cfg.AllowedOrigins(); len(origins) != 0 {
		t.Errorf("AllowedOrigins = %v, want none", origins)
	}
}

func TestLoad_AllowedOrigins(t *testing.T) {
	setenv(t, map[string]string{
		"LMS_FIXTURES":         "f.yaml",
		"CORS_ALLOWED_ORIGINS": " https://support.example.com/ ,, http://localhost:3000",
	})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := cfg.AllowedOrigins()
	if len(got) != 2 || got[0] != "https://support.example.com" || got[1] != "http://localhost:3000" {
		t.Errorf("AllowedOrigins = %v", got)
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	setenv(t, map[string]string{
		"HTTP_ADDR":              ":9090",
		"LMS_BASE_URL":           "https://courses.example.com/",
		"LMS_CLIENT_ID":          "support",
		"LMS_CLIENT_SECRET":      "s3cret",
		"FETCH_TIMEOUT":          "2s",
		"MAX_CONCURRENT_FETCHES": "3",
		"DISABLE_TLS":            "true",
	})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want :9090", cfg.HTTPAddr)
	}
	if cfg.FetchTimeout != 2*time.Second {
		t.Errorf("FetchTimeout = %v, want 2s", cfg.FetchTimeout)
	}
	if cfg.MaxConcurrentFetches != 3 {
		t.Errorf("MaxConcurrentFetches = %d, want 3", cfg.MaxConcurrentFetches)
	}
	if !cfg.DisableTLS {
		t.Error("DisableTLS should be true")
	}
	if got := cfg.TokenURL(); got != "https://courses.example.com/oauth2/access_token" {
		t.Errorf("TokenURL = %q", got)
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"no backend", map[string]string{}},
		{"both backends", map[string]string{"LMS_BASE_URL": "https://lms", "LMS_FIXTURES": "f.yaml"}},
		{"half credentials", map[string]string{"LMS_BASE_URL": "https://lms", "LMS_CLIENT_ID": "id"}},
		{"production without session keys", map[string]string{"LMS_FIXTURES": "f.yaml", "APP_ENV": "production"}},
		{"zero concurrency", map[string]string{"LMS_FIXTURES": "f.yaml", "MAX_CONCURRENT_FETCHES": "0"}},
		{"wildcard origin", map[string]string{"LMS_FIXTURES": "f.yaml", "CORS_ALLOWED_ORIGINS": "https://a.example.com,*"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setenv(t, tt.env)
			if _, err := Load(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidate_EmptyAddr(t *testing.T) {
	// viper treats an empty variable as unset, so this rule is checked directly.
	cfg := &Config{LMSFixtures: "f.yaml", MaxConcurrentFetches: 1, MaxInflightRequests: 1, LMSTimeout: time.Second, FetchTimeout: time.Second}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for empty HTTP_ADDR")
	}
}

func TestLoad_ProductionWithSessionKeys(t *testing.T) {
	setenv(t, map[string]string{
		"LMS_FIXTURES":      "f.yaml",
		"APP_ENV":           "production",
		"SESSION_HASH_KEY":  "hash-key",
		"SESSION_BLOCK_KEY": "0123456789abcdef",
	})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.Production() {
		t.Error("Production() should be true")
	}
}
