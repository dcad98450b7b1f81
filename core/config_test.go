package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, DefaultRequestTimeout, cfg.RequestTimeout)
	assert.Equal(t, DefaultCacheMaxSize, cfg.CacheMaxSize)
	assert.Equal(t, DefaultResultLimit, cfg.ResultLimit)
	assert.NoError(t, cfg.Validate())
}

func TestNewConfigEnvironmentOverridesDefaults(t *testing.T) {
	t.Setenv("ALA_API_URL", "https://staging.example.org")
	t.Setenv("TAXONAUT_REQUEST_TIMEOUT", "15s")

	cfg := NewConfig()
	assert.Equal(t, "https://staging.example.org", cfg.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
}

func TestNewConfigOptionsOverrideEnvironment(t *testing.T) {
	t.Setenv("ALA_API_URL", "https://staging.example.org")

	cfg := NewConfig(
		WithBaseURL("https://option.example.org"),
		WithRequestTimeout(5*time.Second),
		WithCacheMaxSize(50),
		WithCacheTTL(time.Minute),
		WithResultLimit(100),
	)

	assert.Equal(t, "https://option.example.org", cfg.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 50, cfg.CacheMaxSize)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
	assert.Equal(t, 100, cfg.ResultLimit)
}

func TestNewConfigIgnoresInvalidTimeout(t *testing.T) {
	t.Setenv("TAXONAUT_REQUEST_TIMEOUT", "not-a-duration")

	cfg := NewConfig()
	assert.Equal(t, DefaultRequestTimeout, cfg.RequestTimeout)
}

func TestConfigWithExtractor(t *testing.T) {
	cfg := NewConfig(WithExtractor("https://llm.example.org/v1", "gpt-4o-mini", "sk-test"))

	assert.Equal(t, "https://llm.example.org/v1", cfg.ExtractorEndpoint)
	assert.Equal(t, "gpt-4o-mini", cfg.ExtractorModel)
	assert.Equal(t, "sk-test", cfg.ExtractorAPIKey)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid defaults", func(c *Config) {}, false},
		{"empty base url", func(c *Config) { c.BaseURL = "" }, true},
		{"zero timeout", func(c *Config) { c.RequestTimeout = 0 }, true},
		{"negative cache size", func(c *Config) { c.CacheMaxSize = -1 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidConfiguration)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
