package core

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Default configuration values. The base URL matches the public ALA API
// gateway the original service talks to.
const (
	DefaultBaseURL        = "https://api.ala.org.au"
	DefaultRequestTimeout = 30 * time.Second
	DefaultCacheMaxSize   = 1000
	DefaultResultLimit    = 20
)

// Config carries the tunable settings for the agent core.
// Precedence: explicit option > environment variable > env.yaml > default.
type Config struct {
	// BaseURL is the root of the external data service.
	BaseURL string `yaml:"ALA_API_URL"`

	// RequestTimeout bounds every external call.
	RequestTimeout time.Duration `yaml:"-"`

	// CacheMaxSize caps the identity cache entry count. Zero means
	// DefaultCacheMaxSize.
	CacheMaxSize int `yaml:"-"`

	// CacheTTL expires identity entries. Zero means entries live for
	// the whole session.
	CacheTTL time.Duration `yaml:"-"`

	// ResultLimit is the default page size for search operations.
	ResultLimit int `yaml:"-"`

	// Extractor settings (external structured-output collaborator).
	ExtractorEndpoint string `yaml:"EXTRACTOR_ENDPOINT"`
	ExtractorModel    string `yaml:"EXTRACTOR_MODEL"`
	ExtractorAPIKey   string `yaml:"OPENAI_API_KEY"`
}

// Option mutates a Config during construction.
type Option func(*Config)

// WithBaseURL overrides the data-service base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithRequestTimeout overrides the per-call timeout.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Config) { c.RequestTimeout = d }
}

// WithCacheMaxSize overrides the identity cache capacity.
func WithCacheMaxSize(n int) Option {
	return func(c *Config) { c.CacheMaxSize = n }
}

// WithCacheTTL sets an expiry on identity cache entries.
func WithCacheTTL(d time.Duration) Option {
	return func(c *Config) { c.CacheTTL = d }
}

// WithResultLimit overrides the default search page size.
func WithResultLimit(n int) Option {
	return func(c *Config) { c.ResultLimit = n }
}

// WithExtractor configures the structured-output extractor endpoint.
func WithExtractor(endpoint, model, apiKey string) Option {
	return func(c *Config) {
		c.ExtractorEndpoint = endpoint
		c.ExtractorModel = model
		c.ExtractorAPIKey = apiKey
	}
}

// NewConfig builds a Config from defaults, the optional env.yaml file,
// environment variables and explicit options, in increasing precedence.
func NewConfig(opts ...Option) *Config {
	cfg := &Config{
		BaseURL:        DefaultBaseURL,
		RequestTimeout: DefaultRequestTimeout,
		CacheMaxSize:   DefaultCacheMaxSize,
		ResultLimit:    DefaultResultLimit,
	}

	// The original deployment keeps its secrets in env.yaml next to the
	// binary; honor the same file when present.
	if vals, err := loadYAMLFile("env.yaml"); err == nil {
		applyConfigValue(&cfg.BaseURL, vals["ALA_API_URL"])
		applyConfigValue(&cfg.ExtractorEndpoint, vals["EXTRACTOR_ENDPOINT"])
		applyConfigValue(&cfg.ExtractorModel, vals["EXTRACTOR_MODEL"])
		applyConfigValue(&cfg.ExtractorAPIKey, vals["OPENAI_API_KEY"])
	}

	applyConfigValue(&cfg.BaseURL, os.Getenv("ALA_API_URL"))
	applyConfigValue(&cfg.ExtractorEndpoint, os.Getenv("EXTRACTOR_ENDPOINT"))
	applyConfigValue(&cfg.ExtractorModel, os.Getenv("EXTRACTOR_MODEL"))
	applyConfigValue(&cfg.ExtractorAPIKey, os.Getenv("OPENAI_API_KEY"))
	if v := os.Getenv("TAXONAUT_REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.RequestTimeout = d
		}
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return cfg
}

// Validate reports configuration problems that would prevent startup.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("%w: base URL is empty", ErrInvalidConfiguration)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("%w: request timeout must be positive", ErrInvalidConfiguration)
	}
	if c.CacheMaxSize < 0 {
		return fmt.Errorf("%w: cache max size must not be negative", ErrInvalidConfiguration)
	}
	return nil
}

func loadYAMLFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	vals := make(map[string]string)
	if err := yaml.Unmarshal(data, &vals); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfiguration, path, err)
	}
	return vals, nil
}

func applyConfigValue(dst *string, val string) {
	if val != "" {
		*dst = val
	}
}
