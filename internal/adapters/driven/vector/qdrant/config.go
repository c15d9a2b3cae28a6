package qdrant

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Defaults applied by Config.withDefaults.
const (
	DefaultCollection    = "overlays"
	DefaultMaxRetries    = 4
	DefaultTimeout       = 10 * time.Second
	DefaultRetryInterval = 200 * time.Millisecond
)

// Config configures the Qdrant adapter.
type Config struct {
	URL        string
	APIKey     string
	Collection string

	// VectorDim is the collection vector size. It is used to create a
	// missing collection and to reject mismatched vectors.
	VectorDim int

	// MaxRetries bounds write attempts. One means no retry.
	MaxRetries int

	// RetryInterval is the first backoff delay.
	RetryInterval time.Duration

	Timeout time.Duration
}

// ConfigErrorCode classifies an invalid config.
type ConfigErrorCode string

const (
	ConfigErrorMissingURL       ConfigErrorCode = "missing_url"
	ConfigErrorInvalidURL       ConfigErrorCode = "invalid_url"
	ConfigErrorInvalidVectorDim ConfigErrorCode = "invalid_vector_dim"
)

// ConfigError reports an invalid config.
type ConfigError struct {
	Code  ConfigErrorCode
	Value string
	Cause error
}

func (e *ConfigError) Error() string {
	if e == nil {
		return "invalid qdrant config"
	}
	switch e.Code {
	case ConfigErrorMissingURL:
		return "qdrant.url (or QDRANT_URL) is required"
	case ConfigErrorInvalidURL:
		return fmt.Sprintf("invalid qdrant url %q; expected absolute URL like http://localhost:6333", e.Value)
	case ConfigErrorInvalidVectorDim:
		return fmt.Sprintf("invalid qdrant.vector_dim %s; expected positive integer", e.Value)
	default:
		return "invalid qdrant config"
	}
}

func (e *ConfigError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// ValidateConfig validates a Qdrant config.
func ValidateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.URL) == "" {
		return &ConfigError{Code: ConfigErrorMissingURL}
	}
	parsed, err := url.Parse(cfg.URL)
	if err != nil || strings.TrimSpace(parsed.Scheme) == "" || strings.TrimSpace(parsed.Host) == "" {
		return &ConfigError{Code: ConfigErrorInvalidURL, Value: cfg.URL, Cause: err}
	}
	if cfg.VectorDim <= 0 {
		return &ConfigError{Code: ConfigErrorInvalidVectorDim, Value: fmt.Sprint(cfg.VectorDim)}
	}
	return nil
}

func (cfg Config) withDefaults() Config {
	if strings.TrimSpace(cfg.Collection) == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = DefaultRetryInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	cfg.URL = strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	return cfg
}
