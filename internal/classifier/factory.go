package classifier

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Veraticus/ecolens/internal/common"
	"github.com/Veraticus/ecolens/internal/service"
)

// Supported model providers.
const (
	ProviderFixture = "fixture"
	ProviderRemote  = "remote"
	ProviderVision  = "vision"
)

// Config holds configuration for the classifier backend.
type Config struct {
	// HTTPClient overrides the client used by remote backends.
	HTTPClient      *http.Client
	Provider        string
	Endpoint        string
	APIKey          string
	CredentialsFile string
	FixturePath     string
	MaxResults      int
	Timeout         time.Duration
	RetryDelay      time.Duration
	CacheTTL        time.Duration
	RateLimit       int
	MaxRetries      int
}

func (c Config) retryOptions() service.RetryOptions {
	opts := service.RetryOptions{
		MaxAttempts:  c.MaxRetries,
		InitialDelay: c.RetryDelay,
		Multiplier:   2.0,
	}
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 3
	}
	if opts.InitialDelay == 0 {
		opts.InitialDelay = 500 * time.Millisecond
	}
	opts.MaxDelay = min(20*opts.InitialDelay, 10*time.Second)
	return opts
}

func (c Config) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	timeout := c.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

func (c Config) maxResults() int {
	if c.MaxResults <= 0 {
		return 5
	}
	return c.MaxResults
}

// NewLoader returns the LoadFunc for the configured provider. Remote
// providers are wrapped with a prediction cache and a rate limiter.
func NewLoader(cfg Config) (LoadFunc, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderFixture, "":
		if cfg.FixturePath == "" {
			return nil, fmt.Errorf("%w: classifier.fixture_path is required for the fixture provider", common.ErrMissingConfig)
		}
		return newFixtureLoader(cfg.FixturePath), nil
	case ProviderRemote:
		load, err := newRemoteLoader(cfg)
		if err != nil {
			return nil, err
		}
		return guard(load, cfg.CacheTTL, cfg.RateLimit), nil
	case ProviderVision:
		return guard(newVisionLoader(cfg), cfg.CacheTTL, cfg.RateLimit), nil
	default:
		return nil, fmt.Errorf("%w: unsupported classifier provider: %s", common.ErrInvalidConfig, cfg.Provider)
	}
}
