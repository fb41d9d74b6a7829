package config

import (
	"os"

	"github.com/spf13/viper"

	"github.com/Veraticus/ecolens/internal/classifier"
)

// LoadClassifierConfig loads the classifier backend configuration.
// It follows this precedence:
// 1. Viper configuration (from config file or ECOLENS_ env vars)
// 2. Provider specific environment variables
// 3. Default values
func LoadClassifierConfig() classifier.Config {
	cfg := classifier.Config{
		Provider:        viper.GetString("classifier.provider"),
		Endpoint:        viper.GetString("classifier.endpoint"),
		APIKey:          viper.GetString("classifier.api_key"),
		CredentialsFile: ExpandPath(viper.GetString("classifier.credentials_file")),
		FixturePath:     ExpandPath(viper.GetString("classifier.fixture_path")),
		MaxResults:      viper.GetInt("classifier.max_results"),
		Timeout:         viper.GetDuration("classifier.timeout"),
		RateLimit:       viper.GetInt("classifier.rate_limit"),
		CacheTTL:        viper.GetDuration("classifier.cache_ttl"),
		MaxRetries:      viper.GetInt("classifier.max_retries"),
		RetryDelay:      viper.GetDuration("classifier.retry_delay"),
	}

	if cfg.Provider == classifier.ProviderVision && cfg.CredentialsFile == "" && cfg.APIKey == "" {
		cfg.CredentialsFile = os.Getenv("GOOGLE_APPLICATION_CREDENTIALS")
	}
	if cfg.Provider == classifier.ProviderRemote && cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("ECOLENS_INFERENCE_TOKEN")
	}

	return cfg
}
