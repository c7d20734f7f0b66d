package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultBaseURL       = "https://amm-devnet.example.com"
	DefaultCheckInterval = 30 * time.Second
	DefaultDevnetAddr    = ":8545"
)

// Config holds the application configuration
type Config struct {
	BaseURL         string
	WalletAddress   string
	LogLevel        string
	LogFormat       string
	PlanStoragePath string
	CheckInterval   time.Duration
	DevnetAddr      string
}

// Load reads configuration from environment variables and the optional
// .mina-swap.yaml file in $HOME or the working directory
func Load() (*Config, error) {
	v := newViper()
	v.SetConfigName(".mina-swap")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return fromViper(v)
}

// LoadFile reads configuration from an explicit file, still honouring env overrides
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return fromViper(v)
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("base_url", DefaultBaseURL)
	v.SetDefault("wallet_address", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("plan_storage_path", "")
	v.SetDefault("check_interval", DefaultCheckInterval.String())
	v.SetDefault("devnet_addr", DefaultDevnetAddr)

	v.SetEnvPrefix("MINA_SWAP")
	v.AutomaticEnv()

	return v
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		BaseURL:         v.GetString("base_url"),
		WalletAddress:   v.GetString("wallet_address"),
		LogLevel:        v.GetString("log_level"),
		LogFormat:       v.GetString("log_format"),
		PlanStoragePath: v.GetString("plan_storage_path"),
		CheckInterval:   v.GetDuration("check_interval"),
		DevnetAddr:      v.GetString("devnet_addr"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration values that cannot be defaulted
func (c *Config) Validate() error {
	if err := ValidateBaseURL(c.BaseURL); err != nil {
		return err
	}
	if c.CheckInterval <= 0 {
		return fmt.Errorf("check_interval must be a positive duration (e.g. 30s)")
	}
	return nil
}

// ValidateBaseURL ensures the AMM base URL is an absolute http(s) URL
func ValidateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid base_url %q: %w", raw, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if (scheme != "http" && scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid base_url %q: must be an absolute http(s) URL", raw)
	}
	return nil
}
