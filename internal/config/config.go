package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix for environment overrides, e.g. WALLETLINK_RPCURL
const EnvPrefix = "WALLETLINK"

// Load reads and parses the configuration file. Every key may be overridden
// from the environment. An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can resolve it on Unmarshal
func setDefaults(v *viper.Viper) {
	v.SetDefault("host", DefaultHost)
	v.SetDefault("port", DefaultPort)
	v.SetDefault("logLevel", DefaultLogLevel)
	v.SetDefault("maxBodySize", DefaultMaxBodySize)
	v.SetDefault("publicUrl", "")
	v.SetDefault("rpcUrl", "")
	v.SetDefault("requestTimeout", DefaultRequestTimeout)
	v.SetDefault("chainId", DefaultChainID)
	v.SetDefault("batchWait", DefaultBatchWait)
	v.SetDefault("statsLogInterval", DefaultStatsLogInterval)
	v.SetDefault("corsOrigins", []string{})
	v.SetDefault("wallet.deepLinkUrl", DefaultDeepLinkURL)
	v.SetDefault("wallet.dappName", DefaultDappName)
	v.SetDefault("wallet.feeCurrency", "")
	v.SetDefault("correlation.mode", string(DefaultCorrelationMode))
	v.SetDefault("correlation.pollInterval", DefaultCorrelationPollInterval)
	v.SetDefault("correlation.timeout", 0)
	v.SetDefault("store.backend", string(DefaultStoreBackend))
	v.SetDefault("store.redisUrl", "")
	v.SetDefault("store.size", DefaultStoreSize)
	v.SetDefault("store.ttl", DefaultStoreTTL)
}

// applyDefaults sets default values for fields left at zero explicitly
func applyDefaults(cfg *Config) {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.ChainID == 0 {
		cfg.ChainID = DefaultChainID
	}
	if cfg.BatchWait == 0 {
		cfg.BatchWait = DefaultBatchWait
	}
	if cfg.StatsLogInterval == 0 {
		cfg.StatsLogInterval = DefaultStatsLogInterval
	}
	if cfg.PublicURL == "" {
		cfg.PublicURL = fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port)
	}
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")
	if cfg.Wallet.DeepLinkURL == "" {
		cfg.Wallet.DeepLinkURL = DefaultDeepLinkURL
	}
	if cfg.Wallet.DappName == "" {
		cfg.Wallet.DappName = DefaultDappName
	}
	if cfg.Correlation.Mode == "" {
		cfg.Correlation.Mode = DefaultCorrelationMode
	}
	if cfg.Correlation.PollInterval == 0 {
		cfg.Correlation.PollInterval = DefaultCorrelationPollInterval
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = DefaultStoreBackend
	}
	if cfg.Store.Size == 0 {
		cfg.Store.Size = DefaultStoreSize
	}
	if cfg.Store.TTL == 0 {
		cfg.Store.TTL = DefaultStoreTTL
	}
}

// validate checks the configuration for errors
func validate(cfg *Config) error {
	if cfg.RPCURL == "" {
		return errors.New("rpcUrl is required")
	}
	if _, err := url.ParseRequestURI(cfg.RPCURL); err != nil {
		return fmt.Errorf("rpcUrl is not a valid URL: %w", err)
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("logLevel must be one of: debug, info, warn, error")
	}

	if cfg.RequestTimeout < 0 {
		return fmt.Errorf("requestTimeout must be non-negative")
	}
	if cfg.BatchWait < 0 {
		return fmt.Errorf("batchWait must be non-negative")
	}
	if cfg.MaxBodySize < 0 {
		return fmt.Errorf("maxBodySize must be non-negative")
	}

	if _, err := url.Parse(cfg.Wallet.DeepLinkURL); err != nil {
		return fmt.Errorf("wallet.deepLinkUrl is not a valid URL: %w", err)
	}

	switch cfg.Correlation.Mode {
	case CorrelationSingle, CorrelationKeyed:
	default:
		return fmt.Errorf("correlation.mode must be 'single' or 'keyed'")
	}
	if cfg.Correlation.PollInterval < 0 {
		return fmt.Errorf("correlation.pollInterval must be non-negative")
	}
	if cfg.Correlation.Timeout < 0 {
		return fmt.Errorf("correlation.timeout must be non-negative")
	}

	switch cfg.Store.Backend {
	case StoreMemory:
		if cfg.Store.Size <= 0 {
			return fmt.Errorf("store.size must be positive for the memory backend")
		}
	case StoreRedis:
		if cfg.Store.RedisURL == "" {
			return fmt.Errorf("store.redisUrl is required for the redis backend")
		}
	default:
		return fmt.Errorf("store.backend must be 'memory' or 'redis'")
	}

	return nil
}
