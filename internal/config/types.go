package config

import "time"

// CorrelationMode selects how wallet callbacks are stored while a caller waits
type CorrelationMode string

const (
	// CorrelationSingle keeps one shared slot; only one round trip may be outstanding
	CorrelationSingle CorrelationMode = "single"
	// CorrelationKeyed keeps one slot per request id
	CorrelationKeyed CorrelationMode = "keyed"
)

// StoreBackend selects the durable store implementation
type StoreBackend string

const (
	StoreMemory StoreBackend = "memory"
	StoreRedis  StoreBackend = "redis"
)

// Config represents the main configuration structure
type Config struct {
	Host             string            `json:"host" mapstructure:"host"`
	Port             int               `json:"port" mapstructure:"port"`
	LogLevel         string            `json:"logLevel" mapstructure:"logLevel"`
	MaxBodySize      int64             `json:"maxBodySize" mapstructure:"maxBodySize"`
	PublicURL        string            `json:"publicUrl" mapstructure:"publicUrl"` // externally reachable base URL, used to build the wallet callback
	RPCURL           string            `json:"rpcUrl" mapstructure:"rpcUrl"`
	RequestTimeout   int               `json:"requestTimeout" mapstructure:"requestTimeout"` // ms - upstream HTTP timeout
	ChainID          uint64            `json:"chainId" mapstructure:"chainId"`
	BatchWait        int               `json:"batchWait" mapstructure:"batchWait"`               // ms - debounce window
	StatsLogInterval int               `json:"statsLogInterval" mapstructure:"statsLogInterval"` // ms
	CORSOrigins      []string          `json:"corsOrigins" mapstructure:"corsOrigins"`
	Wallet           WalletConfig      `json:"wallet" mapstructure:"wallet"`
	Correlation      CorrelationConfig `json:"correlation" mapstructure:"correlation"`
	Store            StoreConfig       `json:"store" mapstructure:"store"`
}

// WalletConfig describes the external wallet app
type WalletConfig struct {
	DeepLinkURL string `json:"deepLinkUrl" mapstructure:"deepLinkUrl"`
	DappName    string `json:"dappName" mapstructure:"dappName"`
	FeeCurrency string `json:"feeCurrency" mapstructure:"feeCurrency"` // overrides the built-in stable token table
}

// CorrelationConfig configures the response correlator
type CorrelationConfig struct {
	Mode         CorrelationMode `json:"mode" mapstructure:"mode"`
	PollInterval int             `json:"pollInterval" mapstructure:"pollInterval"` // ms
	Timeout      int             `json:"timeout" mapstructure:"timeout"`           // ms, 0 waits forever
}

// StoreConfig configures the durable callback store
type StoreConfig struct {
	Backend  StoreBackend `json:"backend" mapstructure:"backend"`
	RedisURL string       `json:"redisUrl" mapstructure:"redisUrl"`
	Size     int          `json:"size" mapstructure:"size"` // memory backend capacity
	TTL      int          `json:"ttl" mapstructure:"ttl"`   // seconds
}

// Default values
const (
	DefaultHost                    = "localhost"
	DefaultPort                    = 8645
	DefaultLogLevel                = "info"
	DefaultMaxBodySize             = int64(0) // 0 means no limit
	DefaultRequestTimeout          = 30000    // ms
	DefaultChainID                 = uint64(ChainCeloMainnet)
	DefaultBatchWait               = 50    // ms
	DefaultStatsLogInterval        = 60000 // ms
	DefaultDeepLinkURL             = "celo://wallet/dappkit"
	DefaultDappName                = "walletlink"
	DefaultCorrelationMode         = CorrelationKeyed
	DefaultCorrelationPollInterval = 100 // ms
	DefaultStoreBackend            = StoreMemory
	DefaultStoreSize               = 1024
	DefaultStoreTTL                = 86400 // s
)

// Known chains
const (
	ChainCeloMainnet   = 42220
	ChainCeloAlfajores = 44787
	ChainCeloBaklava   = 62320
)

// stableTokens maps chain id to the stable asset used to pay fees
var stableTokens = map[uint64]string{
	ChainCeloMainnet:   "0x765de816845861e75a25fca122bb6898b8b1282a",
	ChainCeloAlfajores: "0x874069fa1eb16d44d622f2e0ca25eea172369bc1",
}

// FeeCurrency returns the fee currency address for the configured chain.
// Unknown chains fall back to mainnet, as the wallet does.
func (c *Config) FeeCurrency() string {
	if c.Wallet.FeeCurrency != "" {
		return c.Wallet.FeeCurrency
	}
	if addr, ok := stableTokens[c.ChainID]; ok {
		return addr
	}
	return stableTokens[ChainCeloMainnet]
}

// CallbackURL returns the URL the wallet redirects back to
func (c *Config) CallbackURL() string {
	return c.PublicURL + "/callback"
}

// GetRequestTimeoutDuration returns request timeout as time.Duration
func (c *Config) GetRequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Millisecond
}

// GetBatchWaitDuration returns the debounce window as time.Duration
func (c *Config) GetBatchWaitDuration() time.Duration {
	return time.Duration(c.BatchWait) * time.Millisecond
}

// GetStatsLogIntervalDuration returns stats log interval as time.Duration
func (c *Config) GetStatsLogIntervalDuration() time.Duration {
	return time.Duration(c.StatsLogInterval) * time.Millisecond
}

// GetPollIntervalDuration returns the correlator poll period
func (c *CorrelationConfig) GetPollIntervalDuration() time.Duration {
	return time.Duration(c.PollInterval) * time.Millisecond
}

// GetTimeoutDuration returns the correlator deadline, 0 means none
func (c *CorrelationConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}

// GetTTLDuration returns the store entry TTL
func (c *StoreConfig) GetTTLDuration() time.Duration {
	return time.Duration(c.TTL) * time.Second
}
