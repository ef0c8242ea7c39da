package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `{"rpcUrl": "https://forno.celo.org"}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultHost, cfg.Host)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, uint64(ChainCeloMainnet), cfg.ChainID)
	assert.Equal(t, DefaultBatchWait, cfg.BatchWait)
	assert.Equal(t, CorrelationKeyed, cfg.Correlation.Mode)
	assert.Equal(t, DefaultCorrelationPollInterval, cfg.Correlation.PollInterval)
	assert.Equal(t, StoreMemory, cfg.Store.Backend)
	assert.Equal(t, "http://localhost:8645", cfg.PublicURL)
	assert.Equal(t, "http://localhost:8645/callback", cfg.CallbackURL())
}

func TestLoad_FileValues(t *testing.T) {
	path := writeConfig(t, `{
		"rpcUrl": "https://alfajores-forno.celo-testnet.org",
		"chainId": 44787,
		"batchWait": 20,
		"publicUrl": "https://dapp.example/",
		"wallet": {"dappName": "Centro"},
		"correlation": {"mode": "single", "pollInterval": 250},
		"store": {"backend": "redis", "redisUrl": "redis://localhost:6379/0"}
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, uint64(ChainCeloAlfajores), cfg.ChainID)
	assert.Equal(t, 20, cfg.BatchWait)
	assert.Equal(t, "https://dapp.example", cfg.PublicURL)
	assert.Equal(t, "Centro", cfg.Wallet.DappName)
	assert.Equal(t, CorrelationSingle, cfg.Correlation.Mode)
	assert.Equal(t, 250, cfg.Correlation.PollInterval)
	assert.Equal(t, StoreRedis, cfg.Store.Backend)
	assert.Equal(t, "0x874069fa1eb16d44d622f2e0ca25eea172369bc1", cfg.FeeCurrency())
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, `{"rpcUrl": "https://forno.celo.org"}`)
	t.Setenv("WALLETLINK_LOGLEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"missing rpcUrl":  `{}`,
		"bad mode":        `{"rpcUrl": "https://forno.celo.org", "correlation": {"mode": "many"}}`,
		"redis no url":    `{"rpcUrl": "https://forno.celo.org", "store": {"backend": "redis"}}`,
		"bad log level":   `{"rpcUrl": "https://forno.celo.org", "logLevel": "trace"}`,
		"negative wait":   `{"rpcUrl": "https://forno.celo.org", "batchWait": -1}`,
		"unknown backend": `{"rpcUrl": "https://forno.celo.org", "store": {"backend": "etcd"}}`,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			require.Error(t, err)
		})
	}
}

func TestFeeCurrency(t *testing.T) {
	cfg := &Config{ChainID: ChainCeloBaklava}
	assert.Equal(t, stableTokens[ChainCeloMainnet], cfg.FeeCurrency())

	cfg.Wallet.FeeCurrency = "0xabc"
	assert.Equal(t, "0xabc", cfg.FeeCurrency())
}
