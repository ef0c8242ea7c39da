package provider

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"
)

// Config for creating a new Provider
type Config struct {
	ChainID      uint64
	Network      Handler // terminal handler, normally the batch scheduler
	Transactions Transactions
	Accounts     Accounts
	Logger       zerolog.Logger
}

// Provider is the JSON-RPC entry point of the bridge. Wallet methods are
// answered locally or through the wallet; everything else goes to the
// network.
type Provider struct {
	handler Handler
	logger  zerolog.Logger
}

// New creates a new Provider
func New(cfg Config) *Provider {
	logger := cfg.Logger.With().Str("component", "provider").Logger()

	middlewares := []Middleware{
		Logging(logger),
		Intercept(chainIDHandler(cfg.ChainID), "eth_chainId"),
	}
	if cfg.Transactions != nil {
		middlewares = append(middlewares,
			Intercept(sendTransactionHandler(cfg.Transactions), "eth_sendTransaction"),
			Intercept(estimateGasHandler(cfg.Transactions), "eth_estimateGas"),
		)
	}
	if cfg.Accounts != nil {
		middlewares = append(middlewares,
			Intercept(accountsHandler(cfg.Accounts), "eth_accounts"),
			Intercept(requestAccountsHandler(cfg.Accounts), "eth_requestAccounts"),
		)
	}

	return &Provider{
		handler: Chain(cfg.Network, middlewares...),
		logger:  logger,
	}
}

// Request performs one call
func (p *Provider) Request(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
	if len(params) == 0 {
		params = json.RawMessage("[]")
	}
	return p.handler.Handle(ctx, method, params)
}
