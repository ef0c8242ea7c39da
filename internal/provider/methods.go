package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"walletlink/internal/assembler"
	"walletlink/internal/jsonrpc"
	"walletlink/internal/wallet"
)

// Transactions assembles and relays transactions through the wallet
type Transactions interface {
	SendTransactions(ctx context.Context, txs []assembler.TxRequest) (common.Hash, error)
	EstimateGas(ctx context.Context, tx assembler.TxRequest) (string, error)
}

// Accounts gives access to the wallet account
type Accounts interface {
	Account(ctx context.Context) (*wallet.Account, error)
	Activate(ctx context.Context) (*wallet.Account, error)
}

func invalidParams(err error) error {
	return jsonrpc.NewError(jsonrpc.CodeInvalidParams, fmt.Sprintf("invalid params: %v", err))
}

// chainIDHandler answers eth_chainId without touching the network
func chainIDHandler(chainID uint64) Handler {
	result, _ := json.Marshal(hexutil.EncodeUint64(chainID))
	return HandlerFunc(func(context.Context, string, json.RawMessage) (json.RawMessage, error) {
		return result, nil
	})
}

// sendTransactionHandler treats every element of params as one transaction
func sendTransactionHandler(txs Transactions) Handler {
	return HandlerFunc(func(ctx context.Context, _ string, params json.RawMessage) (json.RawMessage, error) {
		var requests []assembler.TxRequest
		if err := json.Unmarshal(params, &requests); err != nil {
			return nil, invalidParams(err)
		}
		hash, err := txs.SendTransactions(ctx, requests)
		if err != nil {
			return nil, err
		}
		return json.Marshal(hash)
	})
}

// estimateGasHandler uses the first params element; a block tag is ignored
func estimateGasHandler(txs Transactions) Handler {
	return HandlerFunc(func(ctx context.Context, _ string, params json.RawMessage) (json.RawMessage, error) {
		var args []json.RawMessage
		if err := json.Unmarshal(params, &args); err != nil {
			return nil, invalidParams(err)
		}
		if len(args) == 0 {
			return nil, invalidParams(errors.New("missing transaction"))
		}
		var tx assembler.TxRequest
		if err := json.Unmarshal(args[0], &tx); err != nil {
			return nil, invalidParams(err)
		}
		gas, err := txs.EstimateGas(ctx, tx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(gas)
	})
}

// accountsHandler returns the saved account, or none
func accountsHandler(accounts Accounts) Handler {
	return HandlerFunc(func(ctx context.Context, _ string, _ json.RawMessage) (json.RawMessage, error) {
		account, err := accounts.Account(ctx)
		if errors.Is(err, wallet.ErrNoAccount) {
			return json.Marshal([]common.Address{})
		}
		if err != nil {
			return nil, err
		}
		return json.Marshal([]common.Address{account.Address})
	})
}

// requestAccountsHandler asks the wallet for an account when none is saved
func requestAccountsHandler(accounts Accounts) Handler {
	return HandlerFunc(func(ctx context.Context, _ string, _ json.RawMessage) (json.RawMessage, error) {
		account, err := accounts.Activate(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal([]common.Address{account.Address})
	})
}
