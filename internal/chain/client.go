package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Caller performs one JSON-RPC call on the network path
type Caller interface {
	Call(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error)
}

// CallerFunc adapts a function to Caller
type CallerFunc func(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error)

// Call calls f
func (f CallerFunc) Call(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
	return f(ctx, method, params)
}

// Client provides the typed node APIs needed to assemble and relay transactions
type Client struct {
	caller Caller
}

// NewClient creates a new Client
func NewClient(caller Caller) *Client {
	return &Client{caller: caller}
}

func (c *Client) call(ctx context.Context, result interface{}, method string, args ...interface{}) error {
	if args == nil {
		args = []interface{}{}
	}
	params, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("failed to encode %s params: %w", method, err)
	}

	raw, err := c.caller.Call(ctx, method, params)
	if err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", method, err)
	}
	return nil
}

// PendingNonceAt returns the account nonce of the given account in the pending state.
// This is the nonce that should be used for the next transaction.
func (c *Client) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	var result hexutil.Uint64
	err := c.call(ctx, &result, "eth_getTransactionCount", account, "pending")
	return uint64(result), err
}

// SuggestGasPrice retrieves the currently suggested gas price
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	var hex hexutil.Big
	if err := c.call(ctx, &hex, "eth_gasPrice"); err != nil {
		return nil, err
	}
	return (*big.Int)(&hex), nil
}

// EstimateGas estimates the gas needed to execute msg against the pending state
func (c *Client) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	var hex hexutil.Uint64
	if err := c.call(ctx, &hex, "eth_estimateGas", toCallArg(msg)); err != nil {
		return 0, err
	}
	return uint64(hex), nil
}

// SendRawTransaction submits a signed transaction and returns its hash.
// The encoding is not interpreted, so any signed envelope the wallet
// produces is relayed as is.
func (c *Client) SendRawTransaction(ctx context.Context, rawTx string) (common.Hash, error) {
	if _, err := hexutil.Decode(rawTx); err != nil {
		return common.Hash{}, fmt.Errorf("invalid raw transaction: %w", err)
	}

	var hash common.Hash
	if err := c.call(ctx, &hash, "eth_sendRawTransaction", rawTx); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

func toCallArg(msg ethereum.CallMsg) interface{} {
	arg := map[string]interface{}{
		"from": msg.From,
	}
	if msg.To != nil {
		arg["to"] = msg.To
	}
	if len(msg.Data) > 0 {
		arg["data"] = hexutil.Bytes(msg.Data)
	}
	if msg.Value != nil {
		arg["value"] = (*hexutil.Big)(msg.Value)
	}
	if msg.Gas != 0 {
		arg["gas"] = hexutil.Uint64(msg.Gas)
	}
	if msg.GasPrice != nil {
		arg["gasPrice"] = (*hexutil.Big)(msg.GasPrice)
	}
	return arg
}
