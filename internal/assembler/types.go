package assembler

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"walletlink/internal/correlator"
	"walletlink/internal/deeplink"
)

// ErrEmptyBatch is returned when no transactions are supplied
var ErrEmptyBatch = errors.New("no transactions to send")

// ErrNothingSigned is returned when the wallet approves but returns no transactions
var ErrNothingSigned = errors.New("wallet returned no signed transactions")

// EstimationError is returned when gas estimation fails for a transaction.
// Nothing is sent to the wallet in that case.
type EstimationError struct {
	Index int
	Err   error
}

// Error implements the error interface
func (e *EstimationError) Error() string {
	return fmt.Sprintf("gas estimation failed for transaction %d: %v", e.Index, e.Err)
}

// Unwrap returns the underlying error
func (e *EstimationError) Unwrap() error {
	return e.Err
}

// Chain is the node access the assembler needs
type Chain interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendRawTransaction(ctx context.Context, rawTx string) (common.Hash, error)
}

// RoundTripper sends a wallet request and waits for the matching response
type RoundTripper interface {
	RoundTrip(ctx context.Context, sender correlator.Sender, req *deeplink.Request) (*deeplink.Response, error)
}

// TxRequest is one eth_sendTransaction call object
type TxRequest struct {
	From  common.Address  `json:"from"`
	To    *common.Address `json:"to,omitempty"`
	Data  hexutil.Bytes   `json:"data,omitempty"`
	Input hexutil.Bytes   `json:"input,omitempty"`
}

// CallData returns data, falling back to input
func (t *TxRequest) CallData() []byte {
	if len(t.Data) > 0 {
		return t.Data
	}
	return t.Input
}

// callMsg builds the estimation message for t
func (t *TxRequest) callMsg() ethereum.CallMsg {
	return ethereum.CallMsg{
		From: t.From,
		To:   t.To,
		Data: t.CallData(),
	}
}

// AssembledTransaction is a fully populated transaction handed to the
// wallet for signing
type AssembledTransaction struct {
	From               common.Address  `json:"from"`
	To                 *common.Address `json:"to,omitempty"`
	Nonce              uint64          `json:"nonce"`
	TxData             hexutil.Bytes   `json:"txData"`
	EstimatedGas       uint64          `json:"estimatedGas"`
	GasLimit           uint64          `json:"gasLimit"`
	GasPrice           *hexutil.Big    `json:"gasPrice,omitempty"`
	Value              string          `json:"value"`
	FeeCurrencyAddress common.Address  `json:"feeCurrencyAddress"`
	ChainID            uint64          `json:"chainId"`
}
