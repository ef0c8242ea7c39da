package assembler

import (
	"context"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"walletlink/internal/correlator"
	"walletlink/internal/deeplink"
	"walletlink/internal/metrics"
)

// Config for creating a new Assembler
type Config struct {
	Chain       Chain
	Sender      correlator.Sender
	Correlator  RoundTripper
	ChainID     uint64
	FeeCurrency common.Address
	Metrics     *metrics.Metrics
	Logger      zerolog.Logger
}

// Assembler turns eth_sendTransaction calls into wallet signing requests
// and relays the signed result
type Assembler struct {
	chain       Chain
	sender      correlator.Sender
	correlator  RoundTripper
	chainID     uint64
	feeCurrency common.Address
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

// New creates a new Assembler
func New(cfg Config) *Assembler {
	return &Assembler{
		chain:       cfg.Chain,
		sender:      cfg.Sender,
		correlator:  cfg.Correlator,
		chainID:     cfg.ChainID,
		feeCurrency: cfg.FeeCurrency,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger.With().Str("component", "assembler").Logger(),
	}
}

// Assemble fills in nonce, gas and fee fields for txs. The base nonce is
// taken for the first sender; transaction i gets base+i.
func (a *Assembler) Assemble(ctx context.Context, txs []TxRequest) ([]AssembledTransaction, error) {
	if len(txs) == 0 {
		return nil, ErrEmptyBatch
	}

	var (
		baseNonce uint64
		gasPrice  *big.Int
		estimates = make([]uint64, len(txs))
	)

	// All lookups are issued together so they share one upstream batch.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		nonce, err := a.chain.PendingNonceAt(gctx, txs[0].From)
		if err != nil {
			return fmt.Errorf("failed to get nonce: %w", err)
		}
		baseNonce = nonce
		return nil
	})
	// The gas price is advisory, the wallet prices the transaction itself
	// when it is missing.
	g.Go(func() error {
		price, err := a.chain.SuggestGasPrice(gctx)
		if err != nil {
			a.logger.Warn().Err(err).Msg("gas price unavailable, leaving it to the wallet")
			return nil
		}
		gasPrice = price
		return nil
	})
	for i := range txs {
		g.Go(func() error {
			gas, err := a.chain.EstimateGas(gctx, txs[i].callMsg())
			if err != nil {
				return &EstimationError{Index: i, Err: err}
			}
			estimates[i] = gas
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	assembled := make([]AssembledTransaction, len(txs))
	for i, tx := range txs {
		assembled[i] = AssembledTransaction{
			From:               tx.From,
			To:                 tx.To,
			Nonce:              baseNonce + uint64(i),
			TxData:             tx.CallData(),
			EstimatedGas:       estimates[i],
			GasLimit:           estimates[i],
			GasPrice:           (*hexutil.Big)(gasPrice),
			Value:              "0",
			FeeCurrencyAddress: a.feeCurrency,
			ChainID:            a.chainID,
		}
	}
	return assembled, nil
}

// SendTransactions assembles txs, asks the wallet to sign them and
// broadcasts the first signed transaction. Further signed transactions
// are not relayed.
func (a *Assembler) SendTransactions(ctx context.Context, txs []TxRequest) (common.Hash, error) {
	assembled, err := a.Assemble(ctx, txs)
	if err != nil {
		return common.Hash{}, err
	}

	req := &deeplink.Request{
		RequestID: deeplink.NewRequestID(deeplink.KindSignTx),
		Kind:      deeplink.KindSignTx,
		Payload:   assembled,
	}

	a.logger.Info().
		Str("requestId", req.RequestID).
		Int("transactions", len(assembled)).
		Uint64("baseNonce", assembled[0].Nonce).
		Msg("requesting signature")

	resp, err := a.correlator.RoundTrip(ctx, a.sender, req)
	if err != nil {
		return common.Hash{}, err
	}
	if len(resp.RawTxs) == 0 {
		return common.Hash{}, ErrNothingSigned
	}
	if len(resp.RawTxs) > 1 {
		a.logger.Warn().
			Str("requestId", req.RequestID).
			Int("dropped", len(resp.RawTxs)-1).
			Msg("only the first signed transaction is broadcast")
	}

	raw := resp.RawTxs[0]
	hash, err := a.chain.SendRawTransaction(ctx, raw)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to broadcast transaction: %w", err)
	}
	a.metrics.Broadcast()

	logEvent := a.logger.Info().Str("requestId", req.RequestID).Str("hash", hash.Hex())
	if b, err := hexutil.Decode(raw); err == nil {
		logEvent = logEvent.Str("rawHash", crypto.Keccak256Hash(b).Hex())
	}
	logEvent.Msg("transaction broadcast")

	return hash, nil
}

// EstimateGas answers eth_estimateGas with "0x" followed by the first 16
// characters of the decimal estimate. Callers of this endpoint expect that
// exact text, so it is not a valid hex quantity.
func (a *Assembler) EstimateGas(ctx context.Context, tx TxRequest) (string, error) {
	gas, err := a.chain.EstimateGas(ctx, tx.callMsg())
	if err != nil {
		return "", &EstimationError{Index: 0, Err: err}
	}
	return truncatedEstimate(gas), nil
}

func truncatedEstimate(gas uint64) string {
	dec := strconv.FormatUint(gas, 10)
	if len(dec) > 16 {
		dec = dec[:16]
	}
	return "0x" + dec
}
