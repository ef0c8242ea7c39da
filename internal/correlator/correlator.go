package correlator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"walletlink/internal/config"
	"walletlink/internal/deeplink"
	"walletlink/internal/metrics"
	"walletlink/internal/store"
)

// DefaultPollInterval is the store poll period used when none is configured
const DefaultPollInterval = 100 * time.Millisecond

// slotKey is the store key of the shared slot, and the prefix of keyed slots
const slotKey = "walletlink/dappkit"

// Sender issues wallet requests
type Sender interface {
	Send(ctx context.Context, req *deeplink.Request) error
}

// Config for creating a new Correlator
type Config struct {
	Store        store.Store
	Mode         config.CorrelationMode
	PollInterval time.Duration
	Timeout      time.Duration // 0 waits until ctx is done
	Metrics      *metrics.Metrics
	Logger       zerolog.Logger
}

// Correlator matches wallet callbacks to the requests waiting for them.
// Callbacks are handed over through a durable store so that the page or
// process receiving the redirect need not be the one waiting.
//
// In single mode all callbacks share one slot and at most one round trip
// may be outstanding. In keyed mode each request id has its own slot.
type Correlator struct {
	store        store.Store
	mode         config.CorrelationMode
	pollInterval time.Duration
	timeout      time.Duration
	metrics      *metrics.Metrics
	logger       zerolog.Logger
}

// New creates a new Correlator
func New(cfg Config) *Correlator {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Mode == "" {
		cfg.Mode = config.CorrelationKeyed
	}
	return &Correlator{
		store:        cfg.Store,
		mode:         cfg.Mode,
		pollInterval: cfg.PollInterval,
		timeout:      cfg.Timeout,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger.With().Str("component", "correlator").Logger(),
	}
}

// Mode returns the correlation mode
func (c *Correlator) Mode() config.CorrelationMode {
	return c.mode
}

func (c *Correlator) key(requestID string) string {
	if c.mode == config.CorrelationSingle {
		return slotKey
	}
	return slotKey + "/" + requestID
}

// Observe persists rawURL when it carries a wallet response. It reports
// whether the URL was stored.
func (c *Correlator) Observe(ctx context.Context, rawURL string) (bool, error) {
	resp, err := deeplink.Decode(rawURL)
	if err != nil {
		return false, nil
	}

	if err := c.store.Set(ctx, c.key(resp.RequestID), []byte(rawURL), 0); err != nil {
		return false, fmt.Errorf("failed to store wallet response: %w", err)
	}

	c.logger.Debug().
		Str("requestId", resp.RequestID).
		Str("kind", string(resp.Kind)).
		Str("status", string(resp.Status)).
		Msg("wallet response stored")
	return true, nil
}

// Prepare clears the slot requestID will be answered in, so a stale
// response is never consumed by the next wait
func (c *Correlator) Prepare(ctx context.Context, requestID string) error {
	return c.store.Delete(ctx, c.key(requestID))
}

// Await polls the store until a response for requestID arrives, ctx is done
// or the configured timeout passes
func (c *Correlator) Await(ctx context.Context, requestID string, kind deeplink.Kind) (*deeplink.Response, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	key := c.key(requestID)
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		raw, err := c.store.Take(ctx, key)
		if err == nil {
			return c.match(string(raw), requestID, kind)
		}
		if !errors.Is(err, store.ErrNotFound) && ctx.Err() == nil {
			return nil, fmt.Errorf("failed to read wallet response: %w", err)
		}

		select {
		case <-ctx.Done():
			c.metrics.Correlated(string(kind), "abandoned")
			return nil, fmt.Errorf("waiting for wallet response to %s: %w", requestID, ctx.Err())
		case <-ticker.C:
		}
	}
}

// match decodes a consumed callback and checks it against the waiter
func (c *Correlator) match(raw, requestID string, kind deeplink.Kind) (*deeplink.Response, error) {
	resp, err := deeplink.Decode(raw)
	if err != nil {
		c.metrics.Correlated(string(kind), "decode_error")
		c.logger.Warn().Str("url", raw).Msg("unable to parse wallet response")
		return nil, err
	}

	if resp.RequestID != requestID || resp.Kind != kind {
		c.metrics.Correlated(string(kind), "mismatch")
		c.logger.Warn().
			Str("requestId", requestID).
			Str("gotRequestId", resp.RequestID).
			Str("gotKind", string(resp.Kind)).
			Msg("wallet response does not match the pending request")
		return nil, &MismatchError{
			RequestID:    requestID,
			Kind:         kind,
			GotRequestID: resp.RequestID,
			GotKind:      resp.Kind,
		}
	}

	if !resp.OK() {
		c.metrics.Correlated(string(kind), "rejected")
		return nil, &WalletRejectedError{RequestID: requestID, Status: resp.Status}
	}

	c.metrics.Correlated(string(kind), "success")
	c.logger.Info().Str("requestId", requestID).Str("kind", string(kind)).Msg("wallet response received")
	return resp, nil
}

// RoundTrip clears the response slot, sends req and waits for its answer
func (c *Correlator) RoundTrip(ctx context.Context, sender Sender, req *deeplink.Request) (*deeplink.Response, error) {
	if err := c.Prepare(ctx, req.RequestID); err != nil {
		return nil, fmt.Errorf("failed to clear wallet response slot: %w", err)
	}
	if err := sender.Send(ctx, req); err != nil {
		return nil, err
	}
	return c.Await(ctx, req.RequestID, req.Kind)
}
