package deeplink

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/rs/zerolog"

	"walletlink/internal/metrics"
)

// Config for creating a new Channel
type Config struct {
	DeepLinkURL string
	DappName    string
	CallbackURL string
	Navigator   Navigator
	Metrics     *metrics.Metrics
	Logger      zerolog.Logger
}

// Channel encodes wallet requests as deep links and hands them to a Navigator
type Channel struct {
	base        *url.URL
	dappName    string
	callbackURL string
	navigator   Navigator
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

// NewChannel creates a new deep-link channel
func NewChannel(cfg Config) (*Channel, error) {
	base, err := url.Parse(cfg.DeepLinkURL)
	if err != nil {
		return nil, fmt.Errorf("invalid deep link url: %w", err)
	}
	if cfg.Navigator == nil {
		return nil, fmt.Errorf("navigator is required")
	}

	return &Channel{
		base:        base,
		dappName:    cfg.DappName,
		callbackURL: cfg.CallbackURL,
		navigator:   cfg.Navigator,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger.With().Str("component", "deeplink").Logger(),
	}, nil
}

// CallbackURL returns the default callback the wallet redirects to
func (c *Channel) CallbackURL() string {
	return c.callbackURL
}

// Encode builds the deep link for req
func (c *Channel) Encode(req *Request) (string, error) {
	if req.RequestID == "" {
		return "", fmt.Errorf("request id is required")
	}

	callback := req.CallbackURL
	if callback == "" {
		callback = c.callbackURL
	}
	callback = StripResponseParams(callback, ResponseParams(req.Kind))

	u := *c.base
	q := u.Query()
	q.Set(ParamType, string(req.Kind))
	q.Set(ParamRequestID, req.RequestID)
	q.Set(ParamDappName, c.dappName)
	q.Set(ParamCallback, callback)

	if req.Kind == KindSignTx {
		txs, err := json.Marshal(req.Payload)
		if err != nil {
			return "", fmt.Errorf("failed to encode transactions: %w", err)
		}
		q.Set(ParamTxs, base64.StdEncoding.EncodeToString(txs))
	}

	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Send encodes req and navigates to it. It does not wait for a reply.
func (c *Channel) Send(ctx context.Context, req *Request) error {
	link, err := c.Encode(req)
	if err != nil {
		return err
	}

	c.logger.Info().
		Str("requestId", req.RequestID).
		Str("kind", string(req.Kind)).
		Msg("opening wallet")
	c.logger.Debug().Str("url", link).Msg("deep link")

	if err := c.navigator.Navigate(ctx, link); err != nil {
		return fmt.Errorf("failed to open wallet: %w", err)
	}

	c.metrics.DeepLinkSent(string(req.Kind))
	return nil
}
