package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"walletlink/internal/config"
	"walletlink/internal/jsonrpc"
)

// Upstream is the node endpoint batches are posted to
type Upstream struct {
	rpcURL     string
	httpClient *http.Client
	status     *Status
	logger     zerolog.Logger
}

// Config for creating a new Upstream
type Config struct {
	RPCURL         string
	RequestTimeout time.Duration
	Logger         zerolog.Logger
}

// NewUpstream creates a new Upstream instance
func NewUpstream(cfg Config) *Upstream {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
	}

	httpClient := &http.Client{
		Transport: transport,
		Timeout:   cfg.RequestTimeout,
	}

	return &Upstream{
		rpcURL:     cfg.RPCURL,
		httpClient: httpClient,
		status:     NewStatus(),
		logger:     cfg.Logger.With().Str("component", "upstream").Logger(),
	}
}

// NewUpstreamFromConfig creates an Upstream from config
func NewUpstreamFromConfig(cfg *config.Config, logger zerolog.Logger) *Upstream {
	return NewUpstream(Config{
		RPCURL:         cfg.RPCURL,
		RequestTimeout: cfg.GetRequestTimeoutDuration(),
		Logger:         logger,
	})
}

// RPCURL returns the HTTP RPC URL
func (u *Upstream) RPCURL() string {
	return u.rpcURL
}

// Status returns the request counters
func (u *Upstream) Status() *Status {
	return u.status
}

// ExecuteBatch posts a batch of JSON-RPC requests as one JSON array.
// Errors are ErrTransport, *HTTPStatusError or ErrMalformedResponse;
// per-call errors stay inside the returned responses.
func (u *Upstream) ExecuteBatch(ctx context.Context, requests []*jsonrpc.Request) ([]*jsonrpc.Response, error) {
	reqBytes, err := json.Marshal(requests)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal batch request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u.rpcURL, bytes.NewReader(reqBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	u.status.IncrementCallCountBy(uint64(len(requests)))

	resp, err := u.httpClient.Do(httpReq)
	if err != nil {
		u.status.IncrementFailureCount()
		u.logger.Debug().Err(err).Int("calls", len(requests)).Msg("batch transport failure")
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	// One HTTP call = one request to upstream
	u.status.IncrementRequestCount()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		u.status.IncrementFailureCount()
		io.Copy(io.Discard, resp.Body)
		return nil, &HTTPStatusError{
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		u.status.IncrementFailureCount()
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}

	responses, _, err := jsonrpc.ParseBatchResponse(body)
	if err != nil {
		u.status.IncrementFailureCount()
		return nil, fmt.Errorf("%w: failed to parse JSON response: %v", ErrMalformedResponse, err)
	}

	return responses, nil
}

// Close releases idle connections
func (u *Upstream) Close() {
	u.httpClient.CloseIdleConnections()
}
