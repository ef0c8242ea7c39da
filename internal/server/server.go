package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"walletlink/internal/assembler"
	"walletlink/internal/batcher"
	"walletlink/internal/chain"
	"walletlink/internal/config"
	"walletlink/internal/correlator"
	"walletlink/internal/deeplink"
	"walletlink/internal/metrics"
	"walletlink/internal/provider"
	"walletlink/internal/store"
	"walletlink/internal/upstream"
	"walletlink/internal/wallet"
	"walletlink/internal/ws"
)

// Server represents the main server
type Server struct {
	cfg        *config.Config
	metrics    *metrics.Metrics
	upstream   *upstream.Upstream
	scheduler  *batcher.Scheduler
	store      store.Store
	hub        *ws.Hub
	correlator *correlator.Correlator
	session    *wallet.Session
	provider   *provider.Provider
	httpServer *http.Server
	stopStats  chan struct{}
	logger     zerolog.Logger
}

// New creates a new Server and wires its components
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	m := metrics.New()

	st, err := store.NewFromConfig(ctx, cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}

	up := upstream.NewUpstreamFromConfig(cfg, logger)
	scheduler := batcher.NewScheduler(up, cfg.GetBatchWaitDuration(), m, logger)
	hub := ws.NewHub(m, logger)

	channel, err := deeplink.NewChannel(deeplink.Config{
		DeepLinkURL: cfg.Wallet.DeepLinkURL,
		DappName:    cfg.Wallet.DappName,
		CallbackURL: cfg.CallbackURL(),
		Navigator:   hub,
		Metrics:     m,
		Logger:      logger,
	})
	if err != nil {
		st.Close()
		return nil, err
	}

	corr := correlator.New(correlator.Config{
		Store:        st,
		Mode:         cfg.Correlation.Mode,
		PollInterval: cfg.Correlation.GetPollIntervalDuration(),
		Timeout:      cfg.Correlation.GetTimeoutDuration(),
		Metrics:      m,
		Logger:       logger,
	})

	// The assembler talks to the scheduler directly so its own lookups are
	// never intercepted again.
	chainClient := chain.NewClient(chain.CallerFunc(scheduler.Enqueue))

	asm := assembler.New(assembler.Config{
		Chain:       chainClient,
		Sender:      channel,
		Correlator:  corr,
		ChainID:     cfg.ChainID,
		FeeCurrency: common.HexToAddress(cfg.FeeCurrency()),
		Metrics:     m,
		Logger:      logger,
	})

	session := wallet.NewSession(st, channel, corr, logger)

	prov := provider.New(provider.Config{
		ChainID:      cfg.ChainID,
		Network:      provider.HandlerFunc(scheduler.Enqueue),
		Transactions: asm,
		Accounts:     session,
		Logger:       logger,
	})

	return &Server{
		cfg:        cfg,
		metrics:    m,
		upstream:   up,
		scheduler:  scheduler,
		store:      st,
		hub:        hub,
		correlator: corr,
		session:    session,
		provider:   prov,
		logger:     logger,
	}, nil
}

// Start starts the server
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	// No write timeout: wallet round trips hold the request open.
	s.httpServer = &http.Server{
		Addr:        addr,
		Handler:     s.Handler(),
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		s.logger.Info().
			Str("addr", addr).
			Msg("starting HTTP server")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	s.stopStats = make(chan struct{})
	go s.statsLoop(s.cfg.GetStatsLogIntervalDuration())

	s.logger.Info().
		Str("rpc", s.cfg.PublicURL+"/rpc").
		Str("ws", s.cfg.PublicURL+"/ws").
		Str("callback", s.cfg.CallbackURL()).
		Str("upstream", s.upstream.RPCURL()).
		Str("correlation", string(s.correlator.Mode())).
		Msg("endpoint available")

	return nil
}

// statsLoop periodically logs upstream counters
func (s *Server) statsLoop(interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopStats:
			return
		case <-ticker.C:
			status := s.upstream.Status()
			s.logger.Info().
				Uint64("requests", status.SwapRequestCount()).
				Uint64("calls", status.SwapCallCount()).
				Uint64("failures", status.SwapFailureCount()).
				Int("pending", s.scheduler.Pending()).
				Int("feedClients", s.hub.Len()).
				Msg("upstream stats")
		}
	}
}

// Stop gracefully stops the server
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info().Msg("shutting down server...")

	if s.stopStats != nil {
		close(s.stopStats)
	}

	// Disconnect pages before Shutdown, it does not wait for hijacked connections.
	s.hub.Close()

	var httpErr error
	if s.httpServer != nil {
		httpErr = s.httpServer.Shutdown(ctx)
	}

	// Flush calls still waiting for their batch
	s.scheduler.Close(ctx)
	s.upstream.Close()

	if err := s.store.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to close store")
	}

	if httpErr != nil {
		return fmt.Errorf("HTTP server shutdown error: %w", httpErr)
	}

	s.logger.Info().Msg("server stopped")
	return nil
}

// Provider returns the provider
func (s *Server) Provider() *provider.Provider {
	return s.provider
}
