package batcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"walletlink/internal/metrics"
	"walletlink/internal/upstream"
)

// DefaultWait is the debounce window used when none is configured
const DefaultWait = 50 * time.Millisecond

// Scheduler accumulates calls and flushes them as one batch per debounce window
type Scheduler struct {
	executor BatchExecutor
	wait     time.Duration
	metrics  *metrics.Metrics
	logger   zerolog.Logger

	nextID atomic.Int64

	mu         sync.Mutex
	batch      []*PendingCall
	timer      *time.Timer
	generation uint64
}

// NewScheduler creates a new batch scheduler
func NewScheduler(executor BatchExecutor, wait time.Duration, m *metrics.Metrics, logger zerolog.Logger) *Scheduler {
	if wait <= 0 {
		wait = DefaultWait
	}
	return &Scheduler{
		executor: executor,
		wait:     wait,
		metrics:  m,
		logger:   logger.With().Str("component", "batcher").Logger(),
	}
}

// Enqueue adds a call to the current batch and waits for its result.
// Cancelling ctx abandons the wait; the call itself stays in its batch.
func (s *Scheduler) Enqueue(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
	call := newPendingCall(s.nextID.Add(1), method, params)

	s.mu.Lock()
	s.batch = append(s.batch, call)
	if s.timer == nil {
		gen := s.generation
		s.timer = time.AfterFunc(s.wait, func() {
			s.flush(gen)
		})
	}
	s.mu.Unlock()

	select {
	case res := <-call.resultChan:
		return res.result, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Pending returns the number of calls waiting for the next flush
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.batch)
}

// detach takes the current batch and resets scheduler state so that new
// calls start a fresh batch and timer
func (s *Scheduler) detach() []*PendingCall {
	batch := s.batch
	s.batch = nil
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.generation++
	return batch
}

// flush is the timer callback for batch generation gen
func (s *Scheduler) flush(gen uint64) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		return
	}
	batch := s.detach()
	s.mu.Unlock()

	s.execute(context.Background(), batch)
}

// Flush sends the pending batch immediately
func (s *Scheduler) Flush(ctx context.Context) {
	s.mu.Lock()
	batch := s.detach()
	s.mu.Unlock()

	s.execute(ctx, batch)
}

// Close stops the timer and flushes pending calls (for graceful shutdown)
func (s *Scheduler) Close(ctx context.Context) {
	s.Flush(ctx)
	s.logger.Info().Msg("batch scheduler closed")
}

// execute sends one batch and distributes the results
func (s *Scheduler) execute(ctx context.Context, batch []*PendingCall) {
	if len(batch) == 0 {
		return
	}

	requests := make(jsonrpcRequests, 0, len(batch))
	byID := make(map[int64]*PendingCall, len(batch))
	for _, call := range batch {
		requests = append(requests, call.request())
		byID[call.ID] = call
	}

	s.logger.Debug().
		Int("calls", len(batch)).
		Strs("methods", requests.methods()).
		Msg("flushing batch")
	s.metrics.ObserveBatch(len(batch))

	responses, err := s.executor.ExecuteBatch(ctx, requests)
	if err != nil {
		s.logger.Warn().Err(err).Int("calls", len(batch)).Msg("batch failed")
		s.metrics.BatchFailed(failureReason(err))
		for _, call := range batch {
			call.reject(err)
		}
		return
	}

	// A node refusing the whole batch, e.g. over a size limit, answers with
	// a single null-id error.
	if len(responses) == 1 && responses[0].ID.IsNull() && responses[0].HasError() {
		rpcErr := responses[0].Error
		s.logger.Warn().Int("code", rpcErr.Code).Str("message", rpcErr.Message).Int("calls", len(batch)).Msg("batch refused")
		s.metrics.BatchFailed("refused")
		for _, call := range batch {
			call.reject(rpcErr)
		}
		return
	}

	for _, resp := range responses {
		id, ok := resp.ID.Int64()
		if !ok {
			s.logger.Debug().Interface("id", resp.ID.Value()).Msg("ignoring response with non-numeric id")
			continue
		}
		call, ok := byID[id]
		if !ok {
			s.logger.Debug().Int64("id", id).Msg("ignoring response with no pending call")
			continue
		}
		delete(byID, id)

		switch {
		case resp.HasError():
			call.reject(resp.Error)
		case resp.HasResult():
			call.resolve(resp.Result)
		default:
			call.reject(fmt.Errorf("%w: received unexpected JSON-RPC response to %s request",
				upstream.ErrMalformedResponse, call.Method))
		}
	}

	for _, call := range byID {
		call.reject(fmt.Errorf("%w: no response to %s request", upstream.ErrMalformedResponse, call.Method))
	}

	s.logger.Debug().Int("calls", len(batch)).Msg("batch completed")
}

// failureReason labels a batch-wide failure
func failureReason(err error) string {
	var statusErr *upstream.HTTPStatusError
	switch {
	case errors.Is(err, upstream.ErrTransport):
		return "transport"
	case errors.As(err, &statusErr):
		return "http_status"
	case errors.Is(err, upstream.ErrMalformedResponse):
		return "malformed"
	default:
		return "other"
	}
}
