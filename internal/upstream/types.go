package upstream

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// ErrTransport is returned when the endpoint could not be reached
var ErrTransport = errors.New("failed to send batch call")

// ErrMalformedResponse is returned when the body is not a JSON-RPC response
var ErrMalformedResponse = errors.New("malformed JSON-RPC response")

// HTTPStatusError is returned for non-2xx responses
type HTTPStatusError struct {
	StatusCode int
	Status     string
}

// Error implements the error interface
func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%d: %s", e.StatusCode, e.Status)
}

// Status holds counters for the periodic stats log
type Status struct {
	requestCount atomic.Uint64
	failureCount atomic.Uint64
	callCount    atomic.Uint64
}

// NewStatus creates a new Status
func NewStatus() *Status {
	return &Status{}
}

// IncrementRequestCount increments the HTTP request counter
func (s *Status) IncrementRequestCount() {
	s.requestCount.Add(1)
}

// IncrementFailureCount increments the failed HTTP request counter
func (s *Status) IncrementFailureCount() {
	s.failureCount.Add(1)
}

// IncrementCallCountBy increments the JSON-RPC call counter
func (s *Status) IncrementCallCountBy(n uint64) {
	s.callCount.Add(n)
}

// SwapRequestCount returns the request count and resets it to zero
func (s *Status) SwapRequestCount() uint64 {
	return s.requestCount.Swap(0)
}

// SwapFailureCount returns the failure count and resets it to zero
func (s *Status) SwapFailureCount() uint64 {
	return s.failureCount.Swap(0)
}

// SwapCallCount returns the call count and resets it to zero
func (s *Status) SwapCallCount() uint64 {
	return s.callCount.Swap(0)
}
