package batcher

import (
	"context"
	"encoding/json"

	"walletlink/internal/jsonrpc"
)

// BatchExecutor executes batched requests
type BatchExecutor interface {
	ExecuteBatch(ctx context.Context, requests []*jsonrpc.Request) ([]*jsonrpc.Response, error)
}

// callResult is delivered exactly once to a pending call
type callResult struct {
	result json.RawMessage
	err    error
}

// PendingCall is a single logical call waiting in a batch
type PendingCall struct {
	ID         int64
	Method     string
	Params     json.RawMessage
	resultChan chan callResult
}

func newPendingCall(id int64, method string, params json.RawMessage) *PendingCall {
	return &PendingCall{
		ID:         id,
		Method:     method,
		Params:     params,
		resultChan: make(chan callResult, 1),
	}
}

// request builds the wire request for this call
func (c *PendingCall) request() *jsonrpc.Request {
	return &jsonrpc.Request{
		JSONRPC: jsonrpc.Version,
		ID:      jsonrpc.NewIDInt(c.ID),
		Method:  c.Method,
		Params:  c.Params,
	}
}

func (c *PendingCall) resolve(result json.RawMessage) {
	c.resultChan <- callResult{result: result}
}

func (c *PendingCall) reject(err error) {
	c.resultChan <- callResult{err: err}
}

type jsonrpcRequests []*jsonrpc.Request

func (r jsonrpcRequests) methods() []string {
	methods := make([]string, len(r))
	for i, req := range r {
		methods[i] = req.Method
	}
	return methods
}
