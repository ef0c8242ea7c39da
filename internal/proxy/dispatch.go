package proxy

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"walletlink/internal/correlator"
	"walletlink/internal/jsonrpc"
)

// CodeUserRejected is the provider error code for a request the user declined
const CodeUserRejected = 4001

// Requester performs provider calls
type Requester interface {
	Request(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error)
}

// Execute runs a single request through the provider
func Execute(ctx context.Context, requester Requester, req *jsonrpc.Request) *jsonrpc.Response {
	if err := req.Validate(); err != nil {
		return jsonrpc.NewErrorResponse(req.ID, jsonrpc.NewError(jsonrpc.CodeInvalidRequest, err.Error()))
	}

	result, err := requester.Request(ctx, req.Method, req.Params)
	if err != nil {
		return jsonrpc.NewErrorResponse(req.ID, ToRPCError(err))
	}
	return jsonrpc.NewResponseRaw(req.ID, result)
}

// ExecuteBatch runs every request concurrently so that network calls land
// in the same upstream batch. Responses keep request order.
func ExecuteBatch(ctx context.Context, requester Requester, requests []*jsonrpc.Request) []*jsonrpc.Response {
	responses := make([]*jsonrpc.Response, len(requests))

	var wg sync.WaitGroup
	for i, req := range requests {
		wg.Add(1)
		go func() {
			defer wg.Done()
			responses[i] = Execute(ctx, requester, req)
		}()
	}
	wg.Wait()

	return responses
}

// ToRPCError converts a provider error into a JSON-RPC error object
func ToRPCError(err error) *jsonrpc.Error {
	var rejected *correlator.WalletRejectedError
	if errors.As(err, &rejected) {
		return jsonrpc.NewError(CodeUserRejected, err.Error())
	}
	return jsonrpc.ToError(err)
}
