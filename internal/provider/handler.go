package provider

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
)

// Handler answers one provider call
type Handler interface {
	Handle(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error)
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error)

// Handle calls f
func (f HandlerFunc) Handle(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
	return f(ctx, method, params)
}

// Middleware wraps a Handler
type Middleware func(next Handler) Handler

// Chain applies middlewares to h. The first middleware is the outermost.
func Chain(h Handler, middlewares ...Middleware) Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// Intercept answers the listed methods with h and passes every other call on
func Intercept(h Handler, methods ...string) Middleware {
	set := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		set[m] = struct{}{}
	}
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
			if _, ok := set[method]; ok {
				return h.Handle(ctx, method, params)
			}
			return next.Handle(ctx, method, params)
		})
	}
}

// Logging logs every call and its outcome at debug level
func Logging(logger zerolog.Logger) Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, method string, params json.RawMessage) (json.RawMessage, error) {
			start := time.Now()
			result, err := next.Handle(ctx, method, params)

			if e := logger.Debug(); e.Enabled() {
				e = e.Str("method", method).
					RawJSON("params", paramsOrNull(params)).
					Dur("duration", time.Since(start))
				if err != nil {
					e.Err(err).Msg("request failed")
				} else {
					e.RawJSON("result", paramsOrNull(result)).Msg("request completed")
				}
			}
			return result, err
		})
	}
}

func paramsOrNull(raw json.RawMessage) []byte {
	if len(raw) == 0 {
		return []byte("null")
	}
	return raw
}
