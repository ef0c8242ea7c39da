package ws

import (
	"context"
	"errors"
)

// NavigateType is the type of a navigation command
const NavigateType = "navigate"

// Navigation is pushed to connected pages when the wallet must be opened
type Navigation struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// ErrNoClients is returned when a navigation has no page to open it
var ErrNoClients = errors.New("no page connected to open the wallet")

// ErrPageGone is returned when the page that issued a call disconnected
// before its wallet request could be pushed
var ErrPageGone = errors.New("requesting page is no longer connected")

type clientKey struct{}

// withClient marks ctx as originating from page c
func withClient(ctx context.Context, c *Client) context.Context {
	return context.WithValue(ctx, clientKey{}, c)
}

// clientFrom returns the page ctx originates from, if any
func clientFrom(ctx context.Context) *Client {
	c, _ := ctx.Value(clientKey{}).(*Client)
	return c
}
