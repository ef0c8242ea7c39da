package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"walletlink/internal/metrics"
)

// Hub tracks connected dapp pages and pushes navigation commands to them
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewHub creates a new Hub
func NewHub(m *metrics.Metrics, logger zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		metrics: m,
		logger:  logger.With().Str("component", "ws-hub").Logger(),
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()

	h.metrics.SetFeedClients(n)
	h.logger.Debug().Int("clients", n).Msg("client registered")
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()

	h.metrics.SetFeedClients(n)
	h.logger.Debug().Int("clients", n).Msg("client unregistered")
}

// Len returns the number of connected clients
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Navigate pushes url to the page the call in ctx came from. Calls that
// did not arrive over a page connection are pushed to every page.
func (h *Hub) Navigate(ctx context.Context, url string) error {
	data, err := json.Marshal(Navigation{Type: NavigateType, URL: url})
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	if origin := clientFrom(ctx); origin != nil {
		if _, ok := h.clients[origin]; !ok {
			return ErrPageGone
		}
		origin.send(data)
		h.logger.Debug().Msg("navigation pushed to requesting page")
		return nil
	}

	if len(h.clients) == 0 {
		return ErrNoClients
	}
	for c := range h.clients {
		c.send(data)
	}

	h.logger.Debug().Int("clients", len(h.clients)).Msg("navigation pushed")
	return nil
}

// Close disconnects every client
func (h *Hub) Close() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Close()
	}
}
