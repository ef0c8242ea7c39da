package ws

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"walletlink/internal/proxy"
)

// Handler handles WebSocket connections
type Handler struct {
	hub       *Hub
	requester proxy.Requester
	upgrader  websocket.Upgrader
	logger    zerolog.Logger
}

// NewHandler creates a new WebSocket handler. checkOrigin may be nil to
// allow all origins.
func NewHandler(hub *Hub, requester proxy.Requester, checkOrigin func(r *http.Request) bool, logger zerolog.Logger) *Handler {
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool {
			return true // Allow all origins
		}
	}
	return &Handler{
		hub:       hub,
		requester: requester,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		logger: logger.With().Str("component", "ws").Logger(),
	}
}

// ServeHTTP handles WebSocket upgrade requests
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to upgrade connection")
		return
	}

	h.logger.Info().
		Str("remoteAddr", r.RemoteAddr).
		Msg("new WebSocket connection")

	client := NewClient(conn, h.requester, h.logger.With().Str("remoteAddr", r.RemoteAddr).Logger())
	h.hub.register(client)
	defer h.hub.unregister(client)

	client.Run(r.Context())
}
