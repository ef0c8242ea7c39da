package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"walletlink/internal/proxy"
	"walletlink/internal/ws"
)

// Handler builds the HTTP routes
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	origins := s.cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Method(http.MethodPost, "/rpc", proxy.NewHandler(s.provider, s.cfg.MaxBodySize, s.logger))
	r.Method(http.MethodGet, "/ws", ws.NewHandler(s.hub, s.provider, nil, s.logger))
	r.Get("/callback", s.handleCallback)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	r.Get("/healthz", s.handleHealth)

	return r
}

const callbackPage = `<!doctype html>
<html><head><meta charset="utf-8"><title>Wallet</title></head>
<body><p>Wallet response received. You can return to the app.</p></body></html>
`

// handleCallback receives the wallet redirect and hands it to the correlator
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	fullURL := s.cfg.PublicURL + r.URL.RequestURI()

	stored, err := s.correlator.Observe(r.Context(), fullURL)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to store wallet response")
		http.Error(w, "failed to store wallet response", http.StatusInternalServerError)
		return
	}
	if !stored {
		http.Error(w, "no wallet response in url", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(callbackPage))
}

// handleHealth reports whether the store is reachable
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		http.Error(w, "store unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Write([]byte("ok"))
}

// requestLogger logs every HTTP request at debug level
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Debug().
			Str("requestId", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}
