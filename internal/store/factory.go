package store

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"walletlink/internal/config"
)

// NewFromConfig creates the configured store backend
func NewFromConfig(ctx context.Context, cfg config.StoreConfig, logger zerolog.Logger) (Store, error) {
	switch cfg.Backend {
	case config.StoreRedis:
		s, err := NewRedisStore(ctx, cfg.RedisURL, cfg.GetTTLDuration())
		if err != nil {
			return nil, err
		}
		logger.Info().Str("component", "store").Str("backend", "redis").Msg("store ready")
		return s, nil
	case config.StoreMemory, "":
		s, err := NewMemoryStore(cfg.Size, cfg.GetTTLDuration())
		if err != nil {
			return nil, err
		}
		logger.Info().Str("component", "store").Str("backend", "memory").Int("size", cfg.Size).Msg("store ready")
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Backend)
	}
}
