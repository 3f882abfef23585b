package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/Rakesh-koneti/cetstrom.web-sub000/internal/config"
)

// NewPostgresPool creates and validates a PostgreSQL connection pool.
func NewPostgresPool(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MaxConns = cfg.MaxDBConns

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// A failed ping is not fatal: connections are established lazily and
	// the gateway degrades to cached copies while the store is down.
	if err := pool.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("PostgreSQL unreachable, starting degraded")
	} else {
		log.Info().
			Int32("max_conns", cfg.MaxDBConns).
			Msg("PostgreSQL connected")
	}

	return pool, nil
}
