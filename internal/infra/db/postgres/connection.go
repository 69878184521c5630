package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"analysis-gateway/internal/infra/metrics"
)

// NewPgxPool connects to dsn and verifies the connection with a ping.
func NewPgxPool(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	pool, err := pgxpool.ConnectConfig(cctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.Connect failed: %w", err)
	}
	if err := pool.Ping(cctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// ReportPoolStats publishes pool gauges every interval until ctx ends.
func ReportPoolStats(ctx context.Context, pool *pgxpool.Pool, interval time.Duration, logger *zerolog.Logger) {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Debug().Msg("pool stats reporter stopped")
			return
		case <-ticker.C:
			s := pool.Stat()
			metrics.SetDBPoolStats(s.TotalConns(), s.IdleConns(), s.AcquiredConns())
		}
	}
}
