package sched

import (
	"context"
	"time"

	"analysis-gateway/internal/infra/metrics"
	"analysis-gateway/internal/usecase"

	"github.com/rs/zerolog"
)

// QuotaResetWorker periodically starts a new request period for users whose reset date passed.
type QuotaResetWorker struct {
	interval time.Duration
	quotaUC  usecase.QuotaUseCase
	log      *zerolog.Logger
}

func NewQuotaResetWorker(interval time.Duration, quotaUC usecase.QuotaUseCase, logger *zerolog.Logger) *QuotaResetWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	wLog := logger.With().Str("component", "QuotaResetWorker").Logger()
	return &QuotaResetWorker{
		interval: interval,
		quotaUC:  quotaUC,
		log:      &wLog,
	}
}

func (w *QuotaResetWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting quota reset worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// catch up on anything that expired while the process was down
	w.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping quota reset worker")
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *QuotaResetWorker) tick(ctx context.Context) {
	n, err := w.quotaUC.ResetDue(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("quota reset worker error")
		return
	}
	if n > 0 {
		metrics.IncQuotaResets(n)
		w.log.Info().Int("count", n).Msg("user quotas reset")
	}
}
