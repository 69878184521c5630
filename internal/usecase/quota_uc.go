package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"analysis-gateway/internal/domain"
	"analysis-gateway/internal/domain/model"
	"analysis-gateway/internal/domain/ports/repository"
	"analysis-gateway/internal/infra/logging"
	"analysis-gateway/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ QuotaUseCase = (*quotaUC)(nil)

// QuotaUseCase is the per-user request ledger.
type QuotaUseCase interface {
	// Reserve charges count requests against the user's plan, all or nothing.
	Reserve(ctx context.Context, userID int64, count int) (model.QuotaSnapshot, error)
	// Status returns the current allowance without changing it.
	Status(ctx context.Context, userID int64) (*model.QuotaRecord, error)
	// ResetDue starts a new period for every user whose reset date has passed.
	ResetDue(ctx context.Context) (int, error)
}

type quotaUC struct {
	users  repository.UserRepository
	period time.Duration
	log    *zerolog.Logger
}

func NewQuotaUseCase(users repository.UserRepository, resetPeriod time.Duration, logger *zerolog.Logger) *quotaUC {
	if resetPeriod <= 0 {
		resetPeriod = 30 * 24 * time.Hour
	}
	return &quotaUC{users: users, period: resetPeriod, log: logger}
}

func (q *quotaUC) Reserve(ctx context.Context, userID int64, count int) (model.QuotaSnapshot, error) {
	defer logging.TraceDuration(q.log, "QuotaUC.Reserve")()

	if count <= 0 {
		return model.QuotaSnapshot{}, fmt.Errorf("%w: reservation of %d requests", domain.ErrInvalidRequest, count)
	}
	rec, err := q.users.ReserveRequests(ctx, repository.NoTX, userID, count)
	switch {
	case err == nil:
		metrics.IncQuotaReservation("granted")
		return rec.Snapshot(), nil
	case errors.Is(err, domain.ErrQuotaExceeded):
		metrics.IncQuotaReservation("exceeded")
		logging.With(ctx, q.log).Info().Int("requested", count).Msg("quota exceeded")
		return model.QuotaSnapshot{}, err
	default:
		metrics.IncQuotaReservation("error")
		return model.QuotaSnapshot{}, err
	}
}

func (q *quotaUC) Status(ctx context.Context, userID int64) (*model.QuotaRecord, error) {
	defer logging.TraceDuration(q.log, "QuotaUC.Status")()
	return q.users.FindQuota(ctx, repository.NoTX, userID)
}

func (q *quotaUC) ResetDue(ctx context.Context) (int, error) {
	defer logging.TraceDuration(q.log, "QuotaUC.ResetDue")()
	n, err := q.users.ResetDue(ctx, repository.NoTX, time.Now().UTC(), q.period)
	if err != nil {
		return 0, fmt.Errorf("reset due quotas: %w", err)
	}
	return n, nil
}
