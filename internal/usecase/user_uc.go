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

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ UserUseCase = (*userUC)(nil)

// PlanAssignment is the outcome of AssignPlan.
type PlanAssignment struct {
	User          *model.User
	TotalRequests int
	Created       bool
}

// UserUseCase manages subscribers on behalf of the billing side.
type UserUseCase interface {
	// AssignPlan creates the user or moves them to planID, restarting their reset period.
	AssignPlan(ctx context.Context, userID int64, email string, planID int64) (*PlanAssignment, error)
}

type userUC struct {
	users  repository.UserRepository
	plans  repository.PlanRepository
	tm     repository.TransactionManager
	period time.Duration
	log    *zerolog.Logger
}

func NewUserUseCase(users repository.UserRepository, plans repository.PlanRepository, tm repository.TransactionManager, resetPeriod time.Duration, logger *zerolog.Logger) *userUC {
	if resetPeriod <= 0 {
		resetPeriod = 30 * 24 * time.Hour
	}
	return &userUC{
		users:  users,
		plans:  plans,
		tm:     tm,
		period: resetPeriod,
		log:    logger,
	}
}

func (u *userUC) AssignPlan(ctx context.Context, userID int64, email string, planID int64) (*PlanAssignment, error) {
	defer logging.TraceDuration(u.log, "UserUC.AssignPlan")()

	user, err := model.NewUser(userID, email, planID, time.Now().Add(u.period).UTC())
	if err != nil {
		return nil, fmt.Errorf("%w: userId, planId and email must be valid", domain.ErrInvalidRequest)
	}

	var out *PlanAssignment
	txOpts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	err = u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		plan, err := u.plans.FindByID(ctx, tx, planID)
		if errors.Is(err, domain.ErrNotFound) || (err == nil && plan.IsZero()) {
			return fmt.Errorf("%w: invalid plan ID", domain.ErrInvalidRequest)
		}
		if err != nil {
			return err
		}

		created, err := u.users.Upsert(ctx, tx, user)
		if err != nil {
			return err
		}
		stored, err := u.users.FindByID(ctx, tx, userID)
		if err != nil {
			return err
		}
		out = &PlanAssignment{User: stored, TotalRequests: plan.TotalRequests, Created: created}
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.log.Info().
		Int64("user_id", userID).
		Int64("plan_id", planID).
		Bool("created", out.Created).
		Time("reset_date", out.User.ResetDate).
		Msg("plan assigned")
	return out, nil
}
