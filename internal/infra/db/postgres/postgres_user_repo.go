package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"analysis-gateway/internal/domain"
	"analysis-gateway/internal/domain/model"
	"analysis-gateway/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*PostgresUserRepo)(nil)

type PostgresUserRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{pool: pool}
}

func (r *PostgresUserRepo) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.User, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	const q = `
SELECT id, email, plan_id, used_requests, reset_date
  FROM users WHERE id = $1;`
	var u model.User
	err = ex.QueryRow(ctx, q, id).Scan(&u.ID, &u.Email, &u.PlanID, &u.UsedRequests, &u.ResetDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

// Upsert reports created=true when the row did not exist. xmax is 0 only for
// freshly inserted tuples.
func (r *PostgresUserRepo) Upsert(ctx context.Context, tx repository.Tx, u *model.User) (bool, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return false, err
	}
	const q = `
INSERT INTO users (id, email, plan_id, used_requests, reset_date, created_at, updated_at)
VALUES ($1, $2, $3, 0, $4, now(), now())
ON CONFLICT (id) DO UPDATE SET
  email      = EXCLUDED.email,
  plan_id    = EXCLUDED.plan_id,
  reset_date = EXCLUDED.reset_date,
  updated_at = now()
RETURNING (xmax = 0) AS inserted;`
	var created bool
	if err := ex.QueryRow(ctx, q, u.ID, u.Email, u.PlanID, u.ResetDate).Scan(&created); err != nil {
		return false, fmt.Errorf("upsert user: %w", err)
	}
	return created, nil
}

func (r *PostgresUserRepo) FindQuota(ctx context.Context, tx repository.Tx, userID int64) (*model.QuotaRecord, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	const q = `
SELECT u.id, u.plan_id, u.used_requests, p.total_requests, u.reset_date
  FROM users u
  JOIN plans p ON p.plan_id = u.plan_id
 WHERE u.id = $1;`
	rec, err := scanQuota(ex.QueryRow(ctx, q, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find quota: %w", err)
	}
	return rec, nil
}

// ReserveRequests is one conditional UPDATE; the row lock it takes serializes
// concurrent reservations for the same user only.
func (r *PostgresUserRepo) ReserveRequests(ctx context.Context, tx repository.Tx, userID int64, count int) (*model.QuotaRecord, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	const q = `
UPDATE users u
   SET used_requests = u.used_requests + $2,
       updated_at    = now()
  FROM plans p
 WHERE u.id = $1
   AND p.plan_id = u.plan_id
   AND u.used_requests + $2 <= p.total_requests
RETURNING u.id, u.plan_id, u.used_requests, p.total_requests, u.reset_date;`
	rec, err := scanQuota(ex.QueryRow(ctx, q, userID, count))
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("reserve requests: %w", err)
	}

	// nothing updated: either the user is unknown or the batch does not fit
	if _, err := r.FindQuota(ctx, tx, userID); err != nil {
		return nil, err
	}
	return nil, domain.ErrQuotaExceeded
}

func (r *PostgresUserRepo) ResetDue(ctx context.Context, tx repository.Tx, now time.Time, period time.Duration) (int, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return 0, err
	}
	// advance by whole periods so a long outage does not leave dates in the past
	const q = `
UPDATE users
   SET used_requests = 0,
       reset_date    = reset_date
                     + (floor(extract(epoch FROM ($1::timestamptz - reset_date))::double precision / $2::double precision) + 1)
                     * $2::double precision * interval '1 second',
       updated_at    = now()
 WHERE reset_date <= $1::timestamptz;`
	tag, err := ex.Exec(ctx, q, now, period.Seconds())
	if err != nil {
		return 0, fmt.Errorf("reset due quotas: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanQuota(row pgx.Row) (*model.QuotaRecord, error) {
	var rec model.QuotaRecord
	if err := row.Scan(&rec.UserID, &rec.PlanID, &rec.Used, &rec.Total, &rec.ResetDate); err != nil {
		return nil, err
	}
	return &rec, nil
}
