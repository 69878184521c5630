package postgres

import (
	"context"
	"errors"
	"fmt"

	"analysis-gateway/internal/domain"
	"analysis-gateway/internal/domain/model"
	"analysis-gateway/internal/domain/ports/repository"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// Ensure interface compliance
var _ repository.PlanRepository = (*PostgresPlanRepo)(nil)

type PostgresPlanRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresPlanRepo(pool *pgxpool.Pool) *PostgresPlanRepo {
	return &PostgresPlanRepo{pool: pool}
}

func (r *PostgresPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.Plan, error) {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return nil, err
	}
	const sql = `
SELECT plan_id, name, total_requests, created_at
  FROM plans
 WHERE plan_id = $1;
`
	var p model.Plan
	if err := ex.QueryRow(ctx, sql, id).Scan(&p.ID, &p.Name, &p.TotalRequests, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("FindByID plan: %w", err)
	}
	return &p, nil
}
