package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/oklog/ulid/v2"

	"analysis-gateway/internal/domain/model"
	"analysis-gateway/internal/domain/ports/repository"
)

var _ repository.AnalysisJobRepository = (*analysisJobRepo)(nil)

type analysisJobRepo struct {
	pool *pgxpool.Pool
}

func NewAnalysisJobRepo(pool *pgxpool.Pool) *analysisJobRepo {
	return &analysisJobRepo{pool: pool}
}

func (r *analysisJobRepo) Save(ctx context.Context, tx repository.Tx, job *model.AnalysisJob) error {
	ex, err := getExecutor(r.pool, tx)
	if err != nil {
		return err
	}
	if job.ID == "" {
		job.ID = ulid.Make().String()
	}

	const q = `
INSERT INTO analysis_jobs (
  id, batch_id, user_id, analysis_type, context_id, job_id,
  status, last_error, polls, started_at, finished_at
) VALUES ($1, NULLIF($2, ''), NULLIF($3::bigint, 0), $4, NULLIF($5, ''), NULLIF($6, ''), $7, NULLIF($8, ''), $9, $10, $11)
ON CONFLICT (id) DO UPDATE SET
  status      = EXCLUDED.status,
  last_error  = EXCLUDED.last_error,
  polls       = EXCLUDED.polls,
  finished_at = EXCLUDED.finished_at;`

	_, err = ex.Exec(ctx, q,
		job.ID, job.BatchID, job.UserID, string(job.Type), job.ContextID, job.JobID,
		string(job.Status), job.LastError, job.Polls, job.StartedAt, job.FinishedAt)
	if err != nil {
		return fmt.Errorf("save analysis job: %w", err)
	}
	return nil
}
