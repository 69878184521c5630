package usecase

import (
	"context"

	"analysis-gateway/internal/domain/model"
	"analysis-gateway/internal/domain/ports/repository"
	"analysis-gateway/internal/infra/worker"

	"github.com/rs/zerolog"
)

var _ JobRecorder = (*asyncJobRecorder)(nil)

// asyncJobRecorder persists audit records on the worker pool. A full queue drops the record.
type asyncJobRecorder struct {
	pool *worker.Pool
	jobs repository.AnalysisJobRepository
	log  *zerolog.Logger
}

func NewAsyncJobRecorder(pool *worker.Pool, jobs repository.AnalysisJobRepository, logger *zerolog.Logger) *asyncJobRecorder {
	return &asyncJobRecorder{pool: pool, jobs: jobs, log: logger}
}

func (r *asyncJobRecorder) Record(job *model.AnalysisJob) {
	rec := *job
	err := r.pool.Submit(func(ctx context.Context) error {
		return r.jobs.Save(ctx, repository.NoTX, &rec)
	})
	if err != nil {
		r.log.Warn().Err(err).Str("job_id", rec.ID).Msg("analysis job record dropped")
	}
}
