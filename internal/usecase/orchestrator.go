package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"analysis-gateway/internal/domain"
	"analysis-gateway/internal/domain/model"
	"analysis-gateway/internal/domain/ports/adapter"
	"analysis-gateway/internal/infra/logging"
	"analysis-gateway/internal/infra/metrics"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

var errJobDeadline = errors.New("job deadline reached")

// OrchestratorConfig bounds one job's lifetime.
type OrchestratorConfig struct {
	PollInterval time.Duration
	JobTimeout   time.Duration // 0 disables the per-job deadline
	MaxPolls     int           // 0 disables the poll cap
}

// JobRecorder receives the audit record of every finished job. Implementations must not block.
type JobRecorder interface {
	Record(job *model.AnalysisJob)
}

// Orchestrator drives a single analysis job from context lookup to result.
type Orchestrator struct {
	client   adapter.JobClient
	contexts *ContextCache
	recorder JobRecorder // optional
	cfg      OrchestratorConfig
	log      *zerolog.Logger
}

func NewOrchestrator(client adapter.JobClient, contexts *ContextCache, recorder JobRecorder, cfg OrchestratorConfig, logger *zerolog.Logger) *Orchestrator {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	return &Orchestrator{
		client:   client,
		contexts: contexts,
		recorder: recorder,
		cfg:      cfg,
		log:      logger,
	}
}

// Run submits text to the type's conversation context, starts a job and waits
// for it. Client errors abort immediately; there is no retry.
func (o *Orchestrator) Run(ctx context.Context, t model.AnalysisType, text string) (string, error) {
	job := &model.AnalysisJob{
		ID:        ulid.Make().String(),
		Type:      t,
		Status:    model.JobStatusRunning,
		StartedAt: time.Now(),
	}
	if uid, ok := logging.UserID(ctx); ok {
		job.UserID = uid
	}
	job.BatchID = logging.BatchID(ctx)
	out, err := o.run(ctx, job, text)
	o.finish(ctx, job, err)
	return out, err
}

func (o *Orchestrator) run(ctx context.Context, job *model.AnalysisJob, text string) (string, error) {
	if o.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, o.cfg.JobTimeout, errJobDeadline)
		defer cancel()
	}

	contextID, err := o.contexts.GetOrCreate(ctx, job.Type)
	if err != nil {
		return "", o.deadline(ctx, err)
	}
	job.ContextID = contextID

	if err := o.client.Submit(ctx, contextID, text); err != nil {
		o.forgetIfGone(ctx, job, err)
		return "", o.deadline(ctx, err)
	}
	jobID, err := o.client.Start(ctx, contextID, job.Type)
	if err != nil {
		o.forgetIfGone(ctx, job, err)
		return "", o.deadline(ctx, err)
	}
	job.JobID = jobID

	status, err := o.await(ctx, job)
	if err != nil {
		return "", err
	}
	job.Status = status
	if status != model.JobStatusSucceeded {
		return "", &domain.JobFailedError{Status: string(status)}
	}

	out, err := o.client.FetchResult(ctx, contextID)
	if err != nil {
		return "", o.deadline(ctx, err)
	}
	return out, nil
}

// await polls once right away and then every PollInterval until the job is terminal.
func (o *Orchestrator) await(ctx context.Context, job *model.AnalysisJob) (model.JobStatus, error) {
	for {
		status, err := o.client.Poll(ctx, job.ContextID, job.JobID)
		job.Polls++
		if err != nil {
			return "", o.deadline(ctx, err)
		}
		if status.IsTerminal() {
			return status, nil
		}
		if job.Polls%5 == 0 {
			o.log.Debug().Str("type", string(job.Type)).Int("polls", job.Polls).Msg("still polling")
		}
		if o.cfg.MaxPolls > 0 && job.Polls >= o.cfg.MaxPolls {
			return "", fmt.Errorf("%w: %d polls without a terminal status", domain.ErrJobTimeout, job.Polls)
		}

		if err := sleep(ctx, o.cfg.PollInterval); err != nil {
			return "", o.deadline(ctx, err)
		}
	}
}

// forgetIfGone evicts the job's context when the backend no longer knows it.
// The failing job is not retried.
func (o *Orchestrator) forgetIfGone(ctx context.Context, job *model.AnalysisJob, err error) {
	if errors.Is(err, domain.ErrContextGone) {
		o.contexts.Forget(context.WithoutCancel(ctx), job.Type, job.ContextID)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// deadline turns an error caused by the per-job deadline into ErrJobTimeout.
// Cancellation of the caller's own context passes through unchanged.
func (o *Orchestrator) deadline(ctx context.Context, err error) error {
	if errors.Is(context.Cause(ctx), errJobDeadline) {
		return fmt.Errorf("%w: after %s", domain.ErrJobTimeout, o.cfg.JobTimeout)
	}
	return err
}

func (o *Orchestrator) finish(ctx context.Context, job *model.AnalysisJob, err error) {
	job.FinishedAt = time.Now()
	label := string(job.Status)
	switch {
	case err == nil:
		job.Status = model.JobStatusSucceeded
		label = string(job.Status)
	case errors.Is(err, domain.ErrJobTimeout):
		job.Status = model.JobStatusFailed
		label = "timeout"
	case errors.Is(err, domain.ErrJobFailed):
		// status already holds the terminal status reported upstream
	default:
		job.Status = model.JobStatusFailed
		label = "error"
	}
	if err != nil {
		job.LastError = err.Error()
	}
	metrics.ObserveJob(string(job.Type), label, job.FinishedAt.Sub(job.StartedAt), job.Polls)

	l := logging.With(ctx, o.log)
	ev := l.Info()
	if err != nil {
		ev = l.Warn().Err(err)
	}
	ev.Str("type", string(job.Type)).
		Str("context_id", job.ContextID).
		Str("job_id", job.JobID).
		Int("polls", job.Polls).
		Dur("duration", job.FinishedAt.Sub(job.StartedAt)).
		Msg("analysis job finished")

	if o.recorder != nil {
		o.recorder.Record(job)
	}
}
