package assistant

import (
	"context"

	"analysis-gateway/internal/domain/model"
	"analysis-gateway/internal/domain/ports/adapter"
)

// Compile-time check
var _ adapter.JobClient = (*limitedClient)(nil)

// limitedClient bounds how many upstream calls are in flight process-wide.
// A slot is held for one call only, never across a whole job.
type limitedClient struct {
	inner adapter.JobClient
	sem   chan struct{}
}

func NewLimitedClient(inner adapter.JobClient, maxConcurrent int) adapter.JobClient {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedClient{
		inner: inner,
		sem:   make(chan struct{}, maxConcurrent),
	}
}

func (l *limitedClient) acquire(ctx context.Context) error {
	select {
	case l.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *limitedClient) release() { <-l.sem }

func (l *limitedClient) Open(ctx context.Context, t model.AnalysisType) (string, error) {
	if err := l.acquire(ctx); err != nil {
		return "", err
	}
	defer l.release()
	return l.inner.Open(ctx, t)
}

func (l *limitedClient) Submit(ctx context.Context, contextID, text string) error {
	if err := l.acquire(ctx); err != nil {
		return err
	}
	defer l.release()
	return l.inner.Submit(ctx, contextID, text)
}

func (l *limitedClient) Start(ctx context.Context, contextID string, t model.AnalysisType) (string, error) {
	if err := l.acquire(ctx); err != nil {
		return "", err
	}
	defer l.release()
	return l.inner.Start(ctx, contextID, t)
}

func (l *limitedClient) Poll(ctx context.Context, contextID, jobID string) (model.JobStatus, error) {
	if err := l.acquire(ctx); err != nil {
		return "", err
	}
	defer l.release()
	return l.inner.Poll(ctx, contextID, jobID)
}

func (l *limitedClient) FetchResult(ctx context.Context, contextID string) (string, error) {
	if err := l.acquire(ctx); err != nil {
		return "", err
	}
	defer l.release()
	return l.inner.FetchResult(ctx, contextID)
}
