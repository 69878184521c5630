//go:build !integration

package usecase_test

import (
	"context"
	"testing"
	"time"

	"analysis-gateway/internal/domain/model"
	"analysis-gateway/internal/infra/worker"
	"analysis-gateway/internal/usecase"
)

func TestAsyncJobRecorder_PersistsThroughPool(t *testing.T) {
	pool := worker.NewPool(1, newTestLogger())
	repo := &MockAnalysisJobRepo{}
	rec := usecase.NewAsyncJobRecorder(pool, repo, newTestLogger())

	job := &model.AnalysisJob{ID: "j1", Type: "diagnosis", Status: model.JobStatusSucceeded}
	rec.Record(job)
	job.Status = model.JobStatusFailed // the recorder keeps its own copy

	pool.Start(context.Background())
	deadline := time.Now().Add(time.Second)
	for repo.Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	pool.Stop()

	if repo.Len() != 1 {
		t.Fatalf("expected one persisted record, got %d", repo.Len())
	}
	if repo.Jobs[0].Status != model.JobStatusSucceeded {
		t.Errorf("expected the record as submitted, got %s", repo.Jobs[0].Status)
	}
}
