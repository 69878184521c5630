package repository

import (
	"context"

	"analysis-gateway/internal/domain/model"
)

type AnalysisJobRepository interface {
	Save(ctx context.Context, tx Tx, job *model.AnalysisJob) error
}
