package repository

import (
	"context"

	"analysis-gateway/internal/domain/model"
)

// ContextStore keeps the analysis-type -> conversation context mapping outside
// the process so restarts and sibling instances reuse the same contexts.
type ContextStore interface {
	// Get returns "" and no error when nothing is stored for t.
	Get(ctx context.Context, t model.AnalysisType) (string, error)

	// SetIfAbsent stores id unless another value is already present, and
	// returns whichever value is stored afterwards.
	SetIfAbsent(ctx context.Context, t model.AnalysisType, id string) (string, error)

	// Delete removes the entry for t only while it still holds id, so a
	// replacement published by another instance survives.
	Delete(ctx context.Context, t model.AnalysisType, id string) error
}
