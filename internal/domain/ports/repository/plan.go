package repository

import (
	"context"

	"analysis-gateway/internal/domain/model"
)

// PlanRepository is the port for plan lookups.
type PlanRepository interface {
	FindByID(ctx context.Context, tx Tx, id int64) (*model.Plan, error)
}
