package repository

import (
	"context"
	"time"

	"analysis-gateway/internal/domain/model"
)

// UserRepository persists subscribers and their request counters.
type UserRepository interface {
	FindByID(ctx context.Context, tx Tx, id int64) (*model.User, error)

	// Upsert inserts a new user or updates plan, email and reset date of an
	// existing one. It never touches the used-request counter of an existing row.
	Upsert(ctx context.Context, tx Tx, u *model.User) (created bool, err error)

	// FindQuota joins the user with their plan. Returns domain.ErrNotFound for unknown users.
	FindQuota(ctx context.Context, tx Tx, userID int64) (*model.QuotaRecord, error)

	// ReserveRequests atomically adds count to the used counter if the result
	// stays within the plan total, and returns the post-increment record.
	// Returns domain.ErrQuotaExceeded without side effects otherwise.
	ReserveRequests(ctx context.Context, tx Tx, userID int64, count int) (*model.QuotaRecord, error)

	// ResetDue zeroes the counter of every user whose reset date is at or
	// before now and moves their reset date forward by period.
	ResetDue(ctx context.Context, tx Tx, now time.Time, period time.Duration) (int, error)
}
