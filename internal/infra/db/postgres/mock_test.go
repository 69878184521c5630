//go:build !integration

package postgres

import (
	"context"
	"time"

	"analysis-gateway/internal/domain/model"
	"analysis-gateway/internal/domain/ports/repository"
	red "analysis-gateway/internal/infra/redis"
)

// --- Mocks for Cache Decorator Tests ---

// mockInnerPlanRepo mocks the database repository that the Plan decorator wraps.
type mockInnerPlanRepo struct {
	FindByIDFunc func(ctx context.Context, tx repository.Tx, id int64) (*model.Plan, error)
}

func (m *mockInnerPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.Plan, error) {
	return m.FindByIDFunc(ctx, tx, id)
}

// mockRedisClient mocks our Redis client wrapper.
type mockRedisClient struct {
	GetFunc   func(ctx context.Context, key string) (string, error)
	SetFunc   func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	SetNXFunc func(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	DelFunc   func(ctx context.Context, keys ...string) error
}

var _ red.RedisClient = &mockRedisClient{}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if m.SetFunc == nil {
		return nil
	}
	return m.SetFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return m.SetNXFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	return m.DelFunc(ctx, keys...)
}
func (m *mockRedisClient) Ping(ctx context.Context) error { return nil }
func (m *mockRedisClient) Close() error                   { return nil }
