package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"analysis-gateway/internal/domain/model"
	"analysis-gateway/internal/domain/ports/repository"
	"analysis-gateway/internal/infra/metrics"
	red "analysis-gateway/internal/infra/redis"

	"github.com/rs/zerolog"
)

var _ repository.PlanRepository = (*planRepoCacheDecorator)(nil)

// planRepoCacheDecorator is a read-through Redis cache for plan lookups.
// Plans are only written by migrations, so entries simply expire.
type planRepoCacheDecorator struct {
	inner repository.PlanRepository
	cache red.RedisClient
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewPlanRepoCacheDecorator(inner repository.PlanRepository, cache red.RedisClient, ttl time.Duration, logger *zerolog.Logger) repository.PlanRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &planRepoCacheDecorator{
		inner: inner,
		cache: cache,
		ttl:   ttl,
		log:   logger,
	}
}

func (d *planRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id int64) (*model.Plan, error) {
	key := fmt.Sprintf("plan:%d", id)
	val, err := d.cache.Get(ctx, key)
	if err == nil {
		var plan model.Plan
		if json.Unmarshal([]byte(val), &plan) == nil {
			metrics.IncCacheRequest("plan", "hit")
			return &plan, nil
		}
	} else if !errors.Is(err, red.Nil) {
		metrics.IncCacheRequest("plan", "error")
		d.log.Warn().Err(err).Str("key", key).Msg("plan cache read failed")
	}

	metrics.IncCacheRequest("plan", "miss")
	plan, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if plan != nil {
		bytes, _ := json.Marshal(plan)
		if err := d.cache.Set(ctx, key, bytes, d.ttl); err != nil {
			d.log.Warn().Err(err).Str("key", key).Msg("plan cache write failed")
		}
	}
	return plan, nil
}
