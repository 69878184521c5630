package usecase

import (
	"context"
	"fmt"
	"sync"

	"analysis-gateway/internal/domain/model"
	"analysis-gateway/internal/domain/ports/adapter"
	"analysis-gateway/internal/domain/ports/repository"
	"analysis-gateway/internal/infra/metrics"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// ContextCache maps each analysis type to one long-lived conversation context.
// Contexts are opened lazily; concurrent first callers for a type share a single
// Open. A failed Open is not remembered, so the next caller retries.
type ContextCache struct {
	client adapter.JobClient
	store  repository.ContextStore // optional
	log    *zerolog.Logger

	ids    sync.Map // model.AnalysisType -> string
	flight singleflight.Group
}

// NewContextCache builds an empty cache. store may be nil.
func NewContextCache(client adapter.JobClient, store repository.ContextStore, logger *zerolog.Logger) *ContextCache {
	return &ContextCache{client: client, store: store, log: logger}
}

// GetOrCreate returns the context id for t, opening one if none exists yet.
// A caller whose ctx ends stops waiting; the shared creation keeps going for
// the remaining waiters.
func (c *ContextCache) GetOrCreate(ctx context.Context, t model.AnalysisType) (string, error) {
	if v, ok := c.ids.Load(t); ok {
		metrics.IncCacheRequest("context", "hit")
		return v.(string), nil
	}
	metrics.IncCacheRequest("context", "miss")

	// Detached from the first caller's cancellation, it belongs to every waiter.
	flightCtx := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(string(t), func() (any, error) {
		if v, ok := c.ids.Load(t); ok {
			return v.(string), nil
		}
		id, err := c.resolve(flightCtx, t)
		if err != nil {
			return "", err
		}
		c.ids.Store(t, id)
		return id, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Forget drops id for t after the backend reported it gone, here and in the
// shared store, so the next caller opens a fresh context. A newer id is kept.
func (c *ContextCache) Forget(ctx context.Context, t model.AnalysisType, id string) {
	c.ids.CompareAndDelete(t, id)
	if c.store != nil {
		if err := c.store.Delete(ctx, t, id); err != nil {
			c.log.Warn().Err(err).Str("type", string(t)).Msg("context store delete failed")
		}
	}
	c.log.Info().Str("type", string(t)).Str("context_id", id).Msg("dropped stale conversation context")
}

func (c *ContextCache) resolve(ctx context.Context, t model.AnalysisType) (string, error) {
	if c.store != nil {
		id, err := c.store.Get(ctx, t)
		if err != nil {
			// the store is an optimisation; fall through to a fresh context
			c.log.Warn().Err(err).Str("type", string(t)).Msg("context store lookup failed")
		} else if id != "" {
			return id, nil
		}
	}

	id, err := c.client.Open(ctx, t)
	if err != nil {
		return "", fmt.Errorf("open context for %s: %w", t, err)
	}
	c.log.Info().Str("type", string(t)).Str("context_id", id).Msg("opened conversation context")

	if c.store != nil {
		stored, err := c.store.SetIfAbsent(ctx, t, id)
		if err != nil {
			c.log.Warn().Err(err).Str("type", string(t)).Msg("context store publish failed")
			return id, nil
		}
		// another instance won the race; converge on its context
		id = stored
	}
	return id, nil
}
