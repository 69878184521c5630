package redis

import (
	"context"
	"errors"
	"fmt"

	"analysis-gateway/internal/domain/model"
	"analysis-gateway/internal/domain/ports/repository"
)

var _ repository.ContextStore = (*ContextStore)(nil)

// ContextStore shares analysis-type -> conversation context ids between
// processes. Entries do not expire; a context the backend no longer knows is
// removed through Delete.
type ContextStore struct {
	cli    RedisClient
	prefix string
}

func NewContextStore(cli RedisClient, prefix string) *ContextStore {
	if prefix == "" {
		prefix = "analysis:context:"
	}
	return &ContextStore{cli: cli, prefix: prefix}
}

func (s *ContextStore) key(t model.AnalysisType) string { return s.prefix + string(t) }

func (s *ContextStore) Get(ctx context.Context, t model.AnalysisType) (string, error) {
	v, err := s.cli.Get(ctx, s.key(t))
	if errors.Is(err, Nil) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("context store get %s: %w", t, err)
	}
	return v, nil
}

func (s *ContextStore) SetIfAbsent(ctx context.Context, t model.AnalysisType, id string) (string, error) {
	ok, err := s.cli.SetNX(ctx, s.key(t), id, 0)
	if err != nil {
		return "", fmt.Errorf("context store setnx %s: %w", t, err)
	}
	if ok {
		return id, nil
	}
	cur, err := s.Get(ctx, t)
	if err != nil {
		return "", err
	}
	if cur == "" {
		// evicted between SETNX and GET; ours is as good as any
		return id, nil
	}
	return cur, nil
}

func (s *ContextStore) Delete(ctx context.Context, t model.AnalysisType, id string) error {
	cur, err := s.Get(ctx, t)
	if err != nil {
		return err
	}
	if cur != id {
		return nil
	}
	// GET and DEL are not atomic; a writer slipping in between only costs one extra Open
	if err := s.cli.Del(ctx, s.key(t)); err != nil {
		return fmt.Errorf("context store del %s: %w", t, err)
	}
	return nil
}
