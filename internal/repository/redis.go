package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"taskhub/internal/apperr"
	"taskhub/internal/model"
)

// RedisStore keeps one JSON value per "<prefix>:<id>" key plus a
// "<prefix>:index" list that preserves insertion order. SET NX / SET XX make
// Add and Update atomic per id.
type RedisStore[T model.Entity[T]] struct {
	client *redis.Client
	kind   string
	prefix string
	logger *zap.Logger
}

func NewRedisStore[T model.Entity[T]](client *redis.Client, kind string, logger *zap.Logger) *RedisStore[T] {
	return &RedisStore[T]{
		client: client,
		kind:   kind,
		prefix: "taskhub:" + kind,
		logger: logger,
	}
}

func (s *RedisStore[T]) key(id string) string { return s.prefix + ":" + id }
func (s *RedisStore[T]) indexKey() string     { return s.prefix + ":index" }

func (s *RedisStore[T]) Add(ctx context.Context, entity T) (T, error) {
	var zero T
	doc, err := json.Marshal(entity)
	if err != nil {
		return zero, fmt.Errorf("failed to encode %s: %w", s.kind, err)
	}

	id := entity.EntityID()
	ok, err := s.client.SetNX(ctx, s.key(id), doc, 0).Result()
	if err != nil {
		return zero, fmt.Errorf("failed to store %s: %w", s.kind, err)
	}
	if !ok {
		return zero, apperr.Conflictf("%s %s already exists", s.kind, id)
	}
	if err := s.client.RPush(ctx, s.indexKey(), id).Err(); err != nil {
		return zero, fmt.Errorf("failed to index %s: %w", s.kind, err)
	}

	s.logger.Debug("Entity stored",
		zap.String("kind", s.kind),
		zap.String("id", id),
	)
	return entity.Clone(), nil
}

func (s *RedisStore[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	doc, err := s.client.Get(ctx, s.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, apperr.NotFoundf("%s %s not found", s.kind, id)
	}
	if err != nil {
		return zero, fmt.Errorf("failed to fetch %s: %w", s.kind, err)
	}
	return decodeDoc[T](s.kind, doc)
}

func (s *RedisStore[T]) Update(ctx context.Context, entity T) (T, error) {
	var zero T
	doc, err := json.Marshal(entity)
	if err != nil {
		return zero, fmt.Errorf("failed to encode %s: %w", s.kind, err)
	}

	id := entity.EntityID()
	// XX: only replace an existing key, atomically.
	ok, err := s.client.SetXX(ctx, s.key(id), doc, 0).Result()
	if err != nil {
		return zero, fmt.Errorf("failed to update %s: %w", s.kind, err)
	}
	if !ok {
		return zero, apperr.NotFoundf("%s %s not found", s.kind, id)
	}
	return entity.Clone(), nil
}

func (s *RedisStore[T]) Delete(ctx context.Context, id string) error {
	removed, err := s.client.Del(ctx, s.key(id)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", s.kind, err)
	}
	if removed == 0 {
		return apperr.NotFoundf("%s %s not found", s.kind, id)
	}
	if err := s.client.LRem(ctx, s.indexKey(), 1, id).Err(); err != nil {
		return fmt.Errorf("failed to unindex %s: %w", s.kind, err)
	}
	return nil
}

func (s *RedisStore[T]) List(ctx context.Context, pred Predicate[T]) ([]T, error) {
	ids, err := s.client.LRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list %s index: %w", s.kind, err)
	}

	result := []T{}
	if len(ids) == 0 {
		return result, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.key(id)
	}
	docs, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s batch: %w", s.kind, err)
	}

	for _, raw := range docs {
		doc, ok := raw.(string)
		if !ok {
			// Key deleted between LRANGE and MGET.
			continue
		}
		entity, err := decodeDoc[T](s.kind, []byte(doc))
		if err != nil {
			return nil, err
		}
		if pred == nil || pred(entity) {
			result = append(result, entity)
		}
	}
	return result, nil
}

func (s *RedisStore[T]) Exists(ctx context.Context, id string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(id)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check %s existence: %w", s.kind, err)
	}
	return n > 0, nil
}
