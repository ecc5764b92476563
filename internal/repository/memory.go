package repository

import (
	"context"
	"slices"
	"sync"

	"taskhub/internal/apperr"
	"taskhub/internal/model"
)

// MemoryStore is the reference Store backend: a mutex-guarded map plus an
// insertion-order index. Whole-store locking keeps every operation trivially
// linearizable. It stores and returns clones only.
type MemoryStore[T model.Entity[T]] struct {
	kind string

	mu    sync.RWMutex
	items map[string]T
	order []string
}

// NewMemoryStore creates an empty store. kind names the entity in error
// messages ("user", "task", ...).
func NewMemoryStore[T model.Entity[T]](kind string) *MemoryStore[T] {
	return &MemoryStore[T]{
		kind:  kind,
		items: make(map[string]T),
	}
}

func (s *MemoryStore[T]) Add(_ context.Context, entity T) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	id := entity.EntityID()
	if _, ok := s.items[id]; ok {
		return zero, apperr.Conflictf("%s %s already exists", s.kind, id)
	}
	s.items[id] = entity.Clone()
	s.order = append(s.order, id)
	return entity.Clone(), nil
}

func (s *MemoryStore[T]) Get(_ context.Context, id string) (T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var zero T
	entity, ok := s.items[id]
	if !ok {
		return zero, apperr.NotFoundf("%s %s not found", s.kind, id)
	}
	return entity.Clone(), nil
}

func (s *MemoryStore[T]) Update(_ context.Context, entity T) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	id := entity.EntityID()
	if _, ok := s.items[id]; !ok {
		return zero, apperr.NotFoundf("%s %s not found", s.kind, id)
	}
	s.items[id] = entity.Clone()
	return entity.Clone(), nil
}

func (s *MemoryStore[T]) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[id]; !ok {
		return apperr.NotFoundf("%s %s not found", s.kind, id)
	}
	delete(s.items, id)
	if i := slices.Index(s.order, id); i >= 0 {
		s.order = slices.Delete(s.order, i, i+1)
	}
	return nil
}

func (s *MemoryStore[T]) List(_ context.Context, pred Predicate[T]) ([]T, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]T, 0, len(s.order))
	for _, id := range s.order {
		entity := s.items[id]
		if pred == nil || pred(entity) {
			result = append(result, entity.Clone())
		}
	}
	return result, nil
}

func (s *MemoryStore[T]) Exists(_ context.Context, id string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.items[id]
	return ok, nil
}
