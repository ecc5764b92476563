// Package repository defines the generic keyed-store contract the service
// layer depends on, plus the concrete backends. Stores are deliberately dumb:
// they never perform cross-entity validation, which keeps them swappable
// without touching business logic.
package repository

import (
	"context"

	"taskhub/internal/model"
)

// Predicate filters entities during a List scan. A nil predicate matches
// everything.
type Predicate[T any] func(T) bool

// Store is the repository contract, one instantiation per entity type.
//
// Operations on the same id are linearizable: a Get that observes an Update
// observes all of it. List returns a snapshot in insertion order; concurrent
// writes during iteration are never observed mid-scan.
type Store[T model.Entity[T]] interface {
	// Add stores a new entity. Fails with a conflict error if the id is
	// already present.
	Add(ctx context.Context, entity T) (T, error)
	// Get returns the entity or a not-found error.
	Get(ctx context.Context, id string) (T, error)
	// Update atomically replaces the stored entity. Fails with a not-found
	// error if the id is absent.
	Update(ctx context.Context, entity T) (T, error)
	// Delete removes the entity. Fails with a not-found error if absent.
	Delete(ctx context.Context, id string) error
	// List returns all entities matching the predicate, in insertion order.
	List(ctx context.Context, pred Predicate[T]) ([]T, error)
	// Exists is a non-failing existence check.
	Exists(ctx context.Context, id string) (bool, error)
}
