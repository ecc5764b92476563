package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"taskhub/internal/apperr"
	"taskhub/internal/model"
)

// PostgresStore keeps each entity as a jsonb document in a per-kind table.
// A bigserial column preserves insertion order; the primary key on id gives
// conflict detection and per-id linearizability for free.
type PostgresStore[T model.Entity[T]] struct {
	db     *pgxpool.Pool
	kind   string
	table  string
	logger *zap.Logger
}

// NewPostgresStore creates a store over the table named after kind
// ("user" -> "user_docs").
func NewPostgresStore[T model.Entity[T]](db *pgxpool.Pool, kind string, logger *zap.Logger) *PostgresStore[T] {
	return &PostgresStore[T]{
		db:     db,
		kind:   kind,
		table:  kind + "_docs",
		logger: logger,
	}
}

// EnsureSchema creates the backing table if it does not exist.
func (s *PostgresStore[T]) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            id  text PRIMARY KEY,
            seq bigserial,
            doc jsonb NOT NULL
        )
    `, s.table)
	if _, err := s.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to ensure schema for %s: %w", s.table, err)
	}
	return nil
}

func (s *PostgresStore[T]) Add(ctx context.Context, entity T) (T, error) {
	var zero T
	doc, err := json.Marshal(entity)
	if err != nil {
		return zero, fmt.Errorf("failed to encode %s: %w", s.kind, err)
	}

	query := fmt.Sprintf(`
        INSERT INTO %s (id, doc)
        VALUES ($1, $2)
        ON CONFLICT (id) DO NOTHING
    `, s.table)
	tag, err := s.db.Exec(ctx, query, entity.EntityID(), doc)
	if err != nil {
		return zero, fmt.Errorf("failed to insert %s: %w", s.kind, err)
	}
	if tag.RowsAffected() == 0 {
		return zero, apperr.Conflictf("%s %s already exists", s.kind, entity.EntityID())
	}

	s.logger.Debug("Entity inserted",
		zap.String("kind", s.kind),
		zap.String("id", entity.EntityID()),
	)
	return entity.Clone(), nil
}

func (s *PostgresStore[T]) Get(ctx context.Context, id string) (T, error) {
	var zero T
	query := fmt.Sprintf(`SELECT doc FROM %s WHERE id = $1`, s.table)

	var doc []byte
	err := s.db.QueryRow(ctx, query, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return zero, apperr.NotFoundf("%s %s not found", s.kind, id)
	}
	if err != nil {
		return zero, fmt.Errorf("failed to query %s: %w", s.kind, err)
	}
	return decodeDoc[T](s.kind, doc)
}

func (s *PostgresStore[T]) Update(ctx context.Context, entity T) (T, error) {
	var zero T
	doc, err := json.Marshal(entity)
	if err != nil {
		return zero, fmt.Errorf("failed to encode %s: %w", s.kind, err)
	}

	query := fmt.Sprintf(`UPDATE %s SET doc = $2 WHERE id = $1`, s.table)
	tag, err := s.db.Exec(ctx, query, entity.EntityID(), doc)
	if err != nil {
		return zero, fmt.Errorf("failed to update %s: %w", s.kind, err)
	}
	if tag.RowsAffected() == 0 {
		return zero, apperr.NotFoundf("%s %s not found", s.kind, entity.EntityID())
	}
	return entity.Clone(), nil
}

func (s *PostgresStore[T]) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.table)
	tag, err := s.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", s.kind, err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFoundf("%s %s not found", s.kind, id)
	}
	return nil
}

func (s *PostgresStore[T]) List(ctx context.Context, pred Predicate[T]) ([]T, error) {
	query := fmt.Sprintf(`SELECT doc FROM %s ORDER BY seq`, s.table)
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", s.kind, err)
	}
	defer rows.Close()

	result := []T{}
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", s.kind, err)
		}
		entity, err := decodeDoc[T](s.kind, doc)
		if err != nil {
			return nil, err
		}
		if pred == nil || pred(entity) {
			result = append(result, entity)
		}
	}
	return result, rows.Err()
}

func (s *PostgresStore[T]) Exists(ctx context.Context, id string) (bool, error) {
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1)`, s.table)
	var exists bool
	if err := s.db.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check %s existence: %w", s.kind, err)
	}
	return exists, nil
}

func decodeDoc[T any](kind string, doc []byte) (T, error) {
	var entity T
	if err := json.Unmarshal(doc, &entity); err != nil {
		var zero T
		return zero, fmt.Errorf("failed to decode %s: %w", kind, err)
	}
	return entity, nil
}
