package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TaskLockStore implements domain.TaskLockStore using PostgreSQL.
type TaskLockStore struct {
	pool *pgxpool.Pool
}

// NewTaskLockStore creates a new TaskLockStore backed by the given pool.
func NewTaskLockStore(pool *pgxpool.Pool) *TaskLockStore {
	return &TaskLockStore{pool: pool}
}

// Get returns the stored not-before timestamp for key, or nil when no record
// exists yet.
func (s *TaskLockStore) Get(ctx context.Context, key string) (*time.Time, error) {
	var notBefore time.Time
	err := s.pool.QueryRow(ctx,
		`SELECT not_before FROM task_locks WHERE key = $1`, key,
	).Scan(&notBefore)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("postgres: get task lock %s: %w", key, err)
	}
	return &notBefore, nil
}

// Upsert records the not-before timestamp for key, creating the row on first
// use.
func (s *TaskLockStore) Upsert(ctx context.Context, key string, notBefore time.Time) error {
	const query = `
		INSERT INTO task_locks (key, not_before, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET
			not_before = EXCLUDED.not_before,
			updated_at = NOW()`

	if _, err := s.pool.Exec(ctx, query, key, notBefore); err != nil {
		return fmt.Errorf("postgres: upsert task lock %s: %w", key, err)
	}
	return nil
}
