package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forecastwire/foresight/internal/domain"
)

// OutcomeStore implements domain.OutcomeStore using PostgreSQL.
type OutcomeStore struct {
	pool *pgxpool.Pool
}

// NewOutcomeStore creates a new OutcomeStore backed by the given pool.
func NewOutcomeStore(pool *pgxpool.Pool) *OutcomeStore {
	return &OutcomeStore{pool: pool}
}

// Insert appends one outcome sample.
func (s *OutcomeStore) Insert(ctx context.Context, sample domain.OutcomeSample) error {
	const query = `
		INSERT INTO outcomes (prediction_id, weighted, community, raw, created_at)
		VALUES ($1, $2, $3, $4, NOW())`

	_, err := s.pool.Exec(ctx, query,
		sample.PredictionID, sample.Weighted, sample.Community, sample.Raw,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert outcome for %s: %w", sample.PredictionID, err)
	}
	return nil
}

// Latest returns the newest sample for a prediction.
func (s *OutcomeStore) Latest(ctx context.Context, predictionID string) (domain.OutcomeSample, error) {
	const query = `
		SELECT prediction_id, weighted, community, raw, created_at
		FROM outcomes
		WHERE prediction_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	var sample domain.OutcomeSample
	err := s.pool.QueryRow(ctx, query, predictionID).Scan(
		&sample.PredictionID, &sample.Weighted, &sample.Community,
		&sample.Raw, &sample.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.OutcomeSample{}, domain.ErrNotFound
		}
		return domain.OutcomeSample{}, fmt.Errorf("postgres: latest outcome for %s: %w", predictionID, err)
	}
	return sample, nil
}

// ListBefore returns all samples created strictly before the cutoff, oldest
// first, for cold-storage archival.
func (s *OutcomeStore) ListBefore(ctx context.Context, before time.Time) ([]domain.OutcomeSample, error) {
	const query = `
		SELECT prediction_id, weighted, community, raw, created_at
		FROM outcomes
		WHERE created_at < $1
		ORDER BY created_at ASC`

	rows, err := s.pool.Query(ctx, query, before)
	if err != nil {
		return nil, fmt.Errorf("postgres: list outcomes before %s: %w", before.Format(time.RFC3339), err)
	}
	defer rows.Close()

	var samples []domain.OutcomeSample
	for rows.Next() {
		var sample domain.OutcomeSample
		if err := rows.Scan(
			&sample.PredictionID, &sample.Weighted, &sample.Community,
			&sample.Raw, &sample.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan outcome: %w", err)
		}
		samples = append(samples, sample)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list outcomes rows: %w", err)
	}
	return samples, nil
}
