package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forecastwire/foresight/internal/domain"
)

// PredictionStore implements domain.PredictionStore using PostgreSQL.
type PredictionStore struct {
	pool *pgxpool.Pool
}

// NewPredictionStore creates a new PredictionStore backed by the given pool.
func NewPredictionStore(pool *pgxpool.Pool) *PredictionStore {
	return &PredictionStore{pool: pool}
}

// Exists reports whether a prediction already exists for the condition id.
func (s *PredictionStore) Exists(ctx context.Context, conditionID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM predictions WHERE condition_id = $1)`,
		conditionID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: prediction exists %s: %w", conditionID, err)
	}
	return exists, nil
}

// Insert stores a new prediction. A duplicate prediction or condition id
// returns domain.ErrAlreadyExists.
func (s *PredictionStore) Insert(ctx context.Context, p domain.Prediction) error {
	const query = `
		INSERT INTO predictions (prediction_id, condition_id, end_date, created_at)
		VALUES ($1, $2, $3, NOW())`

	_, err := s.pool.Exec(ctx, query, p.PredictionID, p.ConditionID, p.EndDate)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("postgres: prediction for %s: %w", p.ConditionID, domain.ErrAlreadyExists)
		}
		return fmt.Errorf("postgres: insert prediction %s: %w", p.PredictionID, err)
	}
	return nil
}

// ListOpen returns all predictions whose end date is after now.
func (s *PredictionStore) ListOpen(ctx context.Context, now time.Time) ([]domain.Prediction, error) {
	const query = `
		SELECT prediction_id, condition_id, end_date, created_at
		FROM predictions
		WHERE end_date > $1
		ORDER BY end_date ASC`

	rows, err := s.pool.Query(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("postgres: list open predictions: %w", err)
	}
	defer rows.Close()

	var preds []domain.Prediction
	for rows.Next() {
		var p domain.Prediction
		if err := rows.Scan(&p.PredictionID, &p.ConditionID, &p.EndDate, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan prediction: %w", err)
		}
		preds = append(preds, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list open predictions rows: %w", err)
	}
	return preds, nil
}
