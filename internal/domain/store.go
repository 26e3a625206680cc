package domain

import (
	"context"
	"time"
)

// MarketStore persists classified markets.
type MarketStore interface {
	// Insert adds a market if its condition id is not already present. The
	// bool reports whether a row was inserted; a unique-constraint conflict
	// returns (false, nil).
	Insert(ctx context.Context, m Market) (bool, error)

	// GetByCondition returns the market with the given condition id, or
	// ErrNotFound.
	GetByCondition(ctx context.Context, conditionID string) (Market, error)

	// NeedingPrediction returns up to limit markets whose end date is more
	// than minLead away and which have no prediction yet, soonest deadline
	// first.
	NeedingPrediction(ctx context.Context, minLead time.Duration, limit int) ([]Market, error)
}

// PredictionStore persists market-to-event mappings.
type PredictionStore interface {
	Exists(ctx context.Context, conditionID string) (bool, error)
	Insert(ctx context.Context, p Prediction) error

	// ListOpen returns all predictions whose end date is after now.
	ListOpen(ctx context.Context, now time.Time) ([]Prediction, error)
}

// OutcomeStore persists the append-only outcome sample series.
type OutcomeStore interface {
	Insert(ctx context.Context, s OutcomeSample) error

	// Latest returns the newest sample for a prediction, or ErrNotFound.
	Latest(ctx context.Context, predictionID string) (OutcomeSample, error)

	// ListBefore returns all samples created strictly before the cutoff, for
	// cold-storage archival.
	ListBefore(ctx context.Context, before time.Time) ([]OutcomeSample, error)
}

// TaskLockStore persists the scheduler's per-key "not eligible before"
// timestamps. Get and Upsert are deliberately separate operations; the
// scheduler's read-then-advance sequence is advisory, not transactional.
type TaskLockStore interface {
	// Get returns the stored timestamp for key, or nil when no record exists.
	Get(ctx context.Context, key string) (*time.Time, error)
	Upsert(ctx context.Context, key string, notBefore time.Time) error
}
