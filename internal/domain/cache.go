package domain

import (
	"context"
	"time"
)

// OutcomeCache keeps the newest aggregate scores per prediction so read paths
// can serve "latest" without a store round trip.
type OutcomeCache interface {
	SetLatest(ctx context.Context, predictionID string, scores OutcomeScores) error
	// GetLatest returns ErrNotFound when no entry exists (or it expired).
	GetLatest(ctx context.Context, predictionID string) (OutcomeScores, error)
}

// LockManager provides best-effort distributed mutual exclusion. Acquire
// returns an unlock function on success and ErrLockHeld when another holder
// owns the lock.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error)
}
