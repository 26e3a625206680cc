package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/forecastwire/foresight/internal/domain"
)

// latestOutcomeTTL bounds staleness of cached scores. It comfortably exceeds
// the sampling interval so a healthy pipeline refreshes entries before expiry.
const latestOutcomeTTL = 3 * time.Hour

// OutcomeCache implements domain.OutcomeCache, keeping the newest aggregate
// scores per prediction as JSON values.
type OutcomeCache struct {
	rdb *redis.Client
}

// NewOutcomeCache creates an OutcomeCache backed by the given Client.
func NewOutcomeCache(c *Client) *OutcomeCache {
	return &OutcomeCache{rdb: c.Underlying()}
}

func outcomeKey(predictionID string) string {
	return "outcome:latest:" + predictionID
}

// SetLatest stores the newest scores for a prediction.
func (oc *OutcomeCache) SetLatest(ctx context.Context, predictionID string, scores domain.OutcomeScores) error {
	data, err := json.Marshal(scores)
	if err != nil {
		return fmt.Errorf("redis: marshal outcome scores: %w", err)
	}

	if err := oc.rdb.Set(ctx, outcomeKey(predictionID), data, latestOutcomeTTL).Err(); err != nil {
		return fmt.Errorf("redis: set latest outcome %s: %w", predictionID, err)
	}
	return nil
}

// GetLatest returns the cached scores for a prediction, or domain.ErrNotFound
// when no entry exists or it has expired.
func (oc *OutcomeCache) GetLatest(ctx context.Context, predictionID string) (domain.OutcomeScores, error) {
	data, err := oc.rdb.Get(ctx, outcomeKey(predictionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.OutcomeScores{}, domain.ErrNotFound
		}
		return domain.OutcomeScores{}, fmt.Errorf("redis: get latest outcome %s: %w", predictionID, err)
	}

	var scores domain.OutcomeScores
	if err := json.Unmarshal(data, &scores); err != nil {
		return domain.OutcomeScores{}, fmt.Errorf("redis: unmarshal outcome scores: %w", err)
	}
	return scores, nil
}

// Compile-time interface check.
var _ domain.OutcomeCache = (*OutcomeCache)(nil)
