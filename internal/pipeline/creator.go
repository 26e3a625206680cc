package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/forecastwire/foresight/internal/domain"
	"github.com/forecastwire/foresight/internal/metrics"
)

// EventCreator registers forecasting events with the external provider.
type EventCreator interface {
	CreateEvent(ctx context.Context, title, description string, cutoff time.Time) (string, error)
}

// Creator selects markets lacking a prediction and registers provider events
// for them.
type Creator struct {
	events      EventCreator
	markets     domain.MarketStore
	predictions domain.PredictionStore
	batchSize   int
	minLead     time.Duration
	logger      *slog.Logger
}

// NewCreator creates a new Creator.
func NewCreator(
	events EventCreator,
	markets domain.MarketStore,
	predictions domain.PredictionStore,
	batchSize int,
	minLead time.Duration,
	logger *slog.Logger,
) *Creator {
	return &Creator{
		events:      events,
		markets:     markets,
		predictions: predictions,
		batchSize:   batchSize,
		minLead:     minLead,
		logger:      logger,
	}
}

// Run executes one background creation pass: it scans the eligible-market
// batch, soonest deadline first, and stops after the first successful
// creation to bound the external call rate per tick. It returns the number of
// predictions created (0 or 1). Per-market failures are logged and skipped.
func (c *Creator) Run(ctx context.Context) int {
	candidates, err := c.markets.NeedingPrediction(ctx, c.minLead, c.batchSize)
	if err != nil {
		c.logger.Error("selecting markets for prediction failed", slog.String("error", err.Error()))
		return 0
	}

	for _, m := range candidates {
		p, err := c.create(ctx, m)
		if err != nil {
			c.logger.Warn("prediction creation skipped",
				slog.String("condition_id", m.ConditionID),
				slog.String("error", err.Error()),
			)
			continue
		}

		c.logger.Info("prediction created",
			slog.String("prediction_id", p.PredictionID),
			slog.String("condition_id", p.ConditionID),
		)
		metrics.PredictionsCreated.Inc()
		return 1
	}

	return 0
}

// CreateFor registers a prediction for one specific market. Unlike the batch
// pass, a pre-existing prediction surfaces as domain.ErrAlreadyExists so an
// interactive caller sees the conflict.
func (c *Creator) CreateFor(ctx context.Context, conditionID string) (domain.Prediction, error) {
	exists, err := c.predictions.Exists(ctx, conditionID)
	if err != nil {
		return domain.Prediction{}, fmt.Errorf("checking prediction for %s: %w", conditionID, err)
	}
	if exists {
		return domain.Prediction{}, fmt.Errorf("prediction for %s: %w", conditionID, domain.ErrAlreadyExists)
	}

	m, err := c.markets.GetByCondition(ctx, conditionID)
	if err != nil {
		return domain.Prediction{}, fmt.Errorf("loading market %s: %w", conditionID, err)
	}

	p, err := c.create(ctx, m)
	if err != nil {
		return domain.Prediction{}, err
	}
	metrics.PredictionsCreated.Inc()
	return p, nil
}

// create registers the provider event for a market and persists the mapping.
func (c *Creator) create(ctx context.Context, m domain.Market) (domain.Prediction, error) {
	eventID, err := c.events.CreateEvent(ctx, m.Question, m.Description, m.EndDate)
	if err != nil {
		return domain.Prediction{}, fmt.Errorf("creating event for %s: %w", m.ConditionID, err)
	}

	p := domain.Prediction{
		PredictionID: eventID,
		ConditionID:  m.ConditionID,
		EndDate:      m.EndDate,
	}
	if err := c.predictions.Insert(ctx, p); err != nil {
		return domain.Prediction{}, fmt.Errorf("persisting prediction %s: %w", eventID, err)
	}
	return p, nil
}
