package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/forecastwire/foresight/internal/domain"
	"github.com/forecastwire/foresight/internal/metrics"
)

// ForecastSource reads per-validator and community forecasts from the
// external provider.
type ForecastSource interface {
	ValidatorForecasts(ctx context.Context, eventID string) (domain.ValidatorForecasts, error)
	CommunityForecast(ctx context.Context, eventID string) (float64, error)
}

// Aggregator harvests forecast scores for every open prediction and appends
// outcome samples.
type Aggregator struct {
	source      ForecastSource
	predictions domain.PredictionStore
	outcomes    domain.OutcomeStore
	cache       domain.OutcomeCache
	logger      *slog.Logger
}

// NewAggregator creates a new Aggregator. cache may be nil, in which case the
// latest-score cache is simply not maintained.
func NewAggregator(
	source ForecastSource,
	predictions domain.PredictionStore,
	outcomes domain.OutcomeStore,
	cache domain.OutcomeCache,
	logger *slog.Logger,
) *Aggregator {
	return &Aggregator{
		source:      source,
		predictions: predictions,
		outcomes:    outcomes,
		cache:       cache,
		logger:      logger,
	}
}

// Run executes one aggregation pass over all open predictions and returns the
// number of samples stored. Every per-prediction failure is absorbed and
// logged; one prediction's failure never affects another's.
func (a *Aggregator) Run(ctx context.Context) int {
	now := time.Now().UTC()
	open, err := a.predictions.ListOpen(ctx, now)
	if err != nil {
		a.logger.Error("listing open predictions failed", slog.String("error", err.Error()))
		return 0
	}

	stored := 0
	for _, p := range open {
		if err := a.sample(ctx, p, now); err != nil {
			a.logger.Warn("outcome sampling skipped",
				slog.String("prediction_id", p.PredictionID),
				slog.String("error", err.Error()),
			)
			continue
		}
		stored++
		metrics.OutcomeSamplesStored.Inc()
	}

	a.logger.Info("aggregation complete",
		slog.Int("open_predictions", len(open)),
		slog.Int("samples_stored", stored),
	)
	return stored
}

// sample fetches both forecasts for one prediction and appends an outcome
// sample.
func (a *Aggregator) sample(ctx context.Context, p domain.Prediction, now time.Time) error {
	forecasts, err := a.source.ValidatorForecasts(ctx, p.PredictionID)
	if err != nil {
		return fmt.Errorf("fetching validator forecasts: %w", err)
	}

	weighted, err := weightedScore(forecasts.Outcomes)
	if err != nil {
		return err
	}

	community, err := a.source.CommunityForecast(ctx, p.PredictionID)
	if err != nil {
		return fmt.Errorf("fetching community forecast: %w", err)
	}
	community = round4(community)

	sample := domain.OutcomeSample{
		PredictionID: p.PredictionID,
		Weighted:     weighted,
		Community:    community,
		Raw:          forecasts.Raw,
	}
	if err := a.outcomes.Insert(ctx, sample); err != nil {
		return fmt.Errorf("persisting outcome sample: %w", err)
	}

	if a.cache != nil {
		scores := domain.OutcomeScores{Weighted: weighted, Community: community, SampledAt: now}
		if err := a.cache.SetLatest(ctx, p.PredictionID, scores); err != nil {
			// The sample is already persisted; a stale cache entry is tolerable.
			a.logger.Warn("latest-outcome cache update failed",
				slog.String("prediction_id", p.PredictionID),
				slog.String("error", err.Error()),
			)
		}
	}

	return nil
}

// weightedScore computes the mean of the parseable forecast values, rounded
// to 4 decimals. Unparseable entries are excluded from both sum and count;
// zero parseable entries is domain.ErrNoForecasts.
func weightedScore(outcomes []string) (float64, error) {
	sum := 0.0
	count := 0
	for _, o := range outcomes {
		v, err := strconv.ParseFloat(o, 64)
		if err != nil {
			continue
		}
		sum += v
		count++
	}
	if count == 0 {
		return 0, domain.ErrNoForecasts
	}
	return round4(sum / float64(count)), nil
}

// round4 rounds half away from zero at the 4th decimal place.
func round4(x float64) float64 {
	return math.Round(x*10000) / 10000
}
