package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/forecastwire/foresight/internal/domain"
	"github.com/forecastwire/foresight/internal/metrics"
)

// taskKey identifies the pipeline's persisted throttle record.
const taskKey = "predictions_task"

// runLockKey identifies the Redis run lock guarding a single pipeline
// execution.
const runLockKey = "pipeline_run"

// marketIngestor runs one ingestion pass.
type marketIngestor interface {
	Run(ctx context.Context) IngestResult
}

// outcomeAggregator runs one aggregation pass.
type outcomeAggregator interface {
	Run(ctx context.Context) int
}

// predictionCreator runs one creation pass.
type predictionCreator interface {
	Run(ctx context.Context) int
}

// Scheduler drives the pipeline on a fixed tick, throttled by a persisted
// "not eligible before" timestamp shared across instances.
//
// The throttle is advisory: the due-check read and the advance write are two
// separate store operations with no enclosing transaction, so two instances
// ticking at nearly the same moment can both observe the record as due. The
// Redis run lock narrows that window but single-instance deployment is still
// the supported configuration.
type Scheduler struct {
	ingestor   marketIngestor
	aggregator outcomeAggregator
	creator    predictionCreator
	locks      domain.TaskLockStore
	runLock    domain.LockManager

	tickInterval time.Duration
	throttle     time.Duration
	logger       *slog.Logger
}

// NewScheduler creates a new Scheduler. runLock may be nil, in which case
// only the persisted throttle guards against concurrent runs.
func NewScheduler(
	ingestor marketIngestor,
	aggregator outcomeAggregator,
	creator predictionCreator,
	locks domain.TaskLockStore,
	runLock domain.LockManager,
	tickInterval time.Duration,
	throttle time.Duration,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		ingestor:     ingestor,
		aggregator:   aggregator,
		creator:      creator,
		locks:        locks,
		runLock:      runLock,
		tickInterval: tickInterval,
		throttle:     throttle,
		logger:       logger,
	}
}

// Run blocks until the context is cancelled. On start it waits one full
// interval and then runs the pipeline once unconditionally, so a fresh
// deployment ingests data without waiting out the throttle; after that it
// performs the throttled due-check on every tick.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started",
		slog.Duration("tick_interval", s.tickInterval),
		slog.Duration("throttle", s.throttle),
	)

	timer := time.NewTimer(s.tickInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		s.logger.Info("scheduler stopped")
		return ctx.Err()
	case <-timer.C:
	}

	// Warm start: one unconditional run, then advance the throttle so the
	// next due-check behaves normally.
	s.runPipeline(ctx)
	s.advance(ctx)

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick performs one throttled due-check. The throttle timestamp advances
// whether or not the pipeline ran, so a failed run is not retried before the
// next window.
func (s *Scheduler) tick(ctx context.Context) {
	notBefore, err := s.locks.Get(ctx, taskKey)
	if err != nil {
		// Without a readable throttle record we neither run nor advance.
		s.logger.Error("task lock read failed", slog.String("error", err.Error()))
		return
	}

	now := time.Now().UTC()
	due := notBefore != nil && notBefore.Before(now)

	if due {
		s.runPipeline(ctx)
	} else {
		s.logger.Debug("pipeline not due", slog.Any("not_before", notBefore))
		metrics.PipelineRuns.WithLabelValues("skipped").Inc()
	}

	s.advance(ctx)
}

// advance moves the throttle record to now + throttle window.
func (s *Scheduler) advance(ctx context.Context) {
	next := time.Now().UTC().Add(s.throttle)
	if err := s.locks.Upsert(ctx, taskKey, next); err != nil {
		s.logger.Error("task lock advance failed", slog.String("error", err.Error()))
	}
}

// runPipeline executes Ingestion, Aggregation, and Creation sequentially
// under the Redis run lock. Each routine absorbs its own failures; nothing
// here aborts the process.
func (s *Scheduler) runPipeline(ctx context.Context) {
	if s.runLock != nil {
		unlock, err := s.runLock.Acquire(ctx, runLockKey, s.throttle)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				s.logger.Info("pipeline run lock held elsewhere, skipping")
				metrics.PipelineRuns.WithLabelValues("lock_held").Inc()
				return
			}
			// A lock backend failure should not stop the pipeline; fall
			// through and run guarded only by the persisted throttle.
			s.logger.Warn("pipeline run lock unavailable", slog.String("error", err.Error()))
		} else {
			defer unlock()
		}
	}

	started := time.Now()

	result := s.ingestor.Run(ctx)
	s.logger.Info("ingestion finished", slog.String("summary", result.String()))

	sampled := s.aggregator.Run(ctx)
	s.logger.Info("aggregation finished", slog.Int("samples", sampled))

	created := s.creator.Run(ctx)
	s.logger.Info("creation finished", slog.Int("created", created))

	metrics.PipelineRuns.WithLabelValues("ran").Inc()
	s.logger.Info("pipeline run complete", slog.Duration("elapsed", time.Since(started)))
}
