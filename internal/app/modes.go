package app

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/forecastwire/foresight/internal/metrics"
	"github.com/forecastwire/foresight/internal/pipeline"
	"github.com/forecastwire/foresight/internal/platform/forecaster"
	"github.com/forecastwire/foresight/internal/platform/polymarket"
)

// buildIngestor constructs the ingestion routine from configuration.
func (a *App) buildIngestor(deps *Dependencies) *pipeline.Ingestor {
	clob := polymarket.NewClobClient(a.cfg.Polymarket.ClobHost)
	return pipeline.NewIngestor(
		clob,
		deps.MarketStore,
		a.cfg.Pipeline.InitialCursor,
		a.cfg.Pipeline.MaxPages,
		a.logger,
	)
}

// buildCreator constructs the prediction creation routine from configuration.
func (a *App) buildCreator(deps *Dependencies) *pipeline.Creator {
	events := forecaster.New(a.cfg.Forecaster.ApiURL, a.cfg.Forecaster.ApiKey)
	return pipeline.NewCreator(
		events,
		deps.MarketStore,
		deps.PredictionStore,
		a.cfg.Pipeline.CreationBatchSize,
		a.cfg.Pipeline.MinLeadTime.Duration,
		a.logger,
	)
}

// buildAggregator constructs the outcome aggregation routine from
// configuration.
func (a *App) buildAggregator(deps *Dependencies) *pipeline.Aggregator {
	source := forecaster.New(a.cfg.Forecaster.ApiURL, a.cfg.Forecaster.ApiKey)
	return pipeline.NewAggregator(
		source,
		deps.PredictionStore,
		deps.OutcomeStore,
		deps.OutcomeCache,
		a.logger,
	)
}

// RunMode starts the background scheduler and, when configured, the cold
// storage archiver cron and the metrics server. It blocks until the context
// is cancelled.
func (a *App) RunMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting run mode")

	g, ctx := errgroup.WithContext(ctx)

	scheduler := pipeline.NewScheduler(
		a.buildIngestor(deps),
		a.buildAggregator(deps),
		a.buildCreator(deps),
		deps.TaskLockStore,
		deps.LockManager,
		a.cfg.Pipeline.TickInterval.Duration,
		a.cfg.Pipeline.ThrottleWindow.Duration,
		a.logger,
	)
	g.Go(func() error {
		err := scheduler.Run(ctx)
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("scheduler: %w", err)
	})

	if a.cfg.Pipeline.ArchiveEnabled && deps.Archiver != nil {
		archiver := pipeline.NewArchiver(deps.Archiver, a.cfg.Pipeline.ArchiveRetentionDays, a.logger)
		cronExpr := a.cfg.Pipeline.ArchiveCron
		g.Go(func() error {
			err := archiver.RunCron(ctx, cronExpr)
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("archiver cron: %w", err)
		})
	}

	if a.cfg.Metrics.Enabled {
		addr := fmt.Sprintf(":%d", a.cfg.Metrics.Port)
		g.Go(func() error {
			err := metrics.Serve(ctx, addr, a.logger)
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("metrics server: %w", err)
		})
	}

	return g.Wait()
}

// IngestMode runs a single ingestion pass and reports the summary to the
// interactive caller.
func (a *App) IngestMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting ingest mode")

	result := a.buildIngestor(deps).Run(ctx)
	fmt.Println(result.String())
	return nil
}

// CreateMode registers a prediction for the single market given on the
// command line. A pre-existing prediction is a reported conflict, not a
// silent skip.
func (a *App) CreateMode(ctx context.Context, deps *Dependencies) error {
	if a.targetMarket == "" {
		return fmt.Errorf("create mode requires a target market (-market <condition_id>)")
	}
	a.logger.InfoContext(ctx, "starting create mode", slog.String("condition_id", a.targetMarket))

	p, err := a.buildCreator(deps).CreateFor(ctx, a.targetMarket)
	if err != nil {
		return fmt.Errorf("create mode: %w", err)
	}

	fmt.Printf("prediction %s created for market %s\n", p.PredictionID, p.ConditionID)
	return nil
}
