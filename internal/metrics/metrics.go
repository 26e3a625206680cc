// Package metrics registers the service's Prometheus collectors and serves
// the exposition endpoint.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// MarketsFetched counts listing records fetched and classified, by result.
	MarketsFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foresight_markets_fetched_total",
		Help: "Listing records processed by the classifier, partitioned by result.",
	}, []string{"result"}) // accepted | rejected

	// MarketsInserted counts markets newly persisted by the ingestor.
	MarketsInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "foresight_markets_inserted_total",
		Help: "Markets newly inserted into the store.",
	})

	// PredictionsCreated counts provider events successfully registered.
	PredictionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "foresight_predictions_created_total",
		Help: "Forecasting events created with the external provider.",
	})

	// OutcomeSamplesStored counts aggregate score samples persisted.
	OutcomeSamplesStored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "foresight_outcome_samples_total",
		Help: "Outcome samples written to the store.",
	})

	// PipelineRuns counts full pipeline executions, by how the tick resolved.
	PipelineRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "foresight_pipeline_runs_total",
		Help: "Scheduler ticks, partitioned by outcome.",
	}, []string{"outcome"}) // ran | skipped | lock_held
)

// Serve exposes /metrics on addr until the context is cancelled. It blocks.
func Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("metrics server started", slog.String("addr", addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
