package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/forecastwire/foresight/internal/domain"
	"github.com/forecastwire/foresight/internal/metrics"
)

// MarketLister fetches one page of the exchange's market listing.
type MarketLister interface {
	ListMarkets(ctx context.Context, cursor string) (domain.MarketsPage, error)
}

// MarketUpserter persists classified markets idempotently.
type MarketUpserter interface {
	Insert(ctx context.Context, m domain.Market) (bool, error)
}

// IngestResult summarizes one ingestion run.
type IngestResult struct {
	Fetched  int // records that passed classification
	Inserted int // records newly persisted
}

// String renders the result for interactive callers.
func (r IngestResult) String() string {
	return fmt.Sprintf("%d markets fetched, %d markets inserted", r.Fetched, r.Inserted)
}

// Ingestor walks the paginated market listing, classifies each record, and
// persists the accepted ones.
type Ingestor struct {
	lister        MarketLister
	markets       MarketUpserter
	initialCursor string
	maxPages      int
	logger        *slog.Logger
}

// NewIngestor creates a new Ingestor.
func NewIngestor(lister MarketLister, markets MarketUpserter, initialCursor string, maxPages int, logger *slog.Logger) *Ingestor {
	return &Ingestor{
		lister:        lister,
		markets:       markets,
		initialCursor: initialCursor,
		maxPages:      maxPages,
		logger:        logger,
	}
}

// Run executes one ingestion pass. Page fetch failures end pagination but the
// records gathered so far are still classified and persisted; per-market
// persistence failures are logged and skipped. Run never returns an error.
func (ing *Ingestor) Run(ctx context.Context) IngestResult {
	started := time.Now().UTC()
	raw := ing.fetchAll(ctx)

	result := IngestResult{}
	for _, record := range raw {
		// Records without a deadline are not even classification candidates.
		if record.EndDateISO == nil {
			continue
		}

		market, ok := ClassifyMarket(record, started)
		if !ok {
			metrics.MarketsFetched.WithLabelValues("rejected").Inc()
			continue
		}
		metrics.MarketsFetched.WithLabelValues("accepted").Inc()
		result.Fetched++

		inserted, err := ing.markets.Insert(ctx, market)
		if err != nil {
			ing.logger.Warn("market insert failed",
				slog.String("condition_id", market.ConditionID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if inserted {
			result.Inserted++
			metrics.MarketsInserted.Inc()
		}
	}

	ing.logger.Info("ingestion complete",
		slog.Int("records", len(raw)),
		slog.Int("fetched", result.Fetched),
		slog.Int("inserted", result.Inserted),
	)
	return result
}

// fetchAll walks the listing pages starting from the configured cursor and
// buffers every record. Pagination ends on the page cap, a fetch error, a
// missing data field, or a cursor that fails to advance.
func (ing *Ingestor) fetchAll(ctx context.Context) []domain.RawMarket {
	var records []domain.RawMarket
	cursor := ing.initialCursor

	for page := 0; page < ing.maxPages; page++ {
		resp, err := ing.lister.ListMarkets(ctx, cursor)
		if err != nil {
			// Partial results are still usable.
			ing.logger.Warn("market page fetch failed",
				slog.Int("page", page),
				slog.String("cursor", cursor),
				slog.String("error", err.Error()),
			)
			break
		}
		if resp.Data == nil {
			break
		}
		records = append(records, *resp.Data...)

		if resp.NextCursor == nil || *resp.NextCursor == cursor {
			break
		}
		cursor = *resp.NextCursor
	}

	return records
}
