package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/forecastwire/foresight/internal/domain"
)

// uniqueViolation is the PostgreSQL error code for duplicate-key conflicts.
const uniqueViolation = "23505"

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a new MarketStore backed by the given connection pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

// Insert adds a market keyed by condition id. A duplicate condition id is not
// an error; the bool reports whether a row was actually inserted.
func (s *MarketStore) Insert(ctx context.Context, m domain.Market) (bool, error) {
	const query = `
		INSERT INTO markets (
			condition_id, question, description, tags,
			yes_token_id, no_token_id, end_date, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`

	_, err := s.pool.Exec(ctx, query,
		m.ConditionID, m.Question, m.Description, m.Tags,
		m.YesTokenID, m.NoTokenID, m.EndDate,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return false, nil
		}
		return false, fmt.Errorf("postgres: insert market %s: %w", m.ConditionID, err)
	}
	return true, nil
}

const marketCols = `condition_id, question, description, tags,
	yes_token_id, no_token_id, end_date, created_at`

// scanMarket scans a single market row into a domain.Market.
func scanMarket(row pgx.Row) (domain.Market, error) {
	var m domain.Market
	err := row.Scan(
		&m.ConditionID, &m.Question, &m.Description, &m.Tags,
		&m.YesTokenID, &m.NoTokenID, &m.EndDate, &m.CreatedAt,
	)
	if err != nil {
		return domain.Market{}, err
	}
	return m, nil
}

// GetByCondition retrieves a market by its condition id.
func (s *MarketStore) GetByCondition(ctx context.Context, conditionID string) (domain.Market, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+marketCols+` FROM markets WHERE condition_id = $1`, conditionID)
	m, err := scanMarket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("postgres: get market %s: %w", conditionID, err)
	}
	return m, nil
}

// NeedingPrediction returns up to limit markets with no prediction yet whose
// end date is more than minLead in the future, soonest deadline first.
func (s *MarketStore) NeedingPrediction(ctx context.Context, minLead time.Duration, limit int) ([]domain.Market, error) {
	const query = `
		SELECT ` + marketCols + `
		FROM markets m
		WHERE m.end_date > NOW() + make_interval(secs => $1)
		  AND NOT EXISTS (
			SELECT 1 FROM predictions p WHERE p.condition_id = m.condition_id
		  )
		ORDER BY m.end_date ASC
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, minLead.Seconds(), limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: markets needing prediction: %w", err)
	}
	defer rows.Close()

	var markets []domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan market: %w", err)
		}
		markets = append(markets, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: markets needing prediction rows: %w", err)
	}
	return markets, nil
}
