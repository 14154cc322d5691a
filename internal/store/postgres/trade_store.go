package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akifumi-dev/crossarb/internal/domain"
)

// TradeStore implements domain.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a new TradeStore backed by the given connection pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

var _ domain.TradeStore = (*TradeStore)(nil)

const tradeSelectCols = `id, asset, buy_venue, sell_venue, volume,
	buy_price, sell_price, expected_fiat_cost, spread,
	status, reason, started_at, completed_at`

func scanTradeRow(row pgx.Row) (domain.TradeRecord, error) {
	var rec domain.TradeRecord
	err := row.Scan(
		&rec.ID, &rec.Asset, &rec.BuyVenue, &rec.SellVenue, &rec.Volume,
		&rec.BuyPrice, &rec.SellPrice, &rec.ExpectedFiatCost, &rec.Spread,
		&rec.Status, &rec.Reason, &rec.StartedAt, &rec.CompletedAt,
	)
	return rec, err
}

// Create inserts one trade record.
func (s *TradeStore) Create(ctx context.Context, rec domain.TradeRecord) error {
	const query = `
		INSERT INTO trades (
			id, asset, buy_venue, sell_venue, volume,
			buy_price, sell_price, expected_fiat_cost, spread,
			status, reason, started_at, completed_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12, $13
		)`

	_, err := s.pool.Exec(ctx, query,
		rec.ID, rec.Asset, rec.BuyVenue, rec.SellVenue, rec.Volume,
		rec.BuyPrice, rec.SellPrice, rec.ExpectedFiatCost, rec.Spread,
		rec.Status, rec.Reason, rec.StartedAt, rec.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert trade %s: %w", rec.ID, err)
	}
	return nil
}

// GetByID returns the trade record with the given ID.
func (s *TradeStore) GetByID(ctx context.Context, id string) (domain.TradeRecord, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+tradeSelectCols+` FROM trades WHERE id = $1`, id)

	rec, err := scanTradeRow(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.TradeRecord{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.TradeRecord{}, fmt.Errorf("postgres: get trade %s: %w", id, err)
	}
	return rec, nil
}

// ListRecent returns up to limit trade records, newest first.
func (s *TradeStore) ListRecent(ctx context.Context, limit int) ([]domain.TradeRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+tradeSelectCols+` FROM trades ORDER BY started_at DESC LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent trades: %w", err)
	}
	defer rows.Close()

	var recs []domain.TradeRecord
	for rows.Next() {
		rec, err := scanTradeRow(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan trade: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}
