package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/akifumi-dev/crossarb/internal/domain"
)

// DecisionStore implements domain.DecisionStore using PostgreSQL.
type DecisionStore struct {
	pool *pgxpool.Pool
}

// NewDecisionStore creates a new DecisionStore backed by the given connection pool.
func NewDecisionStore(pool *pgxpool.Pool) *DecisionStore {
	return &DecisionStore{pool: pool}
}

var _ domain.DecisionStore = (*DecisionStore)(nil)

// Create inserts one decision audit entry.
func (s *DecisionStore) Create(ctx context.Context, d domain.Decision) error {
	const query = `
		INSERT INTO decisions (
			id, asset, spread_a_buy, spread_b_buy,
			threshold_ab, threshold_ba,
			proposed, reason, valuation, decided_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6,
			$7, $8, $9, $10
		)`

	_, err := s.pool.Exec(ctx, query,
		d.ID, d.Asset, d.SpreadABuy, d.SpreadBBuy,
		d.ThresholdAB, d.ThresholdBA,
		d.Proposed, d.Reason, d.Valuation, d.DecidedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert decision %s: %w", d.ID, err)
	}
	return nil
}

// ListRecent returns up to limit decisions, newest first.
func (s *DecisionStore) ListRecent(ctx context.Context, limit int) ([]domain.Decision, error) {
	const query = `
		SELECT id, asset, spread_a_buy, spread_b_buy,
			threshold_ab, threshold_ba,
			proposed, reason, valuation, decided_at
		FROM decisions ORDER BY decided_at DESC LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent decisions: %w", err)
	}
	defer rows.Close()

	var out []domain.Decision
	for rows.Next() {
		var d domain.Decision
		if err := rows.Scan(
			&d.ID, &d.Asset, &d.SpreadABuy, &d.SpreadBBuy,
			&d.ThresholdAB, &d.ThresholdBA,
			&d.Proposed, &d.Reason, &d.Valuation, &d.DecidedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan decision: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
