package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kjannette/trahn-agents/internal/models"
)

// ErrTradeNotPending is returned when cancelling a trade that has
// already left the pending state. Executed, cancelled and failed
// trades are immutable.
var ErrTradeNotPending = errors.New("trade is not pending")

type TradeRepo struct {
	pool *pgxpool.Pool
}

func NewTradeRepo(pool *pgxpool.Pool) *TradeRepo {
	return &TradeRepo{pool: pool}
}

// Record inserts a new trade in "pending" status.
func (r *TradeRepo) Record(ctx context.Context, t *models.Trade) (*models.Trade, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO trades
		 (agent_id, user_id, symbol, side, amount, price, status)
		 VALUES ($1,$2,$3,$4,$5,$6,$7)
		 RETURNING *`,
		t.AgentID, t.UserID, t.Symbol, t.Side, t.Amount, t.Price, models.TradePending,
	)
	return scanTrade(row)
}

// MarkExecuted stamps a trade executed. Settlement outcome is decoupled
// from trade completion, so this succeeds regardless of any later fee
// transfer result.
func (r *TradeRepo) MarkExecuted(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE trades SET status = $2, executed_at = NOW() WHERE id = $1`,
		id, models.TradeExecuted,
	)
	return err
}

// Cancel moves a trade to cancelled, but only from pending.
func (r *TradeRepo) Cancel(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE trades SET status = $2 WHERE id = $1 AND status = $3`,
		id, models.TradeCancelled, models.TradePending,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTradeNotPending
	}
	return nil
}

func (r *TradeRepo) Get(ctx context.Context, id uuid.UUID) (*models.Trade, error) {
	row := r.pool.QueryRow(ctx, `SELECT * FROM trades WHERE id = $1`, id)
	t, err := scanTrade(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return t, err
}

// GetAll returns the most recent trades, optionally filtered by agent.
func (r *TradeRepo) GetAll(ctx context.Context, limit int, agentID *uuid.UUID) ([]models.Trade, error) {
	query := `SELECT * FROM trades WHERE 1=1`
	args := []any{}
	if agentID != nil {
		args = append(args, *agentID)
		query += fmt.Sprintf(" AND agent_id = $%d", len(args))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTrades(rows)
}

// CountToday returns how many trades an agent executed during the
// current trading day (12:00 EST boundary).
func (r *TradeRepo) CountToday(ctx context.Context, agentID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM trades
		 WHERE agent_id = $1 AND status = $2 AND executed_at >= $3`,
		agentID, models.TradeExecuted, tradingDayStart(time.Now()),
	).Scan(&count)
	return count, err
}

// Stats returns aggregate trade statistics, optionally per agent.
func (r *TradeRepo) Stats(ctx context.Context, agentID *uuid.UUID) (*models.TradeStats, error) {
	query := `SELECT
			COUNT(*),
			COUNT(CASE WHEN side = 'buy' THEN 1 END),
			COUNT(CASE WHEN side = 'sell' THEN 1 END),
			SUM(amount * price),
			AVG(price),
			MIN(executed_at),
			MAX(executed_at)
		 FROM trades WHERE status = 'executed'`
	args := []any{}
	if agentID != nil {
		args = append(args, *agentID)
		query += fmt.Sprintf(" AND agent_id = $%d", len(args))
	}

	var s models.TradeStats
	err := r.pool.QueryRow(ctx, query, args...).Scan(
		&s.TotalTrades, &s.BuyCount, &s.SellCount,
		&s.TotalVolume, &s.AvgPrice, &s.FirstTrade, &s.LastTrade,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// tradingDayStart returns the UTC instant the current trading day
// began. Trading day boundary is 12:00 EST (17:00 UTC).
func tradingDayStart(now time.Time) time.Time {
	utc := now.UTC()
	start := time.Date(utc.Year(), utc.Month(), utc.Day(), 17, 0, 0, 0, time.UTC)
	if utc.Before(start) {
		start = start.AddDate(0, 0, -1)
	}
	return start
}

// --- scan helpers ---

func scanTrade(row scannable) (*models.Trade, error) {
	var t models.Trade
	err := row.Scan(
		&t.ID, &t.AgentID, &t.UserID, &t.Symbol, &t.Side,
		&t.Amount, &t.Price, &t.Status, &t.ExecutedAt, &t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func collectTrades(rows rowsIter) ([]models.Trade, error) {
	var out []models.Trade
	for rows.Next() {
		var t models.Trade
		if err := rows.Scan(
			&t.ID, &t.AgentID, &t.UserID, &t.Symbol, &t.Side,
			&t.Amount, &t.Price, &t.Status, &t.ExecutedAt, &t.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
