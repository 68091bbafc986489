package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kjannette/trahn-agents/internal/models"
)

// ErrStatusConflict is returned when a conditional status transition
// matched no row — either the record is gone or it already moved to a
// different (possibly terminal) status. Late retries hit this instead
// of overwriting newer state.
var ErrStatusConflict = errors.New("fee record not in expected status")

type FeeRepo struct {
	pool *pgxpool.Pool
}

func NewFeeRepo(pool *pgxpool.Pool) *FeeRepo {
	return &FeeRepo{pool: pool}
}

// Record inserts a fee in "collected" status at trade-execution time.
func (r *FeeRepo) Record(ctx context.Context, f *models.FeeRecord) (*models.FeeRecord, error) {
	collectedAt := f.CollectedAt
	if collectedAt.IsZero() {
		collectedAt = time.Now()
	}

	row := r.pool.QueryRow(ctx,
		`INSERT INTO transaction_fees
		 (trade_id, user_id, agent_id, fee_amount, fee_percentage, trade_value,
		  status, collected_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 RETURNING *`,
		f.TradeID, f.UserID, f.AgentID, f.FeeAmount, f.FeePercentage, f.TradeValue,
		models.FeeCollected, collectedAt,
	)
	return scanFee(row)
}

// MarkTransferred moves a fee from collected to transferred with the
// confirmed tx hash. The transition is guarded on the prior status so a
// delayed retry can never demote a terminal record.
func (r *FeeRepo) MarkTransferred(ctx context.Context, id uuid.UUID, txHash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE transaction_fees
		 SET status = $2, transfer_tx_hash = $3, failure_detail = NULL, transferred_at = NOW()
		 WHERE id = $1 AND status = $4`,
		id, models.FeeTransferred, txHash, models.FeeCollected,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStatusConflict
	}
	return nil
}

// MarkFailed records a transfer failure. The row is retained, never
// deleted, so the obligation stays retryable and auditable.
func (r *FeeRepo) MarkFailed(ctx context.Context, id uuid.UUID, detail string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE transaction_fees
		 SET status = $2, failure_detail = $3
		 WHERE id = $1 AND status = $4`,
		id, models.FeeFailed, detail, models.FeeCollected,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStatusConflict
	}
	return nil
}

// Requeue moves a failed fee back to collected so the next batch picks
// it up again.
func (r *FeeRepo) Requeue(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE transaction_fees
		 SET status = $2, failure_detail = NULL
		 WHERE id = $1 AND status = $3`,
		id, models.FeeCollected, models.FeeFailed,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStatusConflict
	}
	return nil
}

func (r *FeeRepo) ListByStatus(ctx context.Context, status models.FeeStatus, limit int) ([]models.FeeRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT * FROM transaction_fees
		 WHERE status = $1
		 ORDER BY collected_at ASC
		 LIMIT $2`,
		status, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectFees(rows)
}

func (r *FeeRepo) Get(ctx context.Context, id uuid.UUID) (*models.FeeRecord, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT * FROM transaction_fees WHERE id = $1`, id)
	f, err := scanFee(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return f, err
}

func (r *FeeRepo) GetByTrade(ctx context.Context, tradeID uuid.UUID) (*models.FeeRecord, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT * FROM transaction_fees WHERE trade_id = $1 LIMIT 1`, tradeID)
	f, err := scanFee(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return f, err
}

func (r *FeeRepo) GetByUser(ctx context.Context, userID uuid.UUID, limit int) ([]models.FeeRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT * FROM transaction_fees
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectFees(rows)
}

// UserStats aggregates a user's collected fees.
func (r *FeeRepo) UserStats(ctx context.Context, userID uuid.UUID) (*models.FeeStats, error) {
	var s models.FeeStats
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(fee_amount), 0), COUNT(*), COALESCE(AVG(fee_amount), 0)
		 FROM transaction_fees
		 WHERE user_id = $1 AND status = $2`,
		userID, models.FeeCollected,
	).Scan(&s.TotalFees, &s.FeeCount, &s.AverageFee)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// --- scan helpers ---

func scanFee(row scannable) (*models.FeeRecord, error) {
	var f models.FeeRecord
	err := row.Scan(
		&f.ID, &f.TradeID, &f.UserID, &f.AgentID,
		&f.FeeAmount, &f.FeePercentage, &f.TradeValue,
		&f.Status, &f.TransferTx, &f.FailureDetail,
		&f.CollectedAt, &f.TransferredAt, &f.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func collectFees(rows rowsIter) ([]models.FeeRecord, error) {
	var out []models.FeeRecord
	for rows.Next() {
		var f models.FeeRecord
		if err := rows.Scan(
			&f.ID, &f.TradeID, &f.UserID, &f.AgentID,
			&f.FeeAmount, &f.FeePercentage, &f.TradeValue,
			&f.Status, &f.TransferTx, &f.FailureDetail,
			&f.CollectedAt, &f.TransferredAt, &f.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
