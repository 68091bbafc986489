package settlement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/kjannette/trahn-agents/internal/fees"
	"github.com/kjannette/trahn-agents/internal/models"
	"github.com/kjannette/trahn-agents/internal/repository"
)

// MaxBatchSize caps how many fees a single batch invocation may
// process, bounding worst-case latency and outbound call volume.
const MaxBatchSize = 50

// Ledger abstracts the single outbound transfer the pipeline needs
// from the settlement chain.
type Ledger interface {
	TransferToTreasury(ctx context.Context, amountUSD float64) (txHash string, err error)
}

// FeeStore is the persistence boundary for fee records.
type FeeStore interface {
	Record(ctx context.Context, f *models.FeeRecord) (*models.FeeRecord, error)
	MarkTransferred(ctx context.Context, id uuid.UUID, txHash string) error
	MarkFailed(ctx context.Context, id uuid.UUID, detail string) error
	ListByStatus(ctx context.Context, status models.FeeStatus, limit int) ([]models.FeeRecord, error)
}

// TradeStore is the slice of the trade repository the pipeline needs.
type TradeStore interface {
	MarkExecuted(ctx context.Context, id uuid.UUID) error
}

type Options struct {
	Policy          fees.Policy
	AutoTransfer    bool          // transfer synchronously at settle time
	TransferTimeout time.Duration // per-transfer cap, default 30s
	TransferDelay   time.Duration // inter-transfer pacing in batch mode
}

// Result is the outcome of one fee transfer attempt.
type Result struct {
	FeeID   uuid.UUID `json:"feeId"`
	Success bool      `json:"success"`
	TxHash  string    `json:"txHash,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// BatchResult aggregates a batch settlement run.
type BatchResult struct {
	Transferred int      `json:"transferred"`
	Failed      int      `json:"failed"`
	Total       int      `json:"total"`
	Results     []Result `json:"results"`
}

// Service sequences calculate → record → transfer → status update for
// single fees and fans that out over bounded batches.
type Service struct {
	ledger   Ledger
	feeStore FeeStore
	trades   TradeStore
	opts     Options
}

func NewService(ledger Ledger, feeStore FeeStore, trades TradeStore, opts Options) *Service {
	if opts.TransferTimeout <= 0 {
		opts.TransferTimeout = 30 * time.Second
	}
	if opts.TransferDelay <= 0 {
		opts.TransferDelay = 1 * time.Second
	}
	return &Service{ledger: ledger, feeStore: feeStore, trades: trades, opts: opts}
}

// SettleTrade runs the per-trade pipeline: compute the fee, persist it
// in collected status, and mark the trade executed. The fee must be
// durable before any transfer is attempted; a fee that failed to
// persist is never sent.
//
// The trade is marked executed regardless of transfer outcome — the
// trade happened against the market whether or not the fee reached the
// treasury, and a failed transfer stays on the record as a retryable
// obligation.
func (s *Service) SettleTrade(ctx context.Context, trade *models.Trade) (*models.FeeRecord, error) {
	calc, err := fees.Calculate(trade.Value(), s.opts.Policy)
	if err != nil {
		return nil, err
	}

	record, err := s.feeStore.Record(ctx, &models.FeeRecord{
		TradeID:       trade.ID,
		UserID:        trade.UserID,
		AgentID:       trade.AgentID,
		FeeAmount:     calc.FeeAmount,
		FeePercentage: calc.FeePercentage,
		TradeValue:    calc.TradeValue,
	})
	if err != nil {
		return nil, fmt.Errorf("record fee: %w", err)
	}

	if err := s.trades.MarkExecuted(ctx, trade.ID); err != nil {
		return record, fmt.Errorf("mark trade executed: %w", err)
	}

	fmt.Printf("[SETTLEMENT] Fee $%.2f collected for trade %s (%.3f%% of $%.2f)\n",
		calc.FeeAmount, trade.ID, calc.FeePercentage*100, calc.TradeValue)

	if s.opts.AutoTransfer {
		res := s.TransferFee(ctx, record)
		if res.Success {
			record.Status = models.FeeTransferred
			record.TransferTx = &res.TxHash
		} else {
			record.Status = models.FeeFailed
			record.FailureDetail = &res.Error
		}
	}

	return record, nil
}

// TransferFee attempts one fee transfer under the per-call timeout and
// records the outcome on the fee row. Transfer faults never escape as
// errors; they surface only as the returned Result and the persisted
// failed status.
func (s *Service) TransferFee(ctx context.Context, fee *models.FeeRecord) Result {
	if fee.Status != models.FeeCollected {
		return Result{
			FeeID: fee.ID,
			Error: fmt.Sprintf("fee is %s, only collected fees are transferable", fee.Status),
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, s.opts.TransferTimeout)
	defer cancel()

	txHash, err := s.ledger.TransferToTreasury(callCtx, fee.FeeAmount)
	if err != nil {
		detail := err.Error()
		if markErr := s.feeStore.MarkFailed(ctx, fee.ID, detail); markErr != nil {
			logConflict(fee.ID, "failed", markErr)
		}
		fmt.Printf("[SETTLEMENT] Transfer of fee %s failed: %v\n", fee.ID, err)
		return Result{FeeID: fee.ID, Error: detail}
	}

	if markErr := s.feeStore.MarkTransferred(ctx, fee.ID, txHash); markErr != nil {
		logConflict(fee.ID, "transferred", markErr)
	}
	fmt.Printf("[SETTLEMENT] Fee %s transferred to treasury: %s\n", fee.ID, txHash)
	return Result{FeeID: fee.ID, Success: true, TxHash: txHash}
}

// SettleBatch transfers up to limit collected fees sequentially with
// fixed pacing between ledger calls. One item failing never aborts the
// batch. Cancelling ctx stops scheduling further items; the in-flight
// transfer always runs to completion or its own timeout, since a
// ledger submission may already be irrevocable.
func (s *Service) SettleBatch(ctx context.Context, limit int) (*BatchResult, error) {
	if limit <= 0 || limit > MaxBatchSize {
		limit = MaxBatchSize
	}

	pending, err := s.feeStore.ListByStatus(ctx, models.FeeCollected, limit)
	if err != nil {
		return nil, fmt.Errorf("list collected fees: %w", err)
	}

	batch := &BatchResult{Total: len(pending)}
	if len(pending) == 0 {
		return batch, nil
	}

	fmt.Printf("[SETTLEMENT] Batch transfer starting: %d fees\n", len(pending))
	limiter := rate.NewLimiter(rate.Every(s.opts.TransferDelay), 1)

	for i := range pending {
		if err := limiter.Wait(ctx); err != nil {
			fmt.Printf("[SETTLEMENT] Batch cancelled after %d/%d items\n", i, len(pending))
			batch.Total = i
			break
		}

		// The item runs on its own clock: batch cancellation must not
		// abort a transfer that may already be on the wire.
		res := s.TransferFee(context.WithoutCancel(ctx), &pending[i])
		batch.Results = append(batch.Results, res)
		if res.Success {
			batch.Transferred++
		} else {
			batch.Failed++
		}
	}

	fmt.Printf("[SETTLEMENT] Batch complete: %d transferred, %d failed, %d total\n",
		batch.Transferred, batch.Failed, batch.Total)
	return batch, nil
}

func logConflict(feeID uuid.UUID, target string, err error) {
	if errors.Is(err, repository.ErrStatusConflict) {
		fmt.Printf("[SETTLEMENT] Fee %s already left collected status, not marking %s\n", feeID, target)
		return
	}
	fmt.Printf("[SETTLEMENT] Failed to mark fee %s %s: %v\n", feeID, target, err)
}
