package settlement

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjannette/trahn-agents/internal/fees"
	"github.com/kjannette/trahn-agents/internal/models"
	"github.com/kjannette/trahn-agents/internal/repository"
)

type fakeLedger struct {
	calls  int
	failOn map[int]error // 1-based call index -> error
	onCall func(n int)
}

func (l *fakeLedger) TransferToTreasury(ctx context.Context, amountUSD float64) (string, error) {
	l.calls++
	if l.onCall != nil {
		l.onCall(l.calls)
	}
	if err, ok := l.failOn[l.calls]; ok {
		return "", err
	}
	return fmt.Sprintf("0xtx%04d", l.calls), nil
}

type fakeFeeStore struct {
	recorded   []*models.FeeRecord
	recordErr  error
	statuses   map[uuid.UUID]models.FeeStatus
	txHashes   map[uuid.UUID]string
	details    map[uuid.UUID]string
	markErr    error
	listResult []models.FeeRecord
}

func newFakeFeeStore() *fakeFeeStore {
	return &fakeFeeStore{
		statuses: make(map[uuid.UUID]models.FeeStatus),
		txHashes: make(map[uuid.UUID]string),
		details:  make(map[uuid.UUID]string),
	}
}

func (s *fakeFeeStore) Record(ctx context.Context, f *models.FeeRecord) (*models.FeeRecord, error) {
	if s.recordErr != nil {
		return nil, s.recordErr
	}
	out := *f
	out.ID = uuid.New()
	out.Status = models.FeeCollected
	s.recorded = append(s.recorded, &out)
	s.statuses[out.ID] = models.FeeCollected
	return &out, nil
}

func (s *fakeFeeStore) MarkTransferred(ctx context.Context, id uuid.UUID, txHash string) error {
	if s.markErr != nil {
		return s.markErr
	}
	if s.statuses[id] != models.FeeCollected {
		return repository.ErrStatusConflict
	}
	s.statuses[id] = models.FeeTransferred
	s.txHashes[id] = txHash
	return nil
}

func (s *fakeFeeStore) MarkFailed(ctx context.Context, id uuid.UUID, detail string) error {
	if s.statuses[id] != models.FeeCollected {
		return repository.ErrStatusConflict
	}
	s.statuses[id] = models.FeeFailed
	s.details[id] = detail
	return nil
}

func (s *fakeFeeStore) ListByStatus(ctx context.Context, status models.FeeStatus, limit int) ([]models.FeeRecord, error) {
	if len(s.listResult) > limit {
		return s.listResult[:limit], nil
	}
	return s.listResult, nil
}

type fakeTradeStore struct {
	executed []uuid.UUID
	err      error
}

func (s *fakeTradeStore) MarkExecuted(ctx context.Context, id uuid.UUID) error {
	if s.err != nil {
		return s.err
	}
	s.executed = append(s.executed, id)
	return nil
}

func testTrade() *models.Trade {
	return &models.Trade{
		ID:      uuid.New(),
		UserID:  uuid.New(),
		AgentID: uuid.New(),
		Symbol:  "ETH",
		Side:    models.SideBuy,
		Amount:  4,
		Price:   2500,
	}
}

func testOptions() Options {
	return Options{
		Policy:          fees.DefaultPolicy,
		TransferTimeout: time.Second,
		TransferDelay:   time.Millisecond,
	}
}

func collectedFees(n int) []models.FeeRecord {
	out := make([]models.FeeRecord, n)
	for i := range out {
		out[i] = models.FeeRecord{ID: uuid.New(), FeeAmount: 5, Status: models.FeeCollected}
	}
	return out
}

func TestSettleTradeRecordsFeeAndExecutesTrade(t *testing.T) {
	ledger := &fakeLedger{}
	feeStore := newFakeFeeStore()
	trades := &fakeTradeStore{}
	svc := NewService(ledger, feeStore, trades, testOptions())

	trade := testTrade()
	record, err := svc.SettleTrade(context.Background(), trade)
	require.NoError(t, err)

	assert.Equal(t, models.FeeCollected, record.Status)
	assert.InDelta(t, 10.0, record.FeeAmount, 1e-9) // 0.1% of $10,000
	assert.Equal(t, []uuid.UUID{trade.ID}, trades.executed)
	assert.Zero(t, ledger.calls, "no transfer unless auto-transfer is on")
}

func TestSettleTradePersistFailureAbortsBeforeTransfer(t *testing.T) {
	ledger := &fakeLedger{}
	feeStore := newFakeFeeStore()
	feeStore.recordErr = errors.New("connection refused")
	trades := &fakeTradeStore{}
	opts := testOptions()
	opts.AutoTransfer = true
	svc := NewService(ledger, feeStore, trades, opts)

	_, err := svc.SettleTrade(context.Background(), testTrade())
	require.Error(t, err)
	assert.Zero(t, ledger.calls, "unpersisted fee must never be sent")
	assert.Empty(t, trades.executed)
}

func TestSettleTradeExecutesDespiteTransferFailure(t *testing.T) {
	ledger := &fakeLedger{failOn: map[int]error{1: errors.New("insufficient funds for gas")}}
	feeStore := newFakeFeeStore()
	trades := &fakeTradeStore{}
	opts := testOptions()
	opts.AutoTransfer = true
	svc := NewService(ledger, feeStore, trades, opts)

	trade := testTrade()
	record, err := svc.SettleTrade(context.Background(), trade)
	require.NoError(t, err, "transfer faults must not fail settlement")

	assert.Equal(t, []uuid.UUID{trade.ID}, trades.executed)
	assert.Equal(t, models.FeeFailed, record.Status)
	require.NotNil(t, record.FailureDetail)
	assert.Contains(t, *record.FailureDetail, "insufficient funds")
	assert.Equal(t, models.FeeFailed, feeStore.statuses[record.ID])
}

func TestSettleTradeRejectsInvalidValue(t *testing.T) {
	svc := NewService(&fakeLedger{}, newFakeFeeStore(), &fakeTradeStore{}, testOptions())

	trade := testTrade()
	trade.Amount = -1
	_, err := svc.SettleTrade(context.Background(), trade)

	var badValue *fees.InvalidTradeValueError
	require.ErrorAs(t, err, &badValue)
}

func TestTransferFeeSkipsNonCollected(t *testing.T) {
	ledger := &fakeLedger{}
	svc := NewService(ledger, newFakeFeeStore(), &fakeTradeStore{}, testOptions())

	fee := &models.FeeRecord{ID: uuid.New(), Status: models.FeeTransferred}
	res := svc.TransferFee(context.Background(), fee)

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "only collected")
	assert.Zero(t, ledger.calls)
}

func TestTransferFeeConflictStillReportsSuccess(t *testing.T) {
	// A concurrent run already settled the row; the on-chain transfer
	// still succeeded, so the result reflects that.
	ledger := &fakeLedger{}
	feeStore := newFakeFeeStore()
	svc := NewService(ledger, feeStore, &fakeTradeStore{}, testOptions())

	fee := &models.FeeRecord{ID: uuid.New(), FeeAmount: 5, Status: models.FeeCollected}
	feeStore.statuses[fee.ID] = models.FeeTransferred // row diverged from snapshot

	res := svc.TransferFee(context.Background(), fee)
	assert.True(t, res.Success)
	assert.Equal(t, models.FeeTransferred, feeStore.statuses[fee.ID], "terminal status untouched")
}

func TestSettleBatchIsolatesItemFailure(t *testing.T) {
	ledger := &fakeLedger{failOn: map[int]error{3: errors.New("nonce too low")}}
	feeStore := newFakeFeeStore()
	feeStore.listResult = collectedFees(5)
	for _, f := range feeStore.listResult {
		feeStore.statuses[f.ID] = models.FeeCollected
	}
	svc := NewService(ledger, feeStore, &fakeTradeStore{}, testOptions())

	batch, err := svc.SettleBatch(context.Background(), 10)
	require.NoError(t, err)

	assert.Equal(t, 4, batch.Transferred)
	assert.Equal(t, 1, batch.Failed)
	assert.Equal(t, 5, batch.Total)
	require.Len(t, batch.Results, 5)

	seen := make(map[string]bool)
	for i, res := range batch.Results {
		assert.Equal(t, feeStore.listResult[i].ID, res.FeeID, "results keep list order")
		if res.Success {
			assert.False(t, seen[res.TxHash], "tx references must be distinct")
			seen[res.TxHash] = true
		}
	}
	assert.False(t, batch.Results[2].Success)
}

func TestSettleBatchClampsLimit(t *testing.T) {
	ledger := &fakeLedger{}
	feeStore := newFakeFeeStore()
	feeStore.listResult = collectedFees(80)
	for _, f := range feeStore.listResult {
		feeStore.statuses[f.ID] = models.FeeCollected
	}
	svc := NewService(ledger, feeStore, &fakeTradeStore{}, testOptions())

	batch, err := svc.SettleBatch(context.Background(), 500)
	require.NoError(t, err)
	assert.Equal(t, MaxBatchSize, batch.Total)
	assert.Equal(t, MaxBatchSize, ledger.calls)
}

func TestSettleBatchCancellationStopsScheduling(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ledger := &fakeLedger{onCall: func(n int) {
		if n == 2 {
			cancel()
		}
	}}
	feeStore := newFakeFeeStore()
	feeStore.listResult = collectedFees(5)
	for _, f := range feeStore.listResult {
		feeStore.statuses[f.ID] = models.FeeCollected
	}
	svc := NewService(ledger, feeStore, &fakeTradeStore{}, testOptions())

	batch, err := svc.SettleBatch(ctx, 5)
	require.NoError(t, err)

	// The second transfer was in flight when the batch was cancelled;
	// it completes, and no further items are scheduled.
	assert.Equal(t, 2, ledger.calls)
	assert.Equal(t, 2, batch.Transferred)
	assert.Equal(t, 2, batch.Total)
}

func TestSettleBatchEmpty(t *testing.T) {
	ledger := &fakeLedger{}
	svc := NewService(ledger, newFakeFeeStore(), &fakeTradeStore{}, testOptions())

	batch, err := svc.SettleBatch(context.Background(), 10)
	require.NoError(t, err)
	assert.Zero(t, batch.Total)
	assert.Zero(t, ledger.calls)
}
