package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kjannette/trahn-agents/internal/settlement"
)

// BatchSettler runs one bounded fee-settlement pass.
type BatchSettler interface {
	SettleBatch(ctx context.Context, limit int) (*settlement.BatchResult, error)
}

// Notifier receives human-readable run summaries.
type Notifier interface {
	Send(msg string)
}

type SettlementSchedulerConfig struct {
	CronInterval time.Duration // e.g. 1*time.Hour
	BatchLimit   int           // fees per run, capped by the pipeline
}

// SettlementScheduler periodically sweeps collected fees into the
// treasury and reports each run over the notification channel.
type SettlementScheduler struct {
	settler BatchSettler
	notify  Notifier
	cfg     SettlementSchedulerConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

func NewSettlementScheduler(settler BatchSettler, notify Notifier, cfg SettlementSchedulerConfig) *SettlementScheduler {
	if cfg.CronInterval <= 0 {
		cfg.CronInterval = 1 * time.Hour
	}
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = settlement.MaxBatchSize
	}
	return &SettlementScheduler{
		settler: settler,
		notify:  notify,
		cfg:     cfg,
	}
}

func (s *SettlementScheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		fmt.Println("[FEE-SCHEDULER] Already running")
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(s.cfg.CronInterval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stopCh:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
				if err := s.runBatch(ctx); err != nil {
					fmt.Printf("[FEE-SCHEDULER] Batch settlement failed: %v\n", err)
				}
				cancel()
			}
		}
	}()

	fmt.Printf("[FEE-SCHEDULER] Started (every %s, up to %d fees per run)\n",
		s.cfg.CronInterval, s.cfg.BatchLimit)
}

func (s *SettlementScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	close(s.stopCh)
	s.running = false
	fmt.Println("[FEE-SCHEDULER] Stopped")
}

func (s *SettlementScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// RunNow manually triggers a settlement pass outside the schedule.
func (s *SettlementScheduler) RunNow(ctx context.Context) (*settlement.BatchResult, error) {
	fmt.Println("[FEE-SCHEDULER] Manual settlement run triggered")
	batch, err := s.settler.SettleBatch(ctx, s.cfg.BatchLimit)
	if err != nil {
		return nil, err
	}
	s.report(batch)
	return batch, nil
}

func (s *SettlementScheduler) runBatch(ctx context.Context) error {
	batch, err := s.settler.SettleBatch(ctx, s.cfg.BatchLimit)
	if err != nil {
		return err
	}
	s.report(batch)
	return nil
}

func (s *SettlementScheduler) report(batch *settlement.BatchResult) {
	if batch.Total == 0 {
		fmt.Println("[FEE-SCHEDULER] No collected fees waiting")
		return
	}
	s.notify.Send(fmt.Sprintf("Fee settlement run: %d transferred, %d failed, %d total",
		batch.Transferred, batch.Failed, batch.Total))
}
