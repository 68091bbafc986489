package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kjannette/trahn-agents/internal/models"
)

// MarketScanner produces ranked opportunities for one pass.
type MarketScanner interface {
	Scan(ctx context.Context) []models.Opportunity
}

// OpportunityStore persists and prunes scan findings.
type OpportunityStore interface {
	Record(ctx context.Context, o *models.Opportunity) (*models.Opportunity, error)
	DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error)
}

type ScanSchedulerConfig struct {
	CronInterval time.Duration // e.g. 15*time.Minute
	RetainFor    time.Duration // opportunity rows older than this are pruned
}

// ScanScheduler periodically sweeps the market for opportunities,
// persists what it finds, and expires stale rows.
type ScanScheduler struct {
	scanner MarketScanner
	store   OpportunityStore
	cfg     ScanSchedulerConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

func NewScanScheduler(scanner MarketScanner, store OpportunityStore, cfg ScanSchedulerConfig) *ScanScheduler {
	if cfg.CronInterval <= 0 {
		cfg.CronInterval = 15 * time.Minute
	}
	if cfg.RetainFor <= 0 {
		cfg.RetainFor = 24 * time.Hour
	}
	return &ScanScheduler{
		scanner: scanner,
		store:   store,
		cfg:     cfg,
	}
}

func (s *ScanScheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		fmt.Println("[SCAN-SCHEDULER] Already running")
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	// Initial scan on startup (fire-and-forget)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
		defer cancel()
		s.scanAndStore(ctx)
	}()

	go func() {
		ticker := time.NewTicker(s.cfg.CronInterval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stopCh:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
				s.scanAndStore(ctx)
				cancel()
			}
		}
	}()

	fmt.Printf("[SCAN-SCHEDULER] Started (every %s, retaining findings for %s)\n",
		s.cfg.CronInterval, s.cfg.RetainFor)
}

func (s *ScanScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	close(s.stopCh)
	s.running = false
	fmt.Println("[SCAN-SCHEDULER] Stopped")
}

func (s *ScanScheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// ScanNow manually triggers a scan outside the normal schedule and
// returns the persisted opportunities.
func (s *ScanScheduler) ScanNow(ctx context.Context) []models.Opportunity {
	fmt.Println("[SCAN-SCHEDULER] Manual scan triggered")
	return s.scanAndStore(ctx)
}

func (s *ScanScheduler) scanAndStore(ctx context.Context) []models.Opportunity {
	found := s.scanner.Scan(ctx)

	stored := make([]models.Opportunity, 0, len(found))
	for i := range found {
		row, err := s.store.Record(ctx, &found[i])
		if err != nil {
			fmt.Printf("[SCAN-SCHEDULER] Failed to store opportunity for %s: %v\n", found[i].Symbol, err)
			continue
		}
		stored = append(stored, *row)
	}

	pruned, err := s.store.DeleteOlderThan(ctx, s.cfg.RetainFor)
	if err != nil {
		fmt.Printf("[SCAN-SCHEDULER] Prune failed: %v\n", err)
	}

	fmt.Printf("[SCAN-SCHEDULER] Scan complete: %d found, %d stored, %d stale pruned\n",
		len(found), len(stored), pruned)
	return stored
}
