package scanner

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kjannette/trahn-agents/internal/models"
)

// Detector scores one category of market signal. Detectors are
// independent: one failing must never cost the others their results.
type Detector interface {
	Name() string
	Detect(ctx context.Context) ([]models.Opportunity, error)
}

// Scanner fans out over its detectors and merges their findings into a
// single ranking.
type Scanner struct {
	detectors []Detector
}

func New(detectors ...Detector) *Scanner {
	return &Scanner{detectors: detectors}
}

// Scan runs every detector and returns the merged opportunities,
// strongest signal first. Results are collected in detector
// registration order and sorted stably, so the ranking is
// deterministic for deterministic inputs no matter how detector
// goroutines interleave. A detector error or panic is logged and
// contributes nothing.
func (s *Scanner) Scan(ctx context.Context) []models.Opportunity {
	results := make([][]models.Opportunity, len(s.detectors))

	var wg sync.WaitGroup
	for i, d := range s.detectors {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = runDetector(ctx, d)
		}()
	}
	wg.Wait()

	var merged []models.Opportunity
	for _, r := range results {
		merged = append(merged, r...)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	return merged
}

func runDetector(ctx context.Context, d Detector) (out []models.Opportunity) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("[SCANNER] Detector %s panicked: %v\n", d.Name(), r)
			out = nil
		}
	}()

	ops, err := d.Detect(ctx)
	if err != nil {
		fmt.Printf("[SCANNER] Detector %s failed: %v\n", d.Name(), err)
		return nil
	}
	return ops
}
