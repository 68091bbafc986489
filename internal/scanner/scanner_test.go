package scanner

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjannette/trahn-agents/internal/marketdata"
	"github.com/kjannette/trahn-agents/internal/models"
)

type stubDetector struct {
	name string
	ops  []models.Opportunity
	err  error
}

func (s *stubDetector) Name() string { return s.name }
func (s *stubDetector) Detect(context.Context) ([]models.Opportunity, error) {
	return s.ops, s.err
}

type panicDetector struct{}

func (panicDetector) Name() string { return "panicky" }
func (panicDetector) Detect(context.Context) ([]models.Opportunity, error) {
	panic("nil indicator set")
}

func op(symbol string, score float64) models.Opportunity {
	return models.Opportunity{ID: uuid.New(), Symbol: symbol, Score: score}
}

func TestScan_SortsByScoreDescending(t *testing.T) {
	s := New(
		&stubDetector{name: "a", ops: []models.Opportunity{op("ETH", 0.6), op("BTC", 0.9)}},
		&stubDetector{name: "b", ops: []models.Opportunity{op("SOL", 0.75)}},
	)

	got := s.Scan(context.Background())

	require.Len(t, got, 3)
	assert.Equal(t, "BTC", got[0].Symbol)
	assert.Equal(t, "SOL", got[1].Symbol)
	assert.Equal(t, "ETH", got[2].Symbol)
}

func TestScan_FailingDetectorIsIsolated(t *testing.T) {
	s := New(
		&stubDetector{name: "broken", err: errors.New("feed unavailable")},
		&stubDetector{name: "ok", ops: []models.Opportunity{op("BTC", 0.8), op("ETH", 0.6)}},
	)

	got := s.Scan(context.Background())

	require.Len(t, got, 2, "healthy detector results must survive")
	assert.Equal(t, 0.8, got[0].Score)
	assert.Equal(t, 0.6, got[1].Score)
}

func TestScan_PanickingDetectorIsIsolated(t *testing.T) {
	s := New(
		panicDetector{},
		&stubDetector{name: "ok", ops: []models.Opportunity{op("SOL", 0.7)}},
	)

	var got []models.Opportunity
	require.NotPanics(t, func() { got = s.Scan(context.Background()) })
	require.Len(t, got, 1)
	assert.Equal(t, "SOL", got[0].Symbol)
}

func TestScan_StableTieBreakByDetectionOrder(t *testing.T) {
	first := op("BTC", 0.8)
	second := op("ETH", 0.8)
	third := op("SOL", 0.8)
	s := New(
		&stubDetector{name: "a", ops: []models.Opportunity{first, second}},
		&stubDetector{name: "b", ops: []models.Opportunity{third}},
	)

	got := s.Scan(context.Background())

	require.Len(t, got, 3)
	assert.Equal(t, first.ID, got[0].ID, "ties keep detection order")
	assert.Equal(t, second.ID, got[1].ID)
	assert.Equal(t, third.ID, got[2].ID)
}

func TestScan_AllDetectorsEmpty(t *testing.T) {
	s := New(&stubDetector{name: "a"}, &stubDetector{name: "b"})
	assert.Empty(t, s.Scan(context.Background()))
}

func TestTechnicalDetector_Deterministic(t *testing.T) {
	provider := marketdata.NewSimulatedSeeded(42)
	d := NewTechnicalDetector(provider, []string{"BTC", "ETH", "SOL"}, uuid.New())

	got, err := d.Detect(context.Background())
	require.NoError(t, err)

	for _, o := range got {
		assert.Equal(t, "technical", o.Criteria["type"])
		assert.GreaterOrEqual(t, o.Score, 0.7)
		assert.LessOrEqual(t, o.Score, 0.9)
		assert.NotEmpty(t, o.Description)
	}

	// Same seed, same findings.
	again, err := NewTechnicalDetector(marketdata.NewSimulatedSeeded(42), []string{"BTC", "ETH", "SOL"}, uuid.New()).
		Detect(context.Background())
	require.NoError(t, err)
	require.Len(t, again, len(got))
	for i := range got {
		assert.Equal(t, got[i].Symbol, again[i].Symbol)
		assert.Equal(t, got[i].Score, again[i].Score)
	}
}

func TestSentimentDetector_NoShiftNoOpportunities(t *testing.T) {
	// Seed chosen so the simulated sentiment is not a clean bullish
	// shift on the first read for at least one of the criteria; iterate
	// seeds until we find a quiet one to assert the negative path.
	for seed := uint64(1); seed < 50; seed++ {
		provider := marketdata.NewSimulatedSeeded(seed)
		sent, err := provider.Sentiment(context.Background())
		require.NoError(t, err)
		if sent.Score >= bullishSentimentScore && sent.NewsSentiment == "positive" && sent.SocialTrend == "bullish" {
			continue
		}

		d := NewSentimentDetector(marketdata.NewSimulatedSeeded(seed), []string{"BTC", "ETH"}, uuid.New())
		got, detErr := d.Detect(context.Background())
		require.NoError(t, detErr)
		assert.Empty(t, got)
		return
	}
	t.Fatal("no quiet seed found in range")
}

func TestSentimentScore_Bounds(t *testing.T) {
	assert.Equal(t, 0.6, sentimentScore(60))
	assert.Equal(t, 0.9, sentimentScore(100))
	assert.InDelta(t, 0.75, sentimentScore(75), 1e-9)
}
