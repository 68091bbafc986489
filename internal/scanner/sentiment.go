package scanner

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/kjannette/trahn-agents/internal/marketdata"
	"github.com/kjannette/trahn-agents/internal/models"
)

const bullishSentimentScore = 60.0

// SentimentDetector flags a positive sentiment shift: a sentiment
// score past the bullish threshold with news and social feeds agreeing.
type SentimentDetector struct {
	provider marketdata.Provider
	symbols  []string
	agentID  uuid.UUID
}

func NewSentimentDetector(provider marketdata.Provider, symbols []string, agentID uuid.UUID) *SentimentDetector {
	return &SentimentDetector{provider: provider, symbols: symbols, agentID: agentID}
}

func (d *SentimentDetector) Name() string { return "sentiment" }

func (d *SentimentDetector) Detect(ctx context.Context) ([]models.Opportunity, error) {
	sent, err := d.provider.Sentiment(ctx)
	if err != nil {
		return nil, fmt.Errorf("sentiment fetch: %w", err)
	}

	if sent.Score < bullishSentimentScore || sent.NewsSentiment != "positive" || sent.SocialTrend != "bullish" {
		return nil, nil
	}

	out := make([]models.Opportunity, 0, len(d.symbols))
	for _, sym := range d.symbols {
		out = append(out, models.Opportunity{
			ID:          uuid.New(),
			AgentID:     d.agentID,
			Symbol:      sym,
			Score:       sentimentScore(sent.Score),
			Description: "Positive sentiment shift detected",
			Criteria: map[string]string{
				"type":      "sentiment",
				"shift":     "positive",
				"score":     fmt.Sprintf("%.2f", sent.Score),
				"fearGreed": fmt.Sprintf("%d", sent.FearGreedIndex),
			},
		})
	}
	return out, nil
}

// sentimentScore maps a 60-100 sentiment reading into [0.6, 0.9].
func sentimentScore(score float64) float64 {
	s := 0.6 + (score-bullishSentimentScore)/100
	if s > 0.9 {
		s = 0.9
	}
	return s
}
