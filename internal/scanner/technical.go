package scanner

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/kjannette/trahn-agents/internal/marketdata"
	"github.com/kjannette/trahn-agents/internal/models"
)

const (
	oversoldRSI   = 35.0
	overboughtRSI = 70.0
)

// TechnicalDetector flags oversold and overbought conditions from RSI
// readings. Scores scale with how far the indicator is past its
// threshold, capped below 1.
type TechnicalDetector struct {
	provider marketdata.Provider
	symbols  []string
	agentID  uuid.UUID
}

func NewTechnicalDetector(provider marketdata.Provider, symbols []string, agentID uuid.UUID) *TechnicalDetector {
	return &TechnicalDetector{provider: provider, symbols: symbols, agentID: agentID}
}

func (d *TechnicalDetector) Name() string { return "technical" }

func (d *TechnicalDetector) Detect(ctx context.Context) ([]models.Opportunity, error) {
	var out []models.Opportunity
	for _, sym := range d.symbols {
		ind, err := d.provider.Indicators(ctx, sym)
		if err != nil {
			return nil, fmt.Errorf("indicators for %s: %w", sym, err)
		}

		switch {
		case ind.RSI < oversoldRSI:
			out = append(out, models.Opportunity{
				ID:          uuid.New(),
				AgentID:     d.agentID,
				Symbol:      sym,
				Score:       technicalScore(oversoldRSI - ind.RSI),
				Description: fmt.Sprintf("Oversold condition detected (RSI: %.2f)", ind.RSI),
				Criteria: map[string]string{
					"type":      "technical",
					"indicator": "RSI",
					"value":     fmt.Sprintf("%.2f", ind.RSI),
					"signal":    "oversold",
				},
			})
		case ind.RSI > overboughtRSI:
			out = append(out, models.Opportunity{
				ID:          uuid.New(),
				AgentID:     d.agentID,
				Symbol:      sym,
				Score:       technicalScore(ind.RSI - overboughtRSI),
				Description: fmt.Sprintf("Overbought condition detected (RSI: %.2f)", ind.RSI),
				Criteria: map[string]string{
					"type":      "technical",
					"indicator": "RSI",
					"value":     fmt.Sprintf("%.2f", ind.RSI),
					"signal":    "overbought",
				},
			})
		}
	}
	return out, nil
}

// technicalScore maps threshold distance (RSI points) into [0.7, 0.9].
func technicalScore(distance float64) float64 {
	score := 0.7 + distance/100
	if score > 0.9 {
		score = 0.9
	}
	return score
}
