package marketdata

import (
	"context"
	"math/rand/v2"
)

// Simulated generates plausible market data without any upstream
// dependency. With a fixed seed it is fully deterministic, which is
// what detector tests rely on.
type Simulated struct {
	rng *rand.Rand
}

// NewSimulated returns a provider seeded from the OS entropy source.
func NewSimulated() *Simulated {
	return &Simulated{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewSimulatedSeeded returns a deterministic provider.
func NewSimulatedSeeded(seed uint64) *Simulated {
	return &Simulated{rng: rand.New(rand.NewPCG(seed, seed))}
}

func (s *Simulated) Prices(_ context.Context, symbols []string) (map[string]Quote, error) {
	out := make(map[string]Quote, len(symbols))
	for _, sym := range symbols {
		out[sym] = Quote{
			Price:     s.rng.Float64() * 100_000,
			Change24h: (s.rng.Float64() - 0.5) * 10,
			Volume:    s.rng.Float64() * 1_000_000_000,
		}
	}
	return out, nil
}

func (s *Simulated) Indicators(_ context.Context, _ string) (Indicators, error) {
	middle := 100.0
	return Indicators{
		RSI: 30 + s.rng.Float64()*40,
		MACD: MACD{
			Value:     (s.rng.Float64() - 0.5) * 1000,
			Signal:    (s.rng.Float64() - 0.5) * 1000,
			Histogram: (s.rng.Float64() - 0.5) * 500,
		},
		Bollinger: Bollinger{
			Upper:  middle + s.rng.Float64()*50,
			Middle: middle,
			Lower:  middle - s.rng.Float64()*50,
		},
		Support:    90 + s.rng.Float64()*10,
		Resistance: 110 + s.rng.Float64()*10,
	}, nil
}

func (s *Simulated) Sentiment(_ context.Context) (Sentiment, error) {
	news := "negative"
	if s.rng.Float64() > 0.5 {
		news = "positive"
	}
	social := "bearish"
	if s.rng.Float64() > 0.5 {
		social = "bullish"
	}
	return Sentiment{
		Score:          50 + (s.rng.Float64()-0.5)*40,
		FearGreedIndex: s.rng.IntN(100),
		NewsSentiment:  news,
		SocialTrend:    social,
	}, nil
}
