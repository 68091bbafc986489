package marketdata

import "context"

// Quote is a point-in-time price snapshot for one symbol.
type Quote struct {
	Price     float64 `json:"price"`
	Change24h float64 `json:"change24h"`
	Volume    float64 `json:"volume"`
}

type MACD struct {
	Value     float64 `json:"value"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

type Bollinger struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

type Indicators struct {
	RSI        float64   `json:"rsi"`
	MACD       MACD      `json:"macd"`
	Bollinger  Bollinger `json:"bollinger"`
	Support    float64   `json:"support"`
	Resistance float64   `json:"resistance"`
}

type Sentiment struct {
	Score          float64 `json:"score"` // 0-100
	FearGreedIndex int     `json:"fearGreedIndex"`
	NewsSentiment  string  `json:"newsSentiment"` // positive | negative
	SocialTrend    string  `json:"socialTrend"`   // bullish | bearish
}

// Provider supplies market data to detectors and agents. Consumers
// treat the data as opaque; production and simulated implementations
// are interchangeable.
type Provider interface {
	Prices(ctx context.Context, symbols []string) (map[string]Quote, error)
	Indicators(ctx context.Context, symbol string) (Indicators, error)
	Sentiment(ctx context.Context) (Sentiment, error)
}
