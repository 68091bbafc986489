package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kjannette/trahn-agents/internal/httputil"
)

const coingeckoBase = "https://api.coingecko.com/api/v3/simple/price"

// coingeckoIDs maps ticker symbols to CoinGecko asset IDs.
var coingeckoIDs = map[string]string{
	"BTC": "bitcoin",
	"ETH": "ethereum",
	"SOL": "solana",
	"BNB": "binancecoin",
	"ADA": "cardano",
}

// CoinGecko serves live prices from the CoinGecko simple-price API.
// Indicator and sentiment feeds have no upstream source yet and come
// from the embedded simulated provider.
type CoinGecko struct {
	*Simulated
	httpClient *http.Client
	retry      httputil.RetryConfig
}

func NewCoinGecko() *CoinGecko {
	return &CoinGecko{
		Simulated:  NewSimulated(),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		retry: httputil.RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   2 * time.Second,
			MaxDelay:    10 * time.Second,
		},
	}
}

func (c *CoinGecko) Prices(ctx context.Context, symbols []string) (map[string]Quote, error) {
	ids := make([]string, 0, len(symbols))
	idToSymbol := make(map[string]string, len(symbols))
	for _, sym := range symbols {
		id, ok := coingeckoIDs[strings.ToUpper(sym)]
		if !ok {
			return nil, fmt.Errorf("unknown symbol %q", sym)
		}
		ids = append(ids, id)
		idToSymbol[id] = strings.ToUpper(sym)
	}

	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("vs_currencies", "usd")
	q.Set("include_24hr_change", "true")
	q.Set("include_24hr_vol", "true")
	reqURL := coingeckoBase + "?" + q.Encode()

	resp, err := httputil.Do(ctx, c.httpClient, c.retry, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("coingecko fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("coingecko returned status %d", resp.StatusCode)
	}

	var data map[string]struct {
		USD       float64 `json:"usd"`
		Change24h float64 `json:"usd_24h_change"`
		Volume    float64 `json:"usd_24h_vol"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	out := make(map[string]Quote, len(data))
	for id, d := range data {
		sym, ok := idToSymbol[id]
		if !ok {
			continue
		}
		if d.USD <= 0 {
			return nil, fmt.Errorf("invalid price for %s: %f", sym, d.USD)
		}
		out[sym] = Quote{Price: d.USD, Change24h: d.Change24h, Volume: d.Volume}
	}
	return out, nil
}
