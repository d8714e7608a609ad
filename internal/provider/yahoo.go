package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

var yahooBaseURL = "https://query1.finance.yahoo.com"

// YahooClient talks to the Yahoo Finance chart API, the tertiary candle
// source. Symbols are Yahoo notation (RELIANCE.NS, ^NSEI).
type YahooClient struct {
	httpClient *http.Client
}

// NewYahooClient creates a new Yahoo Finance client
func NewYahooClient() *YahooClient {
	return &YahooClient{
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// YahooCandle is the most recent complete 1-minute candle of a chart response
type YahooCandle struct {
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
	} `json:"chart"`
}

// LatestMinuteCandle returns the last fully-populated 1-minute candle of the
// current day for a Yahoo symbol.
func (c *YahooClient) LatestMinuteCandle(ctx context.Context, symbol string) (YahooCandle, error) {
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1m&range=1d",
		yahooBaseURL, url.PathEscape(symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return YahooCandle{}, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return YahooCandle{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return YahooCandle{}, fmt.Errorf("chart api returned status %d for %s", resp.StatusCode, symbol)
	}

	var decoded chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return YahooCandle{}, fmt.Errorf("failed to parse chart response: %v", err)
	}

	if len(decoded.Chart.Result) == 0 || len(decoded.Chart.Result[0].Indicators.Quote) == 0 {
		return YahooCandle{}, fmt.Errorf("empty chart response for %s", symbol)
	}
	quote := decoded.Chart.Result[0].Indicators.Quote[0]

	// Walk back from the end to the last candle with every field populated
	for i := len(quote.Close) - 1; i >= 0; i-- {
		if i >= len(quote.Open) || i >= len(quote.High) || i >= len(quote.Low) || i >= len(quote.Volume) {
			continue
		}
		if quote.Open[i] == nil || quote.High[i] == nil || quote.Low[i] == nil || quote.Close[i] == nil || quote.Volume[i] == nil {
			continue
		}
		return YahooCandle{
			Open:   *quote.Open[i],
			High:   *quote.High[i],
			Low:    *quote.Low[i],
			Close:  *quote.Close[i],
			Volume: *quote.Volume[i],
		}, nil
	}
	return YahooCandle{}, fmt.Errorf("no complete candle in chart response for %s", symbol)
}
