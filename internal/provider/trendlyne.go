package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

var trendlyneBaseURL = "https://smartoptions.trendlyne.com/phoenix/api"

const (
	trendlyneStockIDTTL = 24 * time.Hour
	trendlyneExpiryTTL  = time.Hour
)

// TrendlyneClient talks to the Trendlyne SmartOptions APIs. Lookups for
// stock IDs and expiry dates are cached; all calls share one rate limiter
// to stay polite against the public endpoints.
type TrendlyneClient struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	stockIDs   *ttlCache[int64]
	expiries   *ttlCache[string]
}

// NewTrendlyneClient creates a new Trendlyne client
func NewTrendlyneClient() *TrendlyneClient {
	return &TrendlyneClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Every(100*time.Millisecond), 1),
		stockIDs:   newTTLCache[int64](trendlyneStockIDTTL),
		expiries:   newTTLCache[string](trendlyneExpiryTTL),
	}
}

func (c *TrendlyneClient) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("trendlyne returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type stockSearchResponse struct {
	Body struct {
		Data []struct {
			StockCode string `json:"stock_code"`
			StockID   int64  `json:"stock_id"`
		} `json:"data"`
	} `json:"body"`
}

// StockID looks up the Trendlyne stock ID for a trading symbol. A strict
// stock-code match wins; otherwise the first search hit is taken.
func (c *TrendlyneClient) StockID(ctx context.Context, symbol string) (int64, error) {
	if id, ok := c.stockIDs.get(symbol); ok {
		return id, nil
	}

	searchURL := fmt.Sprintf("%s/search-contract-stock/?query=%s",
		trendlyneBaseURL, url.QueryEscape(strings.ToLower(symbol)))
	var decoded stockSearchResponse
	if err := c.getJSON(ctx, searchURL, &decoded); err != nil {
		return 0, err
	}
	if len(decoded.Body.Data) == 0 {
		return 0, fmt.Errorf("no stock id found for %s", symbol)
	}

	stockID := decoded.Body.Data[0].StockID
	for _, item := range decoded.Body.Data {
		if strings.EqualFold(item.StockCode, symbol) {
			stockID = item.StockID
			break
		}
	}

	c.stockIDs.set(symbol, stockID)
	return stockID, nil
}

type expiryDatesResponse struct {
	Body struct {
		ExpiryDates []string `json:"expiryDates"`
	} `json:"body"`
}

// NearestExpiry returns the nearest option expiry date (YYYY-MM-DD) for a
// symbol. A cached expiry that has already passed is refreshed.
func (c *TrendlyneClient) NearestExpiry(ctx context.Context, symbol string) (string, error) {
	if expiry, ok := c.expiries.get(symbol); ok {
		if expiryDate, err := time.Parse("2006-01-02", expiry); err == nil && !expiryDate.Before(time.Now().Truncate(24*time.Hour)) {
			return expiry, nil
		}
		c.expiries.invalidate(symbol)
	}

	stockID, err := c.StockID(ctx, symbol)
	if err != nil {
		return "", err
	}

	expiryURL := fmt.Sprintf("%s/fno/get-expiry-dates/?mtype=options&stock_id=%d", trendlyneBaseURL, stockID)
	var decoded expiryDatesResponse
	if err := c.getJSON(ctx, expiryURL, &decoded); err != nil {
		return "", err
	}
	if len(decoded.Body.ExpiryDates) == 0 {
		return "", fmt.Errorf("no expiry dates found for %s", symbol)
	}

	expiry := decoded.Body.ExpiryDates[0]
	c.expiries.set(symbol, expiry)
	return expiry, nil
}

// StrikeOI is the open interest of one strike in a live OI snapshot
type StrikeOI struct {
	CallOI       int64
	PutOI        int64
	CallOIChange int64
	PutOIChange  int64
}

// OISnapshot is one decoded live-oi-data response
type OISnapshot struct {
	TradingDate string
	Expiry      string
	Strikes     map[string]StrikeOI
}

type liveOIResponse struct {
	Head struct {
		Status string `json:"status"`
	} `json:"head"`
	Body struct {
		OIData map[string]struct {
			CallOI       json.Number `json:"callOi"`
			PutOI        json.Number `json:"putOi"`
			CallOIChange json.Number `json:"callOiChange"`
			PutOIChange  json.Number `json:"putOiChange"`
		} `json:"oiData"`
		InputData struct {
			TradingDate string   `json:"tradingDate"`
			ExpDateList []string `json:"expDateList"`
		} `json:"inputData"`
	} `json:"body"`
}

// LiveOIData fetches the per-strike open interest snapshot between minTime
// and maxTime (HH:MM) for a stock ID and expiry.
func (c *TrendlyneClient) LiveOIData(ctx context.Context, stockID int64, expiry, minTime, maxTime string) (*OISnapshot, error) {
	oiURL := fmt.Sprintf("%s/live-oi-data/?stockId=%d&expDateList=%s&minTime=%s&maxTime=%s",
		trendlyneBaseURL, stockID, url.QueryEscape(expiry), url.QueryEscape(minTime), url.QueryEscape(maxTime))

	var decoded liveOIResponse
	if err := c.getJSON(ctx, oiURL, &decoded); err != nil {
		return nil, err
	}
	if decoded.Head.Status != "0" {
		return nil, fmt.Errorf("live oi data returned status %q", decoded.Head.Status)
	}

	snapshot := &OISnapshot{
		TradingDate: decoded.Body.InputData.TradingDate,
		Expiry:      expiry,
		Strikes:     make(map[string]StrikeOI, len(decoded.Body.OIData)),
	}
	if len(decoded.Body.InputData.ExpDateList) > 0 {
		snapshot.Expiry = decoded.Body.InputData.ExpDateList[0]
	}

	for strike, data := range decoded.Body.OIData {
		callOI, _ := data.CallOI.Int64()
		putOI, _ := data.PutOI.Int64()
		callChg, _ := data.CallOIChange.Int64()
		putChg, _ := data.PutOIChange.Int64()
		snapshot.Strikes[strike] = StrikeOI{
			CallOI:       callOI,
			PutOI:        putOI,
			CallOIChange: callChg,
			PutOIChange:  putChg,
		}
	}
	return snapshot, nil
}
