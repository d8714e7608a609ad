// Package provider contains the HTTP clients for the upstream market data
// providers. Each client returns provider-specific typed responses; mapping
// into canonical shapes happens in the service layer.
package provider

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"
)

var (
	upstoxBaseURL       = "https://api.upstox.com"
	upstoxInstrumentURL = "https://assets.upstox.com/market-quote/instruments/exchange/NSE.json.gz"
)

// UpstoxClient talks to the Upstox REST APIs. The access token may be empty,
// in which case only the public instrument master download is usable.
type UpstoxClient struct {
	httpClient  *http.Client
	accessToken string
}

// NewUpstoxClient creates a new Upstox client
func NewUpstoxClient(accessToken string) *UpstoxClient {
	return &UpstoxClient{
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		accessToken: accessToken,
	}
}

// HasToken reports whether the client can call authenticated endpoints
func (c *UpstoxClient) HasToken() bool {
	return c.accessToken != ""
}

// MasterRow is one row of the NSE instrument master file
type MasterRow struct {
	Segment       string  `json:"segment"`
	Name          string  `json:"name"`
	Exchange      string  `json:"exchange"`
	ISIN          string  `json:"isin"`
	InstrumentKey string  `json:"instrument_key"`
	TradingSymbol string  `json:"trading_symbol"`
	LotSize       uint    `json:"lot_size"`
	TickSize      float64 `json:"tick_size"`
}

// InstrumentMaster downloads and decodes the gzipped NSE instrument master
func (c *UpstoxClient) InstrumentMaster(ctx context.Context) ([]MasterRow, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, upstoxInstrumentURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download instrument master: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("instrument master download returned status %d", resp.StatusCode)
	}

	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to open gzip stream: %v", err)
	}
	defer gz.Close()

	var rows []MasterRow
	if err := json.NewDecoder(gz).Decode(&rows); err != nil {
		return nil, fmt.Errorf("failed to parse instrument master: %v", err)
	}
	return rows, nil
}

// IntradayCandle is one OHLCV row of the intraday candle response
type IntradayCandle struct {
	Timestamp string
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
}

// intradayResponse decodes the HistoryV3 intraday payload; each candle is a
// positional array [timestamp, open, high, low, close, volume, oi].
type intradayResponse struct {
	Status string `json:"status"`
	Data   struct {
		Candles [][]json.RawMessage `json:"candles"`
	} `json:"data"`
}

// IntradayCandles fetches the current day's 1-minute candles for an
// instrument key, newest first.
func (c *UpstoxClient) IntradayCandles(ctx context.Context, instrumentKey string) ([]IntradayCandle, error) {
	if !c.HasToken() {
		return nil, fmt.Errorf("upstox access token not configured")
	}

	endpoint := fmt.Sprintf("%s/v3/historical-candle/intraday/%s/minutes/1",
		upstoxBaseURL, url.PathEscape(instrumentKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("intraday candles returned status %d", resp.StatusCode)
	}

	var decoded intradayResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to parse intraday candles: %v", err)
	}

	candles := make([]IntradayCandle, 0, len(decoded.Data.Candles))
	for _, row := range decoded.Data.Candles {
		if len(row) < 6 {
			continue
		}
		var candle IntradayCandle
		if err := json.Unmarshal(row[0], &candle.Timestamp); err != nil {
			continue
		}
		json.Unmarshal(row[1], &candle.Open)
		json.Unmarshal(row[2], &candle.High)
		json.Unmarshal(row[3], &candle.Low)
		json.Unmarshal(row[4], &candle.Close)
		json.Unmarshal(row[5], &candle.Volume)
		candles = append(candles, candle)
	}

	// Newest first; ISO timestamps sort lexicographically
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].Timestamp > candles[j].Timestamp
	})
	return candles, nil
}

// OptionMarketData is the per-leg market data of an option chain entry
type OptionMarketData struct {
	LTP    float64 `json:"ltp"`
	Volume float64 `json:"volume"`
	OI     float64 `json:"oi"`
	PrevOI float64 `json:"prev_oi"`
}

// OptionLeg is one side (call or put) of an option chain entry
type OptionLeg struct {
	InstrumentKey string           `json:"instrument_key"`
	MarketData    OptionMarketData `json:"market_data"`
}

// OptionChainEntry is one strike of the put/call option chain response
type OptionChainEntry struct {
	Expiry      string    `json:"expiry"`
	StrikePrice float64   `json:"strike_price"`
	CallOptions OptionLeg `json:"call_options"`
	PutOptions  OptionLeg `json:"put_options"`
}

type optionChainResponse struct {
	Status string             `json:"status"`
	Data   []OptionChainEntry `json:"data"`
}

// OptionChain fetches the put/call option chain for an instrument key and expiry
func (c *UpstoxClient) OptionChain(ctx context.Context, instrumentKey, expiry string) ([]OptionChainEntry, error) {
	if !c.HasToken() {
		return nil, fmt.Errorf("upstox access token not configured")
	}

	endpoint := fmt.Sprintf("%s/v2/option/chain?instrument_key=%s&expiry_date=%s",
		upstoxBaseURL, url.QueryEscape(instrumentKey), url.QueryEscape(expiry))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("option chain returned status %d", resp.StatusCode)
	}

	var decoded optionChainResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to parse option chain: %v", err)
	}
	return decoded.Data, nil
}
