package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

var tvScannerURL = "https://scanner.tradingview.com/india/scan"

// tvColumns selects the 1-minute OHLCV columns of the screener scan
var tvColumns = []string{"name", "open|1", "high|1", "low|1", "close|1", "volume|1"}

// TVScreenerClient talks to the public TradingView screener scan endpoint
type TVScreenerClient struct {
	httpClient *http.Client
}

// NewTVScreenerClient creates a new TradingView screener client
func NewTVScreenerClient() *TVScreenerClient {
	return &TVScreenerClient{
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// ScanRow is one decoded screener row
type ScanRow struct {
	Ticker string // e.g. NSE:RELIANCE
	Name   string
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

type scanRequest struct {
	Symbols struct {
		Tickers []string `json:"tickers"`
	} `json:"symbols"`
	Columns []string `json:"columns"`
}

type scanResponse struct {
	Data []struct {
		Symbol string            `json:"s"`
		Values []json.RawMessage `json:"d"`
	} `json:"data"`
}

// Scan returns the latest 1-minute OHLCV row for each requested ticker
func (c *TVScreenerClient) Scan(ctx context.Context, tickers []string) ([]ScanRow, error) {
	var reqBody scanRequest
	reqBody.Symbols.Tickers = tickers
	reqBody.Columns = tvColumns

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tvScannerURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("screener scan returned status %d", resp.StatusCode)
	}

	var decoded scanResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to parse screener response: %v", err)
	}

	rows := make([]ScanRow, 0, len(decoded.Data))
	for _, item := range decoded.Data {
		if len(item.Values) < 6 {
			continue
		}
		row := ScanRow{Ticker: item.Symbol}
		if err := json.Unmarshal(item.Values[0], &row.Name); err != nil {
			continue
		}
		json.Unmarshal(item.Values[1], &row.Open)
		json.Unmarshal(item.Values[2], &row.High)
		json.Unmarshal(item.Values[3], &row.Low)
		json.Unmarshal(item.Values[4], &row.Close)
		json.Unmarshal(item.Values[5], &row.Volume)
		rows = append(rows, row)
	}
	return rows, nil
}
