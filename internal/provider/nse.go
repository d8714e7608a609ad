package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"
)

var nseBaseURL = "https://www.nseindia.com"

// nseSessionTTL bounds how long the warmup cookies are trusted before the
// session is re-established.
const nseSessionTTL = 5 * time.Minute

// NSEClient talks to the NSE public JSON APIs. NSE requires a browser-like
// session: a warmup request against the home page populates the cookie jar
// before any API call is made.
type NSEClient struct {
	httpClient *http.Client
	mu         sync.Mutex
	sessionAt  time.Time
}

// NewNSEClient creates a new NSE client
func NewNSEClient() *NSEClient {
	jar, _ := cookiejar.New(nil)
	return &NSEClient{
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
			Jar:     jar,
		},
	}
}

func setNSEHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36")
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Referer", nseBaseURL)
}

// ensureSession refreshes the cookie session if it is stale
func (c *NSEClient) ensureSession(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if time.Since(c.sessionAt) < nseSessionTTL {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, nseBaseURL, nil)
	if err != nil {
		return err
	}
	setNSEHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("nse session warmup failed: %v", err)
	}
	resp.Body.Close()

	c.sessionAt = time.Now()
	return nil
}

func (c *NSEClient) getJSON(ctx context.Context, path string, out interface{}) error {
	if err := c.ensureSession(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, nseBaseURL+path, nil)
	if err != nil {
		return err
	}
	setNSEHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("nse %s returned status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// breadthResponse decodes the advance/decline counts of the whole market
type breadthResponse struct {
	Advance struct {
		Count struct {
			Advances  int `json:"Advances"`
			Declines  int `json:"Declines"`
			Unchanged int `json:"Unchanged"`
		} `json:"count"`
	} `json:"advance"`
}

// MarketBreadth returns the market-wide advance and decline counts
func (c *NSEClient) MarketBreadth(ctx context.Context) (advances, declines int, err error) {
	var decoded breadthResponse
	if err := c.getJSON(ctx, "/api/live-analysis-advance", &decoded); err != nil {
		return 0, 0, err
	}
	return decoded.Advance.Count.Advances, decoded.Advance.Count.Declines, nil
}

// optionChainResponseNSE decodes only the filtered (near-expiry) totals of
// the index option chain payload.
type optionChainResponseNSE struct {
	Filtered struct {
		CE struct {
			TotOI float64 `json:"totOI"`
		} `json:"CE"`
		PE struct {
			TotOI float64 `json:"totOI"`
		} `json:"PE"`
	} `json:"filtered"`
}

// OptionChainTotals returns the filtered call/put open interest totals for
// an index symbol.
func (c *NSEClient) OptionChainTotals(ctx context.Context, symbol string) (callOI, putOI int64, err error) {
	path := "/api/option-chain-indices?symbol=" + url.QueryEscape(symbol)
	var decoded optionChainResponseNSE
	if err := c.getJSON(ctx, path, &decoded); err != nil {
		return 0, 0, err
	}
	return int64(math.Round(decoded.Filtered.CE.TotOI)), int64(math.Round(decoded.Filtered.PE.TotOI)), nil
}
