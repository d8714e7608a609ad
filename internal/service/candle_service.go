package service

import (
	"context"
	"strings"
	"time"

	"github.com/sosengine/databridge/internal/fetcher"
	"github.com/sosengine/databridge/internal/models"
	"github.com/sosengine/databridge/internal/provider"
	"github.com/sosengine/databridge/pkg/utils/zaplogger"
)

// BridgeSymbols is the fixed symbol universe streamed by the bridge
var BridgeSymbols = []string{
	"RELIANCE", "SBIN", "ADANIENT", "NIFTY", "BANKNIFTY",
	"HDFCBANK", "ICICIBANK", "INFY", "TCS", "BHARTIARTL",
	"ITC", "KOTAKBANK", "HINDUNILVR", "LT", "AXISBANK",
	"MARUTI", "SUNPHARMA", "TITAN", "ULTRACEMCO", "WIPRO",
	"BAJFINANCE", "ASIANPAINT", "HCLTECH", "NTPC", "POWERGRID",
}

// TrackedIndices are the index symbols carried in the universe
var TrackedIndices = []string{"NIFTY", "BANKNIFTY"}

// candleFetchTimeout bounds each adapter attempt of the candle chain
const candleFetchTimeout = 20 * time.Second

const (
	adapterUpstox     = "upstox"
	adapterTVScreener = "tvscreener"
	adapterYahoo      = "yahoo"
)

// yahooSymbol maps a bridge symbol to Yahoo Finance notation
func yahooSymbol(symbol string) string {
	switch symbol {
	case "NIFTY":
		return "^NSEI"
	case "BANKNIFTY":
		return "^NSEBANK"
	default:
		return symbol + ".NS"
	}
}

// CandleService produces one OHLCV snapshot per universe symbol each cycle,
// falling through upstox, the TradingView screener and Yahoo Finance in that
// order. A cycle that yields at least one symbol is a success; symbols the
// winning source missed are simply absent from the batch.
type CandleService struct {
	symbols *SymbolService
	chain   *fetcher.Chain[[]models.CandleSnapshot]
}

// NewCandleService creates a new candle service
func NewCandleService(symbols *SymbolService, upstox *provider.UpstoxClient, tv *provider.TVScreenerClient, yahoo *provider.YahooClient) *CandleService {
	s := &CandleService{symbols: symbols}

	adapters := make([]fetcher.Adapter[[]models.CandleSnapshot], 0, 3)
	if upstox.HasToken() {
		adapters = append(adapters, fetcher.Func(adapterUpstox, func(ctx context.Context) ([]models.CandleSnapshot, error) {
			return s.fetchIntraday(ctx, upstox)
		}))
	}
	adapters = append(adapters,
		fetcher.Func(adapterTVScreener, func(ctx context.Context) ([]models.CandleSnapshot, error) {
			return s.fetchTVScreener(ctx, tv)
		}),
		fetcher.Func(adapterYahoo, func(ctx context.Context) ([]models.CandleSnapshot, error) {
			return s.fetchYahoo(ctx, yahoo)
		}),
	)

	s.chain = fetcher.NewChain("candles", candleFetchTimeout,
		func(batch []models.CandleSnapshot) bool { return len(batch) == 0 },
		adapters...)
	return s
}

// tierForAdapter maps a winning adapter name to its source tier
func tierForAdapter(name string) models.SourceTier {
	switch name {
	case adapterUpstox:
		return models.TierPrimary
	case adapterTVScreener:
		return models.TierSecondary
	default:
		return models.TierTertiary
	}
}

// FetchAll returns the latest candle batch together with the tier that
// produced it. ErrExhausted means every source failed this cycle.
func (s *CandleService) FetchAll(ctx context.Context) ([]models.CandleSnapshot, models.SourceTier, error) {
	batch, adapter, err := s.chain.Fetch(ctx)
	if err != nil {
		return nil, "", err
	}
	tier := tierForAdapter(adapter)
	for i := range batch {
		batch[i].Source = tier
	}
	return batch, tier, nil
}

// minuteFloorMillis floors a time to its minute boundary in epoch millis
func minuteFloorMillis(t time.Time) int64 {
	return t.Truncate(time.Minute).UnixMilli()
}

// intradayCandleFetcher is the slice of the broker client the candle cycle needs
type intradayCandleFetcher interface {
	IntradayCandles(ctx context.Context, instrumentKey string) ([]provider.IntradayCandle, error)
}

// fetchIntraday pulls the latest 1-minute candle per universe symbol from the
// broker API. Per-symbol failures are skipped so one bad symbol cannot fail
// the whole tier; an all-symbols-failed cycle surfaces as an empty batch.
func (s *CandleService) fetchIntraday(ctx context.Context, broker intradayCandleFetcher) ([]models.CandleSnapshot, error) {
	batch := make([]models.CandleSnapshot, 0, len(BridgeSymbols))
	for _, symbol := range BridgeSymbols {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		key, err := s.symbols.Resolve(symbol)
		if err != nil {
			zaplogger.Debug("skipping unresolved symbol", zaplogger.Fields{
				"symbol": symbol,
			})
			continue
		}
		candles, err := broker.IntradayCandles(ctx, key)
		if err != nil {
			zaplogger.Debug("intraday candle fetch failed", zaplogger.Fields{
				"symbol": symbol,
				"error":  err.Error(),
			})
			continue
		}
		if len(candles) == 0 {
			continue
		}
		latest := candles[0]
		batch = append(batch, models.CandleSnapshot{
			Symbol:    symbol,
			Timestamp: minuteFloorMillis(time.Now()),
			Open:      latest.Open,
			High:      latest.High,
			Low:       latest.Low,
			Close:     latest.Close,
			Volume:    latest.Volume,
		})
	}
	return batch, nil
}

func (s *CandleService) fetchTVScreener(ctx context.Context, tv *provider.TVScreenerClient) ([]models.CandleSnapshot, error) {
	tickers := make([]string, 0, len(BridgeSymbols))
	for _, symbol := range BridgeSymbols {
		tickers = append(tickers, "NSE:"+symbol)
	}

	rows, err := tv.Scan(ctx, tickers)
	if err != nil {
		return nil, err
	}

	now := minuteFloorMillis(time.Now())
	batch := make([]models.CandleSnapshot, 0, len(rows))
	for _, row := range rows {
		symbol := row.Ticker
		if idx := strings.LastIndex(symbol, ":"); idx >= 0 {
			symbol = symbol[idx+1:]
		}
		batch = append(batch, models.CandleSnapshot{
			Symbol:    symbol,
			Timestamp: now,
			Open:      row.Open,
			High:      row.High,
			Low:       row.Low,
			Close:     row.Close,
			Volume:    int64(row.Volume),
		})
	}
	return batch, nil
}

func (s *CandleService) fetchYahoo(ctx context.Context, yahoo *provider.YahooClient) ([]models.CandleSnapshot, error) {
	now := minuteFloorMillis(time.Now())
	batch := make([]models.CandleSnapshot, 0, len(BridgeSymbols))
	for _, symbol := range BridgeSymbols {
		candle, err := yahoo.LatestMinuteCandle(ctx, yahooSymbol(symbol))
		if err != nil {
			zaplogger.Debug("yahoo candle fetch failed", zaplogger.Fields{
				"symbol": symbol,
				"error":  err.Error(),
			})
			continue
		}
		batch = append(batch, models.CandleSnapshot{
			Symbol:    symbol,
			Timestamp: now,
			Open:      candle.Open,
			High:      candle.High,
			Low:       candle.Low,
			Close:     candle.Close,
			Volume:    candle.Volume,
		})
	}
	return batch, nil
}
