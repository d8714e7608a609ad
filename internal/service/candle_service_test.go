package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sosengine/databridge/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeIntradayFetcher serves canned candles per instrument key and counts calls
type fakeIntradayFetcher struct {
	candles map[string][]provider.IntradayCandle
	errs    map[string]error
	calls   int
}

func (f *fakeIntradayFetcher) IntradayCandles(ctx context.Context, instrumentKey string) ([]provider.IntradayCandle, error) {
	f.calls++
	if err, ok := f.errs[instrumentKey]; ok {
		return nil, err
	}
	return f.candles[instrumentKey], nil
}

func TestFetchIntradaySkipsFailedSymbols(t *testing.T) {
	s := &CandleService{symbols: newTestSymbolService()}
	broker := &fakeIntradayFetcher{
		candles: map[string][]provider.IntradayCandle{
			"NSE_EQ|INE002A01018": {{Timestamp: "2026-08-25T10:15:00+05:30", Open: 2900, High: 2910, Low: 2895, Close: 2905, Volume: 120000}},
			"NSE_INDEX|Nifty 50":  {{Timestamp: "2026-08-25T10:15:00+05:30", Open: 24500, High: 24520, Low: 24480, Close: 24510, Volume: 0}},
		},
		errs: map[string]error{
			"NSE_EQ|INE062A01020": errors.New("rate limited"), // SBIN
		},
	}

	batch, err := s.fetchIntraday(context.Background(), broker)
	require.NoError(t, err, "one failed symbol must not fail the tier")

	symbols := make([]string, 0, len(batch))
	for _, snapshot := range batch {
		symbols = append(symbols, snapshot.Symbol)
	}
	assert.Contains(t, symbols, "RELIANCE")
	assert.Contains(t, symbols, "NIFTY")
	assert.NotContains(t, symbols, "SBIN")
}

func TestFetchIntradayEmptyWhenAllSymbolsFail(t *testing.T) {
	s := &CandleService{symbols: newTestSymbolService()}
	broker := &fakeIntradayFetcher{
		errs: map[string]error{
			"NSE_EQ|INE002A01018":  errors.New("down"),
			"NSE_EQ|INE062A01020":  errors.New("down"),
			"NSE_INDEX|Nifty 50":   errors.New("down"),
			"NSE_INDEX|Nifty Bank": errors.New("down"),
		},
	}

	batch, err := s.fetchIntraday(context.Background(), broker)
	require.NoError(t, err)
	assert.Empty(t, batch, "an all-failed cycle must fall through via the empty-batch predicate")
}

func TestFetchIntradayTakesNewestCandle(t *testing.T) {
	s := &CandleService{symbols: newTestSymbolService()}
	broker := &fakeIntradayFetcher{
		candles: map[string][]provider.IntradayCandle{
			"NSE_EQ|INE002A01018": {
				{Timestamp: "2026-08-25T10:16:00+05:30", Close: 2910},
				{Timestamp: "2026-08-25T10:15:00+05:30", Close: 2905},
			},
		},
	}

	batch, err := s.fetchIntraday(context.Background(), broker)
	require.NoError(t, err)
	require.Len(t, batch, 1)
	assert.Equal(t, 2910.0, batch[0].Close)
}

func TestFetchIntradayStopsOnCancelledContext(t *testing.T) {
	s := &CandleService{symbols: newTestSymbolService()}
	broker := &fakeIntradayFetcher{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.fetchIntraday(ctx, broker)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, broker.calls)
}
