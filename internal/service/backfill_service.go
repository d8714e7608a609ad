package service

import (
	"context"
	"time"

	"github.com/sosengine/databridge/internal/provider"
	"github.com/sosengine/databridge/pkg/utils/zaplogger"
)

// BackfillSymbols are the symbols whose option chain history is backfilled
// from the Trendlyne OI feed.
var BackfillSymbols = []string{"NIFTY", "BANKNIFTY", "RELIANCE"}

// backfillWindow is how far back each run re-pulls 1-minute OI slots
const backfillWindow = 15 * time.Minute

// Exchange trading hours
var (
	marketOpenHour, marketOpenMinute   = 9, 15
	marketCloseHour, marketCloseMinute = 15, 30
)

// BackfillService periodically re-pulls recent per-minute OI snapshots for a
// small symbol set and persists them through the snapshot store. Upserts make
// the job idempotent, so overlapping runs just rewrite the same rows.
type BackfillService struct {
	trendlyne *provider.TrendlyneClient
	chains    *OptionChainService
}

// NewBackfillService creates a new backfill service
func NewBackfillService(trendlyne *provider.TrendlyneClient, chains *OptionChainService) *BackfillService {
	return &BackfillService{
		trendlyne: trendlyne,
		chains:    chains,
	}
}

// withinMarketHours reports whether t falls inside a weekday trading session
func withinMarketHours(t time.Time) bool {
	t = t.In(marketLocation)
	if t.Weekday() == time.Saturday || t.Weekday() == time.Sunday {
		return false
	}
	sessionOpen := time.Date(t.Year(), t.Month(), t.Day(), marketOpenHour, marketOpenMinute, 0, 0, marketLocation)
	sessionClose := time.Date(t.Year(), t.Month(), t.Day(), marketCloseHour, marketCloseMinute, 0, 0, marketLocation)
	return !t.Before(sessionOpen) && !t.After(sessionClose)
}

// clampToSession clamps a slot start to the trading session of its day
func clampToSession(t time.Time) time.Time {
	open := time.Date(t.Year(), t.Month(), t.Day(), marketOpenHour, marketOpenMinute, 0, 0, marketLocation)
	if t.Before(open) {
		return open
	}
	return t
}

// Run backfills the last window of 1-minute OI slots for every backfill
// symbol. Slot failures are logged and skipped; one bad minute must not
// abort the rest of the window.
func (s *BackfillService) Run(ctx context.Context) {
	now := time.Now().In(marketLocation)
	if !withinMarketHours(now) {
		zaplogger.Debug("backfill skipped outside market hours")
		return
	}

	end := now.Truncate(time.Minute)
	start := clampToSession(end.Add(-backfillWindow))

	for _, symbol := range BackfillSymbols {
		if err := s.backfillSymbol(ctx, symbol, start, end); err != nil {
			zaplogger.Warn("backfill failed for symbol", zaplogger.Fields{
				"symbol": symbol,
				"error":  err.Error(),
			})
		}
	}
}

func (s *BackfillService) backfillSymbol(ctx context.Context, symbol string, start, end time.Time) error {
	stockID, err := s.trendlyne.StockID(ctx, symbol)
	if err != nil {
		return err
	}
	expiry, err := s.trendlyne.NearestExpiry(ctx, symbol)
	if err != nil {
		return err
	}

	var saved int
	for slot := start; slot.Before(end); slot = slot.Add(time.Minute) {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		snapshot, err := s.trendlyne.LiveOIData(ctx, stockID, expiry,
			slot.Format("15:04"), slot.Add(time.Minute).Format("15:04"))
		if err != nil {
			zaplogger.Debug("backfill slot fetch failed", zaplogger.Fields{
				"symbol": symbol,
				"slot":   slot.Format("15:04"),
				"error":  err.Error(),
			})
			continue
		}
		if len(snapshot.Strikes) == 0 {
			continue
		}

		if err := s.chains.SaveOISnapshot(symbol, snapshot, slot.Unix()); err != nil {
			zaplogger.Debug("backfill slot save failed", zaplogger.Fields{
				"symbol": symbol,
				"slot":   slot.Format("15:04"),
				"error":  err.Error(),
			})
			continue
		}
		saved++
	}

	zaplogger.Info("backfill completed for symbol", zaplogger.Fields{
		"symbol": symbol,
		"saved":  saved,
		"from":   start.Format("15:04"),
		"to":     end.Format("15:04"),
	})
	return nil
}
