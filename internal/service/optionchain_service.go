package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/sosengine/databridge/internal/models"
	"github.com/sosengine/databridge/internal/provider"
	"github.com/sosengine/databridge/internal/repository"
	"github.com/sosengine/databridge/pkg/utils/zaplogger"
	"gorm.io/gorm"
)

// indexInstrumentKeys are the provider keys of the indices whose option
// chains the bridge snapshots.
var indexInstrumentKeys = map[string]string{
	"NIFTY":     "NSE_INDEX|Nifty 50",
	"BANKNIFTY": "NSE_INDEX|Nifty Bank",
}

// marketLocation is the exchange timezone. The IANA database is normally
// present; the fixed offset keeps the bridge running on stripped containers.
var marketLocation = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		return time.FixedZone("IST", 5*3600+1800)
	}
	return loc
}()

// OptionChainService snapshots index option chains into the store and serves
// the latest chain back out. Live fetches go through the broker API first and
// the Trendlyne OI feed second; either path persists through the same upsert
// so readers always see the newest chain regardless of which source won.
type OptionChainService struct {
	repo      *repository.SnapshotRepository
	upstox    *provider.UpstoxClient
	trendlyne *provider.TrendlyneClient
}

// NewOptionChainService creates a new option chain service
func NewOptionChainService(db *gorm.DB, upstox *provider.UpstoxClient, trendlyne *provider.TrendlyneClient) *OptionChainService {
	return &OptionChainService{
		repo:      repository.NewSnapshotRepository(db),
		upstox:    upstox,
		trendlyne: trendlyne,
	}
}

// LatestChain returns the most recent persisted chain for a symbol
func (s *OptionChainService) LatestChain(symbol string) ([]models.OptionStrikeModel, error) {
	return s.repo.GetLatestChain(symbol)
}

// LatestAggregate returns the most recent persisted aggregate for a symbol
func (s *OptionChainService) LatestAggregate(symbol string) (*models.OptionAggregateModel, error) {
	return s.repo.GetLatestAggregate(symbol)
}

// RefreshChain fetches, persists and returns a fresh option chain snapshot
// for an index symbol. When every live source fails the latest persisted
// chain is returned instead, so the stream degrades to stale data rather
// than silence.
func (s *OptionChainService) RefreshChain(ctx context.Context, symbol string) ([]models.OptionStrikeModel, error) {
	if err := s.refreshFromUpstox(ctx, symbol); err != nil {
		zaplogger.Debug("broker chain fetch failed, trying trendlyne", zaplogger.Fields{
			"symbol": symbol,
			"error":  err.Error(),
		})
		if err := s.refreshFromTrendlyne(ctx, symbol); err != nil {
			zaplogger.Warn("all option chain sources failed, serving persisted chain", zaplogger.Fields{
				"symbol": symbol,
				"error":  err.Error(),
			})
		}
	}
	return s.repo.GetLatestChain(symbol)
}

func (s *OptionChainService) refreshFromUpstox(ctx context.Context, symbol string) error {
	if !s.upstox.HasToken() {
		return fmt.Errorf("broker access token not configured")
	}
	instrumentKey, ok := indexInstrumentKeys[symbol]
	if !ok {
		return fmt.Errorf("no instrument key for %s", symbol)
	}

	expiry, err := s.trendlyne.NearestExpiry(ctx, symbol)
	if err != nil {
		return fmt.Errorf("failed to determine expiry: %v", err)
	}

	entries, err := s.upstox.OptionChain(ctx, instrumentKey, expiry)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("empty option chain for %s", symbol)
	}

	timestamp := time.Now().Unix()
	strikes := make([]models.OptionStrikeModel, 0, len(entries))
	var totalCallOI, totalPutOI int64
	for _, entry := range entries {
		callOI := int64(math.Round(entry.CallOptions.MarketData.OI))
		putOI := int64(math.Round(entry.PutOptions.MarketData.OI))
		strikes = append(strikes, models.OptionStrikeModel{
			Symbol:    symbol,
			Timestamp: timestamp,
			Strike:    entry.StrikePrice,
			CallOI:    callOI,
			PutOI:     putOI,
			CallOIChg: callOI - int64(math.Round(entry.CallOptions.MarketData.PrevOI)),
			PutOIChg:  putOI - int64(math.Round(entry.PutOptions.MarketData.PrevOI)),
		})
		totalCallOI += callOI
		totalPutOI += putOI
	}

	aggregate := models.OptionAggregateModel{
		Symbol:      symbol,
		Timestamp:   timestamp,
		Expiry:      expiry,
		TotalCallOI: totalCallOI,
		TotalPutOI:  totalPutOI,
		PCR:         models.ComputePCR(totalCallOI, totalPutOI),
	}
	return s.repo.SaveSnapshot(aggregate, strikes)
}

func (s *OptionChainService) refreshFromTrendlyne(ctx context.Context, symbol string) error {
	stockID, err := s.trendlyne.StockID(ctx, symbol)
	if err != nil {
		return err
	}
	expiry, err := s.trendlyne.NearestExpiry(ctx, symbol)
	if err != nil {
		return err
	}

	now := time.Now().In(marketLocation)
	slot := now.Truncate(time.Minute)
	minTime := slot.Add(-time.Minute).Format("15:04")
	maxTime := slot.Format("15:04")

	snapshot, err := s.trendlyne.LiveOIData(ctx, stockID, expiry, minTime, maxTime)
	if err != nil {
		return err
	}
	return s.SaveOISnapshot(symbol, snapshot, slot.Unix())
}

// SaveOISnapshot converts a Trendlyne OI snapshot into aggregate and strike
// rows and persists them at the given timestamp. Shared by the live refresh
// path and the scheduled backfill.
func (s *OptionChainService) SaveOISnapshot(symbol string, snapshot *provider.OISnapshot, timestamp int64) error {
	strikes := make([]models.OptionStrikeModel, 0, len(snapshot.Strikes))
	var totalCallOI, totalPutOI int64
	for strikeKey, oi := range snapshot.Strikes {
		strike, err := strconv.ParseFloat(strikeKey, 64)
		if err != nil {
			continue
		}
		strikes = append(strikes, models.OptionStrikeModel{
			Symbol:    symbol,
			Timestamp: timestamp,
			Strike:    strike,
			CallOI:    oi.CallOI,
			PutOI:     oi.PutOI,
			CallOIChg: oi.CallOIChange,
			PutOIChg:  oi.PutOIChange,
		})
		totalCallOI += oi.CallOI
		totalPutOI += oi.PutOI
	}
	sort.Slice(strikes, func(i, j int) bool { return strikes[i].Strike < strikes[j].Strike })

	aggregate := models.OptionAggregateModel{
		Symbol:      symbol,
		Timestamp:   timestamp,
		Expiry:      snapshot.Expiry,
		TotalCallOI: totalCallOI,
		TotalPutOI:  totalPutOI,
		PCR:         models.ComputePCR(totalCallOI, totalPutOI),
	}
	return s.repo.SaveSnapshot(aggregate, strikes)
}
