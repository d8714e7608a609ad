// Package service contains the service layer for the SOS Bridge
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sosengine/databridge/internal/models"
	"github.com/sosengine/databridge/internal/provider"
	"github.com/sosengine/databridge/internal/repository"
	"github.com/sosengine/databridge/pkg/utils/state"
	"github.com/sosengine/databridge/pkg/utils/zaplogger"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
)

var instrumentsUpdatedAtKey = "INSTRUMENTS_UPDATED_AT"

// instrumentsMaxAge is how long a persisted instrument master is considered
// fresh before a new download is attempted.
const instrumentsMaxAge = 24 * time.Hour

const instrumentInsertBatchSize = 500

// indexNotationPrefix is the unified index notation understood on input
// (NSE|INDEX|NIFTY) and produced on reverse resolution of index keys.
const indexNotationPrefix = "NSE|INDEX|"

// ErrSymbolNotFound is returned when a trading symbol has no entry in the
// loaded instrument master.
var ErrSymbolNotFound = errors.New("symbol not found in instrument master")

type reverseEntry struct {
	symbol  string
	segment string
}

// SymbolService resolves trading symbols to provider instrument keys and
// back. The lookup tables are loaded once via single-flight and replaced
// wholesale on refresh, never patched in place.
type SymbolService struct {
	repo     *repository.InstrumentRepository
	state    *state.State
	upstox   *provider.UpstoxClient
	sf       singleflight.Group
	mu       sync.RWMutex
	loaded   bool
	mappings map[string]string
	reverse  map[string]reverseEntry
}

// NewSymbolService creates a new symbol service
func NewSymbolService(db *gorm.DB, upstox *provider.UpstoxClient) *SymbolService {
	stateManager, err := state.NewState(db)
	if err != nil {
		zaplogger.Fatal("failed to create state manager", zaplogger.Fields{"error": err})
	}
	return &SymbolService{
		repo:     repository.NewInstrumentRepository(db),
		state:    stateManager,
		upstox:   upstox,
		mappings: make(map[string]string),
		reverse:  make(map[string]reverseEntry),
	}
}

// EnsureLoaded loads the instrument master if it is not loaded yet. The load
// runs at most once even under concurrent callers; everyone else either
// waits for the in-flight load or returns immediately. Load order: fresh
// persisted table, then a new download, then the stale persisted table. An
// error here is fatal to the caller - nothing downstream can operate
// without the mappings.
func (s *SymbolService) EnsureLoaded(ctx context.Context) error {
	if s.isLoaded() {
		return nil
	}
	_, err, _ := s.sf.Do("load", func() (interface{}, error) {
		if s.isLoaded() {
			return nil, nil
		}
		return nil, s.load(ctx)
	})
	return err
}

// RefreshInstruments forces a fresh download of the instrument master,
// replacing both the persisted table and the in-memory mappings.
func (s *SymbolService) RefreshInstruments(ctx context.Context) error {
	_, err, _ := s.sf.Do("load", func() (interface{}, error) {
		instruments, err := s.downloadAndPersist(ctx)
		if err != nil {
			return nil, err
		}
		s.install(instruments)
		return nil, nil
	})
	return err
}

func (s *SymbolService) isLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

func (s *SymbolService) load(ctx context.Context) error {
	// Persisted table first, if fresh enough
	updatedAtValue, err := s.state.Get(instrumentsUpdatedAtKey)
	if err == nil && s.isPersistedFresh(updatedAtValue) {
		instruments, err := s.repo.GetAllInstruments()
		if err == nil && len(instruments) > 0 {
			s.install(instruments)
			zaplogger.Info("Instrument master loaded from persisted table", zaplogger.Fields{
				"count":                 len(instruments),
				instrumentsUpdatedAtKey: updatedAtValue,
			})
			return nil
		}
	}

	// Stale or missing, download a fresh master
	instruments, err := s.downloadAndPersist(ctx)
	if err != nil {
		zaplogger.Warn("Instrument master download failed, trying stale table", zaplogger.Fields{
			"error": err.Error(),
		})
		stale, staleErr := s.repo.GetAllInstruments()
		if staleErr == nil && len(stale) > 0 {
			s.install(stale)
			zaplogger.Info("Instrument master loaded from stale persisted table", zaplogger.Fields{
				"count": len(stale),
			})
			return nil
		}
		return fmt.Errorf("no instrument master available: %v", err)
	}

	s.install(instruments)
	zaplogger.Info("Instrument master downloaded", zaplogger.Fields{
		"count": len(instruments),
	})
	return nil
}

// isPersistedFresh checks whether the persisted table is younger than the
// freshness threshold.
func (s *SymbolService) isPersistedFresh(updatedAtValue string) bool {
	if updatedAtValue == "" {
		return false
	}
	updatedAt, err := time.Parse("2006-01-02 15:04:05", updatedAtValue)
	if err != nil {
		return false
	}
	return time.Since(updatedAt) < instrumentsMaxAge
}

// downloadAndPersist fetches the provider master file, filters it to the
// carried segments and atomically replaces the persisted table.
func (s *SymbolService) downloadAndPersist(ctx context.Context) ([]models.InstrumentModel, error) {
	rows, err := s.upstox.InstrumentMaster(ctx)
	if err != nil {
		return nil, err
	}

	instruments := make([]models.InstrumentModel, 0, len(rows))
	for _, row := range rows {
		if row.Segment != models.SegmentEquity && row.Segment != models.SegmentIndex {
			continue
		}
		instruments = append(instruments, models.InstrumentModel{
			InstrumentKey: row.InstrumentKey,
			Tradingsymbol: row.TradingSymbol,
			Name:          row.Name,
			Segment:       row.Segment,
			Exchange:      row.Exchange,
			ISIN:          row.ISIN,
			LotSize:       row.LotSize,
			TickSize:      row.TickSize,
		})
	}
	if len(instruments) == 0 {
		return nil, fmt.Errorf("instrument master contained no usable rows")
	}

	totalInserted, err := s.repo.ReplaceInstruments(instruments, instrumentInsertBatchSize)
	if err != nil {
		return nil, err
	}

	if err := s.state.Set(instrumentsUpdatedAtKey, time.Now().Format("2006-01-02 15:04:05")); err != nil {
		return nil, fmt.Errorf("failed to update state: %v", err)
	}

	zaplogger.Info("Instrument master persisted", zaplogger.Fields{
		"totalInserted": totalInserted,
	})
	return instruments, nil
}

// install replaces both lookup tables in one swap
func (s *SymbolService) install(instruments []models.InstrumentModel) {
	mappings := make(map[string]string, len(instruments))
	reverse := make(map[string]reverseEntry, len(instruments))

	for _, instrument := range instruments {
		symbol := strings.ToUpper(instrument.Tradingsymbol)
		mappings[symbol] = instrument.InstrumentKey
		reverse[instrument.InstrumentKey] = reverseEntry{symbol: symbol, segment: instrument.Segment}

		if instrument.Segment == models.SegmentIndex {
			switch {
			case instrument.Name == "Nifty 50" || instrument.Tradingsymbol == "Nifty 50":
				mappings["NIFTY"] = instrument.InstrumentKey
			case instrument.Name == "Nifty Bank" || instrument.Tradingsymbol == "Nifty Bank":
				mappings["BANKNIFTY"] = instrument.InstrumentKey
			}
		}
	}

	s.mu.Lock()
	s.mappings = mappings
	s.reverse = reverse
	s.loaded = true
	s.mu.Unlock()
}

// Resolve maps a trading symbol to its provider instrument key. Input is
// case-normalized and the unified index notation is stripped to its bare
// name. Exact match only.
func (s *SymbolService) Resolve(symbol string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(symbol))
	if strings.HasPrefix(normalized, indexNotationPrefix) {
		parts := strings.Split(normalized, "|")
		normalized = parts[len(parts)-1]
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.mappings[normalized]
	if !ok {
		return "", ErrSymbolNotFound
	}
	return key, nil
}

// ReverseResolve maps a provider instrument key back to its trading symbol.
// Index instruments come back in the unified index notation. An unknown key
// is returned unchanged, never an error.
func (s *SymbolService) ReverseResolve(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.reverse[key]
	if !ok {
		return key
	}
	if entry.segment == models.SegmentIndex {
		switch entry.symbol {
		case "NIFTY 50":
			return indexNotationPrefix + "NIFTY"
		case "NIFTY BANK":
			return indexNotationPrefix + "BANKNIFTY"
		}
	}
	return entry.symbol
}
