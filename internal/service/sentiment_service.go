package service

import (
	"context"
	"sync"
	"time"

	"github.com/sosengine/databridge/internal/fetcher"
	"github.com/sosengine/databridge/internal/models"
	"github.com/sosengine/databridge/internal/provider"
	"github.com/sosengine/databridge/internal/repository"
	"github.com/sosengine/databridge/pkg/utils/zaplogger"
	"gorm.io/gorm"
)

const sentimentFetchTimeout = 15 * time.Second

// breadthIndexName labels the market-wide advance/decline row in the
// breadth history table.
const breadthIndexName = "NIFTY_TOTAL"

// breadthCounts is the advance/decline pair fetched each sentiment cycle
type breadthCounts struct {
	Advances int
	Declines int
}

// SentimentService maintains the process-wide sentiment state: per-index PCR,
// market breadth and the derived regime. Fields that fail to refresh keep
// their previous value; the state never goes backwards to neutral.
type SentimentService struct {
	repo         *repository.SnapshotRepository
	breadthChain *fetcher.Chain[breadthCounts]
	pcrChains    map[string]*fetcher.Chain[float64]

	mu    sync.RWMutex
	state *models.SentimentState
}

// NewSentimentService creates a new sentiment service
func NewSentimentService(db *gorm.DB, nse *provider.NSEClient) *SentimentService {
	repo := repository.NewSnapshotRepository(db)

	s := &SentimentService{
		repo:      repo,
		pcrChains: make(map[string]*fetcher.Chain[float64], len(TrackedIndices)),
		state:     models.NewSentimentState(TrackedIndices),
	}

	s.breadthChain = fetcher.NewChain("breadth", sentimentFetchTimeout, nil,
		fetcher.Func("nse-breadth", func(ctx context.Context) (breadthCounts, error) {
			advances, declines, err := nse.MarketBreadth(ctx)
			if err != nil {
				return breadthCounts{}, err
			}
			if advances == 0 && declines == 0 {
				return breadthCounts{}, fetcher.ErrNoData
			}
			return breadthCounts{Advances: advances, Declines: declines}, nil
		}),
	)

	for _, index := range TrackedIndices {
		index := index
		s.pcrChains[index] = fetcher.NewChain("pcr-"+index, sentimentFetchTimeout, nil,
			fetcher.Func("nse-option-chain", func(ctx context.Context) (float64, error) {
				callOI, putOI, err := nse.OptionChainTotals(ctx, index)
				if err != nil {
					return 0, err
				}
				if callOI == 0 && putOI == 0 {
					return 0, fetcher.ErrNoData
				}
				return models.ComputePCR(callOI, putOI), nil
			}),
			fetcher.Func("snapshot-store", func(ctx context.Context) (float64, error) {
				aggregate, err := repo.GetLatestAggregate(index)
				if err != nil {
					return 0, err
				}
				if aggregate == nil {
					return 0, fetcher.ErrNoData
				}
				return aggregate.PCR, nil
			}),
		)
	}
	return s
}

// UpdateCycle refreshes breadth and every index PCR, then reclassifies the
// regime from whatever values are current. Each field updates independently;
// a field whose chain is exhausted keeps its previous value.
func (s *SentimentService) UpdateCycle(ctx context.Context) models.SentimentState {
	if counts, _, err := s.breadthChain.Fetch(ctx); err == nil {
		s.mu.Lock()
		s.state.Advances = counts.Advances
		s.state.Declines = counts.Declines
		s.mu.Unlock()

		ratio := float64(counts.Advances)
		if counts.Declines > 0 {
			ratio = float64(counts.Advances) / float64(counts.Declines)
		}
		if err := s.repo.SaveBreadth(models.BreadthModel{
			Timestamp: time.Now().Unix(),
			Index:     breadthIndexName,
			Advances:  counts.Advances,
			Declines:  counts.Declines,
			Ratio:     ratio,
		}); err != nil {
			zaplogger.Warn("failed to persist market breadth", zaplogger.Fields{
				"error": err.Error(),
			})
		}
	}

	for index, chain := range s.pcrChains {
		if pcr, _, err := chain.Fetch(ctx); err == nil {
			s.mu.Lock()
			s.state.PCR[index] = pcr
			s.mu.Unlock()
		}
	}

	s.mu.Lock()
	s.state.Regime = ClassifyRegime(s.state.PCR["NIFTY"], s.state.Advances, s.state.Declines)
	snapshot := s.copyStateLocked()
	s.mu.Unlock()
	return snapshot
}

// Snapshot returns a copy of the current sentiment state
func (s *SentimentService) Snapshot() models.SentimentState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyStateLocked()
}

func (s *SentimentService) copyStateLocked() models.SentimentState {
	pcr := make(map[string]float64, len(s.state.PCR))
	for k, v := range s.state.PCR {
		pcr[k] = v
	}
	return models.SentimentState{
		PCR:      pcr,
		Advances: s.state.Advances,
		Declines: s.state.Declines,
		Regime:   s.state.Regime,
	}
}
