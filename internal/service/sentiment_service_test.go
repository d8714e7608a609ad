package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sosengine/databridge/internal/fetcher"
	"github.com/sosengine/databridge/internal/models"
	"github.com/stretchr/testify/assert"
)

func failingChain[T any](name string) *fetcher.Chain[T] {
	return fetcher.NewChain(name, time.Second, nil,
		fetcher.Func(name+"-source", func(ctx context.Context) (T, error) {
			var zero T
			return zero, errors.New("upstream down")
		}),
	)
}

func fixedChain[T any](name string, value T) *fetcher.Chain[T] {
	return fetcher.NewChain(name, time.Second, nil,
		fetcher.Func(name+"-source", func(ctx context.Context) (T, error) {
			return value, nil
		}),
	)
}

func TestUpdateCycleKeepsStaleValuesWhenAllSourcesFail(t *testing.T) {
	s := &SentimentService{
		breadthChain: failingChain[breadthCounts]("breadth"),
		pcrChains: map[string]*fetcher.Chain[float64]{
			"NIFTY":     failingChain[float64]("pcr-NIFTY"),
			"BANKNIFTY": failingChain[float64]("pcr-BANKNIFTY"),
		},
		state: models.NewSentimentState(TrackedIndices),
	}
	s.state.PCR["NIFTY"] = 0.7
	s.state.Advances = 1600
	s.state.Declines = 1000

	result := s.UpdateCycle(context.Background())

	assert.Equal(t, 0.7, result.PCR["NIFTY"])
	assert.Equal(t, 1600, result.Advances)
	assert.Equal(t, 1000, result.Declines)
	// Regime is still reclassified from the retained values
	assert.Equal(t, models.RegimeCompleteBullish, result.Regime)
}

func TestUpdateCycleUpdatesFieldsIndependently(t *testing.T) {
	// Breadth fails but PCR succeeds; only PCR moves
	s := &SentimentService{
		breadthChain: failingChain[breadthCounts]("breadth"),
		pcrChains: map[string]*fetcher.Chain[float64]{
			"NIFTY":     fixedChain("pcr-NIFTY", 1.3),
			"BANKNIFTY": failingChain[float64]("pcr-BANKNIFTY"),
		},
		state: models.NewSentimentState(TrackedIndices),
	}
	s.state.Advances = 600
	s.state.Declines = 1000

	result := s.UpdateCycle(context.Background())

	assert.Equal(t, 1.3, result.PCR["NIFTY"])
	assert.Equal(t, 1.0, result.PCR["BANKNIFTY"])
	assert.Equal(t, 600, result.Advances)
	assert.Equal(t, models.RegimeCompleteBearish, result.Regime)
}

func TestSnapshotReturnsIndependentCopy(t *testing.T) {
	s := &SentimentService{
		state: models.NewSentimentState(TrackedIndices),
	}

	snapshot := s.Snapshot()
	snapshot.PCR["NIFTY"] = 9.9

	assert.Equal(t, 1.0, s.Snapshot().PCR["NIFTY"])
}
