package service

import (
	"testing"

	"github.com/sosengine/databridge/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSymbolService() *SymbolService {
	s := &SymbolService{
		mappings: make(map[string]string),
		reverse:  make(map[string]reverseEntry),
	}
	s.install([]models.InstrumentModel{
		{InstrumentKey: "NSE_EQ|INE002A01018", Tradingsymbol: "RELIANCE", Segment: models.SegmentEquity},
		{InstrumentKey: "NSE_EQ|INE062A01020", Tradingsymbol: "SBIN", Segment: models.SegmentEquity},
		{InstrumentKey: "NSE_INDEX|Nifty 50", Tradingsymbol: "Nifty 50", Name: "Nifty 50", Segment: models.SegmentIndex},
		{InstrumentKey: "NSE_INDEX|Nifty Bank", Tradingsymbol: "Nifty Bank", Name: "Nifty Bank", Segment: models.SegmentIndex},
	})
	return s
}

func TestResolveEquity(t *testing.T) {
	s := newTestSymbolService()

	key, err := s.Resolve("RELIANCE")
	require.NoError(t, err)
	assert.Equal(t, "NSE_EQ|INE002A01018", key)
}

func TestResolveNormalizesCase(t *testing.T) {
	s := newTestSymbolService()

	key, err := s.Resolve("reliance")
	require.NoError(t, err)
	assert.Equal(t, "NSE_EQ|INE002A01018", key)

	key, err = s.Resolve("  sbin ")
	require.NoError(t, err)
	assert.Equal(t, "NSE_EQ|INE062A01020", key)
}

func TestResolveIndexAliases(t *testing.T) {
	s := newTestSymbolService()

	key, err := s.Resolve("NIFTY")
	require.NoError(t, err)
	assert.Equal(t, "NSE_INDEX|Nifty 50", key)

	key, err = s.Resolve("BANKNIFTY")
	require.NoError(t, err)
	assert.Equal(t, "NSE_INDEX|Nifty Bank", key)
}

func TestResolveIndexNotation(t *testing.T) {
	s := newTestSymbolService()

	key, err := s.Resolve("NSE|INDEX|NIFTY")
	require.NoError(t, err)
	assert.Equal(t, "NSE_INDEX|Nifty 50", key)

	key, err = s.Resolve("NSE|INDEX|BANKNIFTY")
	require.NoError(t, err)
	assert.Equal(t, "NSE_INDEX|Nifty Bank", key)
}

func TestResolveUnknownSymbol(t *testing.T) {
	s := newTestSymbolService()

	_, err := s.Resolve("NOTREAL")
	assert.ErrorIs(t, err, ErrSymbolNotFound)

	// No fuzzy matching
	_, err = s.Resolve("RELIANC")
	assert.ErrorIs(t, err, ErrSymbolNotFound)
}

func TestReverseResolve(t *testing.T) {
	s := newTestSymbolService()

	assert.Equal(t, "RELIANCE", s.ReverseResolve("NSE_EQ|INE002A01018"))
	assert.Equal(t, "NSE|INDEX|NIFTY", s.ReverseResolve("NSE_INDEX|Nifty 50"))
	assert.Equal(t, "NSE|INDEX|BANKNIFTY", s.ReverseResolve("NSE_INDEX|Nifty Bank"))
}

func TestReverseResolveUnknownKeyPassesThrough(t *testing.T) {
	s := newTestSymbolService()

	assert.Equal(t, "NSE_EQ|UNKNOWN", s.ReverseResolve("NSE_EQ|UNKNOWN"))
}

func TestResolveReverseRoundTrip(t *testing.T) {
	s := newTestSymbolService()

	for _, symbol := range []string{"RELIANCE", "SBIN", "NSE|INDEX|NIFTY", "NSE|INDEX|BANKNIFTY"} {
		key, err := s.Resolve(symbol)
		require.NoError(t, err)
		assert.Equal(t, symbol, s.ReverseResolve(key), "round trip for %s", symbol)
	}
}

func TestInstallReplacesMappings(t *testing.T) {
	s := newTestSymbolService()

	s.install([]models.InstrumentModel{
		{InstrumentKey: "NSE_EQ|INE009A01021", Tradingsymbol: "INFY", Segment: models.SegmentEquity},
	})

	_, err := s.Resolve("RELIANCE")
	assert.ErrorIs(t, err, ErrSymbolNotFound)

	key, err := s.Resolve("INFY")
	require.NoError(t, err)
	assert.Equal(t, "NSE_EQ|INE009A01021", key)
}
