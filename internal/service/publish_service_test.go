package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNextBackoffDoubles(t *testing.T) {
	assert.Equal(t, 2*time.Second, nextBackoff(1*time.Second))
	assert.Equal(t, 4*time.Second, nextBackoff(2*time.Second))
	assert.Equal(t, 32*time.Second, nextBackoff(16*time.Second))
}

func TestNextBackoffCapsAtCeiling(t *testing.T) {
	assert.Equal(t, backoffCeiling, nextBackoff(32*time.Second))
	assert.Equal(t, backoffCeiling, nextBackoff(60*time.Second))
	assert.Equal(t, backoffCeiling, nextBackoff(5*time.Minute))
}

func TestBackoffSequenceFromFloor(t *testing.T) {
	// 1, 2, 4, 8, 16, 32, 60, 60, ...
	want := []time.Duration{
		2 * time.Second, 4 * time.Second, 8 * time.Second,
		16 * time.Second, 32 * time.Second, 60 * time.Second, 60 * time.Second,
	}

	backoff := backoffFloor
	for i, expected := range want {
		backoff = nextBackoff(backoff)
		assert.Equal(t, expected, backoff, "step %d", i)
	}
}

func TestYahooSymbolMapping(t *testing.T) {
	assert.Equal(t, "^NSEI", yahooSymbol("NIFTY"))
	assert.Equal(t, "^NSEBANK", yahooSymbol("BANKNIFTY"))
	assert.Equal(t, "RELIANCE.NS", yahooSymbol("RELIANCE"))
}
