package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputePCR(t *testing.T) {
	assert.Equal(t, 1.25, ComputePCR(100, 125))
	assert.Equal(t, 0.5, ComputePCR(200, 100))
	assert.Equal(t, 1.0, ComputePCR(100, 100))
}

func TestComputePCRRoundsToTwoDecimals(t *testing.T) {
	// 1/3 rounds to 0.33, 2/3 rounds to 0.67
	assert.Equal(t, 0.33, ComputePCR(300, 100))
	assert.Equal(t, 0.67, ComputePCR(300, 200))
}

func TestComputePCRSentinelOnZeroCallOI(t *testing.T) {
	assert.Equal(t, 1.0, ComputePCR(0, 500))
	assert.Equal(t, 1.0, ComputePCR(0, 0))
	assert.Equal(t, 1.0, ComputePCR(-1, 500))
}

func TestAggregateValidity(t *testing.T) {
	assert.True(t, OptionAggregateModel{TotalCallOI: 100, TotalPutOI: 120}.IsValid())
	assert.True(t, OptionAggregateModel{TotalCallOI: 100}.IsValid())
	assert.True(t, OptionAggregateModel{TotalPutOI: 120}.IsValid())
	assert.False(t, OptionAggregateModel{}.IsValid())
}
