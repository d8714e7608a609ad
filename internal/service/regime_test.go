package service

import (
	"testing"

	"github.com/sosengine/databridge/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestClassifyRegime(t *testing.T) {
	tests := []struct {
		name     string
		pcr      float64
		advances int
		declines int
		want     models.Regime
	}{
		{"strong bullish", 0.7, 1600, 1000, models.RegimeCompleteBullish},
		{"bullish", 0.85, 1300, 1000, models.RegimeBullish},
		{"sideways bullish", 0.95, 1100, 1000, models.RegimeSidewaysBullish},
		{"strong bearish", 1.3, 600, 1000, models.RegimeCompleteBearish},
		{"bearish", 1.15, 800, 1000, models.RegimeBearish},
		{"sideways bearish", 1.05, 900, 1000, models.RegimeSidewaysBearish},
		{"neutral", 1.0, 1000, 1000, models.RegimeSideways},
		{"conflicting signals fall through", 0.7, 600, 1000, models.RegimeSideways},
		{"low pcr but weak breadth", 0.85, 1100, 1000, models.RegimeSidewaysBullish},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyRegime(tt.pcr, tt.advances, tt.declines))
		})
	}
}

func TestClassifyRegimeZeroDeclines(t *testing.T) {
	// With no declining stocks the advance count itself is the ratio
	assert.Equal(t, models.RegimeCompleteBullish, ClassifyRegime(0.7, 500, 0))
	assert.Equal(t, models.RegimeSideways, ClassifyRegime(1.0, 0, 0))
}

func TestClassifyRegimeRuleOrder(t *testing.T) {
	// pcr 0.75 with ratio 1.6 satisfies the first three rules; the
	// strongest one must win because evaluation is ordered.
	assert.Equal(t, models.RegimeCompleteBullish, ClassifyRegime(0.75, 1600, 1000))

	// pcr 1.25 with ratio 0.6 satisfies all three bearish rules
	assert.Equal(t, models.RegimeCompleteBearish, ClassifyRegime(1.25, 600, 1000))
}
