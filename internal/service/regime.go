package service

import "github.com/sosengine/databridge/internal/models"

// ClassifyRegime turns the NIFTY put/call ratio and the market advance/
// decline counts into a discrete market regime. The threshold rules overlap
// on purpose and are evaluated strictly in order; the final catch-all makes
// the function total.
func ClassifyRegime(pcr float64, advances, declines int) models.Regime {
	ratio := float64(advances)
	if declines > 0 {
		ratio = float64(advances) / float64(declines)
	}

	switch {
	case pcr < 0.8 && ratio > 1.5:
		return models.RegimeCompleteBullish
	case pcr < 0.9 && ratio > 1.2:
		return models.RegimeBullish
	case pcr < 1.0 && ratio > 1.0:
		return models.RegimeSidewaysBullish
	case pcr > 1.2 && ratio < 0.7:
		return models.RegimeCompleteBearish
	case pcr > 1.1 && ratio < 0.9:
		return models.RegimeBearish
	case pcr > 1.0 && ratio < 1.0:
		return models.RegimeSidewaysBearish
	default:
		return models.RegimeSideways
	}
}
