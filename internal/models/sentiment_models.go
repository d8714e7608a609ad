// Package models contains the models for the SOS Bridge
package models

// BreadthTableName is the name of the table for market breadth history
var BreadthTableName = "market_breadth"

// Regime is a discrete market state derived from PCR and market breadth
type Regime string

const (
	RegimeUnknown         Regime = "UNKNOWN"
	RegimeCompleteBullish Regime = "COMPLETE_BULLISH"
	RegimeBullish         Regime = "BULLISH"
	RegimeSidewaysBullish Regime = "SIDEWAYS_BULLISH"
	RegimeCompleteBearish Regime = "COMPLETE_BEARISH"
	RegimeBearish         Regime = "BEARISH"
	RegimeSidewaysBearish Regime = "SIDEWAYS_BEARISH"
	RegimeSideways        Regime = "SIDEWAYS"
)

// SentimentState is the process-wide sentiment snapshot. It is mutated only by
// the sentiment publish cycle and read everywhere else.
type SentimentState struct {
	PCR      map[string]float64 `json:"pcr"`
	Advances int                `json:"advances"`
	Declines int                `json:"declines"`
	Regime   Regime             `json:"regime"`
}

// NewSentimentState returns the neutral state used before the first
// successful fetch.
func NewSentimentState(symbols []string) *SentimentState {
	pcr := make(map[string]float64, len(symbols))
	for _, s := range symbols {
		pcr[s] = 1.0
	}
	return &SentimentState{
		PCR:      pcr,
		Advances: 0,
		Declines: 0,
		Regime:   RegimeUnknown,
	}
}

// BreadthModel represents one persisted advance/decline observation
type BreadthModel struct {
	Timestamp int64   `gorm:"primaryKey" json:"timestamp"`
	Index     string  `gorm:"primaryKey" json:"index"`
	Advances  int     `json:"advances"`
	Declines  int     `json:"declines"`
	Ratio     float64 `json:"ratio"`
}

// TableName specifies the table name for the Breadth model
func (BreadthModel) TableName() string {
	return BreadthTableName
}
