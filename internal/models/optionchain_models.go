// Package models contains the models for the SOS Bridge
package models

// OptionAggregatesTableName is the name of the table for option chain aggregates
var OptionAggregatesTableName = "option_aggregates"

// OptionStrikesTableName is the name of the table for per-strike option chain rows
var OptionStrikesTableName = "option_chain_details"

// OptionAggregateModel represents the whole-chain open interest totals for one
// (symbol, timestamp) snapshot. Timestamp is epoch seconds.
type OptionAggregateModel struct {
	Symbol      string  `gorm:"primaryKey" json:"symbol"`
	Timestamp   int64   `gorm:"primaryKey" json:"timestamp"`
	Expiry      string  `json:"expiry"`
	TotalCallOI int64   `gorm:"column:total_call_oi" json:"total_call_oi"`
	TotalPutOI  int64   `gorm:"column:total_put_oi" json:"total_put_oi"`
	PCR         float64 `gorm:"column:pcr" json:"pcr"`
}

// TableName specifies the table name for the OptionAggregate model
func (OptionAggregateModel) TableName() string {
	return OptionAggregatesTableName
}

// IsValid reports whether the aggregate carries any open interest at all.
// A snapshot with both totals at zero must not be persisted.
func (a OptionAggregateModel) IsValid() bool {
	return a.TotalCallOI > 0 || a.TotalPutOI > 0
}

// OptionStrikeModel represents the open interest of a single strike within a
// (symbol, timestamp) snapshot.
type OptionStrikeModel struct {
	Symbol    string  `gorm:"primaryKey" json:"-"`
	Timestamp int64   `gorm:"primaryKey" json:"-"`
	Strike    float64 `gorm:"primaryKey" json:"strike"`
	CallOI    int64   `gorm:"column:call_oi" json:"call_oi"`
	PutOI     int64   `gorm:"column:put_oi" json:"put_oi"`
	CallOIChg int64   `gorm:"column:call_oi_chg" json:"call_oi_chg"`
	PutOIChg  int64   `gorm:"column:put_oi_chg" json:"put_oi_chg"`
}

// TableName specifies the table name for the OptionStrike model
func (OptionStrikeModel) TableName() string {
	return OptionStrikesTableName
}

// ComputePCR returns putOI/callOI rounded to two decimals, or the 1.0 sentinel
// when there is no call open interest to divide by.
func ComputePCR(totalCallOI, totalPutOI int64) float64 {
	if totalCallOI <= 0 {
		return 1.0
	}
	pcr := float64(totalPutOI) / float64(totalCallOI)
	return float64(int64(pcr*100+0.5)) / 100
}
