// Package models contains the models for the SOS Bridge
package models

import "time"

// InstrumentsTableName is the name of the table for instruments
var InstrumentsTableName = "instruments"

// Instrument segments carried by the bridge. Everything else in the
// provider master file is filtered out at load time.
const (
	SegmentEquity = "NSE_EQ"
	SegmentIndex  = "NSE_INDEX"
)

// InstrumentModel represents one row of the provider instrument master
type InstrumentModel struct {
	InstrumentKey string    `gorm:"primaryKey" json:"instrument_key"`
	Tradingsymbol string    `gorm:"index" json:"trading_symbol"`
	Name          string    `json:"name"`
	Segment       string    `gorm:"index" json:"segment"`
	Exchange      string    `json:"exchange"`
	ISIN          string    `json:"isin"`
	LotSize       uint      `json:"lot_size"`
	TickSize      float64   `json:"tick_size"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"-"`
}

// TableName specifies the table name for the Instrument model
func (InstrumentModel) TableName() string {
	return InstrumentsTableName
}

// QueryInstrumentsParams is the parameters for the QueryInstruments endpoint
type QueryInstrumentsParams struct {
	Tradingsymbol string `query:"tradingsymbol"`
	Name          string `query:"name"`
	Segment       string `query:"segment"`
	ISIN          string `query:"isin"`
}
