// Package models contains the models for the SOS Bridge
package models

// SourceTier identifies which fallback tier produced a fetched value
type SourceTier string

const (
	TierPrimary   SourceTier = "PRIMARY"
	TierSecondary SourceTier = "SECONDARY"
	TierTertiary  SourceTier = "TERTIARY"
)

// ConnectionState is the lifecycle state of the outbound streaming
// connection, owned exclusively by the publish supervisor.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "DISCONNECTED"
	StateConnecting   ConnectionState = "CONNECTING"
	StateConnected    ConnectionState = "CONNECTED"
)

// MessageType is the outbound message discriminator
type MessageType string

const (
	MessageCandleUpdate      MessageType = "CANDLE_UPDATE"
	MessageSentimentUpdate   MessageType = "SENTIMENT_UPDATE"
	MessageOptionChainUpdate MessageType = "OPTION_CHAIN_UPDATE"
)

// Message is the self-contained envelope sent over the streaming connection.
// Timestamp is epoch milliseconds.
type Message struct {
	Type      MessageType `json:"type"`
	Timestamp int64       `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// CandleSnapshot is the transient per-symbol result of one candle fetch cycle.
// It is overwritten every cycle and never persisted by the bridge.
type CandleSnapshot struct {
	Symbol    string
	Timestamp int64 // epoch millis
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    int64
	Source    SourceTier
}

// CandleOHLCV is the candle payload sent inside a CANDLE_UPDATE message
type CandleOHLCV struct {
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// CandlePayload is the data section of a CANDLE_UPDATE message
type CandlePayload struct {
	Symbol string      `json:"symbol"`
	Candle CandleOHLCV `json:"candle"`
}

// SentimentPayload is the data section of a SENTIMENT_UPDATE message
type SentimentPayload struct {
	Regime string `json:"regime"`
}

// OptionChainPayload is the data section of an OPTION_CHAIN_UPDATE message
type OptionChainPayload struct {
	Symbol string              `json:"symbol"`
	Chain  []OptionStrikeModel `json:"chain"`
}

// CandleMessage wraps a candle snapshot into the outbound envelope
func CandleMessage(c CandleSnapshot) Message {
	return Message{
		Type:      MessageCandleUpdate,
		Timestamp: c.Timestamp,
		Data: CandlePayload{
			Symbol: c.Symbol,
			Candle: CandleOHLCV{
				Open:   c.Open,
				High:   c.High,
				Low:    c.Low,
				Close:  c.Close,
				Volume: c.Volume,
			},
		},
	}
}
