package model

import "time"

// Direction is a trade direction vote: buy, sell, or stay flat.
type Direction string

const (
	Buy  Direction = "BUY"
	Sell Direction = "SELL"
	Hold Direction = "HOLD"
)

// Sign maps a direction onto the weighted-vote axis: Buy=+1, Sell=-1, Hold=0.
func (d Direction) Sign() float64 {
	switch d {
	case Buy:
		return 1
	case Sell:
		return -1
	}
	return 0
}

// Signal is one strategy's directional opinion for one bar.
// Strength is normalized conviction in [0,1]; Hold signals carry strength 0.
type Signal struct {
	StrategyID string             `json:"strategy_id"`
	TS         time.Time          `json:"ts"`
	Direction  Direction          `json:"direction"`
	Strength   float64            `json:"strength"`
	Reason     string             `json:"reason,omitempty"`
	Metadata   map[string]float64 `json:"metadata,omitempty"`
}

// Decision is the aggregator's combined directional output for one bar.
type Decision struct {
	Symbol       string    `json:"symbol"`
	TS           time.Time `json:"ts"`
	Direction    Direction `json:"direction"`
	Confidence   float64   `json:"confidence"` // |weighted score|, in [0,1]
	Price        float64   `json:"price"`      // close of the decided bar
	Contributing []Signal  `json:"contributing,omitempty"`
}
