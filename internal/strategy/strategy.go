// Package strategy provides the trading strategies and the multi-strategy
// signal aggregator.
//
// A Strategy receives a trailing bar window and emits a directional Signal
// with a conviction strength. Strategies are pure: no shared state, no
// side effects, and never a bar beyond the end of the window; the
// backtest replays through the exact same code path as live trading.
package strategy

import (
	"time"

	"cryptobotv1/internal/model"
)

// Strategy is the interface all trading strategies implement.
type Strategy interface {
	// Name returns the unique strategy identifier (e.g. "rsi_reversal").
	Name() string

	// Evaluate analyzes the window (oldest first, ending at the current
	// bar) and returns a Signal for the last bar. A strategy that cannot
	// evaluate returns a Hold signal with strength 0.
	Evaluate(window []model.Bar) model.Signal
}

// Strategy identifiers.
const (
	NameRSIReversal    = "rsi_reversal"
	NameMACDCrossover  = "macd_crossover"
	NameBollinger      = "bollinger"
	NameEMACrossover   = "ema_crossover"
	NameVolumeSpike    = "volume_spike"
	NameSuperTrend     = "supertrend"
)

// DefaultStrategies returns the six standard strategies with default
// parameters.
func DefaultStrategies() []Strategy {
	return []Strategy{
		NewRSIReversal(DefaultRSIParams()),
		NewMACDCrossover(DefaultMACDParams()),
		NewBollinger(DefaultBollingerParams()),
		NewEMACrossover(DefaultEMAParams()),
		NewVolumeSpike(DefaultVolumeParams()),
		NewSuperTrend(DefaultSuperTrendParams()),
	}
}

// hold builds the non-evaluable / no-opinion signal for a strategy.
func hold(name string, ts time.Time, reason string) model.Signal {
	return model.Signal{
		StrategyID: name,
		TS:         ts,
		Direction:  model.Hold,
		Strength:   0,
		Reason:     reason,
	}
}

func lastTS(window []model.Bar) time.Time {
	if len(window) == 0 {
		return time.Time{}
	}
	return window[len(window)-1].TS
}
