package strategy

import (
	"fmt"

	"cryptobotv1/internal/indicator"
	"cryptobotv1/internal/model"
)

// SuperTrendParams configures the SuperTrend strategy.
type SuperTrendParams struct {
	Period     int
	Multiplier float64
}

// DefaultSuperTrendParams returns the standard 10-period, 3x-ATR setup.
func DefaultSuperTrendParams() SuperTrendParams {
	return SuperTrendParams{Period: 10, Multiplier: 3.0}
}

// SuperTrendStrategy follows the ATR trend line: a direction flip is the
// primary signal, price pressing against the line inside a trend is a
// continuation signal.
type SuperTrendStrategy struct {
	params SuperTrendParams
}

// NewSuperTrend creates the strategy with the given parameters.
func NewSuperTrend(p SuperTrendParams) *SuperTrendStrategy {
	return &SuperTrendStrategy{params: p}
}

func (s *SuperTrendStrategy) Name() string { return NameSuperTrend }

func (s *SuperTrendStrategy) Evaluate(window []model.Bar) model.Signal {
	ts := lastTS(window)
	n := len(window)

	cur, err := indicator.SuperTrend(window, s.params.Period, s.params.Multiplier)
	if err != nil {
		return hold(s.Name(), ts, "insufficient data")
	}
	prev, err := indicator.SuperTrend(window[:n-1], s.params.Period, s.params.Multiplier)
	if err != nil {
		return hold(s.Name(), ts, "insufficient data")
	}

	price := window[n-1].Close
	sig := model.Signal{
		StrategyID: s.Name(),
		TS:         ts,
		Metadata: map[string]float64{
			"supertrend": cur.Value,
			"direction":  float64(cur.Direction),
		},
	}

	// Trend flips.
	if prev.Direction == -1 && cur.Direction == 1 {
		sig.Direction = model.Buy
		sig.Strength = 0.80
		sig.Reason = fmt.Sprintf("SuperTrend bullish flip (%.6f)", cur.Value)
		return sig
	}
	if prev.Direction == 1 && cur.Direction == -1 {
		sig.Direction = model.Sell
		sig.Strength = 0.80
		sig.Reason = fmt.Sprintf("SuperTrend bearish flip (%.6f)", cur.Value)
		return sig
	}

	// Continuation when price is within 1% of the trend line.
	if cur.Direction == 1 && price > 0 {
		if dist := (price - cur.Value) / price; dist >= 0 && dist < 0.01 {
			sig.Direction = model.Buy
			sig.Strength = 0.65
			sig.Reason = "price near SuperTrend support"
			sig.Metadata["distance"] = dist
			return sig
		}
	}
	if cur.Direction == -1 && price > 0 {
		if dist := (cur.Value - price) / price; dist >= 0 && dist < 0.01 {
			sig.Direction = model.Sell
			sig.Strength = 0.65
			sig.Reason = "price near SuperTrend resistance"
			sig.Metadata["distance"] = dist
			return sig
		}
	}

	return hold(s.Name(), ts, "no signal")
}
