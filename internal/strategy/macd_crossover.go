package strategy

import (
	"fmt"
	"math"

	"cryptobotv1/internal/indicator"
	"cryptobotv1/internal/model"
)

// MACDParams configures the MACD crossover strategy.
type MACDParams struct {
	Fast   int
	Slow   int
	Signal int
}

// DefaultMACDParams returns the standard 12/26/9 setup.
func DefaultMACDParams() MACDParams {
	return MACDParams{Fast: 12, Slow: 26, Signal: 9}
}

// MACDCrossover signals on signal-line crossovers, zero-line crossovers,
// and histogram acceleration. A crossover on the far side of the zero
// line carries extra conviction.
type MACDCrossover struct {
	params MACDParams
}

// NewMACDCrossover creates the strategy with the given parameters.
func NewMACDCrossover(p MACDParams) *MACDCrossover {
	return &MACDCrossover{params: p}
}

func (s *MACDCrossover) Name() string { return NameMACDCrossover }

func (s *MACDCrossover) Evaluate(window []model.Bar) model.Signal {
	ts := lastTS(window)
	closes := indicator.Closes(window)

	cur, err := indicator.MACD(closes, s.params.Fast, s.params.Slow, s.params.Signal)
	if err != nil {
		return hold(s.Name(), ts, "insufficient data")
	}
	prev, err := indicator.MACD(closes[:len(closes)-1], s.params.Fast, s.params.Slow, s.params.Signal)
	if err != nil {
		return hold(s.Name(), ts, "insufficient data")
	}

	sig := model.Signal{
		StrategyID: s.Name(),
		TS:         ts,
		Metadata: map[string]float64{
			"macd":      cur.Line,
			"signal":    cur.Signal,
			"histogram": cur.Histogram,
		},
	}

	// Signal-line crossovers.
	if prev.Line <= prev.Signal && cur.Line > cur.Signal {
		sig.Direction = model.Buy
		sig.Strength = 0.70
		if cur.Line < 0 { // crossover below zero line: stronger reversal
			sig.Strength = 0.80
		}
		sig.Reason = fmt.Sprintf("MACD bullish crossover (%.6f)", cur.Line)
		return sig
	}
	if prev.Line >= prev.Signal && cur.Line < cur.Signal {
		sig.Direction = model.Sell
		sig.Strength = 0.70
		if cur.Line > 0 {
			sig.Strength = 0.80
		}
		sig.Reason = fmt.Sprintf("MACD bearish crossover (%.6f)", cur.Line)
		return sig
	}

	// Histogram acceleration while already on one side of zero.
	if cur.Histogram > 0 && prev.Histogram > 0 && cur.Histogram > prev.Histogram {
		if accel := (cur.Histogram - prev.Histogram) / math.Abs(prev.Histogram); accel > 0.5 {
			sig.Direction = model.Buy
			sig.Strength = 0.60
			sig.Reason = fmt.Sprintf("MACD histogram acceleration (+%.0f%%)", accel*100)
			return sig
		}
	}
	if cur.Histogram < 0 && prev.Histogram < 0 && cur.Histogram < prev.Histogram {
		if accel := (prev.Histogram - cur.Histogram) / math.Abs(prev.Histogram); accel > 0.5 {
			sig.Direction = model.Sell
			sig.Strength = 0.60
			sig.Reason = "MACD histogram downside acceleration"
			return sig
		}
	}

	// Zero-line crossovers.
	if prev.Line < 0 && cur.Line > 0 {
		sig.Direction = model.Buy
		sig.Strength = 0.65
		sig.Reason = "MACD crossed above zero line"
		return sig
	}
	if prev.Line > 0 && cur.Line < 0 {
		sig.Direction = model.Sell
		sig.Strength = 0.65
		sig.Reason = "MACD crossed below zero line"
		return sig
	}

	return hold(s.Name(), ts, "no signal")
}
