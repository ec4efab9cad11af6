package strategy

import (
	"fmt"

	"cryptobotv1/internal/indicator"
	"cryptobotv1/internal/model"
)

// BollingerParams configures the Bollinger band strategy.
type BollingerParams struct {
	Period     int
	StdDevMult float64
}

// DefaultBollingerParams returns the standard 20-period, 2-sigma setup.
func DefaultBollingerParams() BollingerParams {
	return BollingerParams{Period: 20, StdDevMult: 2.0}
}

// Bollinger signals on band touches and bounces, with extra conviction
// when the bands have been squeezing (width contracting vs 4 bars ago).
type Bollinger struct {
	params BollingerParams
}

// NewBollinger creates the strategy with the given parameters.
func NewBollinger(p BollingerParams) *Bollinger {
	return &Bollinger{params: p}
}

func (s *Bollinger) Name() string { return NameBollinger }

func (s *Bollinger) Evaluate(window []model.Bar) model.Signal {
	ts := lastTS(window)
	closes := indicator.Closes(window)
	n := len(closes)
	if n < s.params.Period+5 {
		return hold(s.Name(), ts, "insufficient data")
	}

	cur, err := indicator.Bollinger(closes, s.params.Period, s.params.StdDevMult)
	if err != nil {
		return hold(s.Name(), ts, "insufficient data")
	}
	prev, err := indicator.Bollinger(closes[:n-1], s.params.Period, s.params.StdDevMult)
	if err != nil {
		return hold(s.Name(), ts, "insufficient data")
	}
	old, err := indicator.Bollinger(closes[:n-4], s.params.Period, s.params.StdDevMult)
	if err != nil {
		return hold(s.Name(), ts, "insufficient data")
	}

	squeeze := cur.Width < old.Width*0.7

	sig := model.Signal{
		StrategyID: s.Name(),
		TS:         ts,
		Metadata: map[string]float64{
			"pct_b":    cur.PctB,
			"bb_width": cur.Width,
		},
	}

	switch {
	case cur.PctB <= 0.05:
		sig.Direction = model.Buy
		sig.Strength = 0.65
		if squeeze {
			sig.Strength = 0.75
		}
		sig.Reason = fmt.Sprintf("lower band touch (%%B: %.2f)", cur.PctB)

	case prev.PctB <= 0.05 && cur.PctB > 0.10:
		sig.Direction = model.Buy
		sig.Strength = 0.70
		sig.Reason = fmt.Sprintf("lower band bounce (%.2f -> %.2f)", prev.PctB, cur.PctB)

	case cur.PctB >= 0.95:
		sig.Direction = model.Sell
		sig.Strength = 0.65
		if squeeze {
			sig.Strength = 0.75
		}
		sig.Reason = fmt.Sprintf("upper band touch (%%B: %.2f)", cur.PctB)

	case prev.PctB >= 0.95 && cur.PctB < 0.90:
		sig.Direction = model.Sell
		sig.Strength = 0.70
		sig.Reason = fmt.Sprintf("upper band rejection (%.2f -> %.2f)", prev.PctB, cur.PctB)

	default:
		return hold(s.Name(), ts, "inside bands")
	}

	return sig
}
