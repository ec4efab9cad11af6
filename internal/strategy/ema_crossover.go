package strategy

import (
	"cryptobotv1/internal/indicator"
	"cryptobotv1/internal/model"
)

// EMAParams configures the triple-EMA crossover strategy.
type EMAParams struct {
	Fast    int
	Mid     int
	Slow    int
	MinBars int // bars required before evaluating at all
}

// DefaultEMAParams returns the standard 9/21/55 stack.
func DefaultEMAParams() EMAParams {
	return EMAParams{Fast: 9, Mid: 21, Slow: 55, MinBars: 60}
}

// EMACrossover follows the 9/21/55 EMA stack: golden/death crosses carry
// the most conviction, an aligned stack signals trend continuation, and
// a reclaimed fast EMA after a pull-back re-enters the trend.
type EMACrossover struct {
	params EMAParams
}

// NewEMACrossover creates the strategy with the given parameters.
func NewEMACrossover(p EMAParams) *EMACrossover {
	return &EMACrossover{params: p}
}

func (s *EMACrossover) Name() string { return NameEMACrossover }

func (s *EMACrossover) Evaluate(window []model.Bar) model.Signal {
	ts := lastTS(window)
	closes := indicator.Closes(window)
	n := len(closes)
	if n < s.params.MinBars {
		return hold(s.Name(), ts, "insufficient data")
	}

	fast, err1 := indicator.EMA(closes, s.params.Fast)
	mid, err2 := indicator.EMA(closes, s.params.Mid)
	slow, err3 := indicator.EMA(closes, s.params.Slow)
	prevFast, err4 := indicator.EMA(closes[:n-1], s.params.Fast)
	prevMid, err5 := indicator.EMA(closes[:n-1], s.params.Mid)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil || err5 != nil {
		return hold(s.Name(), ts, "insufficient data")
	}

	price := closes[n-1]
	crossedUp := prevFast <= prevMid && fast > mid
	crossedDown := prevFast >= prevMid && fast < mid

	sig := model.Signal{
		StrategyID: s.Name(),
		TS:         ts,
		Metadata: map[string]float64{
			"ema_fast": fast,
			"ema_mid":  mid,
			"ema_slow": slow,
		},
	}

	// Full bullish stack.
	if fast > mid && mid > slow {
		if crossedUp {
			sig.Direction = model.Buy
			sig.Strength = 0.85
			sig.Reason = "EMA golden cross (9 > 21 > 55)"
			return sig
		}
		sig.Direction = model.Buy
		sig.Strength = 0.60
		sig.Reason = "uptrend intact (9 > 21 > 55)"
		return sig
	}

	// Full bearish stack.
	if fast < mid && mid < slow {
		if crossedDown {
			sig.Direction = model.Sell
			sig.Strength = 0.85
			sig.Reason = "EMA death cross (9 < 21 < 55)"
			return sig
		}
		sig.Direction = model.Sell
		sig.Strength = 0.60
		sig.Reason = "downtrend intact (9 < 21 < 55)"
		return sig
	}

	// Fast/mid cross without full stack alignment.
	if crossedUp {
		sig.Direction = model.Buy
		sig.Strength = 0.65
		sig.Reason = "EMA 9/21 bullish cross"
		return sig
	}
	if crossedDown {
		sig.Direction = model.Sell
		sig.Strength = 0.65
		sig.Reason = "EMA 9/21 bearish cross"
		return sig
	}

	// Pull-back reclaim: price dipped under the fast EMA and came back.
	if price > fast && fast > mid && closes[n-3] < fast {
		sig.Direction = model.Buy
		sig.Strength = 0.60
		sig.Reason = "EMA pull-back reclaim"
		return sig
	}

	return hold(s.Name(), ts, "no signal")
}
