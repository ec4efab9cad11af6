package strategy

import (
	"fmt"
	"math"
	"time"

	"cryptobotv1/internal/indicator"
	"cryptobotv1/internal/model"
)

// RSIParams configures the RSI reversal strategy.
type RSIParams struct {
	Period     int
	Oversold   float64
	Overbought float64
}

// DefaultRSIParams returns the standard RSI(14) 30/70 setup.
func DefaultRSIParams() RSIParams {
	return RSIParams{Period: 14, Oversold: 30, Overbought: 70}
}

// RSIReversal is a mean-reversion strategy: it buys oversold conditions
// and exits from them, sells overbought ones, and watches for 20-bar
// price/RSI divergence.
type RSIReversal struct {
	params RSIParams
}

// NewRSIReversal creates the strategy with the given parameters.
func NewRSIReversal(p RSIParams) *RSIReversal {
	return &RSIReversal{params: p}
}

func (s *RSIReversal) Name() string { return NameRSIReversal }

func (s *RSIReversal) Evaluate(window []model.Bar) model.Signal {
	ts := lastTS(window)
	closes := indicator.Closes(window)

	cur, err := indicator.RSI(closes, s.params.Period)
	if err != nil {
		return hold(s.Name(), ts, "insufficient data")
	}
	prev, err := indicator.RSI(closes[:len(closes)-1], s.params.Period)
	if err != nil {
		return hold(s.Name(), ts, "insufficient data")
	}

	sig := model.Signal{
		StrategyID: s.Name(),
		TS:         ts,
		Metadata:   map[string]float64{"rsi": cur},
	}

	switch {
	case cur < s.params.Oversold:
		// Deep oversold: conviction grows with the distance below the zone.
		depth := math.Min(1, (s.params.Oversold-cur)/20)
		sig.Direction = model.Buy
		sig.Strength = 0.6 + depth*0.4
		sig.Reason = fmt.Sprintf("RSI oversold: %.1f", cur)
		return sig

	case prev < s.params.Oversold && cur > s.params.Oversold:
		sig.Direction = model.Buy
		sig.Strength = 0.75
		sig.Reason = fmt.Sprintf("RSI oversold exit: %.1f -> %.1f", prev, cur)
		return sig

	case cur > s.params.Overbought:
		depth := math.Min(1, (cur-s.params.Overbought)/20)
		sig.Direction = model.Sell
		sig.Strength = 0.6 + depth*0.4
		sig.Reason = fmt.Sprintf("RSI overbought: %.1f", cur)
		return sig

	case prev > s.params.Overbought && cur < s.params.Overbought:
		sig.Direction = model.Sell
		sig.Strength = 0.75
		sig.Reason = fmt.Sprintf("RSI overbought exit: %.1f -> %.1f", prev, cur)
		return sig
	}

	if div := s.divergence(closes, cur, ts); div != nil {
		return *div
	}

	return hold(s.Name(), ts, "no signal")
}

// divergence compares the 20-bar price trend against the RSI trend over
// the same span. Price falling while RSI rises is bullish, the mirror is
// bearish.
func (s *RSIReversal) divergence(closes []float64, cur float64, ts time.Time) *model.Signal {
	const span = 20
	n := len(closes)
	if n < span+10 {
		return nil
	}

	old, err := indicator.RSI(closes[:n-span+1], s.params.Period)
	if err != nil {
		return nil
	}
	priceTrend := closes[n-1] - closes[n-span]
	rsiTrend := cur - old

	if priceTrend < 0 && rsiTrend > 5 && cur < 45 {
		return &model.Signal{
			StrategyID: s.Name(),
			TS:         ts,
			Direction:  model.Buy,
			Strength:   0.65,
			Reason:     fmt.Sprintf("bullish RSI divergence (RSI: %.1f)", cur),
			Metadata:   map[string]float64{"rsi": cur, "rsi_trend": rsiTrend},
		}
	}
	if priceTrend > 0 && rsiTrend < -5 && cur > 55 {
		return &model.Signal{
			StrategyID: s.Name(),
			TS:         ts,
			Direction:  model.Sell,
			Strength:   0.65,
			Reason:     fmt.Sprintf("bearish RSI divergence (RSI: %.1f)", cur),
			Metadata:   map[string]float64{"rsi": cur, "rsi_trend": rsiTrend},
		}
	}
	return nil
}
