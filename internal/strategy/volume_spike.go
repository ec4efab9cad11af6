package strategy

import (
	"fmt"
	"math"

	"cryptobotv1/internal/indicator"
	"cryptobotv1/internal/model"
)

// VolumeParams configures the volume spike strategy.
type VolumeParams struct {
	MAPeriod        int
	SpikeMultiplier float64
}

// DefaultVolumeParams returns the standard 20-period, 2x-spike setup.
func DefaultVolumeParams() VolumeParams {
	return VolumeParams{MAPeriod: 20, SpikeMultiplier: 2.0}
}

// VolumeSpike trades abnormal volume in the direction of the price move:
// a single spike, a stepped three-bar build-up, or a dry-up followed by
// a breakout.
type VolumeSpike struct {
	params VolumeParams
}

// NewVolumeSpike creates the strategy with the given parameters.
func NewVolumeSpike(p VolumeParams) *VolumeSpike {
	return &VolumeSpike{params: p}
}

func (s *VolumeSpike) Name() string { return NameVolumeSpike }

func (s *VolumeSpike) Evaluate(window []model.Bar) model.Signal {
	ts := lastTS(window)
	n := len(window)
	if n < s.params.MAPeriod+6 {
		return hold(s.Name(), ts, "insufficient data")
	}

	ratio, err := indicator.VolumeRatio(window, s.params.MAPeriod)
	if err != nil {
		return hold(s.Name(), ts, "insufficient data")
	}
	price := window[n-1].Close
	prevPrice := window[n-2].Close
	priceChange := (price - prevPrice) / prevPrice

	sig := model.Signal{
		StrategyID: s.Name(),
		TS:         ts,
		Metadata: map[string]float64{
			"volume_ratio": ratio,
			"price_change": priceChange,
		},
	}

	// Single spike with a clear price direction.
	if ratio >= s.params.SpikeMultiplier {
		strength := math.Min(0.90, 0.60+(ratio-s.params.SpikeMultiplier)*0.1)
		if priceChange > 0.001 {
			sig.Direction = model.Buy
			sig.Strength = strength
			sig.Reason = fmt.Sprintf("volume spike (%.1fx) with price up %.2f%%", ratio, priceChange*100)
			return sig
		}
		if priceChange < -0.001 {
			sig.Direction = model.Sell
			sig.Strength = strength
			sig.Reason = fmt.Sprintf("volume spike (%.1fx) with price down %.2f%%", ratio, priceChange*100)
			return sig
		}
	}

	// Stepped build-up: three rising above-average ratios with monotonic price.
	r3, e3 := indicator.VolumeRatio(window[:n-2], s.params.MAPeriod)
	r2, e2 := indicator.VolumeRatio(window[:n-1], s.params.MAPeriod)
	if e3 == nil && e2 == nil &&
		r3 > 1.3 && r2 > 1.3 && ratio > 1.3 && r3 < r2 && r2 < ratio {
		c3, c2, c1 := window[n-3].Close, window[n-2].Close, window[n-1].Close
		if c3 < c2 && c2 < c1 {
			sig.Direction = model.Buy
			sig.Strength = 0.65
			sig.Reason = "stepped volume build-up with rising price"
			return sig
		}
		if c3 > c2 && c2 > c1 {
			sig.Direction = model.Sell
			sig.Strength = 0.65
			sig.Reason = "stepped volume build-up with falling price"
			return sig
		}
	}

	// Dry-up breakout: five quiet bars then expansion with price up.
	if quiet := s.avgRatio(window, 5); quiet > 0 && quiet < 0.7 && ratio > 1.5 && priceChange > 0 {
		sig.Direction = model.Buy
		sig.Strength = 0.70
		sig.Reason = fmt.Sprintf("volume dry-up breakout (%.1fx)", ratio)
		return sig
	}

	return hold(s.Name(), ts, "no signal")
}

// avgRatio averages the volume ratio over the count bars preceding the
// current one. Returns 0 when any of them is non-evaluable.
func (s *VolumeSpike) avgRatio(window []model.Bar, count int) float64 {
	n := len(window)
	sum := 0.0
	for i := 0; i < count; i++ {
		r, err := indicator.VolumeRatio(window[:n-1-i], s.params.MAPeriod)
		if err != nil {
			return 0
		}
		sum += r
	}
	return sum / float64(count)
}
