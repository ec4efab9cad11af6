package indicator

import (
	"math"

	"cryptobotv1/internal/model"
)

// ATR returns the Average True Range of the window's last bar using
// Wilder's smoothing. Requires period+1 bars.
func ATR(bars []model.Bar, period int) (float64, error) {
	if period <= 0 || len(bars) < period+1 {
		return 0, ErrInsufficientData
	}
	series := atrAll(bars, period)
	return series[len(series)-1], nil
}

// atrAll computes the full ATR series aligned to bars. Warm-up entries
// (before one full period of true ranges) hold the expanding mean so far.
func atrAll(bars []model.Bar, period int) []float64 {
	tr := make([]float64, len(bars))
	tr[0] = bars[0].High - bars[0].Low
	for i := 1; i < len(bars); i++ {
		highLow := bars[i].High - bars[i].Low
		highClose := math.Abs(bars[i].High - bars[i-1].Close)
		lowClose := math.Abs(bars[i].Low - bars[i-1].Close)
		tr[i] = math.Max(highLow, math.Max(highClose, lowClose))
	}

	p := float64(period)
	out := make([]float64, len(bars))
	sum := 0.0
	for i := range bars {
		if i < period {
			sum += tr[i]
			out[i] = sum / float64(i+1)
			continue
		}
		out[i] = (out[i-1]*(p-1) + tr[i]) / p
	}
	return out
}
