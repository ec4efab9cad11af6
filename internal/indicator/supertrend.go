package indicator

import (
	"math"

	"cryptobotv1/internal/model"
)

// SuperTrendResult is the trend line value and direction for one bar.
// Direction is +1 in an uptrend (line below price, acting as support)
// and -1 in a downtrend (line above price, acting as resistance).
type SuperTrendResult struct {
	Value     float64
	Direction int
}

// SuperTrend computes the ATR-band trend indicator for the window's last
// bar. Bands are hl2 +/- multiplier*ATR; the direction flips when the
// close breaks the opposite band of the previous bar, and the active band
// ratchets in the trend direction. Requires period+1 bars.
func SuperTrend(bars []model.Bar, period int, multiplier float64) (SuperTrendResult, error) {
	if period <= 0 || len(bars) < period+1 {
		return SuperTrendResult{}, ErrInsufficientData
	}

	atr := atrAll(bars, period)
	upper := make([]float64, len(bars))
	lower := make([]float64, len(bars))
	for i := range bars {
		hl2 := (bars[i].High + bars[i].Low) / 2
		upper[i] = hl2 + multiplier*atr[i]
		lower[i] = hl2 - multiplier*atr[i]
	}

	value := upper[0]
	dir := -1
	for i := 1; i < len(bars); i++ {
		prevDir := dir
		switch {
		case bars[i].Close > upper[i-1]:
			dir = 1
		case bars[i].Close < lower[i-1]:
			dir = -1
		}

		if dir == 1 {
			v := lower[i]
			if prevDir == 1 {
				v = math.Max(v, value)
			}
			value = v
		} else {
			v := upper[i]
			if prevDir == -1 {
				v = math.Min(v, value)
			}
			value = v
		}
	}

	return SuperTrendResult{Value: value, Direction: dir}, nil
}
