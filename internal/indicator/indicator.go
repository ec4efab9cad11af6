// Package indicator provides technical indicator calculations over bar data.
//
// Every function is pure: it takes a trailing window of bars (or closes),
// computes from the window start forward, and returns a scalar or a small
// result struct. Identical input always produces bit-identical output;
// the backtest's determinism depends on it. A window shorter than the
// indicator's lookback fails with ErrInsufficientData; callers treat that
// bar as non-evaluable.
package indicator

import (
	"errors"
	"math"

	"cryptobotv1/internal/model"
)

// ErrInsufficientData is returned when a window is shorter than the
// indicator's required lookback.
var ErrInsufficientData = errors.New("insufficient data")

// Closes extracts the close series from a bar window.
func Closes(bars []model.Bar) []float64 {
	out := make([]float64, len(bars))
	for i := range bars {
		out[i] = bars[i].Close
	}
	return out
}

// SMA returns the simple moving average of the last period values.
func SMA(values []float64, period int) (float64, error) {
	if period <= 0 || len(values) < period {
		return 0, ErrInsufficientData
	}
	sum := 0.0
	for _, v := range values[len(values)-period:] {
		sum += v
	}
	return sum / float64(period), nil
}

// StdDev returns the sample standard deviation of the last period values.
func StdDev(values []float64, period int) (float64, error) {
	if period < 2 || len(values) < period {
		return 0, ErrInsufficientData
	}
	window := values[len(values)-period:]
	mean := 0.0
	for _, v := range window {
		mean += v
	}
	mean /= float64(period)

	variance := 0.0
	for _, v := range window {
		d := v - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(period-1)), nil
}

// EMA returns the exponential moving average of the values, seeded at the
// first value and recursed over the whole window (k = 2/(period+1)).
// Because the recursion is prefix-based, EMA(values[:n-1], p) is exactly
// the previous bar's EMA.
func EMA(values []float64, period int) (float64, error) {
	if period <= 0 || len(values) < period {
		return 0, ErrInsufficientData
	}
	series := emaAll(values, period)
	return series[len(series)-1], nil
}

// emaAll computes the full EMA series aligned to values.
func emaAll(values []float64, period int) []float64 {
	k := 2.0 / float64(period+1)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = values[i]*k + out[i-1]*(1-k)
	}
	return out
}
