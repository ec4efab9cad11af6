package indicator

// MACDResult holds the MACD line, its signal line, and the histogram.
type MACDResult struct {
	Line      float64
	Signal    float64
	Histogram float64
}

// MACD returns Moving Average Convergence/Divergence for the window:
// line = EMA(fast) - EMA(slow), signal = EMA(line, signalPeriod),
// histogram = line - signal. Requires slow+signalPeriod values.
func MACD(values []float64, fast, slow, signalPeriod int) (MACDResult, error) {
	if fast <= 0 || slow <= fast || signalPeriod <= 0 {
		return MACDResult{}, ErrInsufficientData
	}
	if len(values) < slow+signalPeriod {
		return MACDResult{}, ErrInsufficientData
	}

	emaFast := emaAll(values, fast)
	emaSlow := emaAll(values, slow)
	line := make([]float64, len(values))
	for i := range values {
		line[i] = emaFast[i] - emaSlow[i]
	}
	signal := emaAll(line, signalPeriod)

	last := len(values) - 1
	return MACDResult{
		Line:      line[last],
		Signal:    signal[last],
		Histogram: line[last] - signal[last],
	}, nil
}
