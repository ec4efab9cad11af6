package indicator

// BollingerBands holds the band levels plus the two derived measures the
// squeeze/bounce rules key on.
type BollingerBands struct {
	Upper  float64
	Middle float64
	Lower  float64
	Width  float64 // (upper-lower)/middle
	PctB   float64 // position of the last close inside the bands, 0=lower 1=upper
}

// Bollinger returns the Bollinger Bands of the window's last bar:
// middle = SMA(period), upper/lower = middle +/- stdDevMult standard
// deviations. Requires period values.
func Bollinger(values []float64, period int, stdDevMult float64) (BollingerBands, error) {
	mid, err := SMA(values, period)
	if err != nil {
		return BollingerBands{}, err
	}
	sd, err := StdDev(values, period)
	if err != nil {
		return BollingerBands{}, err
	}

	bb := BollingerBands{
		Upper:  mid + sd*stdDevMult,
		Middle: mid,
		Lower:  mid - sd*stdDevMult,
	}
	if bb.Middle != 0 {
		bb.Width = (bb.Upper - bb.Lower) / bb.Middle
	}
	if mid != 0 {
		bb.Width = (bb.Upper - bb.Lower) / mid
	}
	if span := bb.Upper - bb.Lower; span != 0 {
		bb.PctB = (values[len(values)-1] - bb.Lower) / span
	}
	return bb, nil
}
