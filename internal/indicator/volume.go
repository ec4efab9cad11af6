package indicator

import "cryptobotv1/internal/model"

// VolumeSMA returns the simple moving average of volume over the last
// period bars.
func VolumeSMA(bars []model.Bar, period int) (float64, error) {
	if period <= 0 || len(bars) < period {
		return 0, ErrInsufficientData
	}
	sum := 0.0
	for _, b := range bars[len(bars)-period:] {
		sum += b.Volume
	}
	return sum / float64(period), nil
}

// VolumeRatio returns the last bar's volume relative to the volume SMA of
// the period bars ending at the last bar. A ratio of 2 means twice the
// average volume.
func VolumeRatio(bars []model.Bar, period int) (float64, error) {
	avg, err := VolumeSMA(bars, period)
	if err != nil {
		return 0, err
	}
	if avg == 0 {
		return 0, nil
	}
	return bars[len(bars)-1].Volume / avg, nil
}
