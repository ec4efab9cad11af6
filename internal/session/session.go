// Package session scores the quality of a trading hour for crypto
// markets. Crypto never closes, but liquidity clusters in the classic
// session windows (Asia, London, New York); the live engine can require
// a minimum session quality before taking entries.
package session

import "time"

// Session identifies a liquidity window. All bounds are UTC hours.
type Session string

const (
	Asia    Session = "asia"
	London  Session = "london"
	NewYork Session = "newyork"
	Off     Session = "off"
)

// window is a [from, to) UTC hour range.
type window struct {
	session Session
	from    int
	to      int
	quality float64
}

// High-activity killzones. Overlaps resolve to the earlier entry.
var windows = []window{
	{Asia, 0, 2, 0.6},
	{London, 7, 10, 0.9},
	{NewYork, 13, 16, 1.0},
	{London, 10, 13, 0.7}, // London drift into the NY handover
	{NewYork, 16, 20, 0.6},
}

// At returns the active session and its quality score in [0,1] for the
// given instant. Hours outside every window score 0.3: tradeable, but
// thin.
func At(t time.Time) (Session, float64) {
	h := t.UTC().Hour()
	for _, w := range windows {
		if h >= w.from && h < w.to {
			return w.session, w.quality
		}
	}
	return Off, 0.3
}

// Quality returns just the score for the instant.
func Quality(t time.Time) float64 {
	_, q := At(t)
	return q
}

// Tradeable reports whether the instant meets the minimum session
// quality. minQuality 0 disables the filter.
func Tradeable(t time.Time, minQuality float64) bool {
	if minQuality <= 0 {
		return true
	}
	return Quality(t) >= minQuality
}

// WeekendDiscount returns a multiplier for the instant: weekend hours
// carry structurally lower volume and get scored down.
func WeekendDiscount(t time.Time) float64 {
	switch t.UTC().Weekday() {
	case time.Saturday, time.Sunday:
		return 0.5
	default:
		return 1.0
	}
}
