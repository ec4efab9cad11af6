package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrDataIntegrity marks a series that cannot be trusted: out-of-order
// timestamps, non-positive prices, negative volume. A run fed such data
// must abort rather than produce a corrupted ledger.
var ErrDataIntegrity = errors.New("data integrity error")

// Bar represents one OHLCV candle for a single trading pair.
// Prices are in quote currency (USDT) as float64.
type Bar struct {
	Symbol string    `json:"symbol"`
	TS     time.Time `json:"ts"` // bucket open time (UTC)
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// JSON returns the JSON-encoded bar (ignoring errors for hot-path usage).
func (b *Bar) JSON() []byte {
	out, _ := json.Marshal(b)
	return out
}

// Validate checks a single bar for impossible values.
func (b *Bar) Validate() error {
	if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
		return fmt.Errorf("%w: %s @ %s: non-positive price", ErrDataIntegrity, b.Symbol, b.TS.Format(time.RFC3339))
	}
	if b.Volume < 0 {
		return fmt.Errorf("%w: %s @ %s: negative volume", ErrDataIntegrity, b.Symbol, b.TS.Format(time.RFC3339))
	}
	if b.High < b.Low {
		return fmt.Errorf("%w: %s @ %s: high < low", ErrDataIntegrity, b.Symbol, b.TS.Format(time.RFC3339))
	}
	return nil
}

// Series is the ordered bar history for one symbol. Strictly increasing
// timestamps; read-only to every core component once built.
type Series struct {
	Symbol string `json:"symbol"`
	Bars   []Bar  `json:"bars"`
}

// Validate checks per-bar sanity and timestamp monotonicity.
func (s *Series) Validate() error {
	var prev time.Time
	for i := range s.Bars {
		if err := s.Bars[i].Validate(); err != nil {
			return err
		}
		if i > 0 && !s.Bars[i].TS.After(prev) {
			return fmt.Errorf("%w: %s: non-increasing timestamp at index %d (%s after %s)",
				ErrDataIntegrity, s.Symbol, i, s.Bars[i].TS.Format(time.RFC3339), prev.Format(time.RFC3339))
		}
		prev = s.Bars[i].TS
	}
	return nil
}

// Window returns the trailing slice ending at index i (inclusive), at most
// size bars long. The slice aliases the series; callers must not mutate it.
func (s *Series) Window(i, size int) []Bar {
	if i < 0 || i >= len(s.Bars) {
		return nil
	}
	start := i + 1 - size
	if start < 0 {
		start = 0
	}
	return s.Bars[start : i+1]
}
