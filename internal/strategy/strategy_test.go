package strategy

import (
	"strings"
	"testing"
	"time"

	"cryptobotv1/internal/model"
)

// mkBars builds an hourly bar window from closes. Highs and lows hug the
// close, volume is flat at 1000.
func mkBars(closes ...float64) []model.Bar {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.Bar, len(closes))
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		out[i] = model.Bar{
			Symbol: "BTC/USDT",
			TS:     base.Add(time.Duration(i) * time.Hour),
			Open:   open,
			High:   c * 1.001,
			Low:    c * 0.999,
			Close:  c,
			Volume: 1000,
		}
	}
	return out
}

// mkRangeBars is like mkBars but with a fixed 2-unit high/low range, so
// ATR-based indicators get a stable true range.
func mkRangeBars(closes ...float64) []model.Bar {
	out := mkBars(closes...)
	for i := range out {
		out[i].High = out[i].Close + 1
		out[i].Low = out[i].Close - 1
	}
	return out
}

func seq(start, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	return out
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestRSIReversalOversold(t *testing.T) {
	s := NewRSIReversal(DefaultRSIParams())
	sig := s.Evaluate(mkBars(seq(100, -1, 20)...))
	if sig.Direction != model.Buy {
		t.Fatalf("direction = %s, want BUY", sig.Direction)
	}
	if sig.Strength != 1.0 {
		t.Errorf("strength = %.2f, want 1.00 for RSI at 0", sig.Strength)
	}
}

func TestRSIReversalOverbought(t *testing.T) {
	s := NewRSIReversal(DefaultRSIParams())
	sig := s.Evaluate(mkBars(seq(100, 1, 20)...))
	if sig.Direction != model.Sell {
		t.Fatalf("direction = %s, want SELL", sig.Direction)
	}
	if sig.Strength != 1.0 {
		t.Errorf("strength = %.2f, want 1.00 for RSI at 100", sig.Strength)
	}
}

func TestRSIReversalInsufficientData(t *testing.T) {
	s := NewRSIReversal(DefaultRSIParams())
	sig := s.Evaluate(mkBars(seq(100, -1, 10)...))
	if sig.Direction != model.Hold || sig.Strength != 0 {
		t.Fatalf("got %s/%.2f, want HOLD/0 on short window", sig.Direction, sig.Strength)
	}
}

func TestMACDBullishCrossoverAfterReversal(t *testing.T) {
	s := NewMACDCrossover(DefaultMACDParams())
	closes := append(seq(120, -0.5, 40), seq(102, 2, 10)...)
	bars := mkBars(closes...)

	found := false
	for i := 37; i <= len(bars); i++ {
		sig := s.Evaluate(bars[:i])
		if sig.Direction == model.Buy && strings.Contains(sig.Reason, "bullish crossover") {
			found = true
			break
		}
	}
	if !found {
		t.Fatal("no bullish crossover signal during the reversal")
	}
}

func TestMACDFlatSeriesHolds(t *testing.T) {
	s := NewMACDCrossover(DefaultMACDParams())
	sig := s.Evaluate(mkBars(repeat(100, 40)...))
	if sig.Direction != model.Hold {
		t.Fatalf("direction = %s, want HOLD on flat series", sig.Direction)
	}
}

func TestBollingerLowerBandTouch(t *testing.T) {
	s := NewBollinger(DefaultBollingerParams())
	closes := append(repeat(100, 24), 90)
	sig := s.Evaluate(mkBars(closes...))
	if sig.Direction != model.Buy {
		t.Fatalf("direction = %s, want BUY on lower band break", sig.Direction)
	}
	if sig.Strength != 0.65 {
		t.Errorf("strength = %.2f, want 0.65 without squeeze", sig.Strength)
	}
}

func TestBollingerUpperBandTouch(t *testing.T) {
	s := NewBollinger(DefaultBollingerParams())
	closes := append(repeat(100, 24), 110)
	sig := s.Evaluate(mkBars(closes...))
	if sig.Direction != model.Sell {
		t.Fatalf("direction = %s, want SELL on upper band break", sig.Direction)
	}
}

func TestBollingerInsideBandsHolds(t *testing.T) {
	s := NewBollinger(DefaultBollingerParams())
	closes := make([]float64, 25)
	for i := range closes {
		closes[i] = 100
		if i%2 == 0 {
			closes[i] = 100.5
		} else {
			closes[i] = 99.5
		}
	}
	sig := s.Evaluate(mkBars(closes...))
	if sig.Direction != model.Hold {
		t.Fatalf("direction = %s, want HOLD inside bands", sig.Direction)
	}
}

func TestEMACrossoverUptrendIntact(t *testing.T) {
	s := NewEMACrossover(DefaultEMAParams())
	sig := s.Evaluate(mkBars(seq(100, 1, 70)...))
	if sig.Direction != model.Buy {
		t.Fatalf("direction = %s, want BUY in a steady uptrend", sig.Direction)
	}
	if sig.Strength != 0.60 {
		t.Errorf("strength = %.2f, want 0.60 for trend continuation", sig.Strength)
	}
}

func TestEMACrossoverDowntrendIntact(t *testing.T) {
	s := NewEMACrossover(DefaultEMAParams())
	sig := s.Evaluate(mkBars(seq(200, -1, 70)...))
	if sig.Direction != model.Sell {
		t.Fatalf("direction = %s, want SELL in a steady downtrend", sig.Direction)
	}
}

func TestEMACrossoverInsufficientData(t *testing.T) {
	s := NewEMACrossover(DefaultEMAParams())
	sig := s.Evaluate(mkBars(seq(100, 1, 30)...))
	if sig.Direction != model.Hold || sig.Strength != 0 {
		t.Fatalf("got %s/%.2f, want HOLD/0 on short window", sig.Direction, sig.Strength)
	}
}

func TestVolumeSpikeWithPriceUp(t *testing.T) {
	s := NewVolumeSpike(DefaultVolumeParams())
	bars := mkBars(append(repeat(100, 25), 101)...)
	bars[len(bars)-1].Volume = 3000

	sig := s.Evaluate(bars)
	if sig.Direction != model.Buy {
		t.Fatalf("direction = %s, want BUY on spike with price up", sig.Direction)
	}
	if sig.Strength < 0.60 || sig.Strength > 0.90 {
		t.Errorf("strength = %.2f, want within [0.60, 0.90]", sig.Strength)
	}
}

func TestVolumeSpikeWithPriceDown(t *testing.T) {
	s := NewVolumeSpike(DefaultVolumeParams())
	bars := mkBars(append(repeat(100, 25), 99)...)
	bars[len(bars)-1].Volume = 3000

	sig := s.Evaluate(bars)
	if sig.Direction != model.Sell {
		t.Fatalf("direction = %s, want SELL on spike with price down", sig.Direction)
	}
}

func TestVolumeNormalHolds(t *testing.T) {
	s := NewVolumeSpike(DefaultVolumeParams())
	sig := s.Evaluate(mkBars(repeat(100, 30)...))
	if sig.Direction != model.Hold {
		t.Fatalf("direction = %s, want HOLD on flat volume", sig.Direction)
	}
}

func TestSuperTrendBullishFlip(t *testing.T) {
	s := NewSuperTrend(DefaultSuperTrendParams())
	closes := append(seq(130, -1, 30), seq(106, 5, 10)...)
	bars := mkRangeBars(closes...)

	found := false
	for i := 32; i <= len(bars); i++ {
		sig := s.Evaluate(bars[:i])
		if sig.Direction == model.Buy && sig.Strength == 0.80 {
			found = true
			break
		}
	}
	if !found {
		t.Fatal("no bullish flip signal during the rally")
	}
}

func TestSuperTrendDowntrendNoFlip(t *testing.T) {
	s := NewSuperTrend(DefaultSuperTrendParams())
	sig := s.Evaluate(mkRangeBars(seq(130, -1, 30)...))
	if sig.Direction == model.Buy {
		t.Fatalf("got BUY in an unbroken downtrend")
	}
}

func TestStrategiesDeterministic(t *testing.T) {
	bars := mkBars(append(seq(100, 0.4, 50), seq(120, -0.7, 20)...)...)
	for _, s := range DefaultStrategies() {
		a := s.Evaluate(bars)
		b := s.Evaluate(bars)
		if a.Direction != b.Direction || a.Strength != b.Strength || a.Reason != b.Reason {
			t.Errorf("%s: repeated evaluation diverged: %+v vs %+v", s.Name(), a, b)
		}
	}
}
