package strategy

import (
	"math"
	"reflect"
	"testing"
	"time"

	"cryptobotv1/internal/model"
)

func sigAt(name string, dir model.Direction, strength float64) model.Signal {
	return model.Signal{
		StrategyID: name,
		TS:         time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Direction:  dir,
		Strength:   strength,
	}
}

func mustAggregator(t *testing.T, cfg AggregatorConfig) *Aggregator {
	t.Helper()
	a, err := NewAggregator(cfg)
	if err != nil {
		t.Fatalf("NewAggregator: %v", err)
	}
	return a
}

func TestAggregatorAllHold(t *testing.T) {
	a := mustAggregator(t, DefaultAggregatorConfig())
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	signals := []model.Signal{
		sigAt(NameRSIReversal, model.Hold, 0),
		sigAt(NameMACDCrossover, model.Hold, 0),
		sigAt(NameBollinger, model.Hold, 0),
		sigAt(NameEMACrossover, model.Hold, 0),
		sigAt(NameVolumeSpike, model.Hold, 0),
		sigAt(NameSuperTrend, model.Hold, 0),
	}
	d := a.Combine("BTC/USDT", ts, 50000, signals)
	if d.Direction != model.Hold {
		t.Fatalf("direction = %s, want HOLD", d.Direction)
	}
	if d.Confidence != 0 {
		t.Errorf("confidence = %.4f, want 0", d.Confidence)
	}
}

func TestAggregatorWeightedBuy(t *testing.T) {
	a := mustAggregator(t, DefaultAggregatorConfig())
	ts := time.Now().UTC()

	// 0.20*0.80 + 0.20*0.85 = 0.33 > 0.20
	signals := []model.Signal{
		sigAt(NameSuperTrend, model.Buy, 0.80),
		sigAt(NameEMACrossover, model.Buy, 0.85),
		sigAt(NameRSIReversal, model.Hold, 0),
	}
	d := a.Combine("BTC/USDT", ts, 50000, signals)
	if d.Direction != model.Buy {
		t.Fatalf("direction = %s, want BUY", d.Direction)
	}
	if math.Abs(d.Confidence-0.33) > 1e-9 {
		t.Errorf("confidence = %.6f, want 0.33", d.Confidence)
	}
}

func TestAggregatorWeightedSell(t *testing.T) {
	a := mustAggregator(t, DefaultAggregatorConfig())
	signals := []model.Signal{
		sigAt(NameSuperTrend, model.Sell, 0.80),
		sigAt(NameEMACrossover, model.Sell, 0.85),
	}
	d := a.Combine("BTC/USDT", time.Now().UTC(), 50000, signals)
	if d.Direction != model.Sell {
		t.Fatalf("direction = %s, want SELL", d.Direction)
	}
}

func TestAggregatorExactThresholdHolds(t *testing.T) {
	a := mustAggregator(t, DefaultAggregatorConfig())

	// 0.20*1.0 lands exactly on the buy threshold: not a Buy.
	signals := []model.Signal{sigAt(NameSuperTrend, model.Buy, 1.0)}
	d := a.Combine("BTC/USDT", time.Now().UTC(), 50000, signals)
	if d.Direction != model.Hold {
		t.Fatalf("direction = %s, want HOLD at exact threshold", d.Direction)
	}
	if d.Confidence != 0.20 {
		t.Errorf("confidence = %.4f, want 0.20", d.Confidence)
	}
}

func TestAggregatorOpposingSignalsCancel(t *testing.T) {
	a := mustAggregator(t, DefaultAggregatorConfig())
	signals := []model.Signal{
		sigAt(NameSuperTrend, model.Buy, 0.90),
		sigAt(NameEMACrossover, model.Sell, 0.90),
	}
	d := a.Combine("BTC/USDT", time.Now().UTC(), 50000, signals)
	if d.Direction != model.Hold {
		t.Fatalf("direction = %s, want HOLD when equal weights oppose", d.Direction)
	}
}

func TestAggregatorMinAgree(t *testing.T) {
	cfg := DefaultAggregatorConfig()
	cfg.MinAgree = 3
	a := mustAggregator(t, cfg)

	// Score clears the threshold but only two strategies vote Buy.
	signals := []model.Signal{
		sigAt(NameSuperTrend, model.Buy, 0.90),
		sigAt(NameEMACrossover, model.Buy, 0.90),
	}
	d := a.Combine("BTC/USDT", time.Now().UTC(), 50000, signals)
	if d.Direction != model.Hold {
		t.Fatalf("direction = %s, want HOLD under min-agree floor", d.Direction)
	}

	signals = append(signals, sigAt(NameMACDCrossover, model.Buy, 0.70))
	d = a.Combine("BTC/USDT", time.Now().UTC(), 50000, signals)
	if d.Direction != model.Buy {
		t.Fatalf("direction = %s, want BUY with three agreeing votes", d.Direction)
	}
}

func TestAggregatorIgnoresUnknownStrategy(t *testing.T) {
	a := mustAggregator(t, DefaultAggregatorConfig())
	signals := []model.Signal{sigAt("mystery", model.Buy, 1.0)}
	d := a.Combine("BTC/USDT", time.Now().UTC(), 50000, signals)
	if d.Direction != model.Hold || d.Confidence != 0 {
		t.Fatalf("got %s/%.4f, want HOLD/0 for unweighted strategy", d.Direction, d.Confidence)
	}
}

func TestAggregatorDeterministic(t *testing.T) {
	a := mustAggregator(t, DefaultAggregatorConfig())
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	signals := []model.Signal{
		sigAt(NameSuperTrend, model.Buy, 0.80),
		sigAt(NameRSIReversal, model.Sell, 0.60),
		sigAt(NameVolumeSpike, model.Buy, 0.70),
	}
	d1 := a.Combine("BTC/USDT", ts, 50000, signals)
	d2 := a.Combine("BTC/USDT", ts, 50000, signals)
	if !reflect.DeepEqual(d1, d2) {
		t.Fatalf("repeated combine diverged:\n%+v\n%+v", d1, d2)
	}
}

func TestAggregatorConfigValidate(t *testing.T) {
	if err := DefaultAggregatorConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	cfg := DefaultAggregatorConfig()
	cfg.Weights = map[string]float64{NameRSIReversal: 0.5}
	if err := cfg.Validate(); err == nil {
		t.Error("want error for weights not summing to 1")
	}

	cfg = DefaultAggregatorConfig()
	cfg.BuyThreshold = 0
	if err := cfg.Validate(); err == nil {
		t.Error("want error for zero buy threshold")
	}

	cfg = DefaultAggregatorConfig()
	cfg.Weights = nil
	if err := cfg.Validate(); err == nil {
		t.Error("want error for empty weights")
	}
}
