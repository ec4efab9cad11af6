package strategy

import (
	"fmt"
	"math"
	"time"

	"cryptobotv1/internal/model"
)

// weightSumTolerance is the allowed deviation of the weight sum from 1.
const weightSumTolerance = 1e-6

// AggregatorConfig holds the weighted-vote policy parameters. Weights are
// keyed by strategy name and must sum to 1.
type AggregatorConfig struct {
	Weights       map[string]float64 `json:"weights"`
	BuyThreshold  float64            `json:"buy_threshold"`  // score must exceed this for a Buy
	SellThreshold float64            `json:"sell_threshold"` // score must fall below the negation for a Sell
	MinAgree      int                `json:"min_agree"`      // 0 disables the consensus floor
}

// DefaultAggregatorConfig returns the standard weights and thresholds.
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		Weights: map[string]float64{
			NameRSIReversal:   0.15,
			NameMACDCrossover: 0.15,
			NameBollinger:     0.15,
			NameEMACrossover:  0.20,
			NameVolumeSpike:   0.15,
			NameSuperTrend:    0.20,
		},
		BuyThreshold:  0.20,
		SellThreshold: 0.20,
	}
}

// Validate checks the config at startup. Invalid configuration is fatal:
// a silently renormalized weight set would make runs incomparable.
func (c AggregatorConfig) Validate() error {
	if len(c.Weights) == 0 {
		return fmt.Errorf("aggregator config: no strategy weights")
	}
	sum := 0.0
	for name, w := range c.Weights {
		if w < 0 {
			return fmt.Errorf("aggregator config: negative weight for %s", name)
		}
		sum += w
	}
	if math.Abs(sum-1) > weightSumTolerance {
		return fmt.Errorf("aggregator config: weights sum to %.6f, want 1", sum)
	}
	if c.BuyThreshold <= 0 || c.BuyThreshold > 1 {
		return fmt.Errorf("aggregator config: buy threshold %.4f out of (0,1]", c.BuyThreshold)
	}
	if c.SellThreshold <= 0 || c.SellThreshold > 1 {
		return fmt.Errorf("aggregator config: sell threshold %.4f out of (0,1]", c.SellThreshold)
	}
	if c.MinAgree < 0 {
		return fmt.Errorf("aggregator config: negative min agree")
	}
	return nil
}

// Aggregator combines per-strategy signals for one bar into one Decision
// using a weighted vote. Pure and deterministic: identical signal sets
// always yield identical decisions.
type Aggregator struct {
	cfg AggregatorConfig
}

// NewAggregator creates an Aggregator from a validated config.
func NewAggregator(cfg AggregatorConfig) (*Aggregator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Aggregator{cfg: cfg}, nil
}

// Combine folds the signals into score = sum(weight*strength*sign) and
// maps it to a direction. A score exactly at a threshold resolves to Hold
// (conservative tie-break); confidence is |score|.
func (a *Aggregator) Combine(symbol string, ts time.Time, price float64, signals []model.Signal) model.Decision {
	score := 0.0
	buyVotes, sellVotes := 0, 0
	for _, s := range signals {
		w, ok := a.cfg.Weights[s.StrategyID]
		if !ok {
			continue // unweighted strategy contributes nothing
		}
		score += w * s.Strength * s.Direction.Sign()
		switch s.Direction {
		case model.Buy:
			buyVotes++
		case model.Sell:
			sellVotes++
		}
	}

	dir := model.Hold
	switch {
	case score > a.cfg.BuyThreshold:
		dir = model.Buy
	case score < -a.cfg.SellThreshold:
		dir = model.Sell
	}

	// Optional consensus floor: require MinAgree strategies voting the
	// winning direction.
	if a.cfg.MinAgree > 0 {
		if dir == model.Buy && buyVotes < a.cfg.MinAgree {
			dir = model.Hold
		}
		if dir == model.Sell && sellVotes < a.cfg.MinAgree {
			dir = model.Hold
		}
	}

	contributing := make([]model.Signal, len(signals))
	copy(contributing, signals)

	return model.Decision{
		Symbol:       symbol,
		TS:           ts,
		Direction:    dir,
		Confidence:   math.Abs(score),
		Price:        price,
		Contributing: contributing,
	}
}
