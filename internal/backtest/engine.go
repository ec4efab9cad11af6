// Package backtest replays historical bars through the strategy,
// aggregation and risk pipeline, the same pipeline live trading uses,
// and produces a performance report.
//
// A run is deterministic: the same bars and the same configuration always
// produce the same trades and the same report, byte for byte.
package backtest

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"cryptobotv1/internal/model"
	"cryptobotv1/internal/risk"
	"cryptobotv1/internal/strategy"
)

// Config holds the replay parameters.
type Config struct {
	WindowSize int // bars handed to each strategy per evaluation
}

// DefaultConfig returns a window large enough for every default strategy.
func DefaultConfig() Config {
	return Config{WindowSize: 120}
}

// Engine drives one backtest run.
type Engine struct {
	cfg        Config
	strategies []strategy.Strategy
	agg        *strategy.Aggregator
	rm         *risk.Manager
}

// New creates an Engine. The risk manager must be freshly constructed:
// the engine owns its whole lifecycle for the run.
func New(cfg Config, strategies []strategy.Strategy, agg *strategy.Aggregator, rm *risk.Manager) (*Engine, error) {
	if cfg.WindowSize <= 0 {
		return nil, fmt.Errorf("backtest: window size %d must be positive", cfg.WindowSize)
	}
	if len(strategies) == 0 {
		return nil, fmt.Errorf("backtest: no strategies")
	}
	if agg == nil || rm == nil {
		return nil, fmt.Errorf("backtest: nil aggregator or risk manager")
	}
	return &Engine{cfg: cfg, strategies: strategies, agg: agg, rm: rm}, nil
}

// Run replays the series bar by bar. Bars across symbols are merged into
// one timeline ordered by timestamp, symbols in lexical order within a
// timestamp. For each bar, exits are processed before a new entry is
// considered; capital freed by an exit becomes available on the next
// timestamp.
func (e *Engine) Run(ctx context.Context, series []model.Series) (*Result, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("backtest: no series")
	}
	for i := range series {
		if err := series[i].Validate(); err != nil {
			return nil, fmt.Errorf("backtest: series %s: %w", series[i].Symbol, err)
		}
	}

	timeline := mergeTimeline(series)
	history := make(map[string][]model.Bar, len(series))
	lastClose := make(map[string]float64, len(series))
	rejections := make(map[string]int)

	var curve []EquityPoint
	symbols := make([]string, 0, len(series))
	for i := range series {
		symbols = append(symbols, series[i].Symbol)
	}
	sort.Strings(symbols)

	log.Printf("[backtest] replaying %d bars across %d symbols", len(timeline), len(series))

	processed := 0
	for i := 0; i < len(timeline); {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("backtest: canceled after %d bars: %w", processed, err)
		}

		ts := timeline[i].TS
		for ; i < len(timeline) && timeline[i].TS.Equal(ts); i++ {
			b := timeline[i]
			history[b.Symbol] = append(history[b.Symbol], b)
			lastClose[b.Symbol] = b.Close
			processed++

			// Exits first.
			e.rm.OnBar(b)

			// Then a new entry off the window ending at this bar.
			window := trailingWindow(history[b.Symbol], e.cfg.WindowSize)
			signals := make([]model.Signal, 0, len(e.strategies))
			for _, s := range e.strategies {
				signals = append(signals, s.Evaluate(window))
			}
			decision := e.agg.Combine(b.Symbol, b.TS, b.Close, signals)
			if _, err := e.rm.OnDecision(decision); err != nil {
				if rej, ok := err.(*risk.RejectionError); ok {
					rejections[rej.Reason]++
				} else {
					return nil, err
				}
			}
		}

		e.rm.EndBar()
		curve = append(curve, EquityPoint{TS: ts, Equity: e.rm.Account().Equity})
	}

	// Flatten whatever is still open at the final prices.
	var end time.Time
	if len(curve) > 0 {
		end = curve[len(curve)-1].TS
	}
	e.rm.CloseAll(end, lastClose, model.ExitEndOfBacktest)
	if len(curve) > 0 {
		curve[len(curve)-1].Equity = e.rm.Account().Equity
	}

	if err := e.rm.CheckIntegrity(); err != nil {
		return nil, err
	}

	res := buildResult(symbols, e.rm.Account(), e.rm.ClosedPositions(), curve, processed, rejections)
	log.Printf("[backtest] done: %d bars, %d trades, return %.2f%%", processed, res.Trades, res.TotalReturnPct)
	return res, nil
}

// mergeTimeline flattens the series into one slice ordered by timestamp,
// then symbol. The sort is stable so equal keys keep input order.
func mergeTimeline(series []model.Series) []model.Bar {
	total := 0
	for i := range series {
		total += len(series[i].Bars)
	}
	out := make([]model.Bar, 0, total)
	for i := range series {
		out = append(out, series[i].Bars...)
	}
	sort.SliceStable(out, func(a, b int) bool {
		if !out[a].TS.Equal(out[b].TS) {
			return out[a].TS.Before(out[b].TS)
		}
		return out[a].Symbol < out[b].Symbol
	})
	return out
}

func trailingWindow(bars []model.Bar, size int) []model.Bar {
	if len(bars) <= size {
		return bars
	}
	return bars[len(bars)-size:]
}
