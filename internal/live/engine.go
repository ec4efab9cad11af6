// Package live runs the trading pipeline against a streaming bar feed.
//
// The engine is a thin orchestrator: every decision flows through the
// exact same strategy, aggregation and risk code the backtester uses.
// What live adds around it is plumbing: rolling bar windows per symbol,
// an execution adapter, journaling, Redis publishing, alerts and
// metrics. All of those side channels are best-effort; only the risk
// manager's answer gates a trade.
package live

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"cryptobotv1/internal/execution"
	"cryptobotv1/internal/feed"
	"cryptobotv1/internal/metrics"
	"cryptobotv1/internal/model"
	"cryptobotv1/internal/notification"
	"cryptobotv1/internal/ringbuf"
	"cryptobotv1/internal/risk"
	"cryptobotv1/internal/session"
	"cryptobotv1/internal/store/redis"
	"cryptobotv1/internal/store/sqlite"
	"cryptobotv1/internal/strategy"
)

// Config holds the live engine parameters.
type Config struct {
	WindowSize int // bars per symbol handed to each strategy

	// MinSessionQuality gates new entries by trading session activity.
	// Zero disables the filter. Exits always run.
	MinSessionQuality float64

	// FeedBuffer is the bar channel capacity between the feed and the
	// engine loop.
	FeedBuffer int
}

// DefaultConfig matches the backtester's window.
func DefaultConfig() Config {
	return Config{WindowSize: 120, FeedBuffer: 256}
}

// Deps wires the engine to its collaborators. Feed, Strategies,
// Aggregator, Risk and Executor are required; the rest are optional and
// skipped when nil.
type Deps struct {
	Feed       feed.BarFeed
	Strategies []strategy.Strategy
	Aggregator *strategy.Aggregator
	Risk       *risk.Manager
	Executor   execution.Executor

	Journal   *execution.Journal
	Publisher *redis.Publisher
	Alerts    *notification.Dispatcher
	Metrics   *metrics.Metrics
	Health    *metrics.HealthStatus

	// Persist receives every ingested bar for storage. Sends are
	// non-blocking: a stalled writer drops bars from persistence, never
	// from trading.
	Persist chan<- model.Bar
}

// Engine consumes closed bars and trades them.
type Engine struct {
	cfg  Config
	deps Deps

	windows     map[string]*ringbuf.Window
	haltAlerted bool
}

func New(cfg Config, deps Deps) (*Engine, error) {
	if cfg.WindowSize <= 0 {
		return nil, fmt.Errorf("live: window size %d must be positive", cfg.WindowSize)
	}
	if cfg.FeedBuffer <= 0 {
		cfg.FeedBuffer = 256
	}
	if deps.Feed == nil || deps.Aggregator == nil || deps.Risk == nil || deps.Executor == nil {
		return nil, fmt.Errorf("live: missing required dependency")
	}
	if len(deps.Strategies) == 0 {
		return nil, fmt.Errorf("live: no strategies")
	}
	return &Engine{
		cfg:     cfg,
		deps:    deps,
		windows: make(map[string]*ringbuf.Window),
	}, nil
}

// Warmup preloads each symbol's rolling window from stored history so
// strategies have context from the first live bar.
func (e *Engine) Warmup(reader *sqlite.Reader, symbols []string) error {
	for _, sym := range symbols {
		bars, err := reader.ReadRecent(sym, e.cfg.WindowSize)
		if err != nil {
			return fmt.Errorf("warmup %s: %w", sym, err)
		}
		w := e.window(sym)
		for _, b := range bars {
			w.Append(b)
		}
		log.Printf("[live] warmed up %s with %d bars", sym, len(bars))
	}
	return nil
}

// Run consumes the feed until the context is canceled or the feed
// stops. Open positions are left open on shutdown; they are the risk
// manager's state, not the engine's.
func (e *Engine) Run(ctx context.Context) error {
	barCh := make(chan model.Bar, e.cfg.FeedBuffer)
	feedErr := make(chan error, 1)
	go func() {
		feedErr <- e.deps.Feed.Run(ctx, barCh)
	}()

	log.Printf("[live] engine started, window=%d", e.cfg.WindowSize)
	for {
		select {
		case <-ctx.Done():
			err := <-feedErr
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("[live] feed stopped: %v", err)
			}
			log.Printf("[live] engine stopped")
			return ctx.Err()
		case bar := <-barCh:
			e.handleBar(ctx, bar)
		case err := <-feedErr:
			// Drain anything the feed wrote before stopping.
			for {
				select {
				case bar := <-barCh:
					e.handleBar(ctx, bar)
					continue
				default:
				}
				break
			}
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("live: feed terminated: %w", err)
			}
			return err
		}
	}
}

func (e *Engine) window(symbol string) *ringbuf.Window {
	w, ok := e.windows[symbol]
	if !ok {
		w = ringbuf.New(e.cfg.WindowSize)
		e.windows[symbol] = w
	}
	return w
}

func (e *Engine) handleBar(ctx context.Context, bar model.Bar) {
	if e.deps.Metrics != nil {
		e.deps.Metrics.BarsTotal.WithLabelValues(bar.Symbol).Inc()
	}
	if e.deps.Health != nil {
		e.deps.Health.MarkBar(bar.TS)
	}
	if e.deps.Persist != nil {
		select {
		case e.deps.Persist <- bar:
		default:
		}
	}

	w := e.window(bar.Symbol)
	w.Append(bar)

	// Exits run before a new entry is considered, same as the backtest.
	if closed := e.deps.Risk.OnBar(bar); closed != nil {
		e.onTradeClosed(ctx, *closed)
	}

	d := e.evaluate(bar, w.Slice())
	if e.deps.Metrics != nil {
		e.deps.Metrics.DecisionsTotal.WithLabelValues(string(d.Direction)).Inc()
	}
	if d.Direction != model.Hold {
		if e.deps.Publisher != nil {
			e.deps.Publisher.PublishDecision(ctx, d)
		}
		e.tryEnter(ctx, bar, d)
	}

	e.deps.Risk.EndBar()
	e.publishAccount(ctx)
	e.checkHalt(bar.TS)
}

// evaluate runs every strategy over the window and combines the signals.
func (e *Engine) evaluate(bar model.Bar, window []model.Bar) model.Decision {
	start := time.Now()
	signals := make([]model.Signal, 0, len(e.deps.Strategies))
	for _, s := range e.deps.Strategies {
		sig := s.Evaluate(window)
		signals = append(signals, sig)
		if e.deps.Metrics != nil {
			e.deps.Metrics.SignalsTotal.WithLabelValues(s.Name(), string(sig.Direction)).Inc()
		}
	}
	d := e.deps.Aggregator.Combine(bar.Symbol, bar.TS, bar.Close, signals)
	if e.deps.Metrics != nil {
		e.deps.Metrics.EvalDuration.Observe(time.Since(start).Seconds())
	}
	return d
}

func (e *Engine) tryEnter(ctx context.Context, bar model.Bar, d model.Decision) {
	if e.cfg.MinSessionQuality > 0 && !session.Tradeable(d.TS, e.cfg.MinSessionQuality) {
		log.Printf("[live] %s %s skipped: session quality %.2f below %.2f",
			d.Symbol, d.Direction, session.Quality(d.TS), e.cfg.MinSessionQuality)
		return
	}

	pos, err := e.deps.Risk.OnDecision(d)
	if err != nil {
		var rej *risk.RejectionError
		if errors.As(err, &rej) {
			if e.deps.Metrics != nil {
				e.deps.Metrics.RejectionsTotal.WithLabelValues(rej.Reason).Inc()
			}
			return
		}
		log.Printf("[live] decision error for %s: %v", d.Symbol, err)
		return
	}
	if pos == nil {
		return
	}

	order := model.Order{
		ID:        fmt.Sprintf("ord-%d", pos.ID),
		Symbol:    pos.Symbol,
		Direction: pos.Direction,
		Qty:       pos.Qty,
		PriceHint: bar.Close,
		Reason:    fmt.Sprintf("confidence %.2f", d.Confidence),
		CreatedAt: d.TS,
	}
	fill, err := e.deps.Executor.Execute(ctx, order)
	if err != nil {
		// Reserved capital must come back when the venue rejects us.
		e.deps.Risk.AbortOpen(pos.Symbol)
		log.Printf("[live] order %s failed, entry rolled back: %v", order.ID, err)
		return
	}
	if e.deps.Journal != nil {
		if jerr := e.deps.Journal.RecordFill(fill); jerr != nil {
			log.Printf("[live] journal fill %s: %v", fill.OrderID, jerr)
		}
	}
	if e.deps.Alerts != nil {
		e.deps.Alerts.Publish(notification.TradeOpened(*pos))
	}
	log.Printf("[live] opened %s %s qty=%.6f @ %.4f (fill %.4f)",
		pos.Direction, pos.Symbol, pos.Qty, pos.EntryPrice, fill.Price)
}

func (e *Engine) onTradeClosed(ctx context.Context, pos model.Position) {
	if e.deps.Metrics != nil {
		e.deps.Metrics.TradesTotal.WithLabelValues(pos.ExitReason).Inc()
	}
	if e.deps.Journal != nil {
		if err := e.deps.Journal.RecordTrade(pos); err != nil {
			log.Printf("[live] journal trade %d: %v", pos.ID, err)
		}
	}
	if e.deps.Publisher != nil {
		e.deps.Publisher.PublishTrade(ctx, pos)
	}
	if e.deps.Alerts != nil {
		e.deps.Alerts.Publish(notification.TradeClosed(pos))
	}
	log.Printf("[live] closed %s %s pnl=%.2f (%s)",
		pos.Direction, pos.Symbol, pos.RealizedPnL, pos.ExitReason)
}

func (e *Engine) publishAccount(ctx context.Context) {
	acct := e.deps.Risk.Account()
	if e.deps.Publisher != nil {
		e.deps.Publisher.PublishAccount(ctx, acct)
	}
	if e.deps.Metrics != nil {
		e.deps.Metrics.Equity.Set(acct.Equity)
		e.deps.Metrics.DrawdownPct.Set(acct.DrawdownPct())
		e.deps.Metrics.DailyLoss.Set(acct.DailyLoss)
		e.deps.Metrics.OpenPositions.Set(float64(acct.OpenPositions))
	}
}

func (e *Engine) checkHalt(ts time.Time) {
	halted := e.deps.Risk.Halted()
	if halted && !e.haltAlerted {
		e.haltAlerted = true
		if e.deps.Alerts != nil {
			e.deps.Alerts.Publish(notification.DrawdownHalted(e.deps.Risk.Account(), ts))
		}
	}
	if !halted {
		e.haltAlerted = false
	}
}
