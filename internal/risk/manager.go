// Package risk owns the capital state of a trading session: it sizes
// entries, enforces the protection limits, and drives stop/target/trailing
// exits off completed bars.
//
// The Manager is the single writer of the account and of all positions.
// Backtest and live trading go through the same methods, so the fill
// accounting is identical in both modes.
package risk

import (
	"fmt"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"cryptobotv1/internal/model"
)

// Rejection reasons returned wrapped in a RejectionError.
const (
	ReasonDrawdownHalt        = "drawdown-halt"
	ReasonDailyLossCap        = "daily-loss-cap"
	ReasonPositionExists      = "position-exists"
	ReasonConcurrencyCap      = "concurrency-cap"
	ReasonCooldown            = "cooldown"
	ReasonInsufficientCapital = "insufficient-capital"
	ReasonZeroQuantity        = "zero-quantity"
)

// RejectionError reports why an entry decision was not acted on. The
// account state is untouched when one is returned.
type RejectionError struct {
	Reason string
	Detail string
}

func (e *RejectionError) Error() string {
	if e.Detail == "" {
		return "entry rejected: " + e.Reason
	}
	return fmt.Sprintf("entry rejected: %s (%s)", e.Reason, e.Detail)
}

// IsRejection reports whether err is an entry rejection as opposed to a
// hard failure.
func IsRejection(err error) bool {
	_, ok := err.(*RejectionError)
	return ok
}

func reject(reason, format string, args ...interface{}) error {
	return &RejectionError{Reason: reason, Detail: fmt.Sprintf(format, args...)}
}

type lastDecision struct {
	ts         time.Time
	confidence float64
}

// Manager enforces the risk limits and tracks all positions and capital.
type Manager struct {
	mu  sync.Mutex
	cfg Config

	acct   model.Account
	open   map[string]*model.Position
	closed []model.Position

	// Capital freed by exits inside the current bar; credited to the
	// account at EndBar so a same-bar entry cannot spend it.
	pendingCapital float64

	halted            bool
	currentDay        time.Time
	consecutiveLosses int
	nextID            int64
	lastEntry         map[string]lastDecision
}

// NewManager creates a Manager with the given config and starting equity.
func NewManager(cfg Config, initialEquity float64) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if initialEquity <= 0 {
		return nil, fmt.Errorf("risk: initial equity %.2f must be positive", initialEquity)
	}
	return &Manager{
		cfg: cfg,
		acct: model.Account{
			InitialEquity:    initialEquity,
			Equity:           initialEquity,
			AvailableCapital: initialEquity,
			PeakEquity:       initialEquity,
		},
		open:      make(map[string]*model.Position),
		lastEntry: make(map[string]lastDecision),
	}, nil
}

// OnDecision applies an aggregated decision. A Hold returns (nil, nil)
// without touching any state. A Buy or Sell either opens a position and
// returns it, or returns a RejectionError naming the violated limit.
func (m *Manager) OnDecision(d model.Decision) (*model.Position, error) {
	if d.Direction == model.Hold {
		return nil, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.rollDay(d.TS)

	if m.halted {
		return nil, reject(ReasonDrawdownHalt, "drawdown %.2f%% exceeded limit", m.acct.DrawdownPct()*100)
	}
	if m.acct.DailyLoss >= m.acct.Equity*m.cfg.MaxDailyLossPct {
		return nil, reject(ReasonDailyLossCap, "daily loss %.2f at cap", m.acct.DailyLoss)
	}
	if _, exists := m.open[d.Symbol]; exists {
		return nil, reject(ReasonPositionExists, "open position on %s", d.Symbol)
	}
	if len(m.open) >= m.cfg.MaxConcurrent {
		return nil, reject(ReasonConcurrencyCap, "%d positions open", len(m.open))
	}
	if m.cfg.SignalCooldown > 0 {
		if last, ok := m.lastEntry[d.Symbol]; ok && d.TS.Sub(last.ts) < m.cfg.SignalCooldown {
			if d.Confidence < last.confidence+m.cfg.CooldownOverrideDelta {
				return nil, reject(ReasonCooldown, "last entry %s ago", d.TS.Sub(last.ts))
			}
		}
	}
	if d.Price <= 0 {
		return nil, fmt.Errorf("risk: invalid decision price %.8f for %s", d.Price, d.Symbol)
	}

	notional := m.acct.Equity * m.cfg.MaxPositionPct
	if m.cfg.ConsecutiveLossThreshold > 0 && m.consecutiveLosses >= m.cfg.ConsecutiveLossThreshold {
		notional *= m.cfg.PositionReduceFactor
		log.Printf("[risk] sizing down %s after %d consecutive losses", d.Symbol, m.consecutiveLosses)
	}
	if notional > m.acct.AvailableCapital {
		notional = m.acct.AvailableCapital
	}
	if notional <= 0 {
		return nil, reject(ReasonInsufficientCapital, "available %.2f", m.acct.AvailableCapital)
	}
	qty := notional / d.Price
	if qty <= 0 {
		return nil, reject(ReasonZeroQuantity, "notional %.2f at price %.2f", notional, d.Price)
	}

	m.nextID++
	pos := &model.Position{
		ID:         m.nextID,
		Symbol:     d.Symbol,
		Direction:  d.Direction,
		EntryPrice: d.Price,
		Qty:        qty,
		OpenedAt:   d.TS,
		Status:     model.StatusOpen,
		Fees:       qty * d.Price * m.cfg.FeeRate,
	}
	if d.Direction == model.Buy {
		pos.StopPrice = d.Price * (1 - m.cfg.StopLossPct)
		pos.TakeProfit = d.Price * (1 + m.cfg.TakeProfitPct)
		pos.TrailingStop = d.Price * (1 - m.cfg.TrailingStopPct)
	} else {
		pos.StopPrice = d.Price * (1 + m.cfg.StopLossPct)
		pos.TakeProfit = d.Price * (1 - m.cfg.TakeProfitPct)
		pos.TrailingStop = d.Price * (1 + m.cfg.TrailingStopPct)
	}

	m.acct.AvailableCapital -= qty * d.Price
	m.acct.OpenPositions = len(m.open) + 1
	m.open[d.Symbol] = pos
	m.lastEntry[d.Symbol] = lastDecision{ts: d.TS, confidence: d.Confidence}

	log.Printf("[risk] opened %s %s qty=%.6f entry=%.2f stop=%.2f target=%.2f",
		pos.Direction, pos.Symbol, pos.Qty, pos.EntryPrice, pos.StopPrice, pos.TakeProfit)

	cp := *pos
	return &cp, nil
}

// OnBar advances the open position on the bar's symbol: the trailing stop
// ratchets off the bar extreme first, then stop, trailing and target are
// checked against the bar range. Returns the position closed on this bar,
// or nil.
func (m *Manager) OnBar(bar model.Bar) *model.Position {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.rollDay(bar.TS)

	pos, ok := m.open[bar.Symbol]
	if !ok {
		return nil
	}

	// Ratchet the trailing stop. It only ever tightens.
	if pos.Direction == model.Buy {
		if t := bar.High * (1 - m.cfg.TrailingStopPct); t > pos.TrailingStop {
			pos.TrailingStop = t
		}
	} else {
		if t := bar.Low * (1 + m.cfg.TrailingStopPct); t < pos.TrailingStop {
			pos.TrailingStop = t
		}
	}

	exitPrice, reason := m.exitTrigger(pos, bar)
	if reason == "" {
		return nil
	}
	return m.closeLocked(pos, bar.TS, exitPrice, reason)
}

// exitTrigger returns the exit price and reason for the bar, or ("", "")
// when nothing triggered. When both the protective stop and the profit
// target trigger inside one bar, the stop wins unless configured otherwise.
func (m *Manager) exitTrigger(pos *model.Position, bar model.Bar) (float64, string) {
	var stopPx, targetPx float64
	var stopHit, targetHit bool
	stopReason := model.ExitStopLoss

	if pos.Direction == model.Buy {
		eff := math.Max(pos.StopPrice, pos.TrailingStop)
		if pos.TrailingStop > pos.StopPrice {
			stopReason = model.ExitTrailingStop
		}
		stopHit = bar.Low <= eff
		stopPx = eff
		targetHit = bar.High >= pos.TakeProfit
		targetPx = pos.TakeProfit
	} else {
		eff := math.Min(pos.StopPrice, pos.TrailingStop)
		if pos.TrailingStop < pos.StopPrice {
			stopReason = model.ExitTrailingStop
		}
		stopHit = bar.High >= eff
		stopPx = eff
		targetHit = bar.Low <= pos.TakeProfit
		targetPx = pos.TakeProfit
	}

	switch {
	case stopHit && targetHit:
		if m.cfg.TakeProfitFirst {
			return targetPx, model.ExitTakeProfit
		}
		return stopPx, stopReason
	case stopHit:
		return stopPx, stopReason
	case targetHit:
		return targetPx, model.ExitTakeProfit
	}
	return 0, ""
}

// closeLocked settles the position at exitPrice. Caller holds the lock.
func (m *Manager) closeLocked(pos *model.Position, ts time.Time, exitPrice float64, reason string) *model.Position {
	gross := (exitPrice - pos.EntryPrice) * pos.Qty
	if pos.Direction == model.Sell {
		gross = -gross
	}
	pos.Fees += pos.Qty * exitPrice * m.cfg.FeeRate
	pos.RealizedPnL = gross - pos.Fees
	pos.Status = model.StatusClosed
	pos.ClosedAt = ts
	pos.ExitPrice = exitPrice
	pos.ExitReason = reason

	m.acct.RealizedPnL += pos.RealizedPnL
	m.acct.Equity += pos.RealizedPnL
	if pos.RealizedPnL < 0 {
		m.acct.DailyLoss += -pos.RealizedPnL
		m.consecutiveLosses++
	} else {
		m.consecutiveLosses = 0
	}
	if m.acct.Equity > m.acct.PeakEquity {
		m.acct.PeakEquity = m.acct.Equity
	}

	freed := pos.Qty*pos.EntryPrice + pos.RealizedPnL
	if m.cfg.ImmediateReinvest {
		m.acct.AvailableCapital += freed
	} else {
		m.pendingCapital += freed
	}

	delete(m.open, pos.Symbol)
	m.acct.OpenPositions = len(m.open)
	m.closed = append(m.closed, *pos)

	log.Printf("[risk] closed %s %s exit=%.2f pnl=%.2f (%s)",
		pos.Direction, pos.Symbol, exitPrice, pos.RealizedPnL, reason)

	if dd := m.acct.DrawdownPct(); dd >= m.cfg.MaxDrawdownPct && !m.halted {
		m.halted = true
		log.Printf("[risk] trading halted: drawdown %.2f%% >= %.2f%%", dd*100, m.cfg.MaxDrawdownPct*100)
	}

	cp := *pos
	return &cp
}

// EndBar credits capital freed by exits during the bar. Call once per
// timestamp after all of its bars are processed.
func (m *Manager) EndBar() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acct.AvailableCapital += m.pendingCapital
	m.pendingCapital = 0
}

// CloseAll flattens every open position at the given prices (keyed by
// symbol; a symbol without a price closes at its entry). Freed capital is
// credited immediately.
func (m *Manager) CloseAll(ts time.Time, prices map[string]float64, reason string) []model.Position {
	m.mu.Lock()
	defer m.mu.Unlock()

	symbols := make([]string, 0, len(m.open))
	for sym := range m.open {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	var out []model.Position
	for _, sym := range symbols {
		pos := m.open[sym]
		px, ok := prices[sym]
		if !ok || px <= 0 {
			px = pos.EntryPrice
		}
		out = append(out, *m.closeLocked(pos, ts, px, reason))
	}
	m.acct.AvailableCapital += m.pendingCapital
	m.pendingCapital = 0
	return out
}

// AbortOpen rolls back a position whose entry order never filled. The
// reserved capital returns to the account and the position is discarded
// without entering the closed history.
func (m *Manager) AbortOpen(symbol string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	pos, ok := m.open[symbol]
	if !ok {
		return false
	}
	m.acct.AvailableCapital += pos.Qty * pos.EntryPrice
	delete(m.open, symbol)
	m.acct.OpenPositions = len(m.open)
	delete(m.lastEntry, symbol)
	log.Printf("[risk] aborted unfilled entry on %s", symbol)
	return true
}

// Halted reports whether the drawdown halt is active.
func (m *Manager) Halted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.halted
}

// Resume clears the drawdown halt. The equity peak is rebased to the
// current equity so the halt does not immediately re-trigger.
func (m *Manager) Resume() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.halted {
		return
	}
	m.halted = false
	m.acct.PeakEquity = m.acct.Equity
	log.Printf("[risk] trading resumed, peak rebased to %.2f", m.acct.Equity)
}

// Account returns a snapshot of the account state.
func (m *Manager) Account() model.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	acct := m.acct
	acct.OpenPositions = len(m.open)
	return acct
}

// OpenPositions returns copies of all open positions.
func (m *Manager) OpenPositions() []model.Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Position, 0, len(m.open))
	for _, p := range m.open {
		out = append(out, *p)
	}
	return out
}

// ClosedPositions returns the closed-position history in close order.
func (m *Manager) ClosedPositions() []model.Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Position, len(m.closed))
	copy(out, m.closed)
	return out
}

// CheckIntegrity verifies the capital invariant: equity must equal the
// initial equity plus the sum of realized P&L.
func (m *Manager) CheckIntegrity() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	sum := 0.0
	for _, p := range m.closed {
		sum += p.RealizedPnL
	}
	if diff := m.acct.Equity - (m.acct.InitialEquity + sum); math.Abs(diff) > 1e-6 {
		return fmt.Errorf("risk: equity drift %.8f from realized history", diff)
	}
	return nil
}

// rollDay resets the daily loss counter when the bar timestamp crosses a
// UTC day boundary. Caller holds the lock.
func (m *Manager) rollDay(ts time.Time) {
	day := ts.UTC().Truncate(24 * time.Hour)
	if m.currentDay.IsZero() {
		m.currentDay = day
		return
	}
	if day.After(m.currentDay) {
		m.currentDay = day
		m.acct.DailyLoss = 0
	}
}
