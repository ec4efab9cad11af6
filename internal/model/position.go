package model

import "time"

// PositionStatus is the lifecycle state of a position. There is no
// Closed->Open transition: a re-entry gets a fresh Position with a new ID.
type PositionStatus string

const (
	StatusOpen   PositionStatus = "OPEN"
	StatusClosed PositionStatus = "CLOSED"
)

// Exit reasons recorded on a closed position.
const (
	ExitStopLoss      = "stop-loss"
	ExitTrailingStop  = "trailing-stop"
	ExitTakeProfit    = "take-profit"
	ExitEndOfBacktest = "end-of-backtest"
	ExitManual        = "manual"
)

// Position is a tracked trade. Owned exclusively by the risk manager;
// closed positions are retained append-only for reporting.
type Position struct {
	ID           int64          `json:"id"`
	Symbol       string         `json:"symbol"`
	Direction    Direction      `json:"direction"`
	EntryPrice   float64        `json:"entry_price"`
	Qty          float64        `json:"qty"`
	StopPrice    float64        `json:"stop_price"`
	TrailingStop float64        `json:"trailing_stop"`
	TakeProfit   float64        `json:"take_profit"`
	OpenedAt     time.Time      `json:"opened_at"`
	Status       PositionStatus `json:"status"`

	// Set on close.
	ClosedAt    time.Time `json:"closed_at,omitempty"`
	ExitPrice   float64   `json:"exit_price,omitempty"`
	ExitReason  string    `json:"exit_reason,omitempty"`
	RealizedPnL float64   `json:"realized_pnl"` // net of fees
	Fees        float64   `json:"fees"`
}

// PnLPct returns the realized return of a closed position as a percentage
// of the entry value. Zero for open positions.
func (p *Position) PnLPct() float64 {
	if p.Status != StatusClosed || p.EntryPrice == 0 || p.Qty == 0 {
		return 0
	}
	return p.RealizedPnL / (p.EntryPrice * p.Qty) * 100
}

// Account is the single trading session's capital state. One writer per
// run (the risk manager); everything handed out is a copy.
type Account struct {
	InitialEquity    float64 `json:"initial_equity"`
	Equity           float64 `json:"equity"`
	AvailableCapital float64 `json:"available_capital"`
	RealizedPnL      float64 `json:"realized_pnl"`
	DailyLoss        float64 `json:"daily_loss"` // positive number, resets at day boundary
	PeakEquity       float64 `json:"peak_equity"`
	OpenPositions    int     `json:"open_positions"`
}

// DrawdownPct returns the fractional decline of equity from its peak.
func (a *Account) DrawdownPct() float64 {
	if a.PeakEquity <= 0 {
		return 0
	}
	return (a.PeakEquity - a.Equity) / a.PeakEquity
}

// Order is a sized entry request handed to an execution adapter.
type Order struct {
	ID        string    `json:"id"`
	Symbol    string    `json:"symbol"`
	Direction Direction `json:"direction"`
	Qty       float64   `json:"qty"`
	PriceHint float64   `json:"price_hint"` // 0 = market
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Fill reports an executed order back to the caller.
type Fill struct {
	OrderID  string    `json:"order_id"`
	Symbol   string    `json:"symbol"`
	Qty      float64   `json:"qty"`
	Price    float64   `json:"price"`
	FilledAt time.Time `json:"filled_at"`
	Slippage float64   `json:"slippage"`
}
