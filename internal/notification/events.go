package notification

import (
	"fmt"
	"time"

	"cryptobotv1/internal/model"
)

// TradeOpened builds the alert for a freshly opened position.
func TradeOpened(pos model.Position) Alert {
	return Alert{
		Level: AlertInfo,
		Title: fmt.Sprintf("%s %s opened", pos.Direction, pos.Symbol),
		Message: fmt.Sprintf("qty %.6f @ %.2f, stop %.2f, target %.2f",
			pos.Qty, pos.EntryPrice, pos.StopPrice, pos.TakeProfit),
		TS: pos.OpenedAt,
	}
}

// TradeClosed builds the alert for a closed position. Losing exits are
// warnings, winners are informational.
func TradeClosed(pos model.Position) Alert {
	level := AlertInfo
	if pos.RealizedPnL < 0 {
		level = AlertWarning
	}
	return Alert{
		Level: level,
		Title: fmt.Sprintf("%s %s closed (%s)", pos.Direction, pos.Symbol, pos.ExitReason),
		Message: fmt.Sprintf("exit %.2f, pnl %.2f (%.2f%%), fees %.2f",
			pos.ExitPrice, pos.RealizedPnL, pos.PnLPct(), pos.Fees),
		TS: pos.ClosedAt,
	}
}

// DrawdownHalted builds the critical alert raised when the drawdown
// limit stops trading.
func DrawdownHalted(acct model.Account, ts time.Time) Alert {
	return Alert{
		Level: AlertCritical,
		Title: "trading halted: max drawdown",
		Message: fmt.Sprintf("equity %.2f, peak %.2f, drawdown %.2f%%, manual resume required",
			acct.Equity, acct.PeakEquity, acct.DrawdownPct()*100),
		TS: ts,
	}
}

// DailyLossWarning builds the alert raised when the daily loss cap
// starts rejecting entries.
func DailyLossWarning(acct model.Account, ts time.Time) Alert {
	return Alert{
		Level:   AlertWarning,
		Title:   "daily loss cap reached",
		Message: fmt.Sprintf("daily loss %.2f on equity %.2f, entries paused until next UTC day", acct.DailyLoss, acct.Equity),
		TS:      ts,
	}
}

// FeedStale builds the alert for a market data feed that stopped
// delivering bars.
func FeedStale(symbol string, since time.Duration, ts time.Time) Alert {
	return Alert{
		Level:   AlertWarning,
		Title:   "market data stale",
		Message: fmt.Sprintf("no closed bar for %s in %s", symbol, since),
		TS:      ts,
	}
}
