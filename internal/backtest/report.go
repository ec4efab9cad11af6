package backtest

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"cryptobotv1/internal/model"
)

// EquityPoint is one sample of the equity curve, taken after all bars of
// a timestamp settled.
type EquityPoint struct {
	TS     time.Time `json:"ts"`
	Equity float64   `json:"equity"`
}

// Result is the full outcome of a backtest run.
type Result struct {
	Symbols []string  `json:"symbols"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Bars    int       `json:"bars"`

	InitialEquity  float64 `json:"initial_equity"`
	FinalEquity    float64 `json:"final_equity"`
	TotalReturnPct float64 `json:"total_return_pct"`

	Trades       int     `json:"trades"`
	Wins         int     `json:"wins"`
	Losses       int     `json:"losses"`
	WinRatePct   float64 `json:"win_rate_pct"`
	AvgWin       float64 `json:"avg_win"`
	AvgLoss      float64 `json:"avg_loss"` // negative
	ProfitFactor float64 `json:"profit_factor"`
	TradesPerDay float64 `json:"trades_per_day"`
	TotalFees    float64 `json:"total_fees"`

	MaxDrawdownPct float64 `json:"max_drawdown_pct"`
	Sharpe         float64 `json:"sharpe"` // daily returns, annualized sqrt(365)

	Rejections map[string]int   `json:"rejections,omitempty"`
	Positions  []model.Position `json:"positions"`
	Curve      []EquityPoint    `json:"equity_curve"`
}

func buildResult(symbols []string, acct model.Account, positions []model.Position, curve []EquityPoint, bars int, rejections map[string]int) *Result {
	res := &Result{
		Symbols:       symbols,
		Bars:          bars,
		InitialEquity: acct.InitialEquity,
		FinalEquity:   acct.Equity,
		Positions:     positions,
		Curve:         curve,
		Rejections:    rejections,
	}
	if len(curve) > 0 {
		res.Start = curve[0].TS
		res.End = curve[len(curve)-1].TS
	}
	if acct.InitialEquity > 0 {
		res.TotalReturnPct = (acct.Equity - acct.InitialEquity) / acct.InitialEquity * 100
	}

	var grossWin, grossLoss float64
	for _, p := range positions {
		res.Trades++
		res.TotalFees += p.Fees
		if p.RealizedPnL >= 0 {
			res.Wins++
			grossWin += p.RealizedPnL
		} else {
			res.Losses++
			grossLoss += -p.RealizedPnL
		}
	}
	if res.Trades > 0 {
		res.WinRatePct = float64(res.Wins) / float64(res.Trades) * 100
	}
	if res.Wins > 0 {
		res.AvgWin = grossWin / float64(res.Wins)
	}
	if res.Losses > 0 {
		res.AvgLoss = -grossLoss / float64(res.Losses)
	}
	if grossLoss > 0 {
		res.ProfitFactor = grossWin / grossLoss
	}
	if days := res.End.Sub(res.Start).Hours() / 24; days >= 1 {
		res.TradesPerDay = float64(res.Trades) / days
	} else {
		res.TradesPerDay = float64(res.Trades)
	}

	res.MaxDrawdownPct = maxDrawdown(curve) * 100
	res.Sharpe = sharpe(curve)
	return res
}

// maxDrawdown returns the deepest peak-to-trough decline as a fraction.
func maxDrawdown(curve []EquityPoint) float64 {
	peak, worst := 0.0, 0.0
	for _, p := range curve {
		if p.Equity > peak {
			peak = p.Equity
		}
		if peak > 0 {
			if dd := (peak - p.Equity) / peak; dd > worst {
				worst = dd
			}
		}
	}
	return worst
}

// sharpe computes the annualized return/volatility ratio over UTC-daily
// equity samples. Zero when there are fewer than two daily returns or no
// volatility at all.
func sharpe(curve []EquityPoint) float64 {
	if len(curve) == 0 {
		return 0
	}

	// Last equity sample of each UTC day, in order.
	var days []float64
	var curDay time.Time
	for _, p := range curve {
		day := p.TS.UTC().Truncate(24 * time.Hour)
		if !day.Equal(curDay) || len(days) == 0 {
			days = append(days, p.Equity)
			curDay = day
		} else {
			days[len(days)-1] = p.Equity
		}
	}
	if len(days) < 3 {
		return 0
	}

	returns := make([]float64, 0, len(days)-1)
	for i := 1; i < len(days); i++ {
		if days[i-1] != 0 {
			returns = append(returns, (days[i]-days[i-1])/days[i-1])
		}
	}
	if len(returns) < 2 {
		return 0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)
	if variance == 0 {
		return 0
	}
	return mean / math.Sqrt(variance) * math.Sqrt(365)
}

// Render formats the report as a terminal summary box.
func (r *Result) Render() string {
	var b strings.Builder
	line := func(format string, args ...interface{}) {
		fmt.Fprintf(&b, "║  %-36s ║\n", fmt.Sprintf(format, args...))
	}

	b.WriteString("╔═══════════════════════════════════════╗\n")
	b.WriteString("║          BACKTEST COMPLETE            ║\n")
	b.WriteString("╠═══════════════════════════════════════╣\n")
	line("Symbols:      %s", strings.Join(r.Symbols, ","))
	line("Period:       %s .. %s", r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"))
	line("Bars:         %d", r.Bars)
	line("Equity:       %.2f -> %.2f", r.InitialEquity, r.FinalEquity)
	line("Return:       %+.2f%%", r.TotalReturnPct)
	line("Trades:       %d (%.2f/day)", r.Trades, r.TradesPerDay)
	line("Win rate:     %.1f%% (%dW/%dL)", r.WinRatePct, r.Wins, r.Losses)
	line("Avg win/loss: %.2f / %.2f", r.AvgWin, r.AvgLoss)
	line("Profit factor: %.2f", r.ProfitFactor)
	line("Fees paid:    %.2f", r.TotalFees)
	line("Max drawdown: %.2f%%", r.MaxDrawdownPct)
	line("Sharpe:       %.2f", r.Sharpe)
	if len(r.Rejections) > 0 {
		reasons := make([]string, 0, len(r.Rejections))
		for reason := range r.Rejections {
			reasons = append(reasons, reason)
		}
		sort.Strings(reasons)
		for _, reason := range reasons {
			line("Rejected %s: %d", reason, r.Rejections[reason])
		}
	}
	b.WriteString("╚═══════════════════════════════════════╝\n")
	return b.String()
}

// WriteJSON writes the full report, trades and equity curve included.
func (r *Result) WriteJSON(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("backtest: marshal report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("backtest: write report: %w", err)
	}
	return nil
}
