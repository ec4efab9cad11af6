package risk

import (
	"fmt"
	"time"
)

// Config defines the position-sizing and protection parameters. All
// percentages are fractions (0.05 = 5%).
type Config struct {
	MaxPositionPct  float64 `json:"max_position_pct"`  // equity fraction per position
	StopLossPct     float64 `json:"stop_loss_pct"`     // initial stop distance from entry
	TakeProfitPct   float64 `json:"take_profit_pct"`   // profit target distance from entry
	TrailingStopPct float64 `json:"trailing_stop_pct"` // trail distance from the best extreme
	MaxDailyLossPct float64 `json:"max_daily_loss_pct"`
	MaxDrawdownPct  float64 `json:"max_drawdown_pct"`
	MaxConcurrent   int     `json:"max_concurrent"`

	FeeRate float64 `json:"fee_rate"` // taker fee per side

	// After ConsecutiveLossThreshold losing trades in a row, new positions
	// are sized down by PositionReduceFactor until a winner resets the run.
	ConsecutiveLossThreshold int     `json:"consecutive_loss_threshold"`
	PositionReduceFactor     float64 `json:"position_reduce_factor"`

	// TakeProfitFirst flips the tie-break when stop and target trigger on
	// the same bar. The default is the conservative stop-first read.
	TakeProfitFirst bool `json:"take_profit_first"`

	// ImmediateReinvest credits freed capital within the same bar instead
	// of at the bar boundary.
	ImmediateReinvest bool `json:"immediate_reinvest"`

	// SignalCooldown suppresses re-entry on a symbol for the given span
	// after a decision, unless the new confidence beats the previous one
	// by CooldownOverrideDelta. Zero disables the cooldown.
	SignalCooldown        time.Duration `json:"signal_cooldown"`
	CooldownOverrideDelta float64       `json:"cooldown_override_delta"`
}

// DefaultConfig returns the standard protection stack.
func DefaultConfig() Config {
	return Config{
		MaxPositionPct:           0.05,
		StopLossPct:              0.012,
		TakeProfitPct:            0.06,
		TrailingStopPct:          0.02,
		MaxDailyLossPct:          0.03,
		MaxDrawdownPct:           0.15,
		MaxConcurrent:            5,
		FeeRate:                  0.001,
		ConsecutiveLossThreshold: 3,
		PositionReduceFactor:     0.5,
	}
}

// Validate checks the config at startup.
func (c Config) Validate() error {
	checkPct := func(name string, v float64) error {
		if v <= 0 || v >= 1 {
			return fmt.Errorf("risk config: %s %.4f out of (0,1)", name, v)
		}
		return nil
	}
	if err := checkPct("max position pct", c.MaxPositionPct); err != nil {
		return err
	}
	if err := checkPct("stop loss pct", c.StopLossPct); err != nil {
		return err
	}
	if err := checkPct("take profit pct", c.TakeProfitPct); err != nil {
		return err
	}
	if err := checkPct("trailing stop pct", c.TrailingStopPct); err != nil {
		return err
	}
	if err := checkPct("max daily loss pct", c.MaxDailyLossPct); err != nil {
		return err
	}
	if err := checkPct("max drawdown pct", c.MaxDrawdownPct); err != nil {
		return err
	}
	if c.MaxConcurrent <= 0 {
		return fmt.Errorf("risk config: max concurrent %d must be positive", c.MaxConcurrent)
	}
	if c.FeeRate < 0 || c.FeeRate >= 0.1 {
		return fmt.Errorf("risk config: fee rate %.4f out of [0,0.1)", c.FeeRate)
	}
	if c.ConsecutiveLossThreshold < 0 {
		return fmt.Errorf("risk config: negative consecutive loss threshold")
	}
	if c.ConsecutiveLossThreshold > 0 && (c.PositionReduceFactor <= 0 || c.PositionReduceFactor > 1) {
		return fmt.Errorf("risk config: position reduce factor %.2f out of (0,1]", c.PositionReduceFactor)
	}
	if c.SignalCooldown < 0 {
		return fmt.Errorf("risk config: negative signal cooldown")
	}
	return nil
}
