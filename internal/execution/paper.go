package execution

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"cryptobotv1/internal/model"
)

// PaperExecutor simulates fills without touching an exchange. Buys fill
// above the hint by the slippage rate, sells below it.
type PaperExecutor struct {
	mu       sync.Mutex
	fills    []model.Fill
	orderSeq int64

	slippageRate float64 // fraction per side, e.g. 0.0005
	now          func() time.Time
}

// NewPaperExecutor creates a paper executor with the given slippage rate.
func NewPaperExecutor(slippageRate float64) *PaperExecutor {
	return &PaperExecutor{
		fills:        make([]model.Fill, 0, 256),
		slippageRate: slippageRate,
		now:          time.Now,
	}
}

// Execute simulates an immediate fill at the order's price hint adjusted
// for slippage. Orders without a price hint cannot be simulated.
func (p *PaperExecutor) Execute(_ context.Context, order model.Order) (model.Fill, error) {
	if order.Qty <= 0 {
		return model.Fill{}, fmt.Errorf("%w: qty %.8f", ErrNotFilled, order.Qty)
	}
	if order.PriceHint <= 0 {
		return model.Fill{}, fmt.Errorf("%w: market order needs a reference price in paper mode", ErrNotFilled)
	}

	slip := order.PriceHint * p.slippageRate
	price := order.PriceHint
	if order.Direction == model.Buy {
		price += slip
	} else {
		price -= slip
	}

	p.mu.Lock()
	p.orderSeq++
	fill := model.Fill{
		OrderID:  fmt.Sprintf("PAPER-%d", p.orderSeq),
		Symbol:   order.Symbol,
		Qty:      order.Qty,
		Price:    price,
		FilledAt: p.now().UTC(),
		Slippage: slip,
	}
	p.fills = append(p.fills, fill)
	p.mu.Unlock()

	log.Printf("[paper] %s %s qty=%.6f price=%.2f (slip=%.4f) order=%s reason=%s",
		order.Direction, order.Symbol, order.Qty, price, slip, fill.OrderID, order.Reason)
	return fill, nil
}

// Fills returns a snapshot of every simulated fill.
func (p *PaperExecutor) Fills() []model.Fill {
	p.mu.Lock()
	defer p.mu.Unlock()
	cp := make([]model.Fill, len(p.fills))
	copy(cp, p.fills)
	return cp
}
