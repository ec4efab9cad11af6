// Package execution turns sized orders into fills.
//
// The live engine talks to an Executor and never cares whether the fill
// came from a simulator or an exchange adapter. Paper trading and real
// trading swap at construction time.
package execution

import (
	"context"
	"errors"

	"cryptobotv1/internal/model"
)

// ErrNotFilled is returned when an order could not be executed; the
// caller is expected to roll the pending position back.
var ErrNotFilled = errors.New("execution: order not filled")

// Executor executes a single order synchronously.
type Executor interface {
	// Execute fills the order and returns the resulting fill. An order
	// with PriceHint 0 is a market order.
	Execute(ctx context.Context, order model.Order) (model.Fill, error)
}
