// Package feed delivers closed market bars to the live engine. The
// Binance websocket adapter is the production source; the replay feed
// drives the same engine from stored history.
package feed

import (
	"context"

	"cryptobotv1/internal/model"
)

// BarFeed streams closed bars into barCh until ctx is cancelled or the
// source is exhausted. Implementations must only emit bars whose period
// has fully closed; a forming bar would leak future information into the
// strategies.
type BarFeed interface {
	Run(ctx context.Context, barCh chan<- model.Bar) error
}
