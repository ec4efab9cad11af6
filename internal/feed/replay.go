package feed

import (
	"context"
	"log"
	"sort"
	"time"

	"cryptobotv1/internal/model"
)

// ReplayFeed emits stored bars in timeline order at a configurable
// speed. With speed 0 it runs flat out; 1.0 replays the original gaps.
// It drives the same live engine code path as the websocket feed.
type ReplayFeed struct {
	series []model.Series
	speed  float64
}

// NewReplayFeed creates a replay over the given series.
func NewReplayFeed(series []model.Series, speed float64) *ReplayFeed {
	return &ReplayFeed{series: series, speed: speed}
}

// Run emits every bar, ordered by timestamp then symbol, and returns
// after the last one. The caller usually closes barCh afterwards.
func (r *ReplayFeed) Run(ctx context.Context, barCh chan<- model.Bar) error {
	var all []model.Bar
	for i := range r.series {
		all = append(all, r.series[i].Bars...)
	}
	sort.SliceStable(all, func(a, b int) bool {
		if !all[a].TS.Equal(all[b].TS) {
			return all[a].TS.Before(all[b].TS)
		}
		return all[a].Symbol < all[b].Symbol
	})

	log.Printf("[replay] replaying %d bars, speed=%.1fx", len(all), r.speed)

	var prevTS time.Time
	emitted := 0
	for _, b := range all {
		if r.speed > 0 && !prevTS.IsZero() {
			if gap := b.TS.Sub(prevTS); gap > 0 {
				scaled := time.Duration(float64(gap) / r.speed)
				if scaled > 5*time.Second {
					scaled = 5 * time.Second
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(scaled):
				}
			}
		}
		prevTS = b.TS

		select {
		case barCh <- b:
			emitted++
		case <-ctx.Done():
			log.Printf("[replay] cancelled after %d bars", emitted)
			return ctx.Err()
		}
	}

	log.Printf("[replay] completed: %d bars", emitted)
	return nil
}
