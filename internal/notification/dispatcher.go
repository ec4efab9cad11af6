package notification

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

const sendTimeout = 15 * time.Second

// Dispatcher fans alerts out to all configured notifiers without ever
// blocking the caller. Each notifier gets its own buffered queue; when a
// slow backend fills its queue, alerts for that backend are dropped and
// counted rather than stalling the trading loop.
type Dispatcher struct {
	notifiers []Notifier
	queues    []chan Alert
	dropped   atomic.Uint64
	wg        sync.WaitGroup
}

// NewDispatcher creates a dispatcher over the given notifiers.
func NewDispatcher(bufSize int, notifiers ...Notifier) *Dispatcher {
	if bufSize < 1 {
		bufSize = 16
	}
	d := &Dispatcher{notifiers: notifiers}
	for range notifiers {
		d.queues = append(d.queues, make(chan Alert, bufSize))
	}
	return d
}

// Run drains the queues until ctx is cancelled. Call exactly once.
func (d *Dispatcher) Run(ctx context.Context) {
	for i, n := range d.notifiers {
		d.wg.Add(1)
		go func(n Notifier, q <-chan Alert) {
			defer d.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case alert, ok := <-q:
					if !ok {
						return
					}
					sendCtx, cancel := context.WithTimeout(context.Background(), sendTimeout)
					if err := n.Send(sendCtx, alert); err != nil {
						log.Printf("[notify] delivery failed: %v", err)
					}
					cancel()
				}
			}
		}(n, d.queues[i])
	}
	d.wg.Wait()
}

// Publish queues the alert for every notifier. Never blocks.
func (d *Dispatcher) Publish(alert Alert) {
	if alert.TS.IsZero() {
		alert.TS = time.Now().UTC()
	}
	for _, q := range d.queues {
		select {
		case q <- alert:
		default:
			d.dropped.Add(1)
		}
	}
}

// Dropped returns the total number of alerts dropped on full queues.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}
