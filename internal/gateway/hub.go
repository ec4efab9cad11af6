// Package gateway fans the bot's Redis event streams out to WebSocket
// dashboard clients. It is read-only: a dashboard can watch decisions,
// trades and account snapshots but never touch the trading loop.
package gateway

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:       func(r *http.Request) bool { return true },
	EnableCompression: true,
}

type latestEntry struct {
	Data []byte
	TS   time.Time
	Seq  int64
}

// Hub tracks connected WebSocket clients and the latest payload per
// stream so a new client can render immediately.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	latest  map[string]latestEntry
	seqs    map[string]int64
	replay  map[string]*ReplayBuffer

	// Latency measures publish-to-fanout delay for /api/stats.
	Latency *LatencyTracker
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
		latest:  make(map[string]latestEntry),
		seqs:    make(map[string]int64),
		replay:  make(map[string]*ReplayBuffer),
		Latency: NewLatencyTracker(4096),
	}
}

// ServeWS upgrades the request and registers the client.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	c := &Client{conn: conn, send: make(chan []byte, 256), hub: h}

	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	go c.writePump()
	go c.readPump()

	c.sendBacklog()
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// ClientCount returns the number of connected dashboards.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast wraps a stream payload in an envelope and sends it to every
// client. Slow clients are skipped, never waited on.
func (h *Hub) Broadcast(stream string, data []byte, srcTS time.Time) {
	now := time.Now().UTC()
	if !srcTS.IsZero() {
		if lag := now.Sub(srcTS); lag >= 0 {
			h.Latency.Record(float64(lag.Microseconds()) / 1000.0)
		}
	}

	h.mu.Lock()
	h.seqs[stream]++
	seq := h.seqs[stream]
	buf := envelope(stream, data, now, seq)
	h.latest[stream] = latestEntry{Data: data, TS: now, Seq: seq}
	rb, ok := h.replay[stream]
	if !ok {
		rb = NewReplayBuffer(200)
		h.replay[stream] = rb
	}
	h.mu.Unlock()

	rb.Push(buf)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- buf:
		default:
		}
	}
}

// Latest returns the most recent raw payload per stream.
func (h *Hub) Latest() map[string][]byte {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string][]byte, len(h.latest))
	for stream, e := range h.latest {
		cp := make([]byte, len(e.Data))
		copy(cp, e.Data)
		out[stream] = cp
	}
	return out
}

// envelope hand-builds the wrapper JSON to keep the fan-out path free of
// reflection. data must already be valid JSON.
func envelope(stream string, data []byte, ts time.Time, seq int64) []byte {
	buf := make([]byte, 0, len(stream)+len(data)+96)
	buf = append(buf, `{"stream":"`...)
	buf = append(buf, stream...)
	buf = append(buf, `","data":`...)
	buf = append(buf, data...)
	buf = append(buf, `,"ts":"`...)
	buf = ts.AppendFormat(buf, time.RFC3339Nano)
	buf = append(buf, `","seq":`...)
	buf = strconv.AppendInt(buf, seq, 10)
	buf = append(buf, '}')
	return buf
}
