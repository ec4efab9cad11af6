package gateway

import "sync"

// ReplayBuffer keeps the most recent envelopes for one stream so new
// clients can backfill. Thread-safe.
type ReplayBuffer struct {
	mu   sync.RWMutex
	buf  [][]byte
	pos  int
	full bool
}

func NewReplayBuffer(capacity int) *ReplayBuffer {
	if capacity <= 0 {
		capacity = 200
	}
	return &ReplayBuffer{buf: make([][]byte, capacity)}
}

// Push appends an envelope, overwriting the oldest when full. The slice
// is retained, not copied; callers must not mutate it afterwards.
func (rb *ReplayBuffer) Push(msg []byte) {
	rb.mu.Lock()
	rb.buf[rb.pos] = msg
	rb.pos = (rb.pos + 1) % len(rb.buf)
	if rb.pos == 0 {
		rb.full = true
	}
	rb.mu.Unlock()
}

// Entries returns the buffered envelopes, oldest first.
func (rb *ReplayBuffer) Entries() [][]byte {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	n := rb.pos
	start := 0
	if rb.full {
		n = len(rb.buf)
		start = rb.pos
	}
	out := make([][]byte, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, rb.buf[(start+i)%len(rb.buf)])
	}
	return out
}

// Len returns the number of buffered envelopes.
func (rb *ReplayBuffer) Len() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	if rb.full {
		return len(rb.buf)
	}
	return rb.pos
}
