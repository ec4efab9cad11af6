// Package ringbuf provides a fixed-capacity rolling window of bars.
// Appending past capacity overwrites the oldest entry, so a live symbol
// keeps exactly the trailing history the strategies need without
// reallocating per bar.
package ringbuf

import "cryptobotv1/internal/model"

// Window is a rolling bar window. Not safe for concurrent use; the live
// engine owns one per symbol on a single goroutine.
type Window struct {
	buf   []model.Bar
	start int // index of the oldest bar
	count int
}

// New creates a window holding at most capacity bars.
func New(capacity int) *Window {
	if capacity < 1 {
		capacity = 1
	}
	return &Window{buf: make([]model.Bar, capacity)}
}

// Append adds a bar, evicting the oldest when full.
func (w *Window) Append(b model.Bar) {
	if w.count < len(w.buf) {
		w.buf[(w.start+w.count)%len(w.buf)] = b
		w.count++
		return
	}
	w.buf[w.start] = b
	w.start = (w.start + 1) % len(w.buf)
}

// Slice returns the window contents oldest-first as a fresh slice.
func (w *Window) Slice() []model.Bar {
	out := make([]model.Bar, w.count)
	for i := 0; i < w.count; i++ {
		out[i] = w.buf[(w.start+i)%len(w.buf)]
	}
	return out
}

// Last returns the newest bar and whether the window is non-empty.
func (w *Window) Last() (model.Bar, bool) {
	if w.count == 0 {
		return model.Bar{}, false
	}
	return w.buf[(w.start+w.count-1)%len(w.buf)], true
}

// Len returns the number of bars currently held.
func (w *Window) Len() int { return w.count }

// Cap returns the window capacity.
func (w *Window) Cap() int { return len(w.buf) }

// Full reports whether the window has reached capacity.
func (w *Window) Full() bool { return w.count == len(w.buf) }
