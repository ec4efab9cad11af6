package ringbuf

import (
	"testing"
	"time"

	"cryptobotv1/internal/model"
)

func barAt(i int) model.Bar {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return model.Bar{
		Symbol: "BTC/USDT",
		TS:     base.Add(time.Duration(i) * time.Hour),
		Close:  float64(100 + i),
	}
}

func TestAppendBelowCapacity(t *testing.T) {
	w := New(5)
	for i := 0; i < 3; i++ {
		w.Append(barAt(i))
	}
	if w.Len() != 3 || w.Full() {
		t.Fatalf("len=%d full=%v, want 3/false", w.Len(), w.Full())
	}
	s := w.Slice()
	if len(s) != 3 || s[0].Close != 100 || s[2].Close != 102 {
		t.Fatalf("slice = %v", s)
	}
}

func TestAppendEvictsOldest(t *testing.T) {
	w := New(4)
	for i := 0; i < 10; i++ {
		w.Append(barAt(i))
	}
	if !w.Full() || w.Len() != 4 {
		t.Fatalf("len=%d, want full at 4", w.Len())
	}
	s := w.Slice()
	for i, b := range s {
		if want := float64(100 + 6 + i); b.Close != want {
			t.Errorf("slice[%d].Close = %.0f, want %.0f", i, b.Close, want)
		}
	}
	for i := 1; i < len(s); i++ {
		if !s[i-1].TS.Before(s[i].TS) {
			t.Errorf("slice not chronological at %d", i)
		}
	}
}

func TestLast(t *testing.T) {
	w := New(3)
	if _, ok := w.Last(); ok {
		t.Fatal("Last on empty window returned ok")
	}
	w.Append(barAt(0))
	w.Append(barAt(1))
	last, ok := w.Last()
	if !ok || last.Close != 101 {
		t.Fatalf("last = %v ok=%v, want close 101", last, ok)
	}
}

func TestSliceIsACopy(t *testing.T) {
	w := New(3)
	w.Append(barAt(0))
	s := w.Slice()
	s[0].Close = -1
	if got, _ := w.Last(); got.Close != 100 {
		t.Fatal("mutating the slice changed the window")
	}
}
