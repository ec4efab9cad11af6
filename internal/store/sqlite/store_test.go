package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"cryptobotv1/internal/model"
)

func testBars(symbol string, n int) []model.Bar {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.Bar, n)
	for i := 0; i < n; i++ {
		price := 100 + float64(i)
		out[i] = model.Bar{
			Symbol: symbol,
			TS:     base.Add(time.Duration(i) * time.Hour),
			Open:   price,
			High:   price + 1,
			Low:    price - 1,
			Close:  price + 0.5,
			Volume: 1000,
		}
	}
	return out
}

func TestWriteAndReadSeries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bars.db")
	w, err := New(WriterConfig{DBPath: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	bars := testBars("BTC/USDT", 48)
	if err := w.WriteBars(bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer r.Close()

	s, err := r.ReadSeries("BTC/USDT", 0, 0)
	if err != nil {
		t.Fatalf("ReadSeries: %v", err)
	}
	if len(s.Bars) != 48 {
		t.Fatalf("bars = %d, want 48", len(s.Bars))
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("read series invalid: %v", err)
	}
	if got := s.Bars[10]; got.Close != bars[10].Close || !got.TS.Equal(bars[10].TS) {
		t.Errorf("bar 10 = %+v, want %+v", got, bars[10])
	}
}

func TestWriteIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bars.db")
	w, err := New(WriterConfig{DBPath: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	bars := testBars("BTC/USDT", 10)
	if err := w.WriteBars(bars); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := w.WriteBars(bars); err != nil {
		t.Fatalf("second write: %v", err)
	}

	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer r.Close()
	s, err := r.ReadSeries("BTC/USDT", 0, 0)
	if err != nil {
		t.Fatalf("ReadSeries: %v", err)
	}
	if len(s.Bars) != 10 {
		t.Fatalf("bars = %d after double write, want 10", len(s.Bars))
	}
}

func TestReadRecentAndLastTimestamp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bars.db")
	w, err := New(WriterConfig{DBPath: path})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer w.Close()

	bars := testBars("ETH/USDT", 30)
	if err := w.WriteBars(bars); err != nil {
		t.Fatalf("WriteBars: %v", err)
	}

	last, err := w.LastTimestamp("ETH/USDT")
	if err != nil {
		t.Fatalf("LastTimestamp: %v", err)
	}
	if want := bars[29].TS.Unix(); last != want {
		t.Errorf("last ts = %d, want %d", last, want)
	}
	if last, _ := w.LastTimestamp("NOPE/USDT"); last != 0 {
		t.Errorf("last ts for unknown symbol = %d, want 0", last)
	}

	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer r.Close()

	recent, err := r.ReadRecent("ETH/USDT", 5)
	if err != nil {
		t.Fatalf("ReadRecent: %v", err)
	}
	if len(recent) != 5 {
		t.Fatalf("recent = %d, want 5", len(recent))
	}
	if !recent[0].TS.Before(recent[4].TS) {
		t.Error("recent bars not chronological")
	}
	if !recent[4].TS.Equal(bars[29].TS) {
		t.Errorf("recent end = %v, want newest bar %v", recent[4].TS, bars[29].TS)
	}

	syms, err := r.Symbols()
	if err != nil {
		t.Fatalf("Symbols: %v", err)
	}
	if len(syms) != 1 || syms[0] != "ETH/USDT" {
		t.Errorf("symbols = %v", syms)
	}
}
