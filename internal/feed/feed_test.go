package feed

import (
	"context"
	"testing"
	"time"

	"cryptobotv1/internal/model"
)

func TestStreamName(t *testing.T) {
	if got := streamName("BTC/USDT", "1h"); got != "btcusdt@kline_1h" {
		t.Errorf("streamName = %q", got)
	}
	if got := streamName("SOL/USDC", "5m"); got != "solusdc@kline_5m" {
		t.Errorf("streamName = %q", got)
	}
}

func TestStreamURLCombined(t *testing.T) {
	f, err := NewBinanceFeed(BinanceConfig{
		Symbols:  []string{"BTC/USDT", "ETH/USDT"},
		Interval: "1h",
	})
	if err != nil {
		t.Fatalf("NewBinanceFeed: %v", err)
	}
	want := defaultStreamHost + "/stream?streams=btcusdt@kline_1h/ethusdt@kline_1h"
	if got := f.streamURL(); got != want {
		t.Errorf("url = %q, want %q", got, want)
	}
}

func TestParseKlineMessage(t *testing.T) {
	msg := []byte(`{
		"stream": "btcusdt@kline_1h",
		"data": {
			"e": "kline", "E": 1709294400123, "s": "BTCUSDT",
			"k": {
				"t": 1709290800000, "T": 1709294399999, "s": "BTCUSDT", "i": "1h",
				"o": "62000.10", "c": "62500.50", "h": "62800.00", "l": "61900.00",
				"v": "1234.567", "x": true
			}
		}
	}`)

	bar, closed, err := parseKlineMessage(msg)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !closed {
		t.Error("closed = false, want true")
	}
	if bar.Symbol != "BTC/USDT" {
		t.Errorf("symbol = %q, want BTC/USDT", bar.Symbol)
	}
	if bar.Open != 62000.10 || bar.Close != 62500.50 || bar.High != 62800 || bar.Low != 61900 {
		t.Errorf("ohlc = %+v", bar)
	}
	if bar.Volume != 1234.567 {
		t.Errorf("volume = %f", bar.Volume)
	}
	if want := time.Unix(1709290800, 0).UTC(); !bar.TS.Equal(want) {
		t.Errorf("ts = %v, want %v", bar.TS, want)
	}
}

func TestParseKlineMessageFormingBar(t *testing.T) {
	msg := []byte(`{
		"stream": "ethusdt@kline_1h",
		"data": {
			"e": "kline", "s": "ETHUSDT",
			"k": {"t": 1709290800000, "s": "ETHUSDT", "o": "3400", "c": "3410", "h": "3420", "l": "3390", "v": "10", "x": false}
		}
	}`)
	_, closed, err := parseKlineMessage(msg)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if closed {
		t.Error("forming kline reported as closed")
	}
}

func TestParseKlineMessageRejectsGarbage(t *testing.T) {
	if _, _, err := parseKlineMessage([]byte(`{"stream":"x","data":{"e":"trade"}}`)); err == nil {
		t.Error("want error for non-kline event")
	}
	if _, _, err := parseKlineMessage([]byte(`not json`)); err == nil {
		t.Error("want error for invalid json")
	}
}

func TestNormalizeSymbol(t *testing.T) {
	cases := map[string]string{
		"BTCUSDT":  "BTC/USDT",
		"ETHBTC":   "ETH/BTC",
		"SOLUSDC":  "SOL/USDC",
		"WEIRDXXX": "WEIRDXXX",
	}
	for in, want := range cases {
		if got := normalizeSymbol(in); got != want {
			t.Errorf("normalizeSymbol(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestReplayFeedOrderAndCompletion(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mk := func(sym string, i int) model.Bar {
		return model.Bar{Symbol: sym, TS: base.Add(time.Duration(i) * time.Hour), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 1}
	}
	series := []model.Series{
		{Symbol: "ETH/USDT", Bars: []model.Bar{mk("ETH/USDT", 0), mk("ETH/USDT", 1)}},
		{Symbol: "BTC/USDT", Bars: []model.Bar{mk("BTC/USDT", 0), mk("BTC/USDT", 1)}},
	}

	ch := make(chan model.Bar, 8)
	if err := NewReplayFeed(series, 0).Run(context.Background(), ch); err != nil {
		t.Fatalf("Run: %v", err)
	}
	close(ch)

	var got []model.Bar
	for b := range ch {
		got = append(got, b)
	}
	if len(got) != 4 {
		t.Fatalf("bars = %d, want 4", len(got))
	}
	// Same timestamp: BTC before ETH.
	if got[0].Symbol != "BTC/USDT" || got[1].Symbol != "ETH/USDT" {
		t.Errorf("order at t0: %s, %s", got[0].Symbol, got[1].Symbol)
	}
	if !got[2].TS.After(got[1].TS) {
		t.Error("second timestamp group out of order")
	}
}
