package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"cryptobotv1/internal/model"
)

const (
	defaultStreamHost = "wss://stream.binance.com:9443"

	readTimeout    = 90 * time.Second // Binance pings every ~20s
	initialBackoff = 2 * time.Second
	maxBackoff     = 60 * time.Second
)

// BinanceConfig configures the kline websocket feed.
type BinanceConfig struct {
	Host     string   // stream host, defaults to the public endpoint
	Symbols  []string // e.g. "BTC/USDT"
	Interval string   // kline interval, e.g. "1h"
}

// BinanceFeed streams closed klines from the Binance combined stream and
// reconnects with exponential backoff on failure.
type BinanceFeed struct {
	cfg    BinanceConfig
	dialer *websocket.Dialer

	// OnReconnect is called before each reconnection attempt.
	OnReconnect func()
}

// NewBinanceFeed creates the feed.
func NewBinanceFeed(cfg BinanceConfig) (*BinanceFeed, error) {
	if len(cfg.Symbols) == 0 {
		return nil, fmt.Errorf("feed: no symbols")
	}
	if cfg.Interval == "" {
		cfg.Interval = "1h"
	}
	if cfg.Host == "" {
		cfg.Host = defaultStreamHost
	}
	return &BinanceFeed{cfg: cfg, dialer: websocket.DefaultDialer}, nil
}

// streamURL builds the combined-stream URL for all configured symbols.
func (f *BinanceFeed) streamURL() string {
	streams := make([]string, 0, len(f.cfg.Symbols))
	for _, sym := range f.cfg.Symbols {
		streams = append(streams, streamName(sym, f.cfg.Interval))
	}
	return f.cfg.Host + "/stream?streams=" + strings.Join(streams, "/")
}

// streamName maps "BTC/USDT" to "btcusdt@kline_1h".
func streamName(symbol, interval string) string {
	return strings.ToLower(strings.ReplaceAll(symbol, "/", "")) + "@kline_" + interval
}

// Run connects and pushes closed bars into barCh until ctx is cancelled.
func (f *BinanceFeed) Run(ctx context.Context, barCh chan<- model.Bar) error {
	backoff := initialBackoff
	for {
		err := f.stream(ctx, barCh)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("[feed] stream ended: %v, reconnecting in %s", err, backoff)
		if f.OnReconnect != nil {
			f.OnReconnect()
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (f *BinanceFeed) stream(ctx context.Context, barCh chan<- model.Bar) error {
	url := f.streamURL()
	conn, _, err := f.dialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("feed: dial %s: %w", url, err)
	}
	defer conn.Close()

	log.Printf("[feed] connected to %s (%d symbols, %s klines)", f.cfg.Host, len(f.cfg.Symbols), f.cfg.Interval)

	conn.SetReadDeadline(time.Now().Add(readTimeout))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(readTimeout))
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(10*time.Second))
	})

	// Unblock ReadMessage on cancellation.
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("feed: read: %w", err)
		}
		conn.SetReadDeadline(time.Now().Add(readTimeout))

		bar, closed, err := parseKlineMessage(msg)
		if err != nil {
			log.Printf("[feed] parse error: %v", err)
			continue
		}
		if !closed {
			continue
		}

		select {
		case barCh <- bar:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// combinedFrame is the envelope of the combined stream.
type combinedFrame struct {
	Stream string       `json:"stream"`
	Data   klineMessage `json:"data"`
}

type klineMessage struct {
	EventType string  `json:"e"`
	EventTime int64   `json:"E"`
	Symbol    string  `json:"s"`
	Kline     payload `json:"k"`
}

type payload struct {
	StartMS int64  `json:"t"`
	CloseMS int64  `json:"T"`
	Symbol  string `json:"s"`
	Open    string `json:"o"`
	High    string `json:"h"`
	Low     string `json:"l"`
	Close   string `json:"c"`
	Volume  string `json:"v"`
	Closed  bool   `json:"x"`
}

// parseKlineMessage decodes one combined-stream frame. The bool result
// reports whether the kline has closed.
func parseKlineMessage(msg []byte) (model.Bar, bool, error) {
	var frame combinedFrame
	if err := json.Unmarshal(msg, &frame); err != nil {
		return model.Bar{}, false, fmt.Errorf("unmarshal frame: %w", err)
	}
	if frame.Data.EventType != "kline" {
		return model.Bar{}, false, fmt.Errorf("unexpected event %q", frame.Data.EventType)
	}

	k := frame.Data.Kline
	bar := model.Bar{
		Symbol: normalizeSymbol(k.Symbol),
		TS:     time.Unix(0, k.StartMS*int64(time.Millisecond)).UTC(),
	}
	var err error
	if bar.Open, err = strconv.ParseFloat(k.Open, 64); err != nil {
		return model.Bar{}, false, fmt.Errorf("open %q: %w", k.Open, err)
	}
	if bar.High, err = strconv.ParseFloat(k.High, 64); err != nil {
		return model.Bar{}, false, fmt.Errorf("high %q: %w", k.High, err)
	}
	if bar.Low, err = strconv.ParseFloat(k.Low, 64); err != nil {
		return model.Bar{}, false, fmt.Errorf("low %q: %w", k.Low, err)
	}
	if bar.Close, err = strconv.ParseFloat(k.Close, 64); err != nil {
		return model.Bar{}, false, fmt.Errorf("close %q: %w", k.Close, err)
	}
	if bar.Volume, err = strconv.ParseFloat(k.Volume, 64); err != nil {
		return model.Bar{}, false, fmt.Errorf("volume %q: %w", k.Volume, err)
	}
	if err := bar.Validate(); err != nil {
		return model.Bar{}, false, err
	}
	return bar, k.Closed, nil
}

// normalizeSymbol maps "BTCUSDT" back to "BTC/USDT". Quote currencies are
// matched longest-first against the known set.
func normalizeSymbol(s string) string {
	for _, quote := range []string{"USDT", "FDUSD", "USDC", "BUSD", "BTC", "ETH", "BNB"} {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return s[:len(s)-len(quote)] + "/" + quote
		}
	}
	return s
}
