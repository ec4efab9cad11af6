package execution

import (
	"context"
	"math"
	"path/filepath"
	"testing"
	"time"

	"cryptobotv1/internal/model"
)

func TestPaperExecutorBuySlippage(t *testing.T) {
	p := NewPaperExecutor(0.0005)

	fill, err := p.Execute(context.Background(), model.Order{
		ID:        "o1",
		Symbol:    "BTC/USDT",
		Direction: model.Buy,
		Qty:       0.5,
		PriceHint: 50000,
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if math.Abs(fill.Price-50025) > 1e-9 {
		t.Errorf("buy fill = %.4f, want 50025 (hint + slippage)", fill.Price)
	}
	if math.Abs(fill.Slippage-25) > 1e-9 {
		t.Errorf("slippage = %.4f, want 25", fill.Slippage)
	}

	fill, err = p.Execute(context.Background(), model.Order{
		ID:        "o2",
		Symbol:    "BTC/USDT",
		Direction: model.Sell,
		Qty:       0.5,
		PriceHint: 50000,
	})
	if err != nil {
		t.Fatalf("Execute sell: %v", err)
	}
	if math.Abs(fill.Price-49975) > 1e-9 {
		t.Errorf("sell fill = %.4f, want 49975 (hint - slippage)", fill.Price)
	}

	if got := len(p.Fills()); got != 2 {
		t.Errorf("fills = %d, want 2", got)
	}
}

func TestPaperExecutorRejectsBadOrders(t *testing.T) {
	p := NewPaperExecutor(0)
	if _, err := p.Execute(context.Background(), model.Order{Symbol: "BTC/USDT", Qty: 0, PriceHint: 100}); err == nil {
		t.Error("want error for zero qty")
	}
	if _, err := p.Execute(context.Background(), model.Order{Symbol: "BTC/USDT", Qty: 1, PriceHint: 0}); err == nil {
		t.Error("want error for missing price hint")
	}
}

func TestJournalRoundTrip(t *testing.T) {
	j, err := NewJournal(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("NewJournal: %v", err)
	}
	defer j.Close()

	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := j.RecordFill(model.Fill{
		OrderID: "PAPER-1", Symbol: "BTC/USDT", Qty: 0.5, Price: 50025, Slippage: 25, FilledAt: ts,
	}); err != nil {
		t.Fatalf("RecordFill: %v", err)
	}
	if err := j.RecordTrade(model.Position{
		ID: 1, Symbol: "BTC/USDT", Direction: model.Buy, Qty: 0.5,
		EntryPrice: 50025, ExitPrice: 53000, RealizedPnL: 1435.5, Fees: 51.5,
		ExitReason: model.ExitTakeProfit, OpenedAt: ts, ClosedAt: ts.Add(6 * time.Hour),
		Status: model.StatusClosed,
	}); err != nil {
		t.Fatalf("RecordTrade: %v", err)
	}

	trades, err := j.Trades(10)
	if err != nil {
		t.Fatalf("Trades: %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("trades = %d, want 1", len(trades))
	}
	got := trades[0]
	if got.Symbol != "BTC/USDT" || got.ExitReason != model.ExitTakeProfit {
		t.Errorf("unexpected record: %+v", got)
	}
	if math.Abs(got.RealizedPnL-1435.5) > 1e-9 {
		t.Errorf("pnl = %.4f, want 1435.5", got.RealizedPnL)
	}
}
