package live

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"cryptobotv1/internal/execution"
	"cryptobotv1/internal/feed"
	"cryptobotv1/internal/model"
	"cryptobotv1/internal/risk"
	"cryptobotv1/internal/strategy"
)

type stubFeed struct{}

func (stubFeed) Run(ctx context.Context, _ chan<- model.Bar) error {
	<-ctx.Done()
	return ctx.Err()
}

type failingExecutor struct{ calls int }

func (f *failingExecutor) Execute(_ context.Context, _ model.Order) (model.Fill, error) {
	f.calls++
	return model.Fill{}, errors.New("venue down")
}

func testBars(symbol string, n int) []model.Bar {
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]model.Bar, n)
	for i := 0; i < n; i++ {
		c := 100 + 12*math.Sin(float64(i)/9) + 3*math.Sin(float64(i)/3)
		bars[i] = model.Bar{
			Symbol: symbol,
			TS:     t0.Add(time.Duration(i) * time.Hour),
			Open:   c,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 1000,
		}
	}
	return bars
}

func newTestEngine(t *testing.T, cfg Config, exec execution.Executor, f feed.BarFeed) (*Engine, *risk.Manager) {
	t.Helper()
	rm, err := risk.NewManager(risk.DefaultConfig(), 10000)
	if err != nil {
		t.Fatalf("risk manager: %v", err)
	}
	agg, err := strategy.NewAggregator(strategy.DefaultAggregatorConfig())
	if err != nil {
		t.Fatalf("aggregator: %v", err)
	}
	eng, err := New(cfg, Deps{
		Feed:       f,
		Strategies: strategy.DefaultStrategies(),
		Aggregator: agg,
		Risk:       rm,
		Executor:   exec,
	})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	return eng, rm
}

func TestNewRejectsMissingDeps(t *testing.T) {
	_, err := New(DefaultConfig(), Deps{})
	if err == nil {
		t.Fatal("expected error for empty deps")
	}
}

func TestHandleBarRollsWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WindowSize = 10
	eng, _ := newTestEngine(t, cfg, execution.NewPaperExecutor(0), stubFeed{})

	for _, b := range testBars("BTC/USDT", 25) {
		eng.handleBar(context.Background(), b)
	}
	w := eng.window("BTC/USDT")
	if w.Len() != 10 {
		t.Fatalf("window len = %d, want 10", w.Len())
	}
	last, _ := w.Last()
	if got := last.TS.Hour(); got != 0 { // bar 24 is hour 0 of day 2
		t.Fatalf("last bar hour = %d, want 0", got)
	}
}

func TestTryEnterOpensAndFills(t *testing.T) {
	exec := execution.NewPaperExecutor(0.0005)
	eng, rm := newTestEngine(t, DefaultConfig(), exec, stubFeed{})

	bar := testBars("BTC/USDT", 1)[0]
	d := model.Decision{
		Symbol: "BTC/USDT", TS: bar.TS, Direction: model.Buy,
		Confidence: 0.5, Price: bar.Close,
	}
	eng.tryEnter(context.Background(), bar, d)

	open := rm.OpenPositions()
	if len(open) != 1 {
		t.Fatalf("open positions = %d, want 1", len(open))
	}
	fills := exec.Fills()
	if len(fills) != 1 {
		t.Fatalf("fills = %d, want 1", len(fills))
	}
	if fills[0].Qty != open[0].Qty {
		t.Errorf("fill qty %.6f != position qty %.6f", fills[0].Qty, open[0].Qty)
	}
}

func TestTryEnterRollsBackFailedOrder(t *testing.T) {
	exec := &failingExecutor{}
	eng, rm := newTestEngine(t, DefaultConfig(), exec, stubFeed{})

	bar := testBars("BTC/USDT", 1)[0]
	d := model.Decision{
		Symbol: "BTC/USDT", TS: bar.TS, Direction: model.Buy,
		Confidence: 0.5, Price: bar.Close,
	}
	eng.tryEnter(context.Background(), bar, d)

	if exec.calls != 1 {
		t.Fatalf("executor calls = %d, want 1", exec.calls)
	}
	if n := len(rm.OpenPositions()); n != 0 {
		t.Fatalf("open positions = %d, want 0 after rollback", n)
	}
	acct := rm.Account()
	if acct.AvailableCapital != 10000 {
		t.Fatalf("available = %.2f, want 10000 restored", acct.AvailableCapital)
	}
}

func TestSessionFilterBlocksEntry(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinSessionQuality = 0.95 // only New York core qualifies
	eng, rm := newTestEngine(t, cfg, execution.NewPaperExecutor(0), stubFeed{})

	// Friday 01:00 UTC is the Asia window, quality 0.6.
	ts := time.Date(2024, 3, 1, 1, 0, 0, 0, time.UTC)
	bar := model.Bar{Symbol: "BTC/USDT", TS: ts, Open: 100, High: 101, Low: 99, Close: 100, Volume: 1000}
	d := model.Decision{Symbol: "BTC/USDT", TS: ts, Direction: model.Buy, Confidence: 0.6, Price: 100}
	eng.tryEnter(context.Background(), bar, d)

	if n := len(rm.OpenPositions()); n != 0 {
		t.Fatalf("open positions = %d, want 0 with session filter", n)
	}
}

func TestRunWithReplayFeed(t *testing.T) {
	series := model.Series{Symbol: "BTC/USDT", Bars: testBars("BTC/USDT", 200)}
	replay := feed.NewReplayFeed([]model.Series{series}, 0)

	eng, rm := newTestEngine(t, DefaultConfig(), execution.NewPaperExecutor(0.0005), replay)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := eng.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if eng.window("BTC/USDT").Len() == 0 {
		t.Fatal("no bars reached the window")
	}
	if err := rm.CheckIntegrity(); err != nil {
		t.Fatalf("integrity after run: %v", err)
	}
}
