// cmd/backtest replays stored bars through the full strategy, aggregation
// and risk pipeline and prints a performance report.
//
// Usage:
//
//	go run ./cmd/backtest --db=data/bars.db --symbols=BTC/USDT,ETH/USDT --equity=10000
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"cryptobotv1/internal/backtest"
	"cryptobotv1/internal/model"
	"cryptobotv1/internal/risk"
	sqlitestore "cryptobotv1/internal/store/sqlite"
	"cryptobotv1/internal/strategy"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	dbPath := flag.String("db", "data/bars.db", "Path to SQLite bar database")
	symbolsStr := flag.String("symbols", "", "Comma-separated symbols (default: every symbol in the database)")
	fromTS := flag.Int64("from", 0, "Unix timestamp to start from (0=all)")
	toTS := flag.Int64("to", 0, "Unix timestamp to stop at (0=all)")
	equity := flag.Float64("equity", 10000, "Initial account equity")
	window := flag.Int("window", 120, "Bars handed to each strategy per evaluation")
	outPath := flag.String("out", "", "Write the full JSON result to this path")
	flag.Parse()

	reader, err := sqlitestore.NewReader(*dbPath)
	if err != nil {
		log.Fatalf("[backtest] sqlite open failed: %v", err)
	}
	defer reader.Close()

	symbols := parseSymbols(*symbolsStr)
	if len(symbols) == 0 {
		symbols, err = reader.Symbols()
		if err != nil {
			log.Fatalf("[backtest] list symbols: %v", err)
		}
	}
	if len(symbols) == 0 {
		log.Fatal("[backtest] no symbols in database")
	}

	var series []model.Series
	for _, sym := range symbols {
		s, err := reader.ReadSeries(sym, *fromTS, *toTS)
		if err != nil {
			log.Fatalf("[backtest] read %s: %v", sym, err)
		}
		if len(s.Bars) == 0 {
			log.Printf("[backtest] %s: no bars in range, skipping", sym)
			continue
		}
		log.Printf("[backtest] %s: %d bars", sym, len(s.Bars))
		series = append(series, s)
	}

	rm, err := risk.NewManager(risk.DefaultConfig(), *equity)
	if err != nil {
		log.Fatalf("[backtest] risk manager: %v", err)
	}
	agg, err := strategy.NewAggregator(strategy.DefaultAggregatorConfig())
	if err != nil {
		log.Fatalf("[backtest] aggregator: %v", err)
	}
	engine, err := backtest.New(backtest.Config{WindowSize: *window}, strategy.DefaultStrategies(), agg, rm)
	if err != nil {
		log.Fatalf("[backtest] engine: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	result, err := engine.Run(ctx, series)
	if err != nil {
		log.Fatalf("[backtest] run failed: %v", err)
	}

	fmt.Print(result.Render())

	if *outPath != "" {
		if err := result.WriteJSON(*outPath); err != nil {
			log.Fatalf("[backtest] write %s: %v", *outPath, err)
		}
		log.Printf("[backtest] full result written to %s", *outPath)
	}
}

func parseSymbols(s string) []string {
	var syms []string
	for _, p := range strings.Split(s, ",") {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			syms = append(syms, p)
		}
	}
	return syms
}
