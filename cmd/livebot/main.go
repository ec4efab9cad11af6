// cmd/livebot runs the live trading loop: Binance kline websocket in,
// strategy evaluation and risk management, paper execution, SQLite
// journaling, Redis publishing, alerts and Prometheus metrics.
//
// Configuration comes from environment variables, see config.Load.
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pquerna/otp/totp"

	"cryptobotv1/config"
	"cryptobotv1/internal/execution"
	"cryptobotv1/internal/feed"
	"cryptobotv1/internal/live"
	"cryptobotv1/internal/logger"
	"cryptobotv1/internal/metrics"
	"cryptobotv1/internal/model"
	"cryptobotv1/internal/notification"
	"cryptobotv1/internal/risk"
	redisstore "cryptobotv1/internal/store/redis"
	sqlitestore "cryptobotv1/internal/store/sqlite"
	"cryptobotv1/internal/strategy"
)

const paperSlippageRate = 0.0005

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Init("livebot", slog.LevelInfo)
	log.Println("[livebot] starting...")

	cfg := config.Load()
	symbols := cfg.ParseSymbols()
	if len(symbols) == 0 {
		log.Fatal("[livebot] no symbols configured")
	}
	log.Printf("[livebot] symbols=%v interval=%s equity=%.2f", symbols, cfg.Interval, cfg.InitialEquity)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("[livebot] shutdown signal received")
		cancel()
	}()

	// ---- Metrics & health ----
	prom := metrics.New()
	health := metrics.NewHealthStatus()
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", prom.Handler())
	metricsMux.Handle("/health", health.Handler())
	go func() {
		log.Printf("[livebot] metrics on %s", cfg.MetricsAddr)
		if err := http.ListenAndServe(cfg.MetricsAddr, metricsMux); err != nil {
			log.Printf("[livebot] metrics server: %v", err)
		}
	}()

	// ---- SQLite: bar store, journal, warmup reader ----
	os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755)
	sqlWriter, err := sqlitestore.New(sqlitestore.WriterConfig{DBPath: cfg.SQLitePath})
	if err != nil {
		log.Fatalf("[livebot] sqlite init failed: %v", err)
	}
	defer sqlWriter.Close()
	health.SetSQLite(true)

	journal, err := execution.NewJournal(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("[livebot] journal init failed: %v", err)
	}
	defer journal.Close()

	reader, err := sqlitestore.NewReader(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("[livebot] sqlite reader failed: %v", err)
	}
	defer reader.Close()

	// ---- Redis publisher (best-effort) ----
	var publisher *redisstore.Publisher
	publisher, err = redisstore.NewPublisher(redisstore.PublisherConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		log.Printf("[livebot] WARNING: redis unavailable: %v (continuing without publishing)", err)
		publisher = nil
	} else {
		defer publisher.Close()
		health.SetRedis(true)
		publisher.SetBreakerHook(func(_, to redisstore.BreakerState) {
			prom.BreakerState.Set(float64(to))
			health.SetRedis(to == redisstore.BreakerClosed)
		})
	}

	// ---- Alerts ----
	notifiers := []notification.Notifier{notification.NewLogNotifier()}
	if cfg.TelegramToken != "" && cfg.TelegramChatID != "" {
		notifiers = append(notifiers, notification.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID))
		log.Println("[livebot] telegram alerts enabled")
	}
	if cfg.WebhookURL != "" {
		notifiers = append(notifiers, notification.NewWebhookNotifier(cfg.WebhookURL))
		log.Println("[livebot] webhook alerts enabled")
	}
	alerts := notification.NewDispatcher(64, notifiers...)
	go alerts.Run(ctx)

	// ---- Risk & strategies ----
	riskCfg := risk.DefaultConfig()
	riskCfg.SignalCooldown = time.Duration(cfg.CooldownMinutes) * time.Minute
	rm, err := risk.NewManager(riskCfg, cfg.InitialEquity)
	if err != nil {
		log.Fatalf("[livebot] risk manager: %v", err)
	}
	agg, err := strategy.NewAggregator(strategy.DefaultAggregatorConfig())
	if err != nil {
		log.Fatalf("[livebot] aggregator: %v", err)
	}

	// ---- Feed ----
	binance, err := feed.NewBinanceFeed(feed.BinanceConfig{
		Symbols:  symbols,
		Interval: cfg.Interval,
	})
	if err != nil {
		log.Fatalf("[livebot] feed: %v", err)
	}
	binance.OnReconnect = func() {
		prom.FeedReconnects.Inc()
		health.SetFeed(false)
	}

	// ---- Persistence path, off the trading loop ----
	persistCh := make(chan model.Bar, 1024)
	go sqlWriter.Run(ctx, persistCh)

	// ---- Engine ----
	engCfg := live.DefaultConfig()
	engCfg.MinSessionQuality = cfg.MinSessionQuality
	engine, err := live.New(engCfg, live.Deps{
		Feed:       binance,
		Strategies: strategy.DefaultStrategies(),
		Aggregator: agg,
		Risk:       rm,
		Executor:   execution.NewPaperExecutor(paperSlippageRate),
		Journal:    journal,
		Publisher:  publisher,
		Alerts:     alerts,
		Metrics:    prom,
		Health:     health,
		Persist:    persistCh,
	})
	if err != nil {
		log.Fatalf("[livebot] engine: %v", err)
	}
	if err := engine.Warmup(reader, symbols); err != nil {
		log.Printf("[livebot] warmup incomplete: %v", err)
	}

	// ---- Admin endpoint: TOTP-gated resume after a drawdown halt ----
	adminMux := http.NewServeMux()
	adminMux.HandleFunc("/admin/resume", resumeHandler(cfg.AdminTOTPSecret, rm))
	go func() {
		log.Printf("[livebot] admin on %s", cfg.AdminAddr)
		if err := http.ListenAndServe(cfg.AdminAddr, adminMux); err != nil {
			log.Printf("[livebot] admin server: %v", err)
		}
	}()

	if err := engine.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("[livebot] engine stopped: %v", err)
	}
	log.Println("[livebot] bye")
}

// resumeHandler clears a drawdown halt. It requires a valid TOTP code so
// a halt can only be lifted deliberately; with no secret configured the
// endpoint stays disabled.
func resumeHandler(secret string, rm *risk.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if secret == "" {
			http.Error(w, "resume disabled: no ADMIN_TOTP_SECRET configured", http.StatusForbidden)
			return
		}
		code := r.Header.Get("X-TOTP-Code")
		if code == "" {
			code = r.URL.Query().Get("code")
		}
		if !totp.Validate(code, secret) {
			http.Error(w, "invalid code", http.StatusUnauthorized)
			return
		}
		if !rm.Halted() {
			http.Error(w, "not halted", http.StatusConflict)
			return
		}
		rm.Resume()
		log.Println("[livebot] trading resumed via admin endpoint")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("resumed\n"))
	}
}
