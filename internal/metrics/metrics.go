package metrics

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every Prometheus collector the bot exports. Each
// instance carries its own registry so tests can build as many as
// they need without duplicate-registration panics.
type Metrics struct {
	registry *prometheus.Registry

	BarsTotal       *prometheus.CounterVec
	SignalsTotal    *prometheus.CounterVec
	DecisionsTotal  *prometheus.CounterVec
	TradesTotal     *prometheus.CounterVec
	RejectionsTotal *prometheus.CounterVec
	FeedReconnects  prometheus.Counter

	Equity        prometheus.Gauge
	DrawdownPct   prometheus.Gauge
	DailyLoss     prometheus.Gauge
	OpenPositions prometheus.Gauge
	BreakerState  prometheus.Gauge

	EvalDuration prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		BarsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cryptobot_bars_total",
			Help: "Closed bars ingested, by symbol",
		}, []string{"symbol"}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cryptobot_signals_total",
			Help: "Strategy signals emitted, by strategy and direction",
		}, []string{"strategy", "direction"}),
		DecisionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cryptobot_decisions_total",
			Help: "Aggregated decisions, by direction",
		}, []string{"direction"}),
		TradesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cryptobot_trades_total",
			Help: "Closed trades, by exit reason",
		}, []string{"exit_reason"}),
		RejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cryptobot_rejections_total",
			Help: "Entries rejected by risk checks, by reason",
		}, []string{"reason"}),
		FeedReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cryptobot_feed_reconnects_total",
			Help: "Websocket feed reconnect attempts",
		}),
		Equity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cryptobot_equity",
			Help: "Current account equity",
		}),
		DrawdownPct: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cryptobot_drawdown_pct",
			Help: "Drawdown from peak equity, as a fraction",
		}),
		DailyLoss: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cryptobot_daily_loss",
			Help: "Realized loss accumulated today",
		}),
		OpenPositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cryptobot_open_positions",
			Help: "Number of open positions",
		}),
		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cryptobot_redis_breaker_state",
			Help: "Redis publisher circuit breaker state (0 closed, 1 open, 2 half-open)",
		}),
		EvalDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cryptobot_evaluate_duration_seconds",
			Help:    "Time to evaluate strategies and the aggregator for one bar",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
	}

	m.registry.MustRegister(
		m.BarsTotal, m.SignalsTotal, m.DecisionsTotal, m.TradesTotal,
		m.RejectionsTotal, m.FeedReconnects,
		m.Equity, m.DrawdownPct, m.DailyLoss, m.OpenPositions,
		m.BreakerState, m.EvalDuration,
	)
	return m
}

// Handler serves the /metrics scrape endpoint for this instance.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// HealthStatus tracks liveness of the bot's external dependencies and
// renders them as a JSON health endpoint.
type HealthStatus struct {
	mu sync.RWMutex

	sqliteOK  bool
	redisOK   bool
	feedOK    bool
	lastBarAt time.Time
	startedAt time.Time
}

func NewHealthStatus() *HealthStatus {
	return &HealthStatus{startedAt: time.Now()}
}

func (h *HealthStatus) SetSQLite(ok bool) {
	h.mu.Lock()
	h.sqliteOK = ok
	h.mu.Unlock()
}

func (h *HealthStatus) SetRedis(ok bool) {
	h.mu.Lock()
	h.redisOK = ok
	h.mu.Unlock()
}

func (h *HealthStatus) SetFeed(ok bool) {
	h.mu.Lock()
	h.feedOK = ok
	h.mu.Unlock()
}

func (h *HealthStatus) MarkBar(ts time.Time) {
	h.mu.Lock()
	if ts.After(h.lastBarAt) {
		h.lastBarAt = ts
	}
	h.feedOK = true
	h.mu.Unlock()
}

type healthReport struct {
	Status    string    `json:"status"`
	SQLite    bool      `json:"sqlite"`
	Redis     bool      `json:"redis"`
	Feed      bool      `json:"feed"`
	LastBarAt time.Time `json:"last_bar_at,omitempty"`
	UptimeSec int64     `json:"uptime_sec"`
}

func (h *HealthStatus) report() healthReport {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r := healthReport{
		Status:    "ok",
		SQLite:    h.sqliteOK,
		Redis:     h.redisOK,
		Feed:      h.feedOK,
		LastBarAt: h.lastBarAt,
		UptimeSec: int64(time.Since(h.startedAt).Seconds()),
	}
	if !h.sqliteOK || !h.feedOK {
		r.Status = "degraded"
	}
	return r
}

// Handler serves the health report. Redis being down only degrades
// publishing, so it never flips the status code; a dead feed or store
// returns 503 so orchestration can restart the process.
func (h *HealthStatus) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		r := h.report()
		w.Header().Set("Content-Type", "application/json")
		if r.Status != "ok" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(r)
	})
}
