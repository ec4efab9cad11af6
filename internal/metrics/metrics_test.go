package metrics

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestNewIsIsolated(t *testing.T) {
	// Two instances must not collide on registration.
	a := New()
	b := New()
	a.BarsTotal.WithLabelValues("BTC/USDT").Inc()
	b.BarsTotal.WithLabelValues("BTC/USDT").Add(5)

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	if !strings.Contains(body, `cryptobot_bars_total{symbol="BTC/USDT"} 1`) {
		t.Fatalf("scrape missing bar counter:\n%s", body)
	}
}

func TestMetricsExposition(t *testing.T) {
	m := New()
	m.SignalsTotal.WithLabelValues("rsi_reversal", "BUY").Inc()
	m.TradesTotal.WithLabelValues("stop-loss").Inc()
	m.Equity.Set(10250)
	m.EvalDuration.Observe(0.002)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	for _, want := range []string{
		`cryptobot_signals_total{direction="BUY",strategy="rsi_reversal"} 1`,
		`cryptobot_trades_total{exit_reason="stop-loss"} 1`,
		`cryptobot_equity 10250`,
		`cryptobot_evaluate_duration_seconds_count 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("scrape missing %q", want)
		}
	}
}

func TestHealthStatus(t *testing.T) {
	h := NewHealthStatus()
	rec := httptest.NewRecorder()
	h.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("cold health code = %d, want 503", rec.Code)
	}

	h.SetSQLite(true)
	h.MarkBar(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	rec = httptest.NewRecorder()
	h.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("health code = %d, want 200", rec.Code)
	}
	var rep struct {
		Status string `json:"status"`
		Feed   bool   `json:"feed"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&rep); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rep.Status != "ok" || !rep.Feed {
		t.Fatalf("report = %+v", rep)
	}
}

func TestMarkBarNeverRewinds(t *testing.T) {
	h := NewHealthStatus()
	later := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	h.MarkBar(later)
	h.MarkBar(later.Add(-time.Hour))
	if got := h.report().LastBarAt; !got.Equal(later) {
		t.Fatalf("last bar = %v, want %v", got, later)
	}
}
