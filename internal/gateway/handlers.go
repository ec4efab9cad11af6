package gateway

import (
	"encoding/json"
	"net/http"
	"sort"
	"time"
)

var processStart = time.Now()

// NewMux returns the gateway's HTTP routes: the WebSocket endpoint plus
// a small REST surface for dashboards that poll.
func NewMux(hub *Hub) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.ServeWS)
	mux.HandleFunc("/api/streams", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, botStreams)
	})
	mux.HandleFunc("/api/latest", func(w http.ResponseWriter, _ *http.Request) {
		latest := hub.Latest()
		out := make(map[string]json.RawMessage, len(latest))
		for stream, data := range latest {
			out[stream] = json.RawMessage(data)
		}
		writeJSON(w, out)
	})
	mux.HandleFunc("/api/stats", func(w http.ResponseWriter, _ *http.Request) {
		p50, p95, p99 := hub.Latency.Percentiles()
		streams := make([]string, len(botStreams))
		copy(streams, botStreams)
		sort.Strings(streams)
		writeJSON(w, map[string]interface{}{
			"clients":        hub.ClientCount(),
			"streams":        streams,
			"latency_ms_p50": p50,
			"latency_ms_p95": p95,
			"latency_ms_p99": p99,
			"uptime_sec":     int64(time.Since(processStart).Seconds()),
		})
	})
	return mux
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
