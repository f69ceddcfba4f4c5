package telemetry

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler builds the monitoring HTTP surface: the SSE event stream, the
// Prometheus scrape endpoint, and a liveness probe.
func Handler(hub *Hub, metrics *Metrics, health func() map[string]any) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		_ = hub.Subscribe(r.Context(), w, r)
	})

	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		status := map[string]any{"status": "ok"}
		if health != nil {
			for k, v := range health() {
				status[k] = v
			}
		}
		_ = json.NewEncoder(w).Encode(status)
	})

	return mux
}
