package swarm

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatusHandler serves a live JSON snapshot of the run at /status and the
// Prometheus scrape surface at /metrics, for dashboards watching a run in
// progress.
func StatusHandler(stats *RunStats) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(stats.Snapshot()); err != nil {
			log.Printf("status: failed to encode snapshot: %v", err)
		}
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// ServeStatus starts the status server in the background. The returned
// server should be shut down by the caller once the run ends.
func ServeStatus(addr string, stats *RunStats) *http.Server {
	srv := &http.Server{Addr: addr, Handler: StatusHandler(stats)}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("status server on %s: %v", addr, err)
		}
	}()
	return srv
}
