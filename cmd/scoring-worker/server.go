// cmd/scoring-worker/server.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type readinessCheck struct {
	name  string
	check func(ctx context.Context) error
	// stats, when set, is reported under "details" on a passing check.
	stats func() map[string]uint32
}

func newHealthServer(port int, checks []readinessCheck) *http.Server {
	if port == 0 {
		port = 8080
	}
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           healthMux(checks),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func healthMux(checks []readinessCheck) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		failed := map[string]string{}
		details := map[string]interface{}{}
		for _, c := range checks {
			if err := c.check(ctx); err != nil {
				failed[c.name] = err.Error()
				continue
			}
			if c.stats != nil {
				details[c.name] = c.stats()
			}
		}
		if len(failed) > 0 {
			writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status": "not_ready",
				"failed": failed,
			})
			return
		}
		body := map[string]interface{}{
			"status": "ready",
			"time":   time.Now().Format(time.RFC3339),
		}
		if len(details) > 0 {
			body["details"] = details
		}
		writeJSON(w, http.StatusOK, body)
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
