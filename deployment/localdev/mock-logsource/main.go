// Command mock-logsource serves a synthetic log backend for local development.
// It answers the log-window endpoint the explain engine queries, fabricating a
// request window with a latency and error burst in the middle so every
// analysis family has something to find.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"time"
)

type logEntry struct {
	TimestampMs int64          `json:"timestamp"`
	Level       string         `json:"level,omitempty"`
	Message     string         `json:"message,omitempty"`
	Fields      map[string]any `json:"fields,omitempty"`
}

type windowRequest struct {
	TenantID string `json:"tenant_id"`
	StartMs  int64  `json:"start"`
	EndMs    int64  `json:"end"`
}

func main() {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/api/v1/explain/logs", func(w http.ResponseWriter, r *http.Request) {
		if !enforcePost(w, r) {
			return
		}
		var req windowRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		writeJSON(w, map[string]any{"entries": syntheticWindow(req)})
	})

	logger := log.New(log.Writer(), "logsource-mock ", log.LstdFlags|log.Lmicroseconds)
	srv := &http.Server{
		Addr:    ":8081",
		Handler: logRequests(logger, mux),
	}

	logger.Println("listening on :8081")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}
}

// syntheticWindow fabricates one entry per second across the requested range.
// The middle third of the window degrades: latency triples and one request in
// four fails against the payments dependency.
func syntheticWindow(req windowRequest) []logEntry {
	start, end := req.StartMs, req.EndMs
	if end <= start {
		end = start + int64(10*time.Minute/time.Millisecond)
	}
	rng := rand.New(rand.NewSource(start))

	burstStart := start + (end-start)/3
	burstEnd := start + 2*(end-start)/3

	var entries []logEntry
	for ts := start; ts < end; ts += 1000 {
		inBurst := ts >= burstStart && ts < burstEnd

		latency := 40 + rng.Float64()*20
		level, message := "info", "request completed"
		status := 200.0
		if inBurst {
			latency = 120 + rng.Float64()*80
			if rng.Intn(4) == 0 {
				level, message = "error", "payments call failed: connection refused"
				status = 502
			}
		}

		entries = append(entries, logEntry{
			TimestampMs: ts,
			Level:       level,
			Message:     message,
			Fields: map[string]any{
				"response_time": latency,
				"status_code":   status,
				"service":       "checkout",
				"user":          fmt.Sprintf("user-%d", rng.Intn(12)),
			},
		})
	}
	return entries
}

func enforcePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode error: %v", err)
	}
}

func logRequests(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Printf("%s %s %d %s", r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
