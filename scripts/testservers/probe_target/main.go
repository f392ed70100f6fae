// Command probe_target runs a fake coordinated target server for manual
// probe testing. It answers the server-info, stats, and run-configuration
// endpoints and serves every other path as a load-test resource.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sync/atomic"
	"time"
)

func main() {
	port := flag.Int("port", 8080, "Listening port")
	version := flag.String("server-version", "10.0.15", "Version reported on /test/info/")
	configDelay := flag.Duration("config-delay", 0, "Delay before the run configuration becomes available")
	configNever := flag.Bool("config-never", false, "Never publish a run configuration")
	loaderNumber := flag.Int("loader-number", 0, "loaderNumber field of the published configuration")
	latency := flag.Duration("latency", 0, "Artificial latency added to resource responses")
	flag.Parse()

	start := time.Now()
	var requests int64

	mux := http.NewServeMux()
	mux.HandleFunc("/test/info/", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]any{"serverVersion": *version})
	})
	mux.HandleFunc("/stats/start", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("stats collection started")
	})
	mux.HandleFunc("/stats/stop", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("stats collection stopped after %d resource requests", atomic.LoadInt64(&requests))
	})
	mux.HandleFunc("/test/loadConfig", func(w http.ResponseWriter, r *http.Request) {
		if *configNever || time.Since(start) < *configDelay {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"transport":    "http",
			"loaderNumber": *loaderNumber,
		})
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&requests, 1)
		if *latency > 0 {
			time.Sleep(*latency)
		}
		respondJSON(w, http.StatusOK, map[string]any{"ok": true, "path": r.URL.Path})
	})

	addr := fmt.Sprintf(":%d", *port)
	log.Printf("probe target server listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, mux))
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
