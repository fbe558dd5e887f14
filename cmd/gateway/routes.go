package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voicebridge/gateway/internal/progress"
)

const progressListLimit = 30

type deps struct {
	wsHandler     http.Handler
	progressStore *progress.Store
}

// registerRoutes wires all HTTP endpoints to the shared mux. The real-time
// WebSocket channel is the primary surface; everything else is thin.
func registerRoutes(mux *http.ServeMux, d deps) {
	mux.Handle("/ws/assist", d.wsHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", handleHealth)
	if d.progressStore != nil {
		mux.HandleFunc("GET /api/progress/{userID}", d.handleProgress)
	}
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (d deps) handleProgress(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	records, err := d.progressStore.ListDaily(r.Context(), userID, progressListLimit)
	if err != nil {
		slog.Error("list progress", "user_id", userID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"user_id": userID, "days": records})
}
