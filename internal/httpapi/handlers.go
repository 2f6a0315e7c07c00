package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/mickey7hi/audience-arena-backend/internal/hub"
)

// State serves a read-only snapshot of the hub: mode, connection
// count, team membership and round progress.
func State(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reply := make(chan hub.View, 1)
		h.Inbox() <- hub.GetState{Reply: reply}

		select {
		case view := <-reply:
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(view)
		case <-time.After(2 * time.Second):
			http.Error(w, "hub unavailable", http.StatusServiceUnavailable)
		}
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
