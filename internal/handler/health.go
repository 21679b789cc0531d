package handler

import (
	"net/http"

	"github.com/ashikurrahma017/nowrin-ashikur-chat/internal/store"
)

// Healthz reports whether the durable store is reachable.
func Healthz(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Ping(r.Context()); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
