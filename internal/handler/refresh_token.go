package handler

import (
	"log"
	"net/http"

	"github.com/ashikurrahma017/nowrin-ashikur-chat/internal/auth"
	"github.com/ashikurrahma017/nowrin-ashikur-chat/internal/store"
)

// RefreshToken reissues a JWT from the refresh token cookie.
func RefreshToken(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := auth.RefreshSession(w, r, s); err != nil {
			log.Printf("handler/refresh token: %v", err)
			respondError(w, http.StatusUnauthorized, "Session expired.")
			return
		}

		respondJSON(w, http.StatusOK, map[string]any{"success": true})
	}
}
