package handler

import (
	"log"
	"net/http"

	"github.com/ashikurrahma017/nowrin-ashikur-chat/internal/model"
	"github.com/ashikurrahma017/nowrin-ashikur-chat/internal/store"
)

// ServeMessages returns the full chat history in id order. Clients without
// websocket support poll this endpoint instead.
func ServeMessages(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		messages, err := s.ListMessages(r.Context())
		if err != nil {
			if r.Context().Err() != nil {
				return
			}
			log.Printf("failed to load messages from database: %v", err)
			respondError(w, http.StatusInternalServerError, "Database error.")
			return
		}

		if messages == nil {
			messages = []model.Message{}
		}
		respondJSON(w, http.StatusOK, messages)
	}
}
