package handler

import (
	"log"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/ashikurrahma017/nowrin-ashikur-chat/internal/auth"
	"github.com/ashikurrahma017/nowrin-ashikur-chat/internal/hub"
	"github.com/ashikurrahma017/nowrin-ashikur-chat/internal/store"
)

// ServeWs handles the client's websocket connection upgrade. The user is
// already authenticated by the middleware; history replay happens during
// hub registration, before any live event reaches this connection.
func ServeWs(h *hub.Hub, s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, err := auth.GetUserFromContext(ctx)
		if err != nil {
			log.Printf("%v", err)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		user, err := s.GetUserByID(ctx, userID)
		if err != nil {
			log.Printf("failed to get user by ID: %v", err)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			log.Printf("failed to upgrade connection to websocket: %v", err)
			return
		}

		log.Printf("upgraded connection for user %s", user.Username)

		c := hub.NewClient(conn, user.ID, user.Username)
		c.SetMessageLimiter(30, time.Minute)
		c.SetTypingLimiter(120, time.Minute)

		reg := hub.Registration{
			Client: c,
			Done:   make(chan struct{}),
		}

		h.Register <- reg

		// Wait for registration (and history replay queueing) to complete.
		<-reg.Done

		// We block on c.ReadPump() because the request context is
		// cancelled as soon as we return from the handler.
		go c.WritePump(ctx)
		go c.Keepalive(ctx)
		c.ReadPump(ctx)
	}
}
