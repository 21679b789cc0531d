package internal

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/ashikurrahma017/nowrin-ashikur-chat/internal/auth"
	"github.com/ashikurrahma017/nowrin-ashikur-chat/internal/store"
)

// Middleware validates the client's JWT and binds the user id to the
// request context. An expired JWT is reissued from the refresh token;
// without either the request is rejected with 401.
func Middleware(s store.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			jwtCookie, err := r.Cookie("jwt")
			if err == nil {
				userID, err := auth.ValidateJWT(jwtCookie.Value, os.Getenv("JWT_SECRET"))
				if err == nil {
					r = r.WithContext(context.WithValue(r.Context(), auth.UserIDKey, userID))
					next.ServeHTTP(w, r)
					return
				}
			}

			// JWT missing or invalid; fall back to the refresh token.
			userID, err := auth.RefreshSession(w, r, s)
			if err != nil {
				log.Printf("middleware: %v", err)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			r = r.WithContext(context.WithValue(r.Context(), auth.UserIDKey, userID))
			next.ServeHTTP(w, r)
		})
	}
}
