// Package handler contains the HTTP surface: account endpoints, the
// websocket upgrade, history and uploads.
package handler

import (
	"encoding/json"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ashikurrahma017/nowrin-ashikur-chat/internal/auth"
	"github.com/ashikurrahma017/nowrin-ashikur-chat/internal/store"
)

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func respondJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, code int, msg string) {
	respondJSON(w, code, map[string]any{"success": false, "error": msg})
}

// SubmitSignup handles user account creation.
func SubmitSignup(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var creds credentials
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body.")
			return
		}

		creds.Username = strings.TrimSpace(creds.Username)
		if creds.Username == "" || creds.Password == "" {
			respondError(w, http.StatusBadRequest, "Username and password are required.")
			return
		}

		hashedPw, err := auth.HashPassword(creds.Password)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Server error.")
			log.Printf("argon2id hash creation failed: %v", err)
			return
		}

		user, err := s.CreateUser(ctx, uuid.New(), creds.Username, hashedPw)
		if errors.Is(err, store.ErrUserExists) {
			respondError(w, http.StatusConflict, "Username already taken.")
			return
		}
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Database error.")
			log.Printf("failed to create user entry in database: %v", err)
			return
		}

		respondJSON(w, http.StatusCreated, map[string]any{
			"success": true,
			"user_id": user.ID,
		})

		slog.InfoContext(ctx, "user signed up",
			slog.String("username", user.Username))
	}
}

// SubmitLogin handles user login. On success it sets the session cookies
// and returns the full message history so the page can render immediately.
func SubmitLogin(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var creds credentials
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body.")
			return
		}

		ok, userID, err := auth.Authenticate(ctx, s, creds.Username, creds.Password)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Server error.")
			log.Printf("cannot verify password: %v", err)
			return
		}
		if !ok {
			respondError(w, http.StatusUnauthorized, "Invalid username or password.")
			return
		}

		refreshTokenExp := 7 * 24 * time.Hour
		jwtExp := 5 * time.Minute
		if err := auth.SetTokensAndCookies(w, r, s, userID, refreshTokenExp, jwtExp); err != nil {
			respondError(w, http.StatusInternalServerError, "Server error.")
			log.Printf("%v", err)
			return
		}

		history, err := s.ListMessages(ctx)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "Database error.")
			log.Printf("failed to load messages from database: %v", err)
			return
		}

		respondJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"user_id": userID,
			"history": history,
		})

		slog.InfoContext(ctx, "user logged in",
			slog.String("username", creds.Username))
	}
}

// SubmitLogout deletes the user's refresh token and clears the cookies.
func SubmitLogout(s store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		refreshTok, err := r.Cookie("refresh_token")
		if err == nil {
			if err := s.RevokeRefreshToken(ctx, refreshTok.Value); err != nil {
				log.Printf("failed to process token deletion: %v", err)
			}
		}

		clearCookie := func(name string) {
			http.SetCookie(w, &http.Cookie{
				Name:     name,
				Value:    "",
				Path:     "/",
				MaxAge:   -1,
				Secure:   auth.SecureCookies(),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		clearCookie("jwt")
		clearCookie("refresh_token")
		respondJSON(w, http.StatusOK, map[string]any{"success": true})

		log.Printf("user logged out")
	}
}
