package auth

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/ashikurrahma017/nowrin-ashikur-chat/internal/store"
)

// SecureCookies reports whether session cookies should carry the Secure
// attribute. Development runs over plain http, where the browser would never
// send a Secure cookie back.
func SecureCookies() bool {
	env := os.Getenv("ENV")
	return env != "" && env != "development"
}

// SetTokensAndCookies issues a refresh token and a JWT for userID and sets
// both as HttpOnly cookies.
func SetTokensAndCookies(w http.ResponseWriter, r *http.Request, s store.Store, userID uuid.UUID, refreshExp, jwtExp time.Duration) error {
	refreshToken, err := MakeRefreshToken(r.Context(), s, userID, refreshExp)
	if err != nil {
		return fmt.Errorf("internal/auth: failed to make refresh token: %w", err)
	}

	jwtString, err := MakeJWT(userID, os.Getenv("JWT_SECRET"), jwtExp)
	if err != nil {
		return fmt.Errorf("internal/auth: failed to make JWT: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "refresh_token",
		Value:    refreshToken,
		Path:     "/",
		MaxAge:   int(refreshExp.Seconds()),
		Secure:   SecureCookies(),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.SetCookie(w, &http.Cookie{
		Name:     "jwt",
		Value:    jwtString,
		Path:     "/",
		MaxAge:   int(jwtExp.Seconds()),
		Secure:   SecureCookies(),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return nil
}

// RefreshSession mints a fresh JWT from the refresh token cookie.
func RefreshSession(w http.ResponseWriter, r *http.Request, s store.Store) (uuid.UUID, error) {
	refreshTokCookie, err := r.Cookie("refresh_token")
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("internal/auth: no refresh token cookie: %w", err)
	}

	userID, err := s.GetUserFromRefreshToken(r.Context(), refreshTokCookie.Value)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("internal/auth: failed to retrieve user from refresh token: %w", err)
	}

	jwtString, err := MakeJWT(userID, os.Getenv("JWT_SECRET"), 5*time.Minute)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("internal/auth: failed to make JWT: %w", err)
	}

	// Set cookie for access token. Expires in 5 minutes.
	http.SetCookie(w, &http.Cookie{
		Name:     "jwt",
		Value:    jwtString,
		Path:     "/",
		MaxAge:   5 * 60,
		Secure:   SecureCookies(),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return userID, nil
}
