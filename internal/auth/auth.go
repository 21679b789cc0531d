// Package auth implements the credential boundary: password hashing,
// JWT issuance/validation and refresh sessions.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ashikurrahma017/nowrin-ashikur-chat/internal/store"
)

type ContextKey string

const UserIDKey ContextKey = "userId"

func HashPassword(password string) (string, error) {
	hashedPw, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		return "", fmt.Errorf("internal/auth: pw hash failed: %w", err)
	}

	return hashedPw, nil
}

func CheckPasswordHash(password, hash string) (bool, error) {
	isMatch, err := argon2id.ComparePasswordAndHash(password, hash)
	if err != nil {
		return false, fmt.Errorf("internal/auth: pw and hash comparison failed: %w", err)
	}

	return isMatch, nil
}

// Authenticate verifies a username/credential pair against the store. It
// returns ok=false both for unknown users and bad passwords; the zero UUID
// accompanies ok=false.
func Authenticate(ctx context.Context, s store.Store, username, password string) (bool, uuid.UUID, error) {
	user, err := s.GetUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return false, uuid.UUID{}, nil
	}
	if err != nil {
		return false, uuid.UUID{}, fmt.Errorf("internal/auth: lookup user: %w", err)
	}

	ok, err := CheckPasswordHash(password, user.HashedPassword)
	if err != nil {
		return false, uuid.UUID{}, err
	}
	if !ok {
		return false, uuid.UUID{}, nil
	}

	return true, user.ID, nil
}

func MakeJWT(userID uuid.UUID, tokenSecret string, expiresIn time.Duration) (string, error) {
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    os.Getenv("JWT_ISS"),
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
	})

	return token.SignedString([]byte(tokenSecret))
}

func ValidateJWT(tokenString, tokenSecret string) (uuid.UUID, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (any, error) { return []byte(tokenSecret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return uuid.UUID{}, fmt.Errorf("internal/auth: failed to parse token: %w", err)
	}

	if !token.Valid {
		return uuid.UUID{}, errors.New("internal/auth: token is invalid")
	}

	if claims.Subject == "" {
		return uuid.UUID{}, errors.New("subject claim is missing")
	}

	userID, _ := token.Claims.GetSubject()
	return uuid.Parse(userID)
}

// GetUserFromContext extracts the authenticated user id placed in the
// request context by the middleware.
func GetUserFromContext(ctx context.Context) (uuid.UUID, error) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	if !ok {
		return uuid.UUID{}, errors.New("internal/auth: no user id in context")
	}
	return userID, nil
}

func MakeRefreshToken(ctx context.Context, s store.Store, userID uuid.UUID, expiresIn time.Duration) (string, error) {
	rnd := make([]byte, 32)

	// rand.Read() never returns an error.
	_, _ = rand.Read(rnd)
	rndStr := hex.EncodeToString(rnd)

	expiresAt := time.Now().UTC().Add(expiresIn)
	if err := s.CreateRefreshToken(ctx, rndStr, userID, expiresAt); err != nil {
		return "", fmt.Errorf("database error: %w", err)
	}

	return rndStr, nil
}
