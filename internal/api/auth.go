package api

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	"github.com/dreyes/minutebank/internal/repository"
)

type contextKey string

const familyKey contextKey = "family"

// FamilyID returns the family the request was authenticated as.
func FamilyID(ctx context.Context) string {
	id, _ := ctx.Value(familyKey).(string)
	return id
}

// KeyStore resolves a hashed API key to its family.
type KeyStore interface {
	ResolveFamily(ctx context.Context, keyHash string) (string, error)
}

// Authenticator maps bearer tokens to family ids. Keys are compared by
// SHA-256 hash; the plaintext never touches storage. When disabled every
// request runs as the default family.
type Authenticator struct {
	keys          KeyStore
	enabled       bool
	defaultFamily string
}

// NewAuthenticator creates an Authenticator backed by a key store.
func NewAuthenticator(keys KeyStore, enabled bool, defaultFamily string) *Authenticator {
	return &Authenticator{keys: keys, enabled: enabled, defaultFamily: defaultFamily}
}

// HashKey returns the hex SHA-256 of an API key, the form keys are stored in.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Middleware authenticates the request and stashes the family id in the
// context.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.enabled {
			next.ServeHTTP(w, r.WithContext(
				context.WithValue(r.Context(), familyKey, a.defaultFamily)))
			return
		}

		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		familyID, err := a.keys.ResolveFamily(r.Context(), HashKey(token))
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				writeError(w, http.StatusUnauthorized, "unknown API key")
				return
			}
			writeError(w, http.StatusServiceUnavailable, "auth temporarily unavailable")
			return
		}

		next.ServeHTTP(w, r.WithContext(
			context.WithValue(r.Context(), familyKey, familyID)))
	})
}
