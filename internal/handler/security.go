package handler

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/savourly/orderflow/internal/domain/auth"
)

// SecurityHandler authenticates staff requests via HMAC-SHA256 hashed bearer
// tokens.
type SecurityHandler struct {
	apikeys auth.Repository
	pepper  []byte
}

// NewSecurityHandler creates a SecurityHandler with the given token
// repository and HMAC pepper.
func NewSecurityHandler(apikeys auth.Repository, pepper []byte) *SecurityHandler {
	return &SecurityHandler{
		apikeys: apikeys,
		pepper:  pepper,
	}
}

// RequireStaff wraps next so it only runs for requests carrying a valid
// staff bearer token.
func (s *SecurityHandler) RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.Authenticate(r) {
			writeError(w, r, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Authenticate checks the request's bearer token by computing its
// HMAC-SHA256, looking the hash up, and performing a constant-time
// comparison to prevent timing attacks.
func (s *SecurityHandler) Authenticate(r *http.Request) bool {
	token, ok := bearerToken(r)
	if !ok {
		return false
	}

	mac := hmac.New(sha256.New, s.pepper)
	mac.Write([]byte(token))
	hash := mac.Sum(nil)

	info, err := s.apikeys.FindByHash(r.Context(), hex.EncodeToString(hash))
	if err != nil {
		return false
	}

	// Compare against the stored hash in constant time; the lookup alone is
	// not treated as proof.
	storedBytes, err := hex.DecodeString(info.KeyHash)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(hash, storedBytes) == 1
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
