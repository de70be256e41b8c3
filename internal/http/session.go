package http

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"tally/internal/store"
)

const sessionCookieName = "tally_session"

// session resolves the caller's session, issuing a fresh cookie when none is
// present, and returns the session's store.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (string, *store.Store) {
	if c, err := r.Cookie(sessionCookieName); err == nil && validSessionID(c.Value) {
		return c.Value, s.registry.Get(c.Value)
	}

	id := newSessionID()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return id, s.registry.Get(id)
}

// newSessionID returns a random 128-bit hex id.
func newSessionID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails
		return fmt.Sprintf("%032x", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}

func validSessionID(id string) bool {
	if len(id) != 32 {
		return false
	}
	_, err := hex.DecodeString(id)
	return err == nil
}
