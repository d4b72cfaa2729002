package server

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
)

// SessionCookieName carries the visitor's session identity between requests.
const SessionCookieName = "hstream_sid"

// sessionIDLength is the hex length of a session ID (16 random bytes).
const sessionIDLength = 32

// newSessionID mints a session identity from 128 bits of crypto/rand.
// The token space must be large enough that concurrently created sessions
// cannot collide.
func newSessionID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		// Weak identities silently shared between visitors are worse than a
		// crash.
		panic(fmt.Sprintf("crypto/rand failed: %v", err))
	}
	return hex.EncodeToString(b)
}

// validSessionID reports whether id is a well-formed minted identity.
func validSessionID(id string) bool {
	if len(id) != sessionIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// resolveIdentity maps the request to a stable visitor identity. A missing
// cookie mints a fresh identity and issues the cookie on the response; a
// malformed cookie fails the request. There is no fallback to shared state.
func (s *Server) resolveIdentity(w http.ResponseWriter, r *http.Request) (string, error) {
	if c, err := r.Cookie(SessionCookieName); err == nil {
		if !validSessionID(c.Value) {
			return "", ErrInvalidIdentity
		}
		return c.Value, nil
	}

	id := newSessionID()
	cookie, err := s.sessionCookie(r, id)
	if err != nil {
		return "", err
	}
	http.SetCookie(w, cookie)
	return id, nil
}

// sessionCookie builds the identity cookie with the configured security
// attributes.
func (s *Server) sessionCookie(r *http.Request, id string) (*http.Cookie, error) {
	secure, err := s.cookieSecureFlag(r)
	if err != nil {
		return nil, err
	}

	cookie := &http.Cookie{
		Name:     SessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: s.config.SameSiteMode,
		Secure:   secure,
	}
	if s.config.CookieDomain != "" {
		cookie.Domain = s.config.CookieDomain
	}
	return cookie, nil
}

func (s *Server) cookieSecureFlag(r *http.Request) (bool, error) {
	if !s.config.SecureCookies {
		return false, nil
	}
	if s.isRequestSecure(r) {
		return true, nil
	}
	return false, ErrSecureCookiesRequired
}
