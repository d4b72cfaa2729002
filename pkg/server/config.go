package server

import (
	"net/http"
	"time"
)

// Config holds configuration for the HTTP transport layer.
type Config struct {
	// Address is the address to listen on (e.g., ":8080").
	// Default: ":8080".
	Address string

	// ReadTimeout is the maximum duration for reading a request.
	// Default: 15 seconds.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration for writing a response.
	// Default: 15 seconds.
	WriteTimeout time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// Default: 30 seconds.
	ShutdownTimeout time.Duration

	// StylesheetHref is the stylesheet linked from the page shell.
	// Default: mvp.css from unpkg.
	StylesheetHref string

	// Cookies

	// SecureCookies requires the session cookie to be sent over HTTPS.
	// With SecureCookies set, issuing a cookie on a plain-HTTP request that
	// does not arrive via a trusted TLS-terminating proxy fails the request.
	// Default: false (development).
	SecureCookies bool

	// CookieDomain scopes the session cookie to a domain.
	// Default: "" (host-only).
	CookieDomain string

	// SameSiteMode is the SameSite attribute for the session cookie.
	// Default: http.SameSiteLaxMode.
	SameSiteMode http.SameSite

	// TrustedProxies lists reverse proxy IPs or CIDRs whose Forwarded /
	// X-Forwarded-Proto headers are believed when deciding whether a request
	// arrived over TLS. Default: nil (don't trust proxy headers).
	TrustedProxies []string

	// WebSocket push

	// PushInterval is how often the websocket push loop checks the session's
	// refresh queue. Default: 500ms.
	PushInterval time.Duration

	// CheckOrigin validates the Origin header on websocket upgrades.
	// Default: same-origin only.
	CheckOrigin func(r *http.Request) bool

	// Middleware wraps the router; outermost first. Use this to attach the
	// metrics and tracing middleware.
	Middleware []func(http.Handler) http.Handler
}

// DefaultConfig returns a Config with development-friendly defaults.
func DefaultConfig() *Config {
	return &Config{
		Address:         ":8080",
		ReadTimeout:     15 * time.Second,
		WriteTimeout:    15 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		StylesheetHref:  "https://unpkg.com/mvp.css@1.12/mvp.css",
		SameSiteMode:    http.SameSiteLaxMode,
		PushInterval:    500 * time.Millisecond,
		CheckOrigin:     SameOriginCheck,
	}
}

// Clone returns a copy of the Config.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	if c.TrustedProxies != nil {
		clone.TrustedProxies = append([]string(nil), c.TrustedProxies...)
	}
	if c.Middleware != nil {
		clone.Middleware = append([]func(http.Handler) http.Handler(nil), c.Middleware...)
	}
	return &clone
}
