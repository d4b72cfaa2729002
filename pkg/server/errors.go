package server

import "errors"

// Sentinel errors for identity resolution and request handling.
var (
	// ErrInvalidIdentity is returned when a presented session cookie is not a
	// well-formed session ID. The request fails rather than falling back to
	// any shared default state.
	ErrInvalidIdentity = errors.New("server: invalid session identity")

	// ErrNoValue is returned when a value-change request supplies neither a
	// form field nor a query parameter for the component.
	ErrNoValue = errors.New("server: no value supplied")

	// ErrSecureCookiesRequired is returned when SecureCookies is set but the
	// request did not arrive over TLS or a trusted TLS-terminating proxy.
	ErrSecureCookiesRequired = errors.New("server: secure cookies require a TLS request")
)
