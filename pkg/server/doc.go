// Package server is the HTTP transport layer in front of the reconciliation
// engine. It resolves visitor identity from a session cookie, serves the page
// shell, and translates the engine's refresh decisions into the htmx header
// protocol the thin client understands:
//
//	GET  /                          root visit: reset state, run script, render
//	GET  /update                    poll: HX-Refresh or HX-Trigger event map
//	GET  /update/ws                 websocket push of the same decisions
//	GET  /{componentKey}/label      one component's rendered label
//	POST /value_changed/{key}       record a visitor-entered value
//
// Identity is a 128-bit random token in an HttpOnly cookie. A malformed
// cookie fails the request; there is deliberately no fallback to any shared
// default session.
package server
