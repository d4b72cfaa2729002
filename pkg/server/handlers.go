package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hstream-dev/hstream/pkg/component"
)

// htmx response headers understood by the thin client.
const (
	headerRefresh  = "HX-Refresh"  // "true" forces a full page reload
	headerTrigger  = "HX-Trigger"  // JSON map of client events to fire
	headerRetarget = "HX-Retarget" // CSS selector overriding the swap target
	headerReswap   = "HX-Reswap"   // "none" suppresses response swapping
)

// navRegionSelector is where Nav component refreshes are swapped in.
const navRegionSelector = "#hstream-nav"

// handleRoot serves the page shell for a fresh session: state is reset, the
// script runs, and the declared components are rendered in order.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	sessionID, err := s.resolveIdentity(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	st, err := s.engine.RootVisit(r.Context(), sessionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.renderPage(w, st.Components); err != nil {
		s.logger.Error("page render failed", "session_id", sessionID, "error", err)
	}
}

// handleUpdate answers a refresh poll. A full-reload decision is delivered as
// an HX-Refresh header and acknowledged immediately; per-component decisions
// become an HX-Trigger event map so the client re-fetches only those labels.
func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	sessionID, err := s.resolveIdentity(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	decision, err := s.engine.PollRefresh(r.Context(), sessionID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if decision.FullReload {
		if err := s.engine.AckFullReload(r.Context(), sessionID); err != nil {
			s.writeError(w, r, err)
			return
		}
		w.Header().Set(headerRefresh, "true")
		w.Write([]byte("true"))
		return
	}

	// htmx expects multiple triggers as a JSON object of event names.
	triggers := make(map[string]string, len(decision.RefreshKeys))
	for _, key := range decision.RefreshKeys {
		triggers[refreshEventName(key)] = ""
	}
	payload, err := json.Marshal(triggers)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	w.Header().Set(headerTrigger, string(payload))
	w.Write(payload)
}

// handleLabel serves one component's rendered label. Fetching the label is
// the refresh, so the key is dequeued as a side effect in the engine.
func (s *Server) handleLabel(w http.ResponseWriter, r *http.Request) {
	sessionID, err := s.resolveIdentity(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	key := chi.URLParam(r, "componentKey")
	rec, err := s.engine.ComponentLabel(r.Context(), sessionID, key)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	if rec.Kind == component.KindNav {
		w.Header().Set(headerRetarget, navRegionSelector)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(rec.Label))
}

// handleValueChanged records a visitor-entered value. The value arrives as a
// form field or query parameter named after the component key; neither
// present is a malformed request and mutates nothing.
func (s *Server) handleValueChanged(w http.ResponseWriter, r *http.Request) {
	sessionID, err := s.resolveIdentity(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	key := chi.URLParam(r, "componentKey")

	value, ok := valueFromRequest(r, key)
	if !ok {
		s.writeError(w, r, ErrNoValue)
		return
	}

	if err := s.engine.ApplyValueChange(r.Context(), sessionID, key, value); err != nil {
		s.writeError(w, r, err)
		return
	}

	// The client should not swap the acknowledgement anywhere; it should ask
	// for updated components instead.
	w.Header().Set(headerReswap, "none")
	w.Header().Set(headerTrigger, "get-updated-components")
	w.Write([]byte("success"))
}

// valueFromRequest extracts the component value from the form body, falling
// back to the query string. An empty string that was explicitly supplied
// still counts as a value.
func valueFromRequest(r *http.Request, key string) (string, bool) {
	if err := r.ParseForm(); err != nil {
		return "", false
	}
	if vs, ok := r.PostForm[key]; ok && len(vs) > 0 {
		return vs[0], true
	}
	if vs, ok := r.URL.Query()[key]; ok && len(vs) > 0 {
		return vs[0], true
	}
	return "", false
}

// refreshEventName is the client event fired to refresh one component.
func refreshEventName(key string) string {
	return "refresh-" + key
}
