package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hstream-dev/hstream/pkg/engine"
	"github.com/hstream-dev/hstream/pkg/session"
)

// newSocketServer runs the full handler stack on a real listener with a fast
// push interval so socket tests finish quickly.
func newSocketServer(t *testing.T, script engine.Script) (*Server, *httptest.Server) {
	t.Helper()
	store := session.NewMemoryStore()
	t.Cleanup(func() { store.Close() })
	eng := engine.New(script, store)

	cfg := DefaultConfig()
	cfg.PushInterval = 10 * time.Millisecond
	s := New(eng, cfg, nil)

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func socketURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/update/ws"
}

// dialSocket connects to the update socket, attaching the session cookie and
// an optional Origin header.
func dialSocket(t *testing.T, ts *httptest.Server, cookie *http.Cookie, origin string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	header := http.Header{}
	if cookie != nil {
		header.Set("Cookie", cookie.String())
	}
	if origin != "" {
		header.Set("Origin", origin)
	}
	return websocket.DefaultDialer.Dial(socketURL(ts), header)
}

func readDecision(t *testing.T, conn *websocket.Conn, timeout time.Duration) engine.Decision {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(timeout))
	var decision engine.Decision
	if err := conn.ReadJSON(&decision); err != nil {
		t.Fatalf("reading pushed decision: %v", err)
	}
	return decision
}

func TestSocketPushesRefreshKeys(t *testing.T) {
	s, ts := newSocketServer(t, greeterScript)
	cookie := visit(t, s)

	req := httptest.NewRequest(http.MethodPost, "/value_changed/name", strings.NewReader("name=Ada"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if w := doRequest(t, s, req, cookie); w.Code != http.StatusOK {
		t.Fatalf("value_changed status = %d", w.Code)
	}

	conn, _, err := dialSocket(t, ts, cookie, "")
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	decision := readDecision(t, conn, 2*time.Second)
	if decision.FullReload {
		t.Fatalf("decision = %+v, want per-component refresh", decision)
	}
	keys := strings.Join(decision.RefreshKeys, ",")
	if !strings.Contains(keys, "greeting") {
		t.Errorf("refresh keys = %q, want greeting", keys)
	}
	if strings.Contains(keys, "name") {
		t.Errorf("refresh keys = %q, must not include the edited input", keys)
	}
}

func TestSocketFullReloadAckedAfterPush(t *testing.T) {
	var extra atomic.Bool
	script := func(c *engine.Ctx) error {
		c.Write("title", "Welcome")
		c.TextInput("name", "Your name")
		if extra.Load() {
			c.Write("added", "More content")
		}
		return nil
	}

	s, ts := newSocketServer(t, script)
	cookie := visit(t, s)

	// Grow the component set and flag a rerun: the next reconciliation is
	// structural.
	extra.Store(true)
	req := httptest.NewRequest(http.MethodPost, "/value_changed/name", strings.NewReader("name=Ada"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if w := doRequest(t, s, req, cookie); w.Code != http.StatusOK {
		t.Fatalf("value_changed status = %d", w.Code)
	}

	conn, _, err := dialSocket(t, ts, cookie, "")
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	decision := readDecision(t, conn, 2*time.Second)
	if !decision.FullReload {
		t.Fatalf("decision = %+v, want full reload", decision)
	}

	// The queue is drained right after the push, so the loop must not push
	// the same reload again on subsequent ticks.
	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var dup engine.Decision
	if err := conn.ReadJSON(&dup); err == nil {
		t.Fatalf("got second push %+v, want none after ack", dup)
	}
}

func TestSocketRejectsCrossOrigin(t *testing.T) {
	s, ts := newSocketServer(t, greeterScript)
	cookie := visit(t, s)

	conn, resp, err := dialSocket(t, ts, cookie, "http://evil.example.com")
	if err == nil {
		conn.Close()
		t.Fatal("cross-origin dial succeeded, want handshake rejection")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("handshake response = %+v, want 403", resp)
	}

	// The page's own origin is accepted.
	conn, _, err = dialSocket(t, ts, cookie, ts.URL)
	if err != nil {
		t.Fatalf("same-origin dial failed: %v", err)
	}
	conn.Close()
}

func TestSocketRejectsMalformedCookie(t *testing.T) {
	_, ts := newSocketServer(t, greeterScript)

	bad := &http.Cookie{Name: SessionCookieName, Value: "not-a-session-id"}
	conn, resp, err := dialSocket(t, ts, bad, "")
	if err == nil {
		conn.Close()
		t.Fatal("dial with malformed cookie succeeded, want rejection")
	}
	if resp == nil || resp.StatusCode != http.StatusBadRequest {
		t.Errorf("handshake response status = %v, want 400", resp)
	}
}
