package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsPongTimeout  = 60 * time.Second
	wsPingInterval = 30 * time.Second
)

// handleUpdateSocket upgrades the connection and pushes refresh decisions as
// JSON whenever the session's queue turns non-empty, as an alternative to
// HTTP polling. The push loop checks the queue at PushInterval; full-reload
// decisions are acknowledged after the write so the drained queue matches
// what the client was told.
func (s *Server) handleUpdateSocket(w http.ResponseWriter, r *http.Request) {
	sessionID, err := s.resolveIdentity(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		s.logger.Warn("websocket upgrade failed", "session_id", sessionID, "error", err)
		return
	}
	defer conn.Close()

	logger := s.logger.With("session_id", sessionID)
	logger.Debug("websocket connected")

	// Read pump: the client sends nothing we act on, but reads must drain to
	// notice closes and answer pings.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(1024)
		conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	poll := time.NewTicker(s.config.PushInterval)
	defer poll.Stop()
	ping := time.NewTicker(wsPingInterval)
	defer ping.Stop()

	for {
		select {
		case <-done:
			logger.Debug("websocket closed by client")
			return
		case <-r.Context().Done():
			return
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-poll.C:
			decision, err := s.engine.PollRefresh(r.Context(), sessionID)
			if err != nil {
				logger.Error("poll failed", "error", err)
				return
			}
			if decision.None() {
				continue
			}

			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(decision); err != nil {
				logger.Warn("websocket write failed", "error", err)
				return
			}
			if decision.FullReload {
				if err := s.engine.AckFullReload(r.Context(), sessionID); err != nil {
					logger.Error("ack failed", "error", err)
					return
				}
			}
		}
	}
}
