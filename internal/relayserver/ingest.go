package relayserver

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/camlink/frame-relay/internal/auth"
	"github.com/camlink/frame-relay/internal/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 << 10,
	WriteBufferSize: 4 << 10,
	// Producers connect from browser pages served elsewhere.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleIngest upgrades the producer connection and forwards every inbound
// binary message to the broadcast engine as one complete frame. Rejections
// drop the TCP connection before the upgrade completes, with no response
// body, so probing clients get no distinguishable error surface.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	session := r.URL.Query().Get("session")
	if session == "" {
		dropConnection(w)
		return
	}

	if err := s.gate.Verify(session, auth.CapabilityUpload, credentialFrom(r)); err != nil {
		s.metrics.AuthRejections.Add(1)
		logger.Debug("Ingest", "rejected uploader for session %q: %v", session, err)
		dropConnection(w)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		logger.Debug("Ingest", "upgrade failed for session %q: %v", session, err)
		return
	}

	uploader := s.engine.AddUploader(session, func() { _ = conn.Close() })
	defer s.engine.RemoveUploader(uploader)
	defer conn.Close()

	conn.SetReadLimit(s.cfg.MaxFrameBytes)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("Ingest", "uploader %s read error: %v", uploader.ID, err)
			}
			return
		}
		if msgType != websocket.BinaryMessage || len(data) == 0 {
			continue
		}
		s.engine.Publish(session, data)
	}
}

// dropConnection terminates the underlying TCP connection without writing a
// response. Falls back to a bare status when the connection cannot be
// hijacked.
func dropConnection(w http.ResponseWriter) {
	hj, ok := w.(http.Hijacker)
	if !ok {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	conn, _, err := hj.Hijack()
	if err != nil {
		return
	}
	_ = conn.Close()
}
