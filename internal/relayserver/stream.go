package relayserver

import (
	"fmt"
	"io"
	"net/http"

	"github.com/camlink/frame-relay/internal/auth"
	"github.com/camlink/frame-relay/internal/logger"
)

// streamBoundary is the fixed multipart boundary token.
const streamBoundary = "frame"

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	session := r.PathValue("session")
	if !s.authorize(w, r, session, auth.CapabilityView) {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+streamBoundary)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "close")

	watcher := s.engine.Subscribe(session)
	defer s.engine.Unsubscribe(watcher)

	// Emit nothing until a frame exists; Subscribe primes the channel when
	// the session already holds one.
	for {
		select {
		case frame, ok := <-watcher.Frames():
			if !ok {
				return
			}
			if err := writeFramePart(w, frame); err != nil {
				logger.Debug("MJPEG", "watcher %s disconnected during write: %v", watcher.ID, err)
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

// writeFramePart writes one self-describing multipart chunk: boundary, image
// content type, exact byte length, frame bytes, trailing CRLF.
func writeFramePart(w io.Writer, frame []byte) error {
	if _, err := fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", streamBoundary, len(frame)); err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return err
	}
	_, err := w.Write([]byte("\r\n"))
	return err
}
