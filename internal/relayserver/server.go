package relayserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/camlink/frame-relay/internal/auth"
	"github.com/camlink/frame-relay/internal/logger"
	"github.com/camlink/frame-relay/internal/metrics"
	"github.com/camlink/frame-relay/internal/relay"
)

// Server serves the relay endpoints: WebSocket ingestion, MJPEG and snapshot
// delivery, status, and administrative disconnect.
type Server struct {
	cfg     Config
	engine  *relay.Engine
	gate    auth.Policy
	tokens  *auth.TokenPolicy // non-nil only in token mode
	metrics *metrics.Metrics
	started time.Time
}

// NewServer returns a configured relay server. The access gate policy is
// selected here, once, from the configured secrets.
func NewServer(cfg Config) *Server {
	if cfg.MaxFrameBytes <= 0 {
		cfg.MaxFrameBytes = DefaultConfig().MaxFrameBytes
	}
	if cfg.MaxTokenTTL <= 0 {
		cfg.MaxTokenTTL = DefaultConfig().MaxTokenTTL
	}

	m := metrics.New()

	s := &Server{
		cfg:     cfg,
		engine:  relay.NewEngine(m),
		metrics: m,
		started: time.Now(),
	}

	switch {
	case cfg.TokenSecret != "":
		s.tokens = auth.NewTokenPolicy(cfg.TokenSecret)
		s.gate = s.tokens
		if cfg.DigestSecret != "" {
			logger.Warn("Gate", "both token and digest secrets configured; token policy wins")
		}
	case cfg.DigestSecret != "":
		s.gate = auth.NewDigestPolicy(cfg.DigestSecret)
	default:
		s.gate = auth.OpenPolicy{}
		logger.Warn("Gate", "no secret configured: access gate is OPEN, every request passes")
	}
	logger.Info("Gate", "access gate mode: %s", s.gate.Mode())

	if cfg.AdminCode == "" {
		logger.Warn("Gate", "no admin code configured: admin endpoints follow the gate mode")
	}

	return s
}

// Engine exposes the relay engine, primarily for tests.
func (s *Server) Engine() *relay.Engine {
	return s.engine
}

// Handler exposes the HTTP handler for the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/{$}", s.handleIndex)
	mux.HandleFunc("GET /jpg/{session}", s.handleSnapshot)
	mux.HandleFunc("GET /mjpg/{session}", s.handleStream)
	mux.HandleFunc("/ws", s.handleIngest)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("POST /admin/disconnect/{session}", s.handleDisconnect)
	if s.tokens != nil {
		mux.HandleFunc("POST /issue", s.handleIssue)
	}
	mux.Handle("/metrics", s.metrics.Handler())

	return mux
}

// credentialFrom extracts the bearer credential from the Authorization
// header, falling back to the t query parameter for endpoints where header
// injection is impractical (viewer streams, WebSocket upgrades).
func credentialFrom(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		const prefix = "Bearer "
		if len(h) > len(prefix) && h[:len(prefix)] == prefix {
			return h[len(prefix):]
		}
	}
	return r.URL.Query().Get("t")
}

// authorize runs the access gate and, on rejection, writes the structured
// failure response. Returns true when the request may proceed.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request, session string, cap auth.Capability) bool {
	err := s.gate.Verify(session, cap, credentialFrom(r))
	if err == nil {
		return true
	}

	s.metrics.AuthRejections.Add(1)
	logger.Debug("Gate", "rejected %s %s for session %q: %v", r.Method, r.URL.Path, session, err)

	status := http.StatusUnauthorized
	if errors.Is(err, auth.ErrForbidden) {
		status = http.StatusForbidden
	}
	writeJSONWithStatus(w, map[string]any{"error": err.Error()}, status)
	return false
}

// adminAuthorized gates the status and disconnect endpoints on the admin
// code. Without a configured code the endpoints are only reachable when the
// gate itself is open.
func (s *Server) adminAuthorized(r *http.Request) bool {
	if s.cfg.AdminCode != "" {
		return auth.EqualCode(r.URL.Query().Get("code"), s.cfg.AdminCode)
	}
	_, open := s.gate.(auth.OpenPolicy)
	return open
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexHTML))
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	session := r.PathValue("session")
	if !s.authorize(w, r, session, auth.CapabilityView) {
		return
	}

	frame, ok := s.engine.Frame(session)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(frame)))
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(frame)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if !s.adminAuthorized(r) {
		s.metrics.AuthRejections.Add(1)
		writeJSONWithStatus(w, map[string]any{"error": auth.ErrForbidden.Error()}, http.StatusForbidden)
		return
	}

	writeJSON(w, map[string]any{
		"mode":           s.gate.Mode(),
		"sessions":       s.engine.Snapshot(),
		"uptime_seconds": time.Since(s.started).Seconds(),
		"timestamp":      float64(time.Now().Unix()),
	})
}

func (s *Server) handleDisconnect(w http.ResponseWriter, r *http.Request) {
	if !s.adminAuthorized(r) {
		s.metrics.AuthRejections.Add(1)
		writeJSONWithStatus(w, map[string]any{"error": auth.ErrForbidden.Error()}, http.StatusForbidden)
		return
	}

	session := r.PathValue("session")
	if session == "" {
		writeJSONWithStatus(w, map[string]any{"error": "bad_request"}, http.StatusBadRequest)
		return
	}

	closed := s.engine.Disconnect(session)
	writeJSON(w, map[string]any{
		"status":           "disconnected",
		"session":          session,
		"uploaders_closed": closed,
	})
}

func writeJSON(w http.ResponseWriter, payload any) {
	writeJSONWithStatus(w, payload, http.StatusOK)
}

func writeJSONWithStatus(w http.ResponseWriter, payload any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		_, _ = fmt.Fprintf(w, `{"error":"%s"}`, err.Error())
	}
}
