package relayserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/camlink/frame-relay/internal/auth"
	"github.com/camlink/frame-relay/internal/logger"
)

type issueRequest struct {
	Session    string `json:"session"`
	Capability string `json:"capability"`
	TTLSeconds int64  `json:"ttl_seconds"`
}

// handleIssue mints a signed token for a (session, capability) pair. Only
// mounted in token mode, and gated on the operator issuer key, which is a
// separate secret from the verification secret's consumers.
func (s *Server) handleIssue(w http.ResponseWriter, r *http.Request) {
	key := credentialFrom(r)
	if key == "" {
		key = r.URL.Query().Get("key")
	}
	if s.cfg.IssuerKey == "" || !auth.EqualCode(key, s.cfg.IssuerKey) {
		s.metrics.AuthRejections.Add(1)
		writeJSONWithStatus(w, map[string]any{"error": auth.ErrForbidden.Error()}, http.StatusForbidden)
		return
	}

	var req issueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Session == "" {
		writeJSONWithStatus(w, map[string]any{"error": "bad_request"}, http.StatusBadRequest)
		return
	}

	cap, err := auth.ParseCapability(req.Capability)
	if err != nil {
		writeJSONWithStatus(w, map[string]any{"error": "bad_request"}, http.StatusBadRequest)
		return
	}

	ttl := time.Duration(req.TTLSeconds) * time.Second
	if ttl <= 0 || ttl > s.cfg.MaxTokenTTL {
		writeJSONWithStatus(w, map[string]any{"error": "bad_request"}, http.StatusBadRequest)
		return
	}

	token, expiresAt, err := s.tokens.Issue(req.Session, cap, ttl)
	if err != nil {
		logger.Error("Issue", "token signing failed: %v", err)
		writeJSONWithStatus(w, map[string]any{"error": "internal"}, http.StatusInternalServerError)
		return
	}

	logger.Info("Issue", "issued %s token for session %q (ttl %s)", cap, req.Session, ttl)
	writeJSON(w, map[string]any{
		"token":      token,
		"expires_at": float64(expiresAt.Unix()),
	})
}
