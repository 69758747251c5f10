package relayserver

import "time"

// Config defines the runtime configuration for the relay server. Secrets are
// values only; loading them (flags, environment) is the caller's concern.
type Config struct {
	Addr string

	// TokenSecret enables the signed-token policy when set.
	TokenSecret string
	// DigestSecret enables the keyed-digest policy when set and TokenSecret
	// is empty. With neither set the gate runs in open mode.
	DigestSecret string
	// AdminCode gates the status and disconnect endpoints. Independent of
	// the viewer/uploader secrets.
	AdminCode string
	// IssuerKey is the operator key required by the token issuance endpoint.
	IssuerKey string

	// MaxFrameBytes caps a single inbound frame on the ingestion channel.
	MaxFrameBytes int64
	// MaxTokenTTL bounds the lifetime of issued tokens.
	MaxTokenTTL time.Duration
	// ShutdownTimeout bounds graceful HTTP server shutdown.
	ShutdownTimeout time.Duration
}

// DefaultConfig returns the defaults used when flags leave values unset.
func DefaultConfig() Config {
	return Config{
		Addr:            ":8080",
		MaxFrameBytes:   8 << 20, // 8MB per frame
		MaxTokenTTL:     24 * time.Hour,
		ShutdownTimeout: 5 * time.Second,
	}
}
