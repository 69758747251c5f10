package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"fmt"
)

// Capability is an authorization scope required by an endpoint.
type Capability string

const (
	CapabilityView   Capability = "view"
	CapabilityUpload Capability = "upload"
	CapabilityAdmin  Capability = "admin"
)

// ParseCapability validates a capability string.
func ParseCapability(s string) (Capability, error) {
	switch Capability(s) {
	case CapabilityView, CapabilityUpload, CapabilityAdmin:
		return Capability(s), nil
	default:
		return "", fmt.Errorf("unknown capability: %q", s)
	}
}

// Gate rejection taxonomy. Handlers map these to transport-level failures;
// they are terminal for the request, with no fallback to open behavior.
var (
	// ErrMissingCredential means no credential was supplied.
	ErrMissingCredential = errors.New("missing_credential")
	// ErrInvalidCredential means the credential is malformed, expired, or
	// fails signature/digest verification.
	ErrInvalidCredential = errors.New("invalid_credential")
	// ErrForbidden means the credential is valid but bound to a different
	// session or capability.
	ErrForbidden = errors.New("forbidden")
)

// Policy authorizes one request against a required (session, capability)
// pair. Implementations are selected once at startup from configuration.
type Policy interface {
	// Verify returns nil if the credential grants the capability on the
	// session, or one of ErrMissingCredential, ErrInvalidCredential,
	// ErrForbidden.
	Verify(session string, cap Capability, credential string) error
	// Mode names the policy for logs and the status endpoint.
	Mode() string
}

// OpenPolicy passes every request unconditionally. Selected when no server
// secret is configured; intended for local or trusted deployments only and
// surfaced loudly at startup.
type OpenPolicy struct{}

// Verify implements Policy.
func (OpenPolicy) Verify(string, Capability, string) error { return nil }

// Mode implements Policy.
func (OpenPolicy) Mode() string { return "open" }

// EqualCode compares two secret codes in constant time. Both sides are
// hashed first so the comparison leaks neither content nor length.
func EqualCode(given, expected string) bool {
	if expected == "" {
		return false
	}
	g := sha256.Sum256([]byte(given))
	e := sha256.Sum256([]byte(expected))
	return subtle.ConstantTimeCompare(g[:], e[:]) == 1
}
