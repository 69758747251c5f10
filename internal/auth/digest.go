package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// DigestPolicy verifies a keyed digest derived from the server secret and the
// session key. The same digest authorizes both viewing and uploading; there
// is no capability or expiry concept in this deployment variant. Admin
// capability is never grantable through a digest.
type DigestPolicy struct {
	secret []byte
}

// NewDigestPolicy creates a policy keyed with the given shared secret.
func NewDigestPolicy(secret string) *DigestPolicy {
	return &DigestPolicy{secret: []byte(secret)}
}

// Expected returns the hex digest a caller must present for the session.
// Exposed for issuance-side tooling and tests.
func (p *DigestPolicy) Expected(session string) string {
	return hex.EncodeToString(p.compute(session))
}

func (p *DigestPolicy) compute(session string) []byte {
	mac := hmac.New(sha256.New, p.secret)
	mac.Write([]byte(session))
	return mac.Sum(nil)
}

// Verify implements Policy. The comparison uses hmac.Equal, so verification
// time does not depend on where the first mismatching byte occurs.
func (p *DigestPolicy) Verify(session string, cap Capability, credential string) error {
	if cap == CapabilityAdmin {
		return ErrForbidden
	}
	if credential == "" {
		return ErrMissingCredential
	}

	given, err := hex.DecodeString(credential)
	if err != nil {
		return ErrInvalidCredential
	}
	if !hmac.Equal(given, p.compute(session)) {
		return ErrInvalidCredential
	}
	return nil
}

// Mode implements Policy.
func (p *DigestPolicy) Mode() string { return "digest" }
