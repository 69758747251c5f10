package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenPolicy verifies signed bearer tokens carrying a session, a capability,
// and an expiry. Only HS256 is accepted; tokens signed with any other
// algorithm (including "none") fail verification outright.
type TokenPolicy struct {
	secret []byte
}

// NewTokenPolicy creates a policy verifying against the given shared secret.
func NewTokenPolicy(secret string) *TokenPolicy {
	return &TokenPolicy{secret: []byte(secret)}
}

type relayClaims struct {
	Session    string `json:"ses"`
	Capability string `json:"cap"`
	jwt.RegisteredClaims
}

// Verify implements Policy.
func (p *TokenPolicy) Verify(session string, cap Capability, credential string) error {
	if credential == "" {
		return ErrMissingCredential
	}

	claims := &relayClaims{}
	token, err := jwt.ParseWithClaims(credential, claims,
		func(*jwt.Token) (interface{}, error) { return p.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return ErrInvalidCredential
	}

	if claims.Session != session || Capability(claims.Capability) != cap {
		return ErrForbidden
	}
	return nil
}

// Mode implements Policy.
func (p *TokenPolicy) Mode() string { return "token" }

// Issue mints a token for the given session and capability, expiring after
// ttl. The relay only calls this on the operator-gated issuance endpoint;
// viewer and uploader requests are verify-only.
func (p *TokenPolicy) Issue(session string, cap Capability, ttl time.Duration) (string, time.Time, error) {
	expiresAt := time.Now().Add(ttl)
	claims := relayClaims{
		Session:    session,
		Capability: string(cap),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expiresAt, nil
}
