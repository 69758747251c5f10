package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenPolicyRoundTrip(t *testing.T) {
	p := NewTokenPolicy("s3cret")

	token, expiresAt, err := p.Issue("42", CapabilityView, time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if !expiresAt.After(time.Now()) {
		t.Fatalf("expiry %v not in the future", expiresAt)
	}

	if err := p.Verify("42", CapabilityView, token); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestTokenPolicyMissingCredential(t *testing.T) {
	p := NewTokenPolicy("s3cret")
	if err := p.Verify("42", CapabilityView, ""); !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("Verify = %v, want ErrMissingCredential", err)
	}
}

func TestTokenPolicyWrongSession(t *testing.T) {
	p := NewTokenPolicy("s3cret")
	token, _, err := p.Issue("A", CapabilityView, time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if err := p.Verify("B", CapabilityView, token); !errors.Is(err, ErrForbidden) {
		t.Fatalf("cross-session Verify = %v, want ErrForbidden", err)
	}
}

func TestTokenPolicyWrongCapability(t *testing.T) {
	p := NewTokenPolicy("s3cret")
	token, _, err := p.Issue("42", CapabilityView, time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if err := p.Verify("42", CapabilityUpload, token); !errors.Is(err, ErrForbidden) {
		t.Fatalf("view token on upload endpoint = %v, want ErrForbidden", err)
	}
}

func TestTokenPolicyExpired(t *testing.T) {
	p := NewTokenPolicy("s3cret")
	token, _, err := p.Issue("42", CapabilityView, -time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if err := p.Verify("42", CapabilityView, token); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("expired token Verify = %v, want ErrInvalidCredential", err)
	}
}

func TestTokenPolicyTamperedSignature(t *testing.T) {
	issuer := NewTokenPolicy("right-secret")
	token, _, err := issuer.Issue("42", CapabilityView, time.Minute)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	verifier := NewTokenPolicy("wrong-secret")
	if err := verifier.Verify("42", CapabilityView, token); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("bad signature Verify = %v, want ErrInvalidCredential", err)
	}
}

func TestTokenPolicyGarbage(t *testing.T) {
	p := NewTokenPolicy("s3cret")
	if err := p.Verify("42", CapabilityView, "not-a-token"); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("garbage Verify = %v, want ErrInvalidCredential", err)
	}
}

func TestTokenPolicyRejectsNoneAlgorithm(t *testing.T) {
	claims := relayClaims{
		Session:    "42",
		Capability: string(CapabilityView),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}

	p := NewTokenPolicy("s3cret")
	if err := p.Verify("42", CapabilityView, token); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("none-alg token Verify = %v, want ErrInvalidCredential", err)
	}
}

func TestTokenPolicyRejectsOtherHMACAlgorithms(t *testing.T) {
	claims := relayClaims{
		Session:    "42",
		Capability: string(CapabilityView),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS384, claims).SignedString([]byte("s3cret"))
	if err != nil {
		t.Fatalf("sign HS384 token: %v", err)
	}

	p := NewTokenPolicy("s3cret")
	if err := p.Verify("42", CapabilityView, token); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("HS384 token Verify = %v, want ErrInvalidCredential", err)
	}
}

func TestTokenPolicyRequiresExpiry(t *testing.T) {
	claims := relayClaims{
		Session:    "42",
		Capability: string(CapabilityView),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("s3cret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	p := NewTokenPolicy("s3cret")
	if err := p.Verify("42", CapabilityView, token); !errors.Is(err, ErrInvalidCredential) {
		t.Fatalf("no-expiry token Verify = %v, want ErrInvalidCredential", err)
	}
}
