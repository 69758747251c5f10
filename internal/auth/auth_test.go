package auth

import "testing"

func TestParseCapability(t *testing.T) {
	for _, valid := range []string{"view", "upload", "admin"} {
		cap, err := ParseCapability(valid)
		if err != nil || string(cap) != valid {
			t.Fatalf("ParseCapability(%q) = %q, %v", valid, cap, err)
		}
	}
	for _, invalid := range []string{"", "VIEW", "root", "view "} {
		if _, err := ParseCapability(invalid); err == nil {
			t.Fatalf("ParseCapability(%q) accepted", invalid)
		}
	}
}

func TestOpenPolicyPassesEverything(t *testing.T) {
	p := OpenPolicy{}
	if err := p.Verify("any", CapabilityAdmin, ""); err != nil {
		t.Fatalf("open policy rejected: %v", err)
	}
	if p.Mode() != "open" {
		t.Fatalf("Mode = %q", p.Mode())
	}
}

func TestEqualCode(t *testing.T) {
	if !EqualCode("hunter2", "hunter2") {
		t.Fatalf("equal codes rejected")
	}
	if EqualCode("hunter2", "hunter3") {
		t.Fatalf("unequal codes accepted")
	}
	if EqualCode("short", "a-much-longer-code") {
		t.Fatalf("length mismatch accepted")
	}
	// An unset expected code never matches, including the empty guess.
	if EqualCode("", "") {
		t.Fatalf("empty expected code accepted")
	}
}
