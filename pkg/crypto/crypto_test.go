package crypto

import "testing"

func TestHashAndComparePassword(t *testing.T) {
	hash, err := HashPassword("hunter22")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if string(hash) == "hunter22" {
		t.Fatalf("hash equals plaintext")
	}
	if err := ComparePassword(hash, "hunter22"); err != nil {
		t.Fatalf("expected match: %v", err)
	}
	if err := ComparePassword(hash, "hunter23"); err == nil {
		t.Fatalf("expected mismatch to fail")
	}
}

func TestRandomSecretLengthAndUniqueness(t *testing.T) {
	a, err := RandomSecret(32)
	if err != nil {
		t.Fatalf("random secret: %v", err)
	}
	b, err := RandomSecret(32)
	if err != nil {
		t.Fatalf("random secret: %v", err)
	}
	if len(a) != 64 || len(b) != 64 {
		t.Fatalf("expected 64 hex chars, got %d and %d", len(a), len(b))
	}
	if a == b {
		t.Fatalf("expected distinct secrets")
	}
}
