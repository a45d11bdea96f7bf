package utils

import "testing"

func TestHashString(t *testing.T) {
	h1 := HashString("token-a")
	h2 := HashString("token-a")
	h3 := HashString("token-b")

	if h1 != h2 {
		t.Error("hashing the same input must be deterministic")
	}
	if h1 == h3 {
		t.Error("different inputs must not collide")
	}
	// SHA-256 hex is 64 characters
	if len(h1) != 64 {
		t.Errorf("expected 64 hex characters, got %d", len(h1))
	}
}
