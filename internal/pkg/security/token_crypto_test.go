package security

import (
	"strings"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	tests := []string{
		"",
		"a",
		"pat-na1-0123456789abcdef",
		strings.Repeat("long-token-", 100),
	}

	for _, plaintext := range tests {
		enc, err := EncryptToken(plaintext, "app-secret")
		if err != nil {
			t.Fatalf("EncryptToken(%q) error: %v", plaintext, err)
		}
		got, ok := DecryptToken(enc, "app-secret")
		if !ok {
			t.Fatalf("DecryptToken failed for %q", plaintext)
		}
		if got != plaintext {
			t.Fatalf("round trip mismatch: got %q, want %q", got, plaintext)
		}
	}
}

func TestEncryptProducesUniqueCiphertexts(t *testing.T) {
	a, err := EncryptToken("same-token", "app-secret")
	if err != nil {
		t.Fatal(err)
	}
	b, err := EncryptToken("same-token", "app-secret")
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Fatalf("expected unique nonces to produce distinct ciphertexts")
	}
}

func TestDecryptGarbageReturnsFalse(t *testing.T) {
	for _, garbage := range []string{
		"",
		"not-base64!!!",
		"c2hvcnQ=", // valid base64, too short for nonce+tag
	} {
		if got, ok := DecryptToken(garbage, "app-secret"); ok {
			t.Fatalf("DecryptToken(%q) = (%q, true), want ok=false", garbage, got)
		}
	}
}

func TestDecryptWrongSecretReturnsFalse(t *testing.T) {
	enc, err := EncryptToken("token", "secret-a")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := DecryptToken(enc, "secret-b"); ok {
		t.Fatalf("expected decryption with wrong secret to fail")
	}
}

func TestEncryptRequiresSecret(t *testing.T) {
	if _, err := EncryptToken("token", ""); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}
