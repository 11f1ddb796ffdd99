package password

import (
	"strings"
	"testing"
)

func TestHashAndVerify_Success(t *testing.T) {
	t.Parallel()

	hashed, err := Hash("s3cret-pass")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if hashed == "s3cret-pass" {
		t.Fatalf("hash equals the plaintext")
	}
	if !strings.HasPrefix(hashed, "$2") {
		t.Fatalf("expected bcrypt hash, got %q", hashed)
	}

	ok, err := Verify("s3cret-pass", hashed)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if !ok {
		t.Fatalf("expected correct password to verify")
	}
}

func TestVerify_WrongPassword(t *testing.T) {
	t.Parallel()

	hashed, err := Hash("right")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	ok, err := Verify("wrong", hashed)
	if err != nil {
		t.Fatalf("wrong password must not be an error, got %v", err)
	}
	if ok {
		t.Fatalf("wrong password verified")
	}
}

func TestVerify_MalformedStoredHash(t *testing.T) {
	t.Parallel()

	_, err := Verify("anything", "not-a-bcrypt-hash")
	if err == nil {
		t.Fatalf("expected error for malformed stored hash")
	}
}

func TestHash_RejectsAlreadyHashedValue(t *testing.T) {
	t.Parallel()

	hashed, err := Hash("plain")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	if _, err := Hash(hashed); err == nil {
		t.Fatalf("expected re-hashing an existing hash to fail")
	}
}

func TestHash_SaltsAreRandom(t *testing.T) {
	t.Parallel()

	a, err := Hash("same-password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	b, err := Hash("same-password")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if a == b {
		t.Fatalf("two hashes of the same password are identical; salt missing")
	}
}
