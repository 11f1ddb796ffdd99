package randx

import "testing"

func TestHexString(t *testing.T) {
	s, err := HexString(8)
	if err != nil {
		t.Fatalf("HexString error: %v", err)
	}
	if len(s) != 16 {
		t.Fatalf("expected 16 characters, got %d", len(s))
	}

	other, err := HexString(8)
	if err != nil {
		t.Fatalf("HexString error: %v", err)
	}
	if s == other {
		t.Fatalf("two draws returned the same value")
	}
}

func TestWipe(t *testing.T) {
	b := []byte("secret")
	Wipe(b)
	for i, v := range b {
		if v != 0 {
			t.Fatalf("byte %d not wiped", i)
		}
	}
	Wipe(nil)
}
