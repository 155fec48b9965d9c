package lobby

import (
	"strings"
	"testing"
)

func TestGenerateCodeLength(t *testing.T) {
	code, err := generateCode()
	if err != nil {
		t.Fatalf("generateCode failed: %v", err)
	}
	if len(code) != codeLength {
		t.Errorf("code %q has length %d, want %d", code, len(code), codeLength)
	}
}

func TestGenerateCodeAlphabet(t *testing.T) {
	// No ambiguous characters: codes are read out loud between players.
	for i := 0; i < 200; i++ {
		code, err := generateCode()
		if err != nil {
			t.Fatalf("generateCode failed: %v", err)
		}
		for _, r := range code {
			if !strings.ContainsRune(codeAlphabet, r) {
				t.Fatalf("code %q contains %q outside the alphabet", code, r)
			}
		}
		for _, banned := range "0O1IL" {
			if strings.ContainsRune(code, banned) {
				t.Fatalf("code %q contains ambiguous character %q", code, banned)
			}
		}
	}
}

func TestGenerateCodeVaries(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := generateCode()
		if err != nil {
			t.Fatalf("generateCode failed: %v", err)
		}
		seen[code] = true
	}
	// 31^6 possibilities; 100 draws colliding down to a handful would mean
	// the generator is broken.
	if len(seen) < 95 {
		t.Errorf("only %d distinct codes in 100 draws", len(seen))
	}
}
