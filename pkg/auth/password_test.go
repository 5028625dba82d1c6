package auth

import (
	"strings"
	"testing"
)

func TestHashPasswordAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Fatalf("expected bcrypt hash, got %q", hash)
	}
	if !CheckPassword("s3cret", hash) {
		t.Fatalf("expected password check to pass")
	}
	if CheckPassword("wrong", hash) {
		t.Fatalf("expected password check to fail")
	}
}

func TestCheckPasswordMalformedHash(t *testing.T) {
	if CheckPassword("anything", "not-a-bcrypt-hash") {
		t.Fatalf("malformed stored hash must never verify")
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("Str0ng#Password!"); err != nil {
		t.Fatalf("expected valid password, got: %v", err)
	}
	for _, weak := range []string{
		"short1!A",
		"alllowercase123!",
		"ALLUPPERCASE123!",
		"NoDigitsHere!!!",
		"NoSpecials1234",
	} {
		if err := ValidatePassword(weak); err == nil {
			t.Fatalf("expected %q to fail validation", weak)
		}
	}
}
