package sessiontoken

import (
	"errors"
	"testing"
)

func TestIssueAndVerify(t *testing.T) {
	signer := NewSigner("test-secret")

	token, err := signer.Issue("user-123", "a@b.pl")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	userID, err := signer.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if userID != "user-123" {
		t.Errorf("userID = %q, want %q", userID, "user-123")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := NewSigner("secret-a").Issue("user-123", "a@b.pl")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := NewSigner("secret-b").Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	if _, err := NewSigner("secret").Verify("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestVerifyRejectsUnsignedToken(t *testing.T) {
	// Header {"alg":"none","typ":"JWT"} with a sub claim and no signature.
	unsigned := "eyJhbGciOiJub25lIiwidHlwIjoiSldUIn0.eyJzdWIiOiJ1c2VyLTEyMyJ9."
	if _, err := NewSigner("secret").Verify(unsigned); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}
