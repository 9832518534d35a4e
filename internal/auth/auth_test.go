package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

func TestSignAndVerify(t *testing.T) {
	signer, err := NewSigner("secret")
	if err != nil {
		t.Fatalf("new signer: %v", err)
	}
	verifier, err := NewVerifier("secret")
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}

	token, err := signer.Sign("user-1", time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	sub, err := verifier.UserIDFromAuthHeader("Bearer " + token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if sub != "user-1" {
		t.Errorf("expected sub user-1, got %q", sub)
	}
}

func TestUserIDFromAuthHeader_Rejects(t *testing.T) {
	verifier, _ := NewVerifier("secret")
	other, _ := NewSigner("other-secret")
	foreign, _ := other.Sign("user-1", time.Hour)

	signer, _ := NewSigner("secret")
	signer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _ := signer.Sign("user-1", time.Hour)

	noSub, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("secret"))

	tests := []struct {
		name   string
		header string
	}{
		{"empty", ""},
		{"no bearer prefix", "Token abc.def.ghi"},
		{"not a jwt", "Bearer abc"},
		{"wrong secret", "Bearer " + foreign},
		{"expired", "Bearer " + expired},
		{"missing sub", "Bearer " + noSub},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := verifier.UserIDFromAuthHeader(tt.header); err == nil {
				t.Error("expected error but got none")
			}
		})
	}
}

func TestNewSigner_EmptySecret(t *testing.T) {
	if _, err := NewSigner(""); err == nil {
		t.Error("expected error for empty secret")
	}
	if _, err := NewVerifier(""); err == nil {
		t.Error("expected error for empty secret")
	}
}
