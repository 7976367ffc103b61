package services_test

import (
	"testing"

	"wallet-service/internal/services"
)

func TestAuthService_TokenRoundTrip(t *testing.T) {
	auth := services.NewAuthService("test-secret", testLogger())

	token, err := auth.GenerateToken(7, "alice@example.com", "admin")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	claims, err := auth.ValidateToken(token)
	if err != nil {
		t.Fatalf("expected valid token, got: %v", err)
	}
	if claims.UserID != 7 || claims.Email != "alice@example.com" || claims.Role != "admin" {
		t.Errorf("bad claims: %+v", claims)
	}
}

func TestAuthService_RejectsForeignToken(t *testing.T) {
	auth := services.NewAuthService("test-secret", testLogger())
	other := services.NewAuthService("different-secret", testLogger())

	token, err := other.GenerateToken(7, "alice@example.com", "user")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if _, err := auth.ValidateToken(token); err == nil {
		t.Fatal("expected validation to fail for a token signed with another key")
	}
}

func TestAuthService_RejectsGarbage(t *testing.T) {
	auth := services.NewAuthService("test-secret", testLogger())
	if _, err := auth.ValidateToken("not-a-token"); err == nil {
		t.Fatal("expected validation to fail")
	}
}
