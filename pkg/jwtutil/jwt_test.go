package jwtutil

import (
	"testing"
)

func newTestUtil(key string) *JWTUtil {
	return NewJWTUtil(&JWTConfig{SigningKey: key, ExpirationHours: 1})
}

func TestGenerateAndValidateToken(t *testing.T) {
	util := newTestUtil("test-signing-key")

	token, err := util.GenerateToken("user@example.com", 42)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := util.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Email != "user@example.com" {
		t.Errorf("email = %q, want user@example.com", claims.Email)
	}
	if claims.UserID != 42 {
		t.Errorf("user id = %d, want 42", claims.UserID)
	}
	if claims.WorkspaceID != nil {
		t.Errorf("workspace id = %v, want nil", *claims.WorkspaceID)
	}
}

func TestGenerateTokenWithWorkspace(t *testing.T) {
	util := newTestUtil("test-signing-key")

	workspaceID := uint(7)
	token, err := util.GenerateTokenWithWorkspace("admin@example.com", 1, &workspaceID, "acme", "admin")
	if err != nil {
		t.Fatalf("GenerateTokenWithWorkspace: %v", err)
	}

	claims, err := util.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.WorkspaceID == nil || *claims.WorkspaceID != 7 {
		t.Fatalf("workspace id = %v, want 7", claims.WorkspaceID)
	}
	if claims.WorkspaceName != "acme" {
		t.Errorf("workspace name = %q, want acme", claims.WorkspaceName)
	}
	if claims.Role != "admin" {
		t.Errorf("role = %q, want admin", claims.Role)
	}
}

func TestValidateTokenWrongKey(t *testing.T) {
	token, err := newTestUtil("key-one").GenerateToken("user@example.com", 1)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if _, err := newTestUtil("key-two").ValidateToken(token); err == nil {
		t.Fatal("expected validation to fail with a different signing key")
	}
}

func TestValidateTokenGarbage(t *testing.T) {
	if _, err := newTestUtil("key").ValidateToken("not.a.token"); err == nil {
		t.Fatal("expected validation to fail for malformed token")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	util := NewJWTUtil(&JWTConfig{SigningKey: "key", ExpirationHours: -1})
	token, err := util.GenerateToken("user@example.com", 1)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	if _, err := util.ValidateToken(token); err == nil {
		t.Fatal("expected validation to fail for expired token")
	}
}
