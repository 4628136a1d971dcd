package auth

import (
	"testing"
	"time"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	mgr := NewJWTManager("segredo-de-teste", 15*time.Minute)

	token, jti, err := mgr.GenerateAccessToken("subject-1", "app", "citizen")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	if jti == "" {
		t.Fatal("jti vazio")
	}

	claims, err := mgr.ParseAndValidate(token)
	if err != nil {
		t.Fatalf("ParseAndValidate: %v", err)
	}
	if claims.Subject != "subject-1" {
		t.Errorf("subject = %s", claims.Subject)
	}
	if claims.Role != "citizen" {
		t.Errorf("role = %s", claims.Role)
	}
}

func TestAccessTokenWrongSecret(t *testing.T) {
	mgr := NewJWTManager("segredo-a", 15*time.Minute)
	token, _, err := mgr.GenerateAccessToken("subject-1", "app", "worker")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	other := NewJWTManager("segredo-b", 15*time.Minute)
	if _, err := other.ParseAndValidate(token); err == nil {
		t.Fatal("token assinado com outro segredo deveria ser rejeitado")
	}
}

func TestAccessTokenExpired(t *testing.T) {
	mgr := NewJWTManager("segredo-de-teste", -time.Minute)
	token, _, err := mgr.GenerateAccessToken("subject-1", "app", "admin")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}
	if _, err := mgr.ParseAndValidate(token); err == nil {
		t.Fatal("token expirado deveria ser rejeitado")
	}
}

func TestRefreshTokenHash(t *testing.T) {
	raw, hashed, err := GenerateRefreshToken()
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}
	if raw == "" || hashed == "" {
		t.Fatal("token ou hash vazio")
	}
	if HashRefreshToken(raw) != hashed {
		t.Error("hash não é determinístico")
	}
	if HashRefreshToken("outro") == hashed {
		t.Error("hashes de tokens distintos deveriam diferir")
	}
}

func TestPasswordHash(t *testing.T) {
	hash, err := Hash("senha-forte")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}

	ok, err := Verify("senha-forte", hash)
	if err != nil || !ok {
		t.Fatalf("Verify = %v, %v", ok, err)
	}
	ok, err = Verify("senha-errada", hash)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if ok {
		t.Error("senha errada aceita")
	}
}
