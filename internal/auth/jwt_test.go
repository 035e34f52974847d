package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAndValidateToken(t *testing.T) {
	secret := "test-secret-key"
	now := time.Now()

	token, err := GenerateToken(secret, 1, 7, now, DefaultAccessTTL)
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	claims, err := ValidateToken(secret, token, now)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}

	id, _ := claims.UserID()
	if id != 1 {
		t.Errorf("expected subject 1, got %d", id)
	}
	if claims.AccountID != 7 {
		t.Errorf("expected account_id 7, got %d", claims.AccountID)
	}
	if claims.ID == "" {
		t.Error("expected a jti")
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	now := time.Now()
	token, _ := GenerateToken("secret1", 1, 1, now, DefaultAccessTTL)

	_, err := ValidateToken("secret2", token, now)
	if err == nil {
		t.Error("expected error for wrong secret")
	}
}

func TestValidateTokenInvalid(t *testing.T) {
	_, err := ValidateToken("secret", "not-a-token", time.Now())
	if err == nil {
		t.Error("expected error for invalid token")
	}
}

func TestValidateTokenExpired(t *testing.T) {
	issued := time.Now()
	token, _ := GenerateToken("secret", 1, 1, issued, time.Minute)

	_, err := ValidateToken("secret", token, issued.Add(2*time.Minute))
	if !errors.Is(err, jwt.ErrTokenExpired) {
		t.Errorf("expected expired error, got %v", err)
	}
}

func TestValidateTokenRejectsOtherAlgorithms(t *testing.T) {
	claims := Claims{
		AccountID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("signing: %v", err)
	}

	if _, err := ValidateToken("secret", token, time.Now()); err == nil {
		t.Error("expected HS512 token to be rejected")
	}
}

func TestValidateTokenRequiresExpiry(t *testing.T) {
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "1"}}
	token, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))

	if _, err := ValidateToken("secret", token, time.Now()); err == nil {
		t.Error("expected token without exp to be rejected")
	}
}

func TestTokenExpiry(t *testing.T) {
	now := time.Now()
	token, _ := GenerateToken("test", 1, 1, now, DefaultAccessTTL)
	claims, _ := ValidateToken("test", token, now)

	diff := now.Add(DefaultAccessTTL).Sub(claims.ExpiresAt.Time)
	if diff < -time.Second || diff > time.Second {
		t.Errorf("token expiry too far from expected: diff=%v", diff)
	}
}
