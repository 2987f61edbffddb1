package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"chat-relay/internal/domain"
)

func TestJWTService_IssueAndResolve(t *testing.T) {
	svc := NewJWTService("secret", "chat-relay", 15*time.Minute)

	token, err := svc.IssueAccessToken(domain.Caller{ID: "u1", Username: "ana"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if token == "" {
		t.Fatalf("expected token")
	}

	caller, err := svc.Resolve(token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if caller.ID != "u1" || caller.Username != "ana" {
		t.Fatalf("unexpected caller: %+v", caller)
	}
}

func TestJWTService_RejectsEmptyAndGarbage(t *testing.T) {
	svc := NewJWTService("secret", "", 0)
	for _, in := range []string{"", "   ", "not-a-jwt"} {
		if _, err := svc.Resolve(in); !errors.Is(err, ErrJWTInvalid) {
			t.Fatalf("expected ErrJWTInvalid for %q, got %v", in, err)
		}
	}
}

func TestJWTService_NotConfigured(t *testing.T) {
	svc := NewJWTService("", "chat-relay", time.Minute)
	if _, err := svc.IssueAccessToken(domain.Caller{ID: "u1"}); !errors.Is(err, ErrJWTNotConfigured) {
		t.Fatalf("expected ErrJWTNotConfigured, got %v", err)
	}
	if _, err := svc.Resolve("abc"); !errors.Is(err, ErrJWTNotConfigured) {
		t.Fatalf("expected ErrJWTNotConfigured, got %v", err)
	}

	var nilSvc *JWTService
	if _, err := nilSvc.Resolve("abc"); !errors.Is(err, ErrJWTNotConfigured) {
		t.Fatalf("expected ErrJWTNotConfigured on nil service, got %v", err)
	}
}

func TestJWTService_WrongSecretOrIssuer(t *testing.T) {
	issuer := NewJWTService("secret", "chat-relay", time.Minute)
	token, err := issuer.IssueAccessToken(domain.Caller{ID: "u1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := NewJWTService("other", "chat-relay", time.Minute).Resolve(token); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected ErrJWTInvalid for wrong secret, got %v", err)
	}
	if _, err := NewJWTService("secret", "someone-else", time.Minute).Resolve(token); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected ErrJWTInvalid for wrong issuer, got %v", err)
	}
}

func TestJWTService_ExpiredToken(t *testing.T) {
	now := time.Now().UTC()
	claims := Claims{
		UserID:    "u1",
		TokenType: accessTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "chat-relay",
			Subject:   "u1",
			IssuedAt:  jwt.NewNumericDate(now.Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	svc := NewJWTService("secret", "chat-relay", time.Minute)
	if _, err := svc.Resolve(token); !errors.Is(err, ErrJWTExpired) {
		t.Fatalf("expected ErrJWTExpired, got %v", err)
	}
}

func TestJWTService_RejectsNonAccessType(t *testing.T) {
	now := time.Now().UTC()
	claims := Claims{
		UserID:    "u1",
		TokenType: "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "chat-relay",
			Subject:   "u1",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	svc := NewJWTService("secret", "chat-relay", time.Minute)
	if _, err := svc.Resolve(token); !errors.Is(err, ErrJWTInvalid) {
		t.Fatalf("expected ErrJWTInvalid, got %v", err)
	}
}
