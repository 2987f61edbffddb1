package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"chat-relay/internal/domain"
)

// Authenticator resuelve una credencial bearer a la identidad del llamador.
type Authenticator interface {
	Resolve(credential string) (domain.Caller, error)
}

// JWTService emite y valida access tokens HS256.
type JWTService struct {
	secret    []byte
	accessTTL time.Duration
	issuer    string
}

type Claims struct {
	UserID    string `json:"uid"`
	Username  string `json:"username,omitempty"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

var (
	ErrJWTInvalid       = errors.New("jwt invalid")
	ErrJWTExpired       = errors.New("jwt expired")
	ErrJWTNotConfigured = errors.New("jwt secret not configured")
)

const accessTokenType = "access"

func NewJWTService(secret, issuer string, accessTTL time.Duration) *JWTService {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	issuer = strings.TrimSpace(issuer)
	if issuer == "" {
		issuer = "chat-relay"
	}
	return &JWTService{
		secret:    []byte(secret),
		accessTTL: accessTTL,
		issuer:    issuer,
	}
}

// IssueAccessToken firma un access token para el caller.
func (s *JWTService) IssueAccessToken(caller domain.Caller) (string, error) {
	if s == nil || len(s.secret) == 0 {
		return "", ErrJWTNotConfigured
	}
	if strings.TrimSpace(caller.ID) == "" {
		return "", fmt.Errorf("%w: empty caller id", ErrJWTInvalid)
	}
	now := time.Now().UTC()
	claims := Claims{
		UserID:    caller.ID,
		Username:  caller.Username,
		TokenType: accessTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   caller.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

func (s *JWTService) ParseAccessToken(accessToken string) (Claims, error) {
	if s == nil || len(s.secret) == 0 {
		return Claims{}, ErrJWTNotConfigured
	}
	if strings.TrimSpace(accessToken) == "" {
		return Claims{}, ErrJWTInvalid
	}
	claims, err := s.parseToken(accessToken)
	if err != nil {
		return Claims{}, err
	}
	if claims.TokenType != accessTokenType {
		return Claims{}, ErrJWTInvalid
	}
	if !s.isValidClaims(claims) {
		return Claims{}, ErrJWTInvalid
	}
	return claims, nil
}

// Resolve implementa Authenticator.
func (s *JWTService) Resolve(credential string) (domain.Caller, error) {
	claims, err := s.ParseAccessToken(credential)
	if err != nil {
		return domain.Caller{}, err
	}
	return domain.Caller{ID: claims.UserID, Username: claims.Username}, nil
}

func (s *JWTService) parseToken(tokenString string) (Claims, error) {
	var claims Claims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	_, err := parser.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrJWTExpired
		}
		return Claims{}, ErrJWTInvalid
	}
	return claims, nil
}

func (s *JWTService) isValidClaims(claims Claims) bool {
	if strings.TrimSpace(claims.UserID) == "" {
		return false
	}
	if claims.Subject != claims.UserID {
		return false
	}
	return strings.TrimSpace(claims.Issuer) == s.issuer
}
