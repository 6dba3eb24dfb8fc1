package fakeapi

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/utafrali/storefront/pkg/middleware"
)

const (
	issuerAPI = "storefront-api"
	issuerIDP = "storefront-idp"
)

// tokenClaims is the payload of session tokens and identity-provider ID tokens.
type tokenClaims struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
	Role  int    `json:"role"`
	jwt.RegisteredClaims
}

func (s *Server) issueToken(u *account) (string, error) {
	now := s.now().UTC()
	claims := &tokenClaims{
		Email: u.Email,
		Role:  u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			Issuer:    issuerAPI,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.apiSecret)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// IssueIDToken mints an identity-provider ID token for email. The API
// accepts these tokens as credentials for a registered account.
func (s *Server) IssueIDToken(email, name string, ttl time.Duration) (string, error) {
	now := s.now().UTC()
	claims := &tokenClaims{
		Email: email,
		Name:  name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			Issuer:    issuerIDP,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.idpSecret)
	if err != nil {
		return "", fmt.Errorf("sign id token: %w", err)
	}
	return signed, nil
}

// validateToken accepts API session tokens and identity-provider ID tokens.
func (s *Server) validateToken(raw string) (*middleware.Claims, error) {
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		iss, _ := t.Claims.GetIssuer()
		switch iss {
		case issuerAPI:
			return s.apiSecret, nil
		case issuerIDP:
			return s.idpSecret, nil
		default:
			return nil, fmt.Errorf("unknown issuer %q", iss)
		}
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byEmail[claims.Email]
	if !ok {
		return nil, fmt.Errorf("unknown account %q", claims.Email)
	}
	if claims.Issuer == issuerAPI && claims.Subject != u.ID {
		return nil, fmt.Errorf("token subject mismatch")
	}
	return &middleware.Claims{UserID: u.ID, Email: u.Email, Role: u.Role}, nil
}
