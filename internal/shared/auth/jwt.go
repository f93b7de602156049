package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the identity contained in a bearer token.
type Claims struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

const (
	RoleAdmin   = "admin"
	RoleService = "service"
)

var (
	errMissingSecret = errors.New("jwt secret not configured")
	ErrInvalidToken  = errors.New("invalid token")
)

const devSecret = "dev-secret"

// Verifier validates HS256 tokens minted by the identity service.
type Verifier struct {
	secret []byte
}

// NewVerifier builds a Verifier. An empty secret is only allowed outside production.
func NewVerifier(secret, env string) (*Verifier, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		if env == "production" {
			return nil, fmt.Errorf("%w: JWT_SECRET required in production", errMissingSecret)
		}
		secret = devSecret
	}
	return &Verifier{secret: []byte(secret)}, nil
}

// Verify parses a token and returns its claims.
func (v *Verifier) Verify(token string) (Claims, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return Claims{}, ErrInvalidToken
	}
	if claims.Subject == "" {
		return Claims{}, ErrInvalidToken
	}
	return claims, nil
}

// Sign mints a token with the verifier's secret. Production tokens come from the
// identity service; this exists for tests and local tooling.
func (v *Verifier) Sign(claims Claims, ttl time.Duration) (string, error) {
	if claims.Subject == "" {
		return "", errors.New("sub is required")
	}
	now := time.Now().UTC()
	if claims.IssuedAt == nil {
		claims.IssuedAt = jwt.NewNumericDate(now)
	}
	if claims.ExpiresAt == nil {
		if ttl <= 0 {
			ttl = 24 * time.Hour
		}
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
