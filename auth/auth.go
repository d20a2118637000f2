/*
Package auth resolves credentials and session tokens into an explicit
caller identity.

PURPOSE:
  Passwords are hashed with bcrypt and verified on login. A successful
  login is exchanged for a signed HS256 JWT carrying the employee id,
  name and admin flag. Every request resolves its token back into an
  Identity that handlers receive through the request context - there is
  no process-wide "current user".

SEE ALSO:
  - middleware.go: chi middleware injecting Identity into the context
  - api/handlers.go: Login/Logout endpoints
*/
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidToken is returned for missing, malformed or expired tokens.
var ErrInvalidToken = errors.New("invalid session token")

// Identity is the resolved caller of a request.
type Identity struct {
	EmployeeID string
	Name       string
	IsAdmin    bool
}

// =============================================================================
// PASSWORDS
// =============================================================================

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(b), nil
}

// CheckPassword reports whether the plaintext matches the stored hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// =============================================================================
// SESSION TOKENS
// =============================================================================

type sessionClaims struct {
	Name    string `json:"name"`
	IsAdmin bool   `json:"admin"`
	jwt.RegisteredClaims
}

// TokenManager issues and verifies session tokens.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), ttl: ttl}
}

// Issue signs a session token for the given identity.
func (tm *TokenManager) Issue(id Identity) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		Name:    id.Name,
		IsAdmin: id.IsAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.EmployeeID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secret)
}

// Verify parses a token back into the identity it was issued for.
func (tm *TokenManager) Verify(tokenString string) (Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &sessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return tm.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(*sessionClaims)
	if !ok {
		return Identity{}, ErrInvalidToken
	}

	return Identity{
		EmployeeID: claims.Subject,
		Name:       claims.Name,
		IsAdmin:    claims.IsAdmin,
	}, nil
}
