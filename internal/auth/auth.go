// Package auth signs and verifies the HS256 bearer tokens shared by the
// tracker API and its clients.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

var (
	ErrMissingAuthorization = errors.New("missing authorization header")
	ErrBadAuthorization     = errors.New("bad auth header")
	errNoSecret             = errors.New("jwt secret is empty")
)

// Signer mints tokens carrying the user id in the "sub" claim.
type Signer struct {
	secret []byte
	now    func() time.Time
}

// NewSigner creates a Signer for the shared secret.
func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, errNoSecret
	}
	return &Signer{secret: []byte(secret), now: time.Now}, nil
}

// Sign returns a token for userID that expires after ttl.
func (s *Signer) Sign(userID string, ttl time.Duration) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	})
	return token.SignedString(s.secret)
}

// Verifier validates bearer tokens and extracts the user id.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewVerifier creates a Verifier for the shared secret.
func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, errNoSecret
	}
	return &Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})),
	}, nil
}

// UserIDFromAuthHeader extracts the user id from an Authorization header value.
func (v *Verifier) UserIDFromAuthHeader(h string) (string, error) {
	h = strings.TrimSpace(h)
	if h == "" {
		return "", ErrMissingAuthorization
	}
	token, ok := strings.CutPrefix(h, "Bearer ")
	if !ok || strings.Count(token, ".") != 2 {
		return "", ErrBadAuthorization
	}
	return v.UserIDFromToken(token)
}

// UserIDFromToken validates a raw token and returns its subject.
func (v *Verifier) UserIDFromToken(raw string) (string, error) {
	parsed, err := v.parser.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return v.secret, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}
	if !claims.VerifyExpiresAt(time.Now().Unix(), true) {
		return "", errors.New("token expired")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", errors.New("missing sub")
	}
	return sub, nil
}
