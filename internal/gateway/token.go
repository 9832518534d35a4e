package gateway

import (
	"context"
	"time"

	"github.com/nbinmostafa/project-management-tracker/internal/auth"
)

// TokenProvider supplies bearer tokens to the Client. ok is false when the
// user is signed out, in which case requests are sent unauthenticated.
type TokenProvider interface {
	Token(ctx context.Context) (token string, ok bool, err error)
}

// StaticToken always returns the same token. An empty token means signed out.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, bool, error) {
	return string(t), t != "", nil
}

// SignedToken mints a short-lived HS256 token for Subject on every call.
type SignedToken struct {
	Signer  *auth.Signer
	Subject string
	TTL     time.Duration
}

func (t SignedToken) Token(context.Context) (string, bool, error) {
	if t.Signer == nil || t.Subject == "" {
		return "", false, nil
	}
	ttl := t.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	token, err := t.Signer.Sign(t.Subject, ttl)
	if err != nil {
		return "", false, err
	}
	return token, true, nil
}
