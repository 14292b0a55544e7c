// Package session issues and verifies the signed tokens behind the ShipKeep
// login cookie.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/oklog/ulid/v2"
)

const minSecretLength = 32

var (
	// ErrInvalidToken covers malformed, badly signed and expired tokens.
	ErrInvalidToken = errors.New("invalid session token")
	// ErrTokenRevoked is returned for tokens invalidated by logout.
	ErrTokenRevoked = errors.New("session token revoked")
)

// Claims identifies the logged in user.
type Claims struct {
	UserID   uint64
	Username string
	TokenID  string
	IssuedAt time.Time
	Expires  time.Time
}

type tokenClaims struct {
	jwt.RegisteredClaims
	UID uint64 `json:"uid"`
}

// Manager signs HS256 tokens and checks them against a revocation Store.
type Manager struct {
	secret []byte
	issuer string
	ttl    time.Duration
	store  Store
	now    func() time.Time
}

// Option customises a Manager.
type Option func(*Manager)

// WithStore sets the revocation store. Without one, tokens cannot be revoked.
func WithStore(store Store) Option {
	return func(m *Manager) {
		m.store = store
	}
}

// WithClock replaces time.Now, mainly for expiry tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

// NewManager validates the signing secret and returns a Manager.
func NewManager(secret, issuer string, ttl time.Duration, opts ...Option) (*Manager, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("session secret must be at least %d characters", minSecretLength)
	}
	if ttl <= 0 {
		return nil, errors.New("session ttl must be positive")
	}
	m := &Manager{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// TTL returns the lifetime of issued tokens.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue signs a token for the user.
func (m *Manager) Issue(userID uint64, username string) (string, Claims, error) {
	now := m.now()
	claims := Claims{
		UserID:   userID,
		Username: username,
		TokenID:  ulid.Make().String(),
		IssuedAt: now,
		Expires:  now.Add(m.ttl),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   username,
			Issuer:    m.issuer,
			ID:        claims.TokenID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(claims.Expires),
		},
		UID: userID,
	})
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", Claims{}, fmt.Errorf("sign session token: %w", err)
	}
	return signed, claims, nil
}

// Verify parses the token and rejects it when invalid, expired or revoked.
func (m *Manager) Verify(ctx context.Context, raw string) (Claims, error) {
	if raw == "" {
		return Claims{}, ErrInvalidToken
	}

	parsed := &tokenClaims{}
	parser := jwt.Parser{
		ValidMethods:         []string{jwt.SigningMethodHS256.Alg()},
		SkipClaimsValidation: true,
	}
	token, err := parser.ParseWithClaims(raw, parsed, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return Claims{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if m.issuer != "" && !parsed.VerifyIssuer(m.issuer, true) {
		return Claims{}, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidToken, parsed.Issuer)
	}
	now := m.now()
	if !parsed.VerifyExpiresAt(now, true) || !parsed.VerifyNotBefore(now, false) {
		return Claims{}, fmt.Errorf("%w: expired or not yet valid", ErrInvalidToken)
	}

	if m.store != nil {
		revoked, err := m.store.IsRevoked(ctx, parsed.ID)
		if err != nil {
			return Claims{}, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return Claims{}, ErrTokenRevoked
		}
	}

	return Claims{
		UserID:   parsed.UID,
		Username: parsed.Subject,
		TokenID:  parsed.ID,
		IssuedAt: numericTime(parsed.IssuedAt),
		Expires:  parsed.ExpiresAt.Time,
	}, nil
}

// Revoke invalidates the token for the rest of its lifetime. Tokens that no
// longer verify need no revocation and are ignored.
func (m *Manager) Revoke(ctx context.Context, raw string) error {
	if m.store == nil {
		return nil
	}
	claims, err := m.Verify(ctx, raw)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrTokenRevoked) {
			return nil
		}
		return err
	}
	remaining := claims.Expires.Sub(m.now())
	if remaining <= 0 {
		return nil
	}
	return m.store.Revoke(ctx, claims.TokenID, remaining)
}

func numericTime(d *jwt.NumericDate) time.Time {
	if d == nil {
		return time.Time{}
	}
	return d.Time
}
