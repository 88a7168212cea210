// Package session implements simplefiles.SessionStore on top of a
// simplefiles.Cache.
package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-files/pkg/simplefiles"
)

const (
	// DefaultTTL is how long a session stays valid after login.
	DefaultTTL = 24 * time.Hour

	keyPrefix = "auth_"
)

// Store maps opaque tokens to user ids in a cache with expiry.
type Store struct {
	cache simplefiles.Cache
	ttl   time.Duration
}

// Option configures a Store
type Option func(*Store)

// WithTTL overrides DefaultTTL
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// New creates a session store backed by cache
func New(cache simplefiles.Cache, opts ...Option) *Store {
	s := &Store{cache: cache, ttl: DefaultTTL}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue creates a session for userID. The token is a random v4 uuid.
func (s *Store) Issue(ctx context.Context, userID uuid.UUID) (string, error) {
	token := uuid.NewString()
	if err := s.cache.Set(ctx, key(token), userID.String(), s.ttl); err != nil {
		return "", simplefiles.Unavailable("issue session", err)
	}
	return token, nil
}

// Resolve returns the user owning token.
func (s *Store) Resolve(ctx context.Context, token string) (uuid.UUID, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return uuid.Nil, simplefiles.ErrUnauthenticated
	}

	value, err := s.cache.Get(ctx, key(token))
	if err != nil {
		if errors.Is(err, simplefiles.ErrCacheMiss) {
			return uuid.Nil, simplefiles.ErrUnauthenticated
		}
		return uuid.Nil, simplefiles.Unavailable("resolve session", err)
	}

	userID, err := uuid.Parse(value)
	if err != nil || userID == uuid.Nil {
		return uuid.Nil, simplefiles.ErrUnauthenticated
	}
	return userID, nil
}

// Revoke deletes the session; unknown tokens are ignored.
func (s *Store) Revoke(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil
	}
	if err := s.cache.Delete(ctx, key(token)); err != nil {
		return simplefiles.Unavailable("revoke session", err)
	}
	return nil
}

// Ping verifies the cache is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.cache.Ping(ctx)
}

func key(token string) string {
	return keyPrefix + token
}
