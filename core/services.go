package core

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrCacheMiss is returned by Cache.Get when the key does not exist.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidToken is returned by IdentityVerifier.Verify for any unverifiable token.
	ErrInvalidToken = errors.New("invalid or expired token")
)

type (
	// Identity is a user identity asserted by the identity provider.
	Identity struct {
		UID           string
		Email         string
		EmailVerified bool
		Name          string
	}

	// IdentityVerifier verifies bearer tokens issued by the identity provider.
	IdentityVerifier interface {
		Verify(ctx context.Context, token string) (Identity, error)
	}

	// Notifier pushes short text messages to a messaging account (LINE).
	Notifier interface {
		// Notify is a no-op when to is empty.
		Notify(ctx context.Context, to string, text string) error
	}

	// Cache is a byte-oriented key/value cache.
	Cache interface {
		Get(ctx context.Context, key string) ([]byte, error)
		Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
		Delete(ctx context.Context, keys ...string) error
	}
)
