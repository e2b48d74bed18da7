// Package limiter defines interfaces and implementations for login rate limiting.
package limiter

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Limiter controls login attempts and temporary lockouts.
type Limiter interface {
	// Allow reports whether login is currently allowed and optional retry-after.
	Allow(ctx context.Context, username string, ipHash string) (bool, time.Duration, error)
	// Success resets counters after a successful login.
	Success(ctx context.Context, username string, ipHash string) error
	// Failure records a failed attempt; may place a temporary block.
	Failure(ctx context.Context, username string, ipHash string) (bool, time.Duration, error)
}

// HashIP returns a stable hash for an IP string to avoid storing raw addresses.
func HashIP(ip string) string {
	h := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(h[:])
}

// Nop permits everything. It is wired when no limiter backend is configured.
type Nop struct{}

var _ Limiter = Nop{}

func (Nop) Allow(context.Context, string, string) (bool, time.Duration, error) {
	return true, 0, nil
}
func (Nop) Success(context.Context, string, string) error { return nil }
func (Nop) Failure(context.Context, string, string) (bool, time.Duration, error) {
	return false, 0, nil
}
