// Package fallback decorates the remote record store with a local-cache
// fallback: when the authority is unreachable the call is retried exactly
// once against the local cache, and successful remote writes are optionally
// mirrored into it so degraded reads stay fresh.
package fallback

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/gamehub/identity/internal/errs"
	"github.com/gamehub/identity/internal/model"
	"github.com/gamehub/identity/internal/record"
)

// Store composes the remote authority and the local cache.
type Store struct {
	remote  record.Store
	local   record.Store
	enabled bool // fallback-on-failure permitted
	mirror  bool // write-through mirroring of remote writes
	log     *zap.Logger
}

var (
	_ record.Store     = (*Store)(nil)
	_ record.Validator = (*Store)(nil)
)

// Option configures the decorator.
type Option func(*Store)

// WithoutFallback disables delegation to the local cache; remote failures
// surface as errs.ErrBackendUnavailable.
func WithoutFallback() Option { return func(s *Store) { s.enabled = false } }

// WithoutMirroring disables write-through mirroring.
func WithoutMirroring() Option { return func(s *Store) { s.mirror = false } }

// WithLogger attaches a logger for mirror failures.
func WithLogger(log *zap.Logger) Option { return func(s *Store) { s.log = log } }

// New constructs the decorator. Fallback and mirroring default to on.
func New(remote, local record.Store, opts ...Option) *Store {
	s := &Store{remote: remote, local: local, enabled: true, mirror: true, log: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// unavailable reports whether the remote call failed for infrastructure
// reasons rather than a typed application outcome.
func unavailable(err error) bool {
	return errors.Is(err, errs.ErrBackendUnavailable)
}

// degradedMiss marks a cache miss taken while the authority was unreachable.
// The record may still exist remotely, so the error matches both ErrNotFound
// and ErrBackendUnavailable; callers that treat not-found as authoritative
// (pointer cleanup, deletes) must check for the latter before acting on it.
func degradedMiss(err error) error {
	if errors.Is(err, errs.ErrNotFound) {
		return fmt.Errorf("degraded cache miss: %w", errors.Join(err, errs.ErrBackendUnavailable))
	}
	return err
}

// mirrorAccount upserts a successful remote write into the local cache.
// Mirroring is opportunistic: failures are logged, never surfaced.
func (s *Store) mirrorAccount(ctx context.Context, a *model.Account) {
	if !s.mirror || a == nil {
		return
	}
	_, err := s.local.Get(ctx, a.ID)
	switch {
	case errors.Is(err, errs.ErrNotFound):
		_, err = s.local.Create(ctx, record.NewAccount{
			ID:         a.ID,
			Username:   a.Username,
			Email:      a.Email,
			Credential: a.Credential,
			Tier:       a.Tier,
			IsActive:   a.IsActive,
			CreatedAt:  a.CreatedAt,
		})
	case err == nil:
		p := record.Patch{
			Username:   &a.Username,
			Email:      &a.Email,
			Credential: &a.Credential,
			Tier:       &a.Tier,
			IsActive:   &a.IsActive,
		}
		if !a.LastLoginAt.IsZero() {
			p.LastLoginAt = &a.LastLoginAt
		}
		_, err = s.local.Update(ctx, a.ID, p)
	}
	if err != nil {
		s.log.Warn("mirror write failed", zap.String("id", a.ID), zap.Error(err))
	}
}

func (s *Store) Get(ctx context.Context, id string) (*model.Account, error) {
	a, err := s.remote.Get(ctx, id)
	if unavailable(err) && s.enabled {
		a, lerr := s.local.Get(ctx, id)
		return a, degradedMiss(lerr)
	}
	return a, err
}

func (s *Store) GetByUsername(ctx context.Context, username string) (*model.Account, error) {
	a, err := s.remote.GetByUsername(ctx, username)
	if unavailable(err) && s.enabled {
		a, lerr := s.local.GetByUsername(ctx, username)
		return a, degradedMiss(lerr)
	}
	return a, err
}

func (s *Store) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	a, err := s.remote.GetByEmail(ctx, email)
	if unavailable(err) && s.enabled {
		a, lerr := s.local.GetByEmail(ctx, email)
		return a, degradedMiss(lerr)
	}
	return a, err
}

func (s *Store) List(ctx context.Context) ([]model.Account, error) {
	all, err := s.remote.List(ctx)
	if unavailable(err) && s.enabled {
		return s.local.List(ctx)
	}
	return all, err
}

func (s *Store) Create(ctx context.Context, n record.NewAccount) (*model.Account, error) {
	a, err := s.remote.Create(ctx, n)
	if unavailable(err) && s.enabled {
		return s.local.Create(ctx, n)
	}
	if err == nil {
		s.mirrorAccount(ctx, a)
	}
	return a, err
}

func (s *Store) Update(ctx context.Context, id string, p record.Patch) (*model.Account, error) {
	a, err := s.remote.Update(ctx, id, p)
	if unavailable(err) && s.enabled {
		return s.local.Update(ctx, id, p)
	}
	if err == nil {
		s.mirrorAccount(ctx, a)
	}
	return a, err
}

func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	ok, err := s.remote.Delete(ctx, id)
	if unavailable(err) && s.enabled {
		return s.local.Delete(ctx, id)
	}
	if err == nil && ok && s.mirror {
		if _, derr := s.local.Delete(ctx, id); derr != nil {
			s.log.Warn("mirror delete failed", zap.String("id", id), zap.Error(derr))
		}
	}
	return ok, err
}

func (s *Store) Stats(ctx context.Context) (*model.Stats, error) {
	st, err := s.remote.Stats(ctx)
	if unavailable(err) && s.enabled {
		return s.local.Stats(ctx)
	}
	return st, err
}

// Validate delegates to the authority. When the authority cannot arbitrate,
// the caller is expected to fall back to lookup-and-verify, which flows
// through the fallback reads above.
func (s *Store) Validate(ctx context.Context, username, credential string) (*model.Account, error) {
	if v, ok := s.remote.(record.Validator); ok {
		return v.Validate(ctx, username, credential)
	}
	return nil, errs.ErrBackendUnavailable
}
