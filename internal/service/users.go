// Package service exposes the one surface the rest of the application
// consumes: account CRUD with uniqueness and hierarchy guards, the current
// session, and the permission checks route guards ask for.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/gamehub/identity/internal/credential"
	"github.com/gamehub/identity/internal/errs"
	"github.com/gamehub/identity/internal/model"
	"github.com/gamehub/identity/internal/perm"
	"github.com/gamehub/identity/internal/reconcile"
	"github.com/gamehub/identity/internal/record"
	"github.com/gamehub/identity/internal/session"
)

// Bootstrap describes the designated super-administrator created on first
// start when none exists.
type Bootstrap struct {
	Username   string
	Email      string
	Credential string
}

// Users composes the record store, the session controller and the permission
// evaluator behind one facade. The backend choice (remote authority, local
// cache path, fallback policy) is fixed when the store is constructed.
type Users struct {
	store     record.Store
	sess      *session.Controller
	verify    credential.Verifier
	bootstrap Bootstrap
	log       *zap.Logger

	switchOnce sync.Once
}

// Option configures the facade.
type Option func(*Users)

// WithLogger attaches a logger.
func WithLogger(log *zap.Logger) Option { return func(u *Users) { u.log = log } }

// New constructs the facade.
func New(store record.Store, sess *session.Controller, verify credential.Verifier, bootstrap Bootstrap, opts ...Option) *Users {
	u := &Users{
		store:     store,
		sess:      sess,
		verify:    verify,
		bootstrap: bootstrap,
		log:       zap.NewNop(),
	}
	for _, o := range opts {
		o(u)
	}
	return u
}

// Initialize restores the session from its durable pointer and ensures the
// bootstrap account exists. Callers that want a guest for anonymous visitors
// create one themselves when this returns nil.
func (u *Users) Initialize(ctx context.Context) (*model.Account, error) {
	if err := u.EnsureBootstrap(ctx); err != nil {
		// Bootstrap needs the authority; a degraded start is still a start.
		u.log.Warn("bootstrap check failed", zap.Error(err))
	}
	return u.sess.Initialize(ctx)
}

// Close tears down the session watcher.
func (u *Users) Close() { u.sess.Close() }

// EnsureBootstrap creates the designated super-administrator if none exists.
// It is idempotent: a second start finds the account and does nothing.
func (u *Users) EnsureBootstrap(ctx context.Context) error {
	all, err := u.store.List(ctx)
	if err != nil {
		return err
	}
	for i := range all {
		if all[i].Tier == model.TierSuperAdmin {
			return nil
		}
	}

	stored, err := u.verify.Hash(u.bootstrap.Credential)
	if err != nil {
		return err
	}
	_, err = u.store.Create(ctx, record.NewAccount{
		Username:   u.bootstrap.Username,
		Email:      u.bootstrap.Email,
		Credential: stored,
		Tier:       model.TierSuperAdmin,
		IsActive:   true,
	})
	if errors.Is(err, errs.ErrDuplicateUsername) || errors.Is(err, errs.ErrDuplicateEmail) {
		// Lost a race with another starting process; the account exists.
		return nil
	}
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	u.log.Info("bootstrap super-administrator created", zap.String("username", u.bootstrap.Username))
	return nil
}

// CurrentAccount returns the account occupying the session slot, nil when
// anonymous.
func (u *Users) CurrentAccount() *model.Account { return u.sess.Current() }

// RequireTier reports whether the current session holds the required tier.
func (u *Users) RequireTier(t model.Tier) bool {
	return perm.HasAtLeast(u.sess.Current(), t)
}

// Can reports whether the current session holds the named capability.
// Anonymous sessions hold nothing.
func (u *Users) Can(p perm.Permission) bool {
	cur := u.sess.Current()
	return cur != nil && perm.Has(cur.Tier, p)
}

// ListAccounts returns the administrable account list: everything in the
// canonical store except the bootstrap super-administrator, newest first.
// The merge rules (dedup, bootstrap exclusion, ordering) live in reconcile.
func (u *Users) ListAccounts(ctx context.Context) ([]model.Account, error) {
	all, err := u.store.List(ctx)
	if err != nil {
		return nil, err
	}
	return reconcile.Merge(all, nil, u.bootstrap.Username), nil
}

// GetAccount loads one account by id.
func (u *Users) GetAccount(ctx context.Context, id string) (*model.Account, error) {
	return u.store.Get(ctx, id)
}

// CreateAccount registers a new account. The credential is passed through
// the configured verifier before storage.
func (u *Users) CreateAccount(ctx context.Context, username, email, cred string, tier model.Tier) (*model.Account, error) {
	stored, err := u.verify.Hash(cred)
	if err != nil {
		return nil, err
	}
	return u.store.Create(ctx, record.NewAccount{
		Username:   username,
		Email:      email,
		Credential: stored,
		Tier:       tier,
		IsActive:   true,
	})
}

// UpdateAccount applies a partial update with the hierarchy guards: the
// bootstrap account's tier is untouchable, and demoting anyone requires the
// acting session to be an administrator or better.
func (u *Users) UpdateAccount(ctx context.Context, id string, p record.Patch) (*model.Account, error) {
	if p.Tier != nil {
		existing, err := u.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if existing.Username == u.bootstrap.Username && existing.Tier == model.TierSuperAdmin {
			return nil, errs.ErrBootstrapProtected
		}
		if perm.Rank(*p.Tier) < perm.Rank(existing.Tier) && !perm.IsAdmin(u.sess.Current()) {
			return nil, errs.ErrNotAuthorized
		}
	}
	if p.Credential != nil {
		stored, err := u.verify.Hash(*p.Credential)
		if err != nil {
			return nil, err
		}
		p.Credential = &stored
	}
	return u.store.Update(ctx, id, p)
}

// DeleteAccount removes a non-guest account. The bootstrap account cannot be
// deleted through any path.
func (u *Users) DeleteAccount(ctx context.Context, id string) (bool, error) {
	existing, err := u.store.Get(ctx, id)
	if errors.Is(err, errs.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if existing.Username == u.bootstrap.Username && existing.Tier == model.TierSuperAdmin {
		return false, errs.ErrBootstrapProtected
	}
	return u.store.Delete(ctx, id)
}

// Stats returns aggregate account counts.
func (u *Users) Stats(ctx context.Context) (*model.Stats, error) {
	return u.store.Stats(ctx)
}

// Login authenticates and occupies the session slot.
func (u *Users) Login(ctx context.Context, username, cred string) (*model.Account, error) {
	return u.sess.Login(ctx, username, cred)
}

// Logout clears the session.
func (u *Users) Logout(ctx context.Context) error { return u.sess.Logout(ctx) }

// CreateGuest synthesizes an ephemeral guest session.
func (u *Users) CreateGuest(ctx context.Context) (*model.Account, error) {
	return u.sess.CreateGuest(ctx)
}

// PromoteGuestToRegular converts the current guest session into a persisted
// regular account.
func (u *Users) PromoteGuestToRegular(ctx context.Context, username, cred string) (*model.Account, error) {
	return u.sess.PromoteGuestToRegular(ctx, username, cred)
}

// SwitchBackend is retained for source compatibility with the staged-rollout
// era. The backend is committed at construction; this does nothing.
func (u *Users) SwitchBackend(useRemote bool) {
	u.switchOnce.Do(func() {
		u.log.Info("SwitchBackend is a no-op; backend is fixed at construction",
			zap.Bool("useRemote", useRemote))
	})
}
