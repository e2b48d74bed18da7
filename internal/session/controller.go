package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/gamehub/identity/internal/credential"
	"github.com/gamehub/identity/internal/errs"
	"github.com/gamehub/identity/internal/model"
	"github.com/gamehub/identity/internal/record"
)

const defaultPollInterval = time.Second

// Controller is the identity/session state machine for one client process:
// Anonymous -> Guest -> Regular via promotion, or Anonymous -> signed-in via
// login, terminal on logout. At most one account occupies the slot.
type Controller struct {
	store   record.Store
	verify  credential.Verifier
	ptr     PointerStore
	signKey []byte
	poll    time.Duration
	log     *zap.Logger

	mu        sync.Mutex
	current   *model.Account
	lastToken string

	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures the controller.
type Option func(*Controller)

// WithPollInterval sets the pointer polling interval (default 1s).
func WithPollInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.poll = d
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(log *zap.Logger) Option { return func(c *Controller) { c.log = log } }

// NewController constructs the controller. signKey signs the durable pointer.
func NewController(store record.Store, verify credential.Verifier, ptr PointerStore, signKey []byte, opts ...Option) *Controller {
	c := &Controller{
		store:   store,
		verify:  verify,
		ptr:     ptr,
		signKey: signKey,
		poll:    defaultPollInterval,
		log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Initialize restores the session from the durable pointer and starts the
// cross-process watcher. Whether to synthesize a guest when nothing is
// restored is the caller's policy, not this component's.
func (c *Controller) Initialize(ctx context.Context) (*model.Account, error) {
	if err := c.rehydrate(ctx); err != nil {
		return nil, err
	}

	wctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.watch(wctx)

	return c.Current(), nil
}

// Close stops the watcher. It must be called on teardown so no timer or
// subscription leaks.
func (c *Controller) Close() {
	if c.cancel != nil {
		c.cancel()
		<-c.done
		c.cancel = nil
	}
}

// watch polls the pointer and reacts to store change events, rehydrating the
// in-memory session when the pointer moved underneath this process.
func (c *Controller) watch(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.poll)
	defer ticker.Stop()
	events := c.ptr.Watch(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case _, ok := <-events:
			if !ok {
				events = nil
				continue
			}
		}
		if err := c.rehydrateIfMoved(ctx); err != nil {
			c.log.Warn("session rehydrate failed", zap.Error(err))
		}
	}
}

func (c *Controller) rehydrateIfMoved(ctx context.Context) error {
	tok, err := c.ptr.Load(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	moved := tok != c.lastToken
	c.mu.Unlock()
	if !moved {
		return nil
	}
	return c.rehydrate(ctx)
}

// rehydrate resolves the stored pointer into the in-memory session slot.
func (c *Controller) rehydrate(ctx context.Context) error {
	tok, err := c.ptr.Load(ctx)
	if err != nil {
		return err
	}
	if tok == "" {
		c.set(nil, "")
		return nil
	}

	id, guest, err := decodePointer(c.signKey, tok)
	if err != nil {
		// A pointer we cannot verify is as good as no pointer.
		c.log.Warn("discarding unverifiable session pointer", zap.Error(err))
		c.set(nil, "")
		return c.ptr.Clear(ctx)
	}
	if guest != nil {
		c.set(guest, tok)
		return nil
	}

	a, err := c.store.Get(ctx, id)
	switch {
	case err == nil:
		c.set(a, tok)
		return nil
	case errors.Is(err, errs.ErrNotFound) && !errors.Is(err, errs.ErrBackendUnavailable):
		// The authority itself answered: the account is gone (deleted
		// elsewhere); drop the session for good.
		c.set(nil, "")
		return c.ptr.Clear(ctx)
	case errors.Is(err, errs.ErrNotFound):
		// Degraded-mode miss: the cache has never seen this account but the
		// authority might still have it. Go anonymous in memory, keep the
		// durable pointer so the session comes back with the authority.
		c.log.Warn("session pointer unresolvable while degraded; keeping it", zap.String("id", id))
		c.set(nil, "")
		return nil
	default:
		return fmt.Errorf("session: rehydrate %s: %w", id, err)
	}
}

func (c *Controller) set(a *model.Account, token string) {
	c.mu.Lock()
	c.current = a
	c.lastToken = token
	c.mu.Unlock()
}

// Current returns a copy of the account currently occupying the session
// slot, or nil when anonymous.
func (c *Controller) Current() *model.Account {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil
	}
	cp := *c.current
	return &cp
}

// Login authenticates and occupies the session slot. On any authentication
// failure the caller sees errs.ErrLoginFailed and nothing else: whether the
// username exists is deliberately not revealed.
func (c *Controller) Login(ctx context.Context, username, cred string) (*model.Account, error) {
	a, err := c.validate(ctx, username, cred)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if touched, uerr := c.store.Update(ctx, a.ID, record.Patch{LastLoginAt: &now}); uerr == nil {
		a = touched
	} else {
		// The login itself succeeded; a failed touch is not worth failing it.
		c.log.Warn("lastLoginAt touch failed", zap.String("id", a.ID), zap.Error(uerr))
		a.LastLoginAt = now
	}

	if err := c.occupy(ctx, a); err != nil {
		return nil, err
	}
	return c.Current(), nil
}

// validate resolves a login attempt, preferring the authority's arbitration
// and falling back to lookup-and-verify when it cannot be reached.
func (c *Controller) validate(ctx context.Context, username, cred string) (*model.Account, error) {
	if v, ok := c.store.(record.Validator); ok {
		a, err := v.Validate(ctx, username, cred)
		switch {
		case err == nil:
			return a, nil
		case errors.Is(err, errs.ErrLoginFailed):
			return nil, errs.ErrLoginFailed
		case errors.Is(err, errs.ErrRateLimited):
			// An authoritative refusal. Retrying it against the cache would
			// defeat the very limiter protecting this account.
			return nil, err
		case errors.Is(err, errs.ErrBackendUnavailable):
			// degrade to local verification below
		default:
			return nil, err
		}
	}

	a, err := c.store.GetByUsername(ctx, username)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, errs.ErrLoginFailed
	}
	if err != nil {
		return nil, err
	}
	if !a.IsActive || !c.verify.Verify(cred, a.Credential) {
		return nil, errs.ErrLoginFailed
	}
	return a, nil
}

// Logout clears the session slot and the durable pointer.
func (c *Controller) Logout(ctx context.Context) error {
	c.set(nil, "")
	return c.ptr.Clear(ctx)
}

// CreateGuest synthesizes an ephemeral guest identity and makes it current.
// The guest is never written to any record store; the signed pointer is its
// single place of existence.
func (c *Controller) CreateGuest(ctx context.Context) (*model.Account, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	guest := &model.Account{
		ID:        "guest_" + id.String(),
		Tier:      model.TierGuest,
		IsActive:  true,
		IsGuest:   true,
		GuestID:   "guest_" + id.String(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.occupy(ctx, guest); err != nil {
		return nil, err
	}
	return c.Current(), nil
}

// PromoteGuestToRegular converts the current guest into a persisted regular
// account, preserving id and creation time. It is only legal while the
// session holds a guest; a second promotion finds a regular and fails.
func (c *Controller) PromoteGuestToRegular(ctx context.Context, username, cred string) (*model.Account, error) {
	cur := c.Current()
	if cur == nil || !cur.IsGuest {
		return nil, errs.ErrNotAGuest
	}

	// Uniqueness check across the full user space. The guest's own record
	// was never persisted, so only a different owner is a conflict.
	existing, err := c.store.GetByUsername(ctx, username)
	switch {
	case err == nil:
		if existing.ID != cur.ID {
			return nil, errs.ErrDuplicateUsername
		}
	case errors.Is(err, errs.ErrNotFound):
	default:
		return nil, err
	}

	stored, err := c.verify.Hash(cred)
	if err != nil {
		return nil, err
	}
	a, err := c.store.Create(ctx, record.NewAccount{
		ID:         cur.ID,
		Username:   username,
		Email:      "",
		Credential: stored,
		Tier:       model.TierRegular,
		IsActive:   true,
		CreatedAt:  cur.CreatedAt,
	})
	if err != nil {
		return nil, err
	}

	if err := c.occupy(ctx, a); err != nil {
		return nil, err
	}
	return c.Current(), nil
}

// occupy writes the pointer and the in-memory slot together.
func (c *Controller) occupy(ctx context.Context, a *model.Account) error {
	tok, err := encodePointer(c.signKey, a)
	if err != nil {
		return fmt.Errorf("session: sign pointer: %w", err)
	}
	if err := c.ptr.Save(ctx, tok); err != nil {
		return err
	}
	c.set(a, tok)
	return nil
}
