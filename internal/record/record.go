// Package record defines the storage-agnostic account persistence contract
// implemented by the remote and local backends.
package record

import (
	"context"
	"time"

	"github.com/gamehub/identity/internal/model"
)

// NewAccount carries the caller-supplied fields of an account to create.
// ID and CreatedAt are normally assigned by the store; a promotion supplies
// both explicitly to preserve identity continuity of the former guest.
type NewAccount struct {
	ID         string // optional; assigned when empty
	Username   string
	Email      string
	Credential string
	Tier       model.Tier
	IsActive   bool
	CreatedAt  time.Time // optional; assigned when zero
}

// Patch is a partial account update. Nil fields are left untouched.
type Patch struct {
	Username    *string
	Email       *string
	Credential  *string
	Tier        *model.Tier
	IsActive    *bool
	LastLoginAt *time.Time
}

// Store provides CRUD access to accounts.
//
// Lookups return errs.ErrNotFound on a miss. Create and Update return
// errs.ErrDuplicateUsername or errs.ErrDuplicateEmail on uniqueness
// violations. Implementations backed by a network return
// errs.ErrBackendUnavailable (possibly wrapped) when the authority cannot
// be reached; they never let a raw transport error cross this boundary.
type Store interface {
	Get(ctx context.Context, id string) (*model.Account, error)
	GetByUsername(ctx context.Context, username string) (*model.Account, error)
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
	List(ctx context.Context) ([]model.Account, error)
	Create(ctx context.Context, n NewAccount) (*model.Account, error)
	Update(ctx context.Context, id string, p Patch) (*model.Account, error)
	Delete(ctx context.Context, id string) (bool, error)
	Stats(ctx context.Context) (*model.Stats, error)
}

// Validator is implemented by stores that can arbitrate a login themselves
// (the remote authority does). Against a store without it the caller looks
// the account up and verifies the credential locally. The error is always
// errs.ErrLoginFailed regardless of which check failed.
type Validator interface {
	Validate(ctx context.Context, username, credential string) (*model.Account, error)
}
