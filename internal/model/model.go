// Package model defines domain entities used by services and record stores.
package model

import "time"

// Tier is the ordinal identity level used for permission checks.
// The ordering Guest < Regular < Admin < SuperAdmin is defined by perm.Rank.
type Tier string

const (
	TierGuest      Tier = "guest"
	TierRegular    Tier = "regular"
	TierAdmin      Tier = "admin"
	TierSuperAdmin Tier = "superAdmin"
)

// Role is the coarser legacy vocabulary kept for wire compatibility.
// It is never stored; it is derived from Tier.
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperAdmin Role = "superAdmin"
)

// Account is the durable identity record.
type Account struct {
	ID       string
	Username string // unique across the whole logical user space, case-sensitive
	Email    string // optional; unique only when non-empty

	// Credential is the opaque login secret. Whether it holds a plaintext
	// placeholder or an encoded hash is decided by the credential.Verifier
	// the caller wires in.
	Credential string

	Tier     Tier
	IsActive bool

	// Guest accounts are never written to durable remote storage; they
	// exist only inside the current session pointer.
	IsGuest bool
	GuestID string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastLoginAt time.Time // zero until first successful login
}

// Role derives the legacy role view from the tier.
func (a *Account) Role() Role {
	switch a.Tier {
	case TierAdmin:
		return RoleAdmin
	case TierSuperAdmin:
		return RoleSuperAdmin
	default:
		return RoleUser
	}
}

// DisplayName returns the name shown in UI surfaces; guests have no
// meaningful username of their own.
func (a *Account) DisplayName() string {
	if a == nil {
		return "unknown"
	}
	if a.IsGuest {
		return "guest"
	}
	return a.Username
}

// Stats aggregates account counts for administration screens.
type Stats struct {
	Total       int
	Active      int
	Admins      int
	SuperAdmins int
	Regulars    int
	Guests      int
}
