// Package perm evaluates the identity tier hierarchy. It is pure: no I/O,
// no state, only ordinal comparison over model.Tier and model.Role.
package perm

import "github.com/gamehub/identity/internal/model"

// Rank maps a tier onto its ordinal. Unknown tiers rank below guest so a
// corrupted record never satisfies a permission check.
func Rank(t model.Tier) int {
	switch t {
	case model.TierGuest:
		return 1
	case model.TierRegular:
		return 2
	case model.TierAdmin:
		return 3
	case model.TierSuperAdmin:
		return 4
	default:
		return 0
	}
}

// RoleRank maps the legacy role vocabulary onto its own ordinal.
func RoleRank(r model.Role) int {
	switch r {
	case model.RoleUser:
		return 1
	case model.RoleAdmin:
		return 2
	case model.RoleSuperAdmin:
		return 3
	default:
		return 0
	}
}

// HasAtLeast reports whether the account holds the required tier or better.
// A nil account never qualifies.
func HasAtLeast(a *model.Account, required model.Tier) bool {
	return a != nil && Rank(a.Tier) >= Rank(required)
}

// The named predicates below are convenience views over HasAtLeast. They are
// deliberately not independent boolean checks: keeping them on the same
// ordinal comparison prevents drift between the tier and role hierarchies.

// IsGuest reports whether the account is an ephemeral guest identity.
func IsGuest(a *model.Account) bool {
	return a != nil && a.IsGuest && HasAtLeast(a, model.TierGuest)
}

// IsRegular reports whether the account is a registered regular user.
func IsRegular(a *model.Account) bool {
	return a != nil && a.Tier == model.TierRegular
}

// IsAdmin reports whether the account is an administrator or better.
func IsAdmin(a *model.Account) bool {
	return HasAtLeast(a, model.TierAdmin)
}

// IsSuperAdmin reports whether the account is the super-administrator tier.
func IsSuperAdmin(a *model.Account) bool {
	return HasAtLeast(a, model.TierSuperAdmin)
}

// Permission is a named capability granted to a tier.
type Permission string

const (
	PermRead           Permission = "read"
	PermWrite          Permission = "write"
	PermDelete         Permission = "delete"
	PermManageUsers    Permission = "manage_users"
	PermManageArticles Permission = "manage_articles"
	PermManageBoards   Permission = "manage_boards"
	PermManageTopics   Permission = "manage_topics"
)

// grants is the tier-to-capability table. Guests can read and publish like
// regular users; content management starts at admin; user management is
// reserved to the super-administrator.
var grants = map[model.Tier][]Permission{
	model.TierGuest:   {PermRead, PermWrite},
	model.TierRegular: {PermRead, PermWrite},
	model.TierAdmin: {PermRead, PermWrite, PermDelete,
		PermManageArticles, PermManageBoards, PermManageTopics},
	model.TierSuperAdmin: {PermRead, PermWrite, PermDelete, PermManageUsers,
		PermManageArticles, PermManageBoards, PermManageTopics},
}

// Has reports whether the tier holds the capability. Unknown tiers hold
// nothing.
func Has(t model.Tier, p Permission) bool {
	for _, g := range grants[t] {
		if g == p {
			return true
		}
	}
	return false
}

// Permissions returns a copy of the tier's capability set.
func Permissions(t model.Tier) []Permission {
	return append([]Permission(nil), grants[t]...)
}

// CanAccessManagement reports whether the tier may open the management
// surface. Defined through the table: any content-management capability
// grants access.
func CanAccessManagement(t model.Tier) bool {
	return Has(t, PermManageArticles) || Has(t, PermManageBoards) || Has(t, PermManageTopics)
}

// CanManageUsers reports whether the tier may administer accounts.
func CanManageUsers(t model.Tier) bool {
	return Has(t, PermManageUsers)
}
