// Package reconcile merges account records left behind by the two historical
// registration paths. The merge itself is pure; Importer runs it once at
// startup so the hot path reads a single canonical store afterwards.
package reconcile

import (
	"sort"
	"time"

	"github.com/gamehub/identity/internal/model"
)

// SecondaryAccount is the reduced shape written by the legacy secondary
// registration path: no email, and a user_type vocabulary instead of the
// canonical tier.
type SecondaryAccount struct {
	ID         string
	Username   string
	Credential string
	UserType   string // "admin" maps to admin; anything else to regular
	CreatedAt  time.Time
}

// Canonical maps a secondary record into the canonical account shape.
func (s SecondaryAccount) Canonical() model.Account {
	tier := model.TierRegular
	if s.UserType == "admin" {
		tier = model.TierAdmin
	}
	return model.Account{
		ID:         s.ID,
		Username:   s.Username,
		Email:      "",
		Credential: s.Credential,
		Tier:       tier,
		IsActive:   true,
		IsGuest:    false,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.CreatedAt,
	}
}

// Merge produces one de-duplicated view of the primary and secondary stores:
// secondary records are canonicalized, the bootstrap super-administrator is
// removed, duplicates resolve in favor of the primary record, and the result
// is sorted by creation time descending.
func Merge(primary []model.Account, secondary []SecondaryAccount, bootstrapUsername string) []model.Account {
	merged := make([]model.Account, 0, len(primary)+len(secondary))
	seen := make(map[string]bool, len(primary)+len(secondary))

	for _, a := range primary {
		if a.Username == bootstrapUsername && a.Tier == model.TierSuperAdmin {
			continue
		}
		if seen[a.Username] {
			continue
		}
		seen[a.Username] = true
		merged = append(merged, a)
	}
	for _, s := range secondary {
		if seen[s.Username] {
			continue // primary is authoritative
		}
		a := s.Canonical()
		if a.Username == bootstrapUsername && a.Tier == model.TierSuperAdmin {
			continue
		}
		seen[a.Username] = true
		merged = append(merged, a)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		if !merged[i].CreatedAt.Equal(merged[j].CreatedAt) {
			return merged[i].CreatedAt.After(merged[j].CreatedAt)
		}
		return merged[i].ID < merged[j].ID
	})
	return merged
}
