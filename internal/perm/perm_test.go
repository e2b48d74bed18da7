package perm

import (
	"testing"

	"github.com/gamehub/identity/internal/model"
)

var allTiers = []model.Tier{
	model.TierGuest,
	model.TierRegular,
	model.TierAdmin,
	model.TierSuperAdmin,
}

func acct(t model.Tier) *model.Account {
	return &model.Account{ID: "a1", Username: "a", Tier: t, IsGuest: t == model.TierGuest}
}

func TestRank_TotalOrder(t *testing.T) {
	t.Parallel()
	for i := 1; i < len(allTiers); i++ {
		if Rank(allTiers[i-1]) >= Rank(allTiers[i]) {
			t.Fatalf("rank(%s)=%d not below rank(%s)=%d",
				allTiers[i-1], Rank(allTiers[i-1]), allTiers[i], Rank(allTiers[i]))
		}
	}
	if Rank(model.Tier("bogus")) != 0 {
		t.Fatalf("unknown tier must rank below guest")
	}
}

func TestHasAtLeast_Reflexive(t *testing.T) {
	t.Parallel()
	for _, tier := range allTiers {
		if !HasAtLeast(acct(tier), tier) {
			t.Fatalf("hasAtLeast(%s, %s) = false, want true", tier, tier)
		}
	}
}

func TestHasAtLeast_Transitive(t *testing.T) {
	t.Parallel()
	for _, a := range allTiers {
		for _, b := range allTiers {
			for _, c := range allTiers {
				if Rank(a) >= Rank(b) && Rank(b) >= Rank(c) {
					if HasAtLeast(acct(a), b) && HasAtLeast(acct(b), c) && !HasAtLeast(acct(a), c) {
						t.Fatalf("transitivity broken for %s >= %s >= %s", a, b, c)
					}
				}
			}
		}
	}
}

func TestHasAtLeast_NilAccount(t *testing.T) {
	t.Parallel()
	for _, tier := range allTiers {
		if HasAtLeast(nil, tier) {
			t.Fatalf("nil account must never satisfy %s", tier)
		}
	}
}

func TestPredicates_MatchOrdinal(t *testing.T) {
	t.Parallel()
	cases := []struct {
		tier                 model.Tier
		guest, admin, supAdm bool
	}{
		{model.TierGuest, true, false, false},
		{model.TierRegular, false, false, false},
		{model.TierAdmin, false, true, false},
		{model.TierSuperAdmin, false, true, true},
	}
	for _, tc := range cases {
		a := acct(tc.tier)
		if got := IsGuest(a); got != tc.guest {
			t.Errorf("IsGuest(%s) = %v, want %v", tc.tier, got, tc.guest)
		}
		if got := IsAdmin(a); got != tc.admin {
			t.Errorf("IsAdmin(%s) = %v, want %v", tc.tier, got, tc.admin)
		}
		if got := IsSuperAdmin(a); got != tc.supAdm {
			t.Errorf("IsSuperAdmin(%s) = %v, want %v", tc.tier, got, tc.supAdm)
		}
	}
}

func TestHas_CapabilityTable(t *testing.T) {
	t.Parallel()
	cases := []struct {
		tier    model.Tier
		granted []Permission
		denied  []Permission
	}{
		{model.TierGuest,
			[]Permission{PermRead, PermWrite},
			[]Permission{PermDelete, PermManageUsers, PermManageArticles, PermManageBoards, PermManageTopics}},
		{model.TierRegular,
			[]Permission{PermRead, PermWrite},
			[]Permission{PermDelete, PermManageUsers, PermManageArticles, PermManageBoards, PermManageTopics}},
		{model.TierAdmin,
			[]Permission{PermRead, PermWrite, PermDelete, PermManageArticles, PermManageBoards, PermManageTopics},
			[]Permission{PermManageUsers}},
		{model.TierSuperAdmin,
			[]Permission{PermRead, PermWrite, PermDelete, PermManageUsers, PermManageArticles, PermManageBoards, PermManageTopics},
			nil},
	}
	for _, tc := range cases {
		for _, p := range tc.granted {
			if !Has(tc.tier, p) {
				t.Errorf("Has(%s, %s) = false, want true", tc.tier, p)
			}
		}
		for _, p := range tc.denied {
			if Has(tc.tier, p) {
				t.Errorf("Has(%s, %s) = true, want false", tc.tier, p)
			}
		}
	}
	if Has(model.Tier("bogus"), PermRead) {
		t.Error("unknown tier must hold nothing")
	}
}

func TestManagementPredicates_MatchTable(t *testing.T) {
	t.Parallel()
	for _, tier := range allTiers {
		wantMgmt := Has(tier, PermManageArticles) || Has(tier, PermManageBoards) || Has(tier, PermManageTopics)
		if got := CanAccessManagement(tier); got != wantMgmt {
			t.Errorf("CanAccessManagement(%s) = %v, want %v", tier, got, wantMgmt)
		}
		if got := CanManageUsers(tier); got != Has(tier, PermManageUsers) {
			t.Errorf("CanManageUsers(%s) diverged from the table", tier)
		}
	}
	if !CanAccessManagement(model.TierAdmin) || CanAccessManagement(model.TierRegular) {
		t.Error("management access starts at admin")
	}
	if CanManageUsers(model.TierAdmin) || !CanManageUsers(model.TierSuperAdmin) {
		t.Error("user management is reserved to superAdmin")
	}
}

func TestPermissions_Copy(t *testing.T) {
	t.Parallel()
	got := Permissions(model.TierGuest)
	if len(got) != 2 {
		t.Fatalf("guest grants = %v", got)
	}
	got[0] = PermManageUsers
	if Has(model.TierGuest, PermManageUsers) {
		t.Error("mutating the returned slice must not alter the table")
	}
}

func TestRoleDerivation(t *testing.T) {
	t.Parallel()
	cases := map[model.Tier]model.Role{
		model.TierGuest:      model.RoleUser,
		model.TierRegular:    model.RoleUser,
		model.TierAdmin:      model.RoleAdmin,
		model.TierSuperAdmin: model.RoleSuperAdmin,
	}
	for tier, want := range cases {
		if got := acct(tier).Role(); got != want {
			t.Errorf("Role(%s) = %s, want %s", tier, got, want)
		}
		if RoleRank(want) > RoleRank(acct(tier).Role()) {
			t.Errorf("role rank drifted for %s", tier)
		}
	}
}
