package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamehub/identity/internal/errs"
	"github.com/gamehub/identity/internal/model"
	"github.com/gamehub/identity/internal/record"
)

func day(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

func TestCanonical(t *testing.T) {
	sec := SecondaryAccount{
		ID:         "legacy_1",
		Username:   "bob",
		Credential: "pw",
		UserType:   "admin",
		CreatedAt:  day(1),
	}
	a := sec.Canonical()
	assert.Equal(t, model.TierAdmin, a.Tier)
	assert.Empty(t, a.Email)
	assert.True(t, a.IsActive)
	assert.False(t, a.IsGuest)

	sec.UserType = "member"
	assert.Equal(t, model.TierRegular, sec.Canonical().Tier, "unknown user_type maps to regular")
}

func TestMergePrimaryWins(t *testing.T) {
	primary := []model.Account{
		{ID: "user_1", Username: "alice", Email: "alice@example.com", Tier: model.TierRegular, CreatedAt: day(2)},
	}
	secondary := []SecondaryAccount{
		{ID: "legacy_1", Username: "alice", UserType: "admin", CreatedAt: day(1)},
		{ID: "legacy_2", Username: "bob", UserType: "user", CreatedAt: day(3)},
	}

	merged := Merge(primary, secondary, "root")
	require.Len(t, merged, 2)

	// Newest first: bob (day 3) before alice (day 2).
	assert.Equal(t, "bob", merged[0].Username)
	assert.Equal(t, "alice", merged[1].Username)

	// The duplicate alice keeps the primary record, not the legacy one.
	assert.Equal(t, "user_1", merged[1].ID)
	assert.Equal(t, model.TierRegular, merged[1].Tier)
	assert.Equal(t, "alice@example.com", merged[1].Email)
}

func TestMergeExcludesBootstrapSuperAdmin(t *testing.T) {
	primary := []model.Account{
		{ID: "user_root", Username: "root", Tier: model.TierSuperAdmin, CreatedAt: day(1)},
		{ID: "user_1", Username: "alice", Tier: model.TierRegular, CreatedAt: day(2)},
	}
	merged := Merge(primary, nil, "root")
	require.Len(t, merged, 1)
	assert.Equal(t, "alice", merged[0].Username)

	// A regular account that happens to share the bootstrap name stays.
	primary[0].Tier = model.TierRegular
	merged = Merge(primary, nil, "root")
	assert.Len(t, merged, 2)
}

func TestMergeTieBreaksOnID(t *testing.T) {
	primary := []model.Account{
		{ID: "user_b", Username: "bob", CreatedAt: day(1)},
		{ID: "user_a", Username: "alice", CreatedAt: day(1)},
	}
	merged := Merge(primary, nil, "root")
	require.Len(t, merged, 2)
	assert.Equal(t, "user_a", merged[0].ID)
	assert.Equal(t, "user_b", merged[1].ID)
}

func TestMergeEmpty(t *testing.T) {
	assert.Empty(t, Merge(nil, nil, "root"))
}

// fakeDst is a minimal canonical store for exercising the importer.
type fakeDst struct {
	byUsername map[string]*model.Account
	created    []record.NewAccount
}

func newFakeDst() *fakeDst { return &fakeDst{byUsername: map[string]*model.Account{}} }

func (f *fakeDst) Get(context.Context, string) (*model.Account, error) { return nil, errs.ErrNotFound }
func (f *fakeDst) GetByUsername(_ context.Context, username string) (*model.Account, error) {
	a, ok := f.byUsername[username]
	if !ok {
		return nil, errs.ErrNotFound
	}
	return a, nil
}
func (f *fakeDst) GetByEmail(context.Context, string) (*model.Account, error) {
	return nil, errs.ErrNotFound
}
func (f *fakeDst) List(context.Context) ([]model.Account, error) { return nil, nil }
func (f *fakeDst) Create(_ context.Context, n record.NewAccount) (*model.Account, error) {
	if _, ok := f.byUsername[n.Username]; ok {
		return nil, errs.ErrDuplicateUsername
	}
	a := &model.Account{ID: n.ID, Username: n.Username, Tier: n.Tier, IsActive: n.IsActive}
	f.byUsername[n.Username] = a
	f.created = append(f.created, n)
	return a, nil
}
func (f *fakeDst) Update(context.Context, string, record.Patch) (*model.Account, error) {
	return nil, errs.ErrNotFound
}
func (f *fakeDst) Delete(context.Context, string) (bool, error) { return false, nil }
func (f *fakeDst) Stats(context.Context) (*model.Stats, error) { return &model.Stats{}, nil }

type fakeSrc struct {
	legacy []SecondaryAccount
	done   bool
	reads  int
}

func (f *fakeSrc) LegacyAccounts(context.Context) ([]SecondaryAccount, error) {
	f.reads++
	return f.legacy, nil
}
func (f *fakeSrc) ImportDone(context.Context) (bool, error) { return f.done, nil }
func (f *fakeSrc) MarkImportDone(context.Context) error {
	f.done = true
	return nil
}

func TestImporterRun(t *testing.T) {
	dst := newFakeDst()
	dst.byUsername["alice"] = &model.Account{ID: "user_1", Username: "alice"}
	src := &fakeSrc{legacy: []SecondaryAccount{
		{ID: "legacy_1", Username: "alice", UserType: "admin", CreatedAt: day(1)},
		{ID: "legacy_2", Username: "bob", UserType: "user", CreatedAt: day(2)},
	}}

	im := NewImporter(dst, src, nil)
	require.NoError(t, im.Run(context.Background()))

	// alice already existed and is skipped; bob is imported with its identity.
	require.Len(t, dst.created, 1)
	assert.Equal(t, "legacy_2", dst.created[0].ID)
	assert.Equal(t, "bob", dst.created[0].Username)
	assert.Equal(t, model.TierRegular, dst.created[0].Tier)
	assert.True(t, src.done)
}

func TestImporterIdempotent(t *testing.T) {
	dst := newFakeDst()
	src := &fakeSrc{legacy: []SecondaryAccount{
		{ID: "legacy_1", Username: "bob", UserType: "user", CreatedAt: day(1)},
	}}

	im := NewImporter(dst, src, nil)
	require.NoError(t, im.Run(context.Background()))
	require.NoError(t, im.Run(context.Background()))

	assert.Len(t, dst.created, 1)
	assert.Equal(t, 1, src.reads, "a completed import never rereads the legacy store")
}
