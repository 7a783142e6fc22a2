package provision

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pfolders/internal/testutil"
)

func testSettings() Settings {
	return Settings{
		ParentFolder: "Personal Vaults",
		Group:        "Vault Admins",
		Level:        LevelEdit,
		Settle:       -1, // no settle wait in tests
	}
}

func newTestEngine(fake *testutil.FakeVault, s Settings) *Provisioner {
	return New(fake.Client(), s, discardLogger())
}

func TestPlanDelta(t *testing.T) {
	fake := testutil.NewFakeVault()
	defer fake.Close()
	fake.AddUser(1, "Alice")
	fake.AddUser(2, "Bob")
	fake.AddUser(3, "Carol")
	fake.AddGroup("Vault Admins", 1, 2, 3)
	parentID := fake.AddFolder("Personal Vaults", 0)
	fake.AddFolder("Alice", parentID)

	plan, err := newTestEngine(fake, testSettings()).Plan(context.Background())
	require.NoError(t, err)

	assert.False(t, plan.CreateParent)
	assert.Equal(t, parentID, plan.ParentID)
	assert.Equal(t, []string{"Alice"}, plan.Existing)
	require.Len(t, plan.Users, 2)
	assert.Equal(t, PlannedUser{DisplayName: "Bob", UserID: 2}, plan.Users[0])
	assert.Equal(t, PlannedUser{DisplayName: "Carol", UserID: 3}, plan.Users[1])
}

func TestPlanGroupNotFound(t *testing.T) {
	fake := testutil.NewFakeVault()
	defer fake.Close()

	_, err := newTestEngine(fake, testSettings()).Plan(context.Background())
	require.Error(t, err)
	var lookupErr *LookupError
	require.ErrorAs(t, err, &lookupErr)
	assert.Equal(t, KindGroup, lookupErr.Lookup.Kind)
}

func TestPlanAmbiguousParentTreatedAsAbsent(t *testing.T) {
	fake := testutil.NewFakeVault()
	defer fake.Close()
	fake.AddUser(1, "Alice")
	fake.AddGroup("Vault Admins", 1)
	fake.AddFolder("Personal Vaults Archive", 0)

	plan, err := newTestEngine(fake, testSettings()).Plan(context.Background())
	require.NoError(t, err)
	assert.True(t, plan.CreateParent)
	assert.Zero(t, plan.ParentID)
}

func TestApplyCreatesParentAndUserFolders(t *testing.T) {
	fake := testutil.NewFakeVault()
	defer fake.Close()
	fake.AddUser(1, "Alice")
	fake.AddUser(2, "Bob")
	groupID := fake.AddGroup("Vault Admins", 1, 2)

	engine := newTestEngine(fake, testSettings())
	plan, err := engine.Plan(context.Background())
	require.NoError(t, err)
	require.True(t, plan.CreateParent)

	result, err := engine.Apply(context.Background(), plan)
	require.NoError(t, err)
	require.True(t, result.ParentCreated)
	assert.Empty(t, result.Failed())

	// The created parent's id lives in the result; the plan stays untouched.
	assert.Zero(t, plan.ParentID)
	assert.Equal(t, 3, fake.FolderCreates)

	parent := fake.FolderByName("Personal Vaults", 0)
	require.NotNil(t, parent)
	assert.Equal(t, result.ParentID, parent.ID)

	// The group sees the container but not its contents.
	parentGrants := fake.Permissions(parent.ID)
	require.Len(t, parentGrants, 1)
	assert.Equal(t, groupID, parentGrants[0].GroupID)
	assert.Equal(t, "View", parentGrants[0].FolderAccessRoleName)
	assert.Equal(t, "List", parentGrants[0].SecretAccessRoleName)

	assert.Equal(t, []string{"Alice", "Bob"}, fake.ChildNames(parent.ID))

	for _, user := range []struct {
		name string
		id   int
	}{{"Alice", 1}, {"Bob", 2}} {
		folder := fake.FolderByName(user.name, parent.ID)
		require.NotNil(t, folder, user.name)
		assert.False(t, folder.InheritPermissions, user.name)
		assert.True(t, folder.InheritSecretPolicy, user.name)

		// Exactly one grant: the inherited group grant is stripped, the
		// owning user holds Edit on both roles.
		grants := fake.Permissions(folder.ID)
		require.Len(t, grants, 1, user.name)
		assert.Equal(t, user.id, grants[0].UserID, user.name)
		assert.Zero(t, grants[0].GroupID, user.name)
		assert.Equal(t, "Edit", grants[0].FolderAccessRoleName, user.name)
		assert.Equal(t, "Edit", grants[0].SecretAccessRoleName, user.name)
	}
}

func TestApplySecondRunCreatesNothing(t *testing.T) {
	fake := testutil.NewFakeVault()
	defer fake.Close()
	fake.AddUser(1, "Alice")
	fake.AddUser(2, "Bob")
	fake.AddGroup("Vault Admins", 1, 2)

	engine := newTestEngine(fake, testSettings())
	plan, err := engine.Plan(context.Background())
	require.NoError(t, err)
	_, err = engine.Apply(context.Background(), plan)
	require.NoError(t, err)

	foldersAfterFirst := fake.FolderCount()
	grantsAfterFirst := fake.PermissionCount()
	createCallsAfterFirst := fake.FolderCreates

	plan2, err := engine.Plan(context.Background())
	require.NoError(t, err)
	assert.False(t, plan2.HasChanges())
	assert.Empty(t, plan2.Users)

	result, err := engine.Apply(context.Background(), plan2)
	require.NoError(t, err)
	assert.False(t, result.ParentCreated)
	assert.Empty(t, result.Users)
	assert.Equal(t, foldersAfterFirst, fake.FolderCount())
	assert.Equal(t, grantsAfterFirst, fake.PermissionCount())
	assert.Equal(t, createCallsAfterFirst, fake.FolderCreates)
}

// Every API call of a run carries the same correlation id, so the run's calls
// can be tied together in the vault's audit log.
func TestRunSendsCorrelationIDOnEveryCall(t *testing.T) {
	fake := testutil.NewFakeVault()
	defer fake.Close()
	fake.AddUser(1, "Alice")
	fake.AddUser(2, "Bob")
	fake.AddGroup("Vault Admins", 1, 2)

	engine := newTestEngine(fake, testSettings())
	plan, err := engine.Plan(context.Background())
	require.NoError(t, err)
	_, err = engine.Apply(context.Background(), plan)
	require.NoError(t, err)

	require.Len(t, fake.CorrelationIDs, 1)
	for id, seen := range fake.CorrelationIDs {
		assert.NotEmpty(t, id)
		assert.Equal(t, fake.Requests, seen)
	}
}

func TestApplyIsolatesUserFailures(t *testing.T) {
	fake := testutil.NewFakeVault()
	defer fake.Close()
	fake.AddUser(1, "Alice")
	fake.AddUser(2, "Bob")
	fake.AddUser(3, "Carol")
	fake.AddGroup("Vault Admins", 1, 2, 3)
	fake.FailCreateFolder["Bob"] = 500

	engine := newTestEngine(fake, testSettings())
	plan, err := engine.Plan(context.Background())
	require.NoError(t, err)

	result, err := engine.Apply(context.Background(), plan)
	require.NoError(t, err)

	failed := result.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "Bob", failed[0].DisplayName)
	assert.ErrorContains(t, failed[0].Err, "create folder")

	// Alice and Carol were provisioned despite Bob's failure.
	parent := fake.FolderByName("Personal Vaults", 0)
	require.NotNil(t, parent)
	assert.Equal(t, []string{"Alice", "Carol"}, fake.ChildNames(parent.ID))
}

func TestApplyCreatesSubfolders(t *testing.T) {
	fake := testutil.NewFakeVault()
	defer fake.Close()
	fake.AddUser(1, "Alice")
	fake.AddGroup("Vault Admins", 1)

	s := testSettings()
	s.SubFolders = []string{"Notes", "Keys"}
	engine := newTestEngine(fake, s)
	plan, err := engine.Plan(context.Background())
	require.NoError(t, err)
	result, err := engine.Apply(context.Background(), plan)
	require.NoError(t, err)
	require.Empty(t, result.Failed())

	parent := fake.FolderByName("Personal Vaults", 0)
	require.NotNil(t, parent)
	alice := fake.FolderByName("Alice", parent.ID)
	require.NotNil(t, alice)
	assert.Equal(t, []string{"Keys", "Notes"}, fake.ChildNames(alice.ID))

	// Subfolders ride on the user folder's grants instead of holding their own.
	for _, name := range []string{"Keys", "Notes"} {
		sub := fake.FolderByName(name, alice.ID)
		require.NotNil(t, sub, name)
		assert.True(t, sub.InheritPermissions, name)
		assert.True(t, sub.InheritSecretPolicy, name)
	}
}

func TestApplyGrantsAdminGroup(t *testing.T) {
	fake := testutil.NewFakeVault()
	defer fake.Close()
	fake.AddUser(1, "Alice")
	fake.AddGroup("Vault Admins", 1)
	adminID := fake.AddGroup("Vault Operators")

	s := testSettings()
	s.AdminGroup = "Vault Operators"
	s.AdminPermission = AdminAddSecretList
	engine := newTestEngine(fake, s)

	plan, err := engine.Plan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, adminID, plan.AdminGroupID)

	result, err := engine.Apply(context.Background(), plan)
	require.NoError(t, err)
	require.Empty(t, result.Failed())

	parent := fake.FolderByName("Personal Vaults", 0)
	require.NotNil(t, parent)
	alice := fake.FolderByName("Alice", parent.ID)
	require.NotNil(t, alice)

	var adminGrants int
	for _, g := range fake.Permissions(alice.ID) {
		if g.GroupID == adminID {
			adminGrants++
			assert.Equal(t, "Add Secret", g.FolderAccessRoleName)
			assert.Equal(t, "List", g.SecretAccessRoleName)
		}
	}
	assert.Equal(t, 1, adminGrants)
}

func TestApplyStopsOnCancelledContext(t *testing.T) {
	fake := testutil.NewFakeVault()
	defer fake.Close()
	fake.AddUser(1, "Alice")
	fake.AddGroup("Vault Admins", 1)
	parentID := fake.AddFolder("Personal Vaults", 0)

	engine := newTestEngine(fake, testSettings())
	plan, err := engine.Plan(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := engine.Apply(ctx, plan)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, result.Users)
	assert.Empty(t, fake.ChildNames(parentID))
}

func TestApplyWaitsForSettleAfterParentCreate(t *testing.T) {
	fake := testutil.NewFakeVault()
	defer fake.Close()
	fake.AddUser(1, "Alice")
	fake.AddGroup("Vault Admins", 1)

	s := testSettings()
	s.Settle = 5 * time.Second
	engine := newTestEngine(fake, s)

	var waited time.Duration
	engine.wait = func(_ context.Context, d time.Duration) error {
		waited = d
		return nil
	}

	plan, err := engine.Plan(context.Background())
	require.NoError(t, err)
	_, err = engine.Apply(context.Background(), plan)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, waited)
}

func TestSleepHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, sleep(ctx, time.Minute), context.Canceled)
	assert.NoError(t, sleep(ctx, 0))
}
