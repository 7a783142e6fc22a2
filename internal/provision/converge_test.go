package provision

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pfolders/internal/testutil"
)

func TestConvergeStripsGroupAndGrantsUser(t *testing.T) {
	fake := testutil.NewFakeVault()
	defer fake.Close()
	groupID := fake.AddGroup("Vault Admins")
	folderID := fake.AddFolder("Alice", 0)
	fake.AddPermission(folderID, 0, groupID, "View", "List")

	engine := newTestEngine(fake, testSettings())
	plan := &Plan{Settings: engine.settings, GroupID: groupID}

	err := engine.converge(context.Background(), plan, folderID, 7)
	require.NoError(t, err)

	grants := fake.Permissions(folderID)
	require.Len(t, grants, 1)
	assert.Equal(t, 7, grants[0].UserID)
	assert.Zero(t, grants[0].GroupID)
	assert.Equal(t, "Edit", grants[0].FolderAccessRoleName)
	assert.Equal(t, "Edit", grants[0].SecretAccessRoleName)
}

// Grants held by other groups or users are none of convergence's business.
func TestConvergeLeavesForeignGrantsAlone(t *testing.T) {
	fake := testutil.NewFakeVault()
	defer fake.Close()
	groupID := fake.AddGroup("Vault Admins")
	otherID := fake.AddGroup("Auditors")
	folderID := fake.AddFolder("Alice", 0)
	fake.AddPermission(folderID, 0, groupID, "View", "List")
	foreign := fake.AddPermission(folderID, 0, otherID, "View", "View")

	engine := newTestEngine(fake, testSettings())
	plan := &Plan{Settings: engine.settings, GroupID: groupID}

	err := engine.converge(context.Background(), plan, folderID, 7)
	require.NoError(t, err)

	var foreignSurvives bool
	for _, g := range fake.Permissions(folderID) {
		if g.ID == foreign {
			foreignSurvives = true
		}
		assert.NotEqual(t, groupID, g.GroupID)
	}
	assert.True(t, foreignSurvives)
}

func TestConvergeGrantsAdminPair(t *testing.T) {
	fake := testutil.NewFakeVault()
	defer fake.Close()
	groupID := fake.AddGroup("Vault Admins")
	adminID := fake.AddGroup("Vault Operators")
	folderID := fake.AddFolder("Alice", 0)

	s := testSettings()
	s.AdminGroup = "Vault Operators"
	s.AdminPermission = AdminAddSecretList
	engine := newTestEngine(fake, s)
	plan := &Plan{Settings: s, GroupID: groupID, AdminGroupID: adminID}

	err := engine.converge(context.Background(), plan, folderID, 7)
	require.NoError(t, err)

	grants := fake.Permissions(folderID)
	require.Len(t, grants, 2)
	assert.Equal(t, 7, grants[0].UserID)
	assert.Equal(t, adminID, grants[1].GroupID)
	assert.Equal(t, "Add Secret", grants[1].FolderAccessRoleName)
	assert.Equal(t, "List", grants[1].SecretAccessRoleName)
}

// Grants that already match the end-state are left in place, not duplicated.
func TestConvergeSkipsExistingGrants(t *testing.T) {
	fake := testutil.NewFakeVault()
	defer fake.Close()
	groupID := fake.AddGroup("Vault Admins")
	adminID := fake.AddGroup("Vault Operators")
	folderID := fake.AddFolder("Alice", 0)
	fake.AddPermission(folderID, 7, 0, "Edit", "Edit")
	fake.AddPermission(folderID, 0, adminID, "Add Secret", "List")

	s := testSettings()
	s.AdminGroup = "Vault Operators"
	s.AdminPermission = AdminAddSecretList
	engine := newTestEngine(fake, s)
	plan := &Plan{Settings: s, GroupID: groupID, AdminGroupID: adminID}

	require.NoError(t, engine.converge(context.Background(), plan, folderID, 7))
	assert.Len(t, fake.Permissions(folderID), 2)
	assert.Equal(t, 0, fake.PermissionCreates)
}

// A failed grant listing does not stop the later steps: the user and admin
// grants are still installed and the strip failure is reported.
func TestConvergeGrantsDespiteFailedStrip(t *testing.T) {
	fake := testutil.NewFakeVault()
	defer fake.Close()
	groupID := fake.AddGroup("Vault Admins")
	adminID := fake.AddGroup("Vault Operators")
	folderID := fake.AddFolder("Alice", 0)
	fake.FailListPermissions = 500

	s := testSettings()
	s.AdminGroup = "Vault Operators"
	s.AdminPermission = AdminAddSecretList
	engine := newTestEngine(fake, s)
	plan := &Plan{Settings: s, GroupID: groupID, AdminGroupID: adminID}

	err := engine.converge(context.Background(), plan, folderID, 7)
	require.Error(t, err)
	assert.ErrorContains(t, err, "strip group access")

	grants := fake.Permissions(folderID)
	require.Len(t, grants, 2)
	assert.Equal(t, 7, grants[0].UserID)
	assert.Equal(t, adminID, grants[1].GroupID)
}

// A failed grant deletion still installs the user grant, and the stale group
// grant is reported rather than silently left behind.
func TestConvergeGrantsDespiteFailedDelete(t *testing.T) {
	fake := testutil.NewFakeVault()
	defer fake.Close()
	groupID := fake.AddGroup("Vault Admins")
	folderID := fake.AddFolder("Alice", 0)
	fake.AddPermission(folderID, 0, groupID, "View", "List")
	fake.FailDeletePermission = 500

	engine := newTestEngine(fake, testSettings())
	plan := &Plan{Settings: engine.settings, GroupID: groupID}

	err := engine.converge(context.Background(), plan, folderID, 7)
	require.Error(t, err)
	assert.ErrorContains(t, err, "strip group access")

	var userGrants, groupGrants int
	for _, g := range fake.Permissions(folderID) {
		if g.UserID == 7 {
			userGrants++
		}
		if g.GroupID == groupID {
			groupGrants++
		}
	}
	assert.Equal(t, 1, userGrants)
	assert.Equal(t, 1, groupGrants, "stale group grant survives the failed delete")
}

// When every step fails, the joined error names each one.
func TestConvergeReportsEveryFailedStep(t *testing.T) {
	fake := testutil.NewFakeVault()
	defer fake.Close()
	groupID := fake.AddGroup("Vault Admins")
	adminID := fake.AddGroup("Vault Operators")
	folderID := fake.AddFolder("Alice", 0)
	fake.FailListPermissions = 500
	fake.FailCreatePermission = 500

	s := testSettings()
	s.AdminGroup = "Vault Operators"
	s.AdminPermission = AdminAddSecretList
	engine := newTestEngine(fake, s)
	plan := &Plan{Settings: s, GroupID: groupID, AdminGroupID: adminID}

	err := engine.converge(context.Background(), plan, folderID, 7)
	require.Error(t, err)
	assert.ErrorContains(t, err, "strip group access")
	assert.ErrorContains(t, err, "grant user")
	assert.ErrorContains(t, err, "grant admin group")
	assert.Empty(t, fake.Permissions(folderID))
}

// Running convergence again changes nothing.
func TestConvergeIdempotent(t *testing.T) {
	fake := testutil.NewFakeVault()
	defer fake.Close()
	groupID := fake.AddGroup("Vault Admins")
	folderID := fake.AddFolder("Alice", 0)
	fake.AddPermission(folderID, 0, groupID, "View", "List")

	engine := newTestEngine(fake, testSettings())
	plan := &Plan{Settings: engine.settings, GroupID: groupID}

	require.NoError(t, engine.converge(context.Background(), plan, folderID, 7))
	require.NoError(t, engine.converge(context.Background(), plan, folderID, 7))

	grants := fake.Permissions(folderID)
	require.Len(t, grants, 1)
	assert.Equal(t, 7, grants[0].UserID)
	assert.Equal(t, 1, fake.PermissionCreates)
}
