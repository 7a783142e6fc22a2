// Package provision implements the reconciliation engine that mirrors a vault
// group's membership into per-user folders under a shared parent, and
// converges each folder's grants to the per-user access model.
package provision

import (
	"fmt"
	"time"
)

// PermissionLevel is the role applied to the owning user's grant, identically
// on the folder-access and secret-access sides.
type PermissionLevel string

const (
	LevelOwner PermissionLevel = "Owner"
	LevelEdit  PermissionLevel = "Edit"
	LevelView  PermissionLevel = "View"
)

// ParsePermissionLevel validates a permission level selector.
func ParsePermissionLevel(s string) (PermissionLevel, error) {
	switch PermissionLevel(s) {
	case LevelOwner, LevelEdit, LevelView:
		return PermissionLevel(s), nil
	default:
		return "", fmt.Errorf("unknown permission level %q: use Owner, Edit or View", s)
	}
}

// AdminPermission selects the role pair granted to the admin group. The only
// defined selector maps to folder access "Add Secret" and secret access
// "List": admins may file secrets into a user's folder and see that it has
// contents, without reading them.
type AdminPermission string

// AdminAddSecretList is the only defined admin permission selector.
const AdminAddSecretList AdminPermission = `AddSecret\List`

// ParseAdminPermission validates an admin permission selector.
func ParseAdminPermission(s string) (AdminPermission, error) {
	if AdminPermission(s) == AdminAddSecretList {
		return AdminAddSecretList, nil
	}
	return "", fmt.Errorf("unknown admin permission %q: use %q", s, string(AdminAddSecretList))
}

// Roles returns the folder-access and secret-access role names for the
// selector.
func (a AdminPermission) Roles() (folderRole, secretRole string) {
	return "Add Secret", "List"
}

// Role names used on the shared parent folder: members can see the container
// without seeing sibling folders.
const (
	roleView = "View"
	roleList = "List"
)

// DefaultSettle is how long the engine waits after parent-folder permission
// writes before dependent reads, accommodating the vault's eventual
// consistency.
const DefaultSettle = 2 * time.Second

// DefaultMemberConcurrency bounds parallel member-profile lookups.
const DefaultMemberConcurrency = 8

// Settings configures one provisioning run.
type Settings struct {
	ParentFolder string
	Group        string
	Level        PermissionLevel

	// AdminGroup and AdminPermission are optional but must be set together.
	AdminGroup      string
	AdminPermission AdminPermission

	// SubFolders are created under each new user folder, inheriting its
	// permissions.
	SubFolders []string

	// Settle overrides DefaultSettle; negative disables the wait.
	Settle time.Duration

	// MemberConcurrency overrides DefaultMemberConcurrency.
	MemberConcurrency int
}

// Validate checks the settings for completeness and consistency.
func (s Settings) Validate() error {
	if s.ParentFolder == "" {
		return fmt.Errorf("parent folder name is required")
	}
	if s.Group == "" {
		return fmt.Errorf("group name is required")
	}
	if _, err := ParsePermissionLevel(string(s.Level)); err != nil {
		return err
	}
	if (s.AdminGroup == "") != (s.AdminPermission == "") {
		return fmt.Errorf("admin group and admin permission must be set together")
	}
	if s.AdminPermission != "" {
		if _, err := ParseAdminPermission(string(s.AdminPermission)); err != nil {
			return err
		}
	}
	return nil
}

func (s Settings) settle() time.Duration {
	if s.Settle < 0 {
		return 0
	}
	if s.Settle == 0 {
		return DefaultSettle
	}
	return s.Settle
}

func (s Settings) memberConcurrency() int {
	if s.MemberConcurrency <= 0 {
		return DefaultMemberConcurrency
	}
	return s.MemberConcurrency
}
