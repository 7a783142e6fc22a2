package provision

import (
	"context"
	"errors"
	"fmt"

	"pfolders/internal/vault"
)

// converge brings one user folder's grants to the desired end-state: no
// source-group grant, a grant for the owning user at the configured level, and
// optionally the admin group's restricted pair. The vault copies the parent's
// grants onto a new folder even with permission inheritance off, so the group
// grant must be stripped back off and the remaining grants may already include
// the desired ones. The steps depend only on the folder existing, not on each
// other, so all are attempted even when an earlier one fails.
func (p *Provisioner) converge(ctx context.Context, plan *Plan, folderID, userID int) error {
	var errs []error

	var kept []vault.Permission
	grants, err := p.api.FolderPermissions(ctx, folderID)
	if err != nil {
		errs = append(errs, fmt.Errorf("strip group access: %w", err))
	} else {
		for _, g := range grants {
			if g.GroupID != plan.GroupID {
				kept = append(kept, g)
				continue
			}
			if err := p.api.DeletePermission(ctx, g.ID); err != nil {
				errs = append(errs, fmt.Errorf("strip group access: %w", err))
			}
		}
	}

	userGrant := vault.CreatePermissionRequest{
		FolderID:             folderID,
		UserID:               userID,
		FolderAccessRoleName: string(p.settings.Level),
		SecretAccessRoleName: string(p.settings.Level),
	}
	if !hasGrant(kept, userGrant) {
		if _, err := p.api.CreatePermission(ctx, userGrant); err != nil {
			errs = append(errs, fmt.Errorf("grant user: %w", err))
		}
	}

	if plan.AdminGroupID != 0 {
		folderRole, secretRole := p.settings.AdminPermission.Roles()
		adminGrant := vault.CreatePermissionRequest{
			FolderID:             folderID,
			GroupID:              plan.AdminGroupID,
			FolderAccessRoleName: folderRole,
			SecretAccessRoleName: secretRole,
		}
		if !hasGrant(kept, adminGrant) {
			if _, err := p.api.CreatePermission(ctx, adminGrant); err != nil {
				errs = append(errs, fmt.Errorf("grant admin group: %w", err))
			}
		}
	}

	return errors.Join(errs...)
}

// hasGrant reports whether grants already contains the requested grant.
func hasGrant(grants []vault.Permission, want vault.CreatePermissionRequest) bool {
	for _, g := range grants {
		if g.UserID == want.UserID && g.GroupID == want.GroupID &&
			g.FolderAccessRoleName == want.FolderAccessRoleName &&
			g.SecretAccessRoleName == want.SecretAccessRoleName {
			return true
		}
	}
	return false
}
