package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"pfolders/internal/vault"
)

// Provisioner drives folder and permission reconciliation for one group. It
// holds no state between runs; the vault is the system of record and every
// run re-derives membership and folder existence from it.
type Provisioner struct {
	api      API
	settings Settings
	logger   *slog.Logger

	// wait is the settle delay between dependent remote writes and reads.
	// Tests replace it.
	wait func(ctx context.Context, d time.Duration) error
}

// New creates a provisioner. Settings must have passed Validate.
func New(api API, settings Settings, logger *slog.Logger) *Provisioner {
	return &Provisioner{
		api:      api,
		settings: settings,
		logger:   logger,
		wait:     sleep,
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Plan resolves all identities and computes the to-create set without writing
// anything. Failure to resolve the group, the admin group, or the members is
// fatal: there is nothing to reconcile without them.
func (p *Provisioner) Plan(ctx context.Context) (*Plan, error) {
	plan := &Plan{Settings: p.settings}

	group, err := ResolveGroup(ctx, p.api, p.settings.Group)
	if err != nil {
		return nil, fmt.Errorf("resolve group: %w", err)
	}
	if err := group.Err(); err != nil {
		return nil, err
	}
	plan.GroupID = group.ID

	if p.settings.AdminGroup != "" {
		admin, err := ResolveGroup(ctx, p.api, p.settings.AdminGroup)
		if err != nil {
			return nil, fmt.Errorf("resolve admin group: %w", err)
		}
		if err := admin.Err(); err != nil {
			return nil, err
		}
		plan.AdminGroupID = admin.ID
	}

	members, err := ResolveMembers(ctx, p.api, group.ID, p.settings.memberConcurrency(), p.logger)
	if err != nil {
		return nil, fmt.Errorf("resolve members: %w", err)
	}

	parent, err := ResolveFolder(ctx, p.api, p.settings.ParentFolder)
	if err != nil {
		return nil, fmt.Errorf("resolve parent folder: %w", err)
	}

	existing := map[string]bool{}
	switch parent.State {
	case StateFound:
		plan.ParentID = parent.ID
		full, err := p.api.GetFolder(ctx, parent.ID, true)
		if err != nil {
			return nil, fmt.Errorf("enumerate children: %w", err)
		}
		for _, child := range full.ChildFolders {
			existing[child.FolderName] = true
		}
	default:
		// Not found and ambiguous both mean the parent is treated as absent
		// and will be created fresh.
		plan.CreateParent = true
	}

	// Delta: build the to-create set fresh rather than deleting from the
	// membership mapping while walking it.
	for name, userID := range members {
		if existing[name] {
			plan.Existing = append(plan.Existing, name)
			continue
		}
		plan.Users = append(plan.Users, PlannedUser{DisplayName: name, UserID: userID})
	}
	sort.Slice(plan.Users, func(i, j int) bool { return plan.Users[i].DisplayName < plan.Users[j].DisplayName })
	sort.Strings(plan.Existing)

	p.logger.Debug("plan computed",
		"group", p.settings.Group, "groupId", plan.GroupID,
		"members", len(members), "toCreate", len(plan.Users), "existing", len(plan.Existing),
		"createParent", plan.CreateParent)
	return plan, nil
}

// UserOutcome records what happened to one member's pipeline during apply.
type UserOutcome struct {
	DisplayName string
	FolderID    int
	Err         error // nil on full success
}

// Result is the outcome of applying a plan.
type Result struct {
	ParentID      int
	ParentCreated bool
	Users         []UserOutcome
}

// Failed returns the outcomes that carry an error.
func (r *Result) Failed() []UserOutcome {
	var failed []UserOutcome
	for _, u := range r.Users {
		if u.Err != nil {
			failed = append(failed, u)
		}
	}
	return failed
}

// Apply materializes the plan: establishes the parent folder, then creates
// and converges each user folder. Parent-folder failures are fatal; per-user
// failures are isolated, recorded in the Result, and do not stop the
// remaining users. Nothing is rolled back.
func (p *Provisioner) Apply(ctx context.Context, plan *Plan) (*Result, error) {
	res := &Result{ParentID: plan.ParentID}

	if plan.CreateParent {
		id, err := p.createParent(ctx, plan)
		if err != nil {
			return nil, err
		}
		res.ParentID = id
		res.ParentCreated = true

		// Give the vault time to settle the parent's permission writes before
		// the per-user pipelines start reading and writing beneath it.
		if err := p.wait(ctx, p.settings.settle()); err != nil {
			return nil, err
		}
	}

	for _, user := range plan.Users {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		outcome := UserOutcome{DisplayName: user.DisplayName}
		outcome.FolderID, outcome.Err = p.provisionUser(ctx, plan, res.ParentID, user)
		if outcome.Err != nil {
			p.logger.Error("user provisioning failed",
				"displayName", user.DisplayName, "error", outcome.Err)
		} else {
			p.logger.Info("user folder provisioned",
				"displayName", user.DisplayName, "folderId", outcome.FolderID)
		}
		res.Users = append(res.Users, outcome)
	}
	return res, nil
}

// createParent fetches the blank folder template, names it, creates the
// folder, and grants the source group (and optionally the admin group) access
// to the shared container.
func (p *Provisioner) createParent(ctx context.Context, plan *Plan) (int, error) {
	stub, err := p.api.FolderStub(ctx)
	if err != nil {
		return 0, fmt.Errorf("create parent folder: %w", err)
	}

	created, err := p.api.CreateFolder(ctx, vault.CreateFolderRequest{
		FolderName:          p.settings.ParentFolder,
		ParentFolderID:      stub.ParentFolderID,
		InheritPermissions:  stub.InheritPermissions,
		InheritSecretPolicy: stub.InheritSecretPolicy,
	})
	if err != nil {
		return 0, fmt.Errorf("create parent folder: %w", err)
	}
	p.logger.Info("parent folder created", "folderName", created.FolderName, "folderId", created.ID)

	// View/List keeps the container visible to members without exposing
	// sibling folders.
	_, err = p.api.CreatePermission(ctx, vault.CreatePermissionRequest{
		FolderID:             created.ID,
		GroupID:              plan.GroupID,
		FolderAccessRoleName: roleView,
		SecretAccessRoleName: roleList,
	})
	if err != nil {
		return 0, fmt.Errorf("grant group on parent folder: %w", err)
	}

	if plan.AdminGroupID != 0 {
		folderRole, secretRole := p.settings.AdminPermission.Roles()
		_, err = p.api.CreatePermission(ctx, vault.CreatePermissionRequest{
			FolderID:             created.ID,
			GroupID:              plan.AdminGroupID,
			FolderAccessRoleName: folderRole,
			SecretAccessRoleName: secretRole,
		})
		if err != nil {
			return 0, fmt.Errorf("grant admin group on parent folder: %w", err)
		}
	}
	return created.ID, nil
}

// provisionUser runs one member's pipeline: folder, subfolders, permission
// convergence. The folder id must be known before any permission call, so a
// create failure aborts the pipeline; subfolder and convergence failures are
// collected and all steps are attempted.
func (p *Provisioner) provisionUser(ctx context.Context, plan *Plan, parentID int, user PlannedUser) (int, error) {
	folder, err := p.api.CreateFolder(ctx, vault.CreateFolderRequest{
		FolderName:          user.DisplayName,
		ParentFolderID:      parentID,
		InheritPermissions:  false,
		InheritSecretPolicy: true,
	})
	if err != nil {
		return 0, fmt.Errorf("create folder: %w", err)
	}

	var errs []error
	for _, sub := range p.settings.SubFolders {
		_, err := p.api.CreateFolder(ctx, vault.CreateFolderRequest{
			FolderName:          sub,
			ParentFolderID:      folder.ID,
			InheritPermissions:  true,
			InheritSecretPolicy: true,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("create subfolder %q: %w", sub, err))
		}
	}

	if err := p.converge(ctx, plan, folder.ID, user.UserID); err != nil {
		errs = append(errs, err)
	}
	return folder.ID, errors.Join(errs...)
}
