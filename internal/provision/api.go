package provision

import (
	"context"

	"pfolders/internal/vault"
)

// Directory is the read-only lookup surface of the vault: identity search and
// membership expansion.
type Directory interface {
	SearchGroups(ctx context.Context, text string) ([]vault.Group, error)
	SearchFolders(ctx context.Context, text string) ([]vault.Folder, error)
	GroupUserIDs(ctx context.Context, groupID int) ([]int, error)
	GetUser(ctx context.Context, id int) (*vault.User, error)
}

// FolderStore creates and inspects folders.
type FolderStore interface {
	GetFolder(ctx context.Context, id int, children bool) (*vault.Folder, error)
	FolderStub(ctx context.Context) (*vault.Folder, error)
	CreateFolder(ctx context.Context, req vault.CreateFolderRequest) (*vault.Folder, error)
}

// PermissionStore manages folder grants.
type PermissionStore interface {
	FolderPermissions(ctx context.Context, folderID int) ([]vault.Permission, error)
	CreatePermission(ctx context.Context, req vault.CreatePermissionRequest) (*vault.Permission, error)
	DeletePermission(ctx context.Context, id int) error
}

// API is the full vault surface the engine consumes. *vault.Client satisfies
// it.
type API interface {
	Directory
	FolderStore
	PermissionStore
}

var _ API = (*vault.Client)(nil)
