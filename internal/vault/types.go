package vault

// Folder is a container node in the vault hierarchy. ChildFolders is only
// populated when the folder is fetched with its subtree.
type Folder struct {
	ID                  int      `json:"id"`
	FolderName          string   `json:"folderName"`
	ParentFolderID      int      `json:"parentFolderId,omitempty"`
	InheritPermissions  bool     `json:"inheritPermissions"`
	InheritSecretPolicy bool     `json:"inheritSecretPolicy"`
	ChildFolders        []Folder `json:"childFolders,omitempty"`
}

// CreateFolderRequest is the body of POST /folders.
type CreateFolderRequest struct {
	FolderName          string `json:"folderName"`
	ParentFolderID      int    `json:"parentFolderId,omitempty"`
	InheritPermissions  bool   `json:"inheritPermissions"`
	InheritSecretPolicy bool   `json:"inheritSecretPolicy"`
}

// Group is a vault user group.
type Group struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// User is a vault user profile. DisplayName doubles as the personal folder
// name during provisioning.
type User struct {
	ID          int    `json:"id"`
	DisplayName string `json:"displayName"`
}

// Permission is a grant tying a principal (user or group, exactly one set) to
// a folder with a folder-access/secret-access role pair.
type Permission struct {
	ID                   int    `json:"id"`
	FolderID             int    `json:"folderId"`
	UserID               int    `json:"userId,omitempty"`
	GroupID              int    `json:"groupId,omitempty"`
	FolderAccessRoleName string `json:"folderAccessRoleName"`
	SecretAccessRoleName string `json:"secretAccessRoleName"`
}

// CreatePermissionRequest is the body of POST /folder-permissions.
type CreatePermissionRequest struct {
	FolderID             int    `json:"folderId"`
	UserID               int    `json:"userId,omitempty"`
	GroupID              int    `json:"groupId,omitempty"`
	FolderAccessRoleName string `json:"folderAccessRoleName"`
	SecretAccessRoleName string `json:"secretAccessRoleName"`
}

// List endpoints wrap their results in a records envelope.

type folderRecords struct {
	Records []Folder `json:"records"`
}

type groupRecords struct {
	Records []Group `json:"records"`
}

type permissionRecords struct {
	Records []Permission `json:"records"`
}

type groupUserRecords struct {
	Records []groupUser `json:"records"`
}

type groupUser struct {
	UserID int `json:"userId"`
}
