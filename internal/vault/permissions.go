package vault

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// FolderPermissions lists all grants on a folder.
func (c *Client) FolderPermissions(ctx context.Context, folderID int) ([]Permission, error) {
	q := url.Values{}
	q.Set("filter.folderId", strconv.Itoa(folderID))

	var env permissionRecords
	op := fmt.Sprintf("list permissions of folder %d", folderID)
	if err := c.get(ctx, op, "/folder-permissions", q, &env); err != nil {
		return nil, err
	}
	return env.Records, nil
}

// CreatePermission creates a grant and returns the created record.
func (c *Client) CreatePermission(ctx context.Context, req CreatePermissionRequest) (*Permission, error) {
	principal := fmt.Sprintf("user %d", req.UserID)
	if req.GroupID != 0 {
		principal = fmt.Sprintf("group %d", req.GroupID)
	}
	op := fmt.Sprintf("grant %s on folder %d", principal, req.FolderID)

	var p Permission
	if err := c.post(ctx, op, "/folder-permissions", req, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// DeletePermission removes a grant by id.
func (c *Client) DeletePermission(ctx context.Context, id int) error {
	return c.del(ctx, fmt.Sprintf("delete permission %d", id), "/folder-permissions/"+strconv.Itoa(id))
}
