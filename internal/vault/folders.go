package vault

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// SearchFolders returns folders whose names contain text.
func (c *Client) SearchFolders(ctx context.Context, text string) ([]Folder, error) {
	q := url.Values{}
	q.Set("filter.searchText", text)

	var env folderRecords
	if err := c.get(ctx, fmt.Sprintf("search folders %q", text), "/folders", q, &env); err != nil {
		return nil, err
	}
	return env.Records, nil
}

// GetFolder fetches one folder. With children true the full subtree is
// returned in ChildFolders.
func (c *Client) GetFolder(ctx context.Context, id int, children bool) (*Folder, error) {
	var q url.Values
	if children {
		q = url.Values{}
		q.Set("args.getAllChildren", "true")
	}

	var f Folder
	if err := c.get(ctx, fmt.Sprintf("get folder %d", id), "/folders/"+strconv.Itoa(id), q, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// FolderStub fetches a blank folder template from the vault. Callers set the
// name (and optionally the parent) before submitting it as a create request.
func (c *Client) FolderStub(ctx context.Context) (*Folder, error) {
	var f Folder
	if err := c.get(ctx, "get folder stub", "/folders/stub", nil, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

// CreateFolder creates a folder and returns the created record, including its
// assigned id.
func (c *Client) CreateFolder(ctx context.Context, req CreateFolderRequest) (*Folder, error) {
	var f Folder
	if err := c.post(ctx, fmt.Sprintf("create folder %q", req.FolderName), "/folders", req, &f); err != nil {
		return nil, err
	}
	return &f, nil
}
