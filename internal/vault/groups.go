package vault

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// SearchGroups returns groups whose names contain text.
func (c *Client) SearchGroups(ctx context.Context, text string) ([]Group, error) {
	q := url.Values{}
	q.Set("filter.searchText", text)

	var env groupRecords
	if err := c.get(ctx, fmt.Sprintf("search groups %q", text), "/groups", q, &env); err != nil {
		return nil, err
	}
	return env.Records, nil
}

// GroupUserIDs returns the ids of the group's member users.
func (c *Client) GroupUserIDs(ctx context.Context, groupID int) ([]int, error) {
	var env groupUserRecords
	op := fmt.Sprintf("list members of group %d", groupID)
	if err := c.get(ctx, op, "/groups/"+strconv.Itoa(groupID)+"/users", nil, &env); err != nil {
		return nil, err
	}

	ids := make([]int, len(env.Records))
	for i, r := range env.Records {
		ids[i] = r.UserID
	}
	return ids, nil
}
