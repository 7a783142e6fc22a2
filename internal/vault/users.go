package vault

import (
	"context"
	"fmt"
	"strconv"
)

// GetUser fetches one user profile.
func (c *Client) GetUser(ctx context.Context, id int) (*User, error) {
	var u User
	if err := c.get(ctx, fmt.Sprintf("get user %d", id), "/users/"+strconv.Itoa(id), nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
