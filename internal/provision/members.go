package provision

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"pfolders/internal/vault"
)

// ResolveMembers expands a group into a displayName → userID mapping. Member
// profiles are fetched in parallel under the concurrency cap; the mapping is
// built afterwards in member-list order, so when two members share a display
// name the later one wins. Display names are the natural keys for folder
// identity, so such collisions leave behavior undefined; they are logged but
// not disambiguated.
func ResolveMembers(ctx context.Context, d Directory, groupID, concurrency int, logger *slog.Logger) (map[string]int, error) {
	ids, err := d.GroupUserIDs(ctx, groupID)
	if err != nil {
		return nil, err
	}

	users := make([]*vault.User, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, id := range ids {
		g.Go(func() error {
			u, err := d.GetUser(gctx, id)
			if err != nil {
				return fmt.Errorf("member %d: %w", id, err)
			}
			users[i] = u
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	members := make(map[string]int, len(users))
	for _, u := range users {
		if prev, ok := members[u.DisplayName]; ok {
			logger.Warn("display name collision; later member overwrites earlier",
				"displayName", u.DisplayName, "previousUserId", prev, "userId", u.ID)
		}
		members[u.DisplayName] = u.ID
	}
	return members, nil
}
