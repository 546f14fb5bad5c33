package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Biasolis/sso/internal/logging"
)

// GroupSync mirrors directory group membership onto directory-mapped local groups.
type GroupSync struct {
	Groups GroupStore
}

func (g *GroupSync) Sync(ctx context.Context, userID uuid.UUID, groupDNs []string) error {
	n, err := g.Groups.ReplaceDirectoryGroups(ctx, userID, groupDNs)
	if err != nil {
		return fmt.Errorf("sync groups: %w", err)
	}
	logging.FromContext(ctx).Debug("groups_synced", "user_id", userID.String(), "directory_groups", len(groupDNs), "mapped", n)
	return nil
}
