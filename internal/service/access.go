package service

import (
	"context"
	"fmt"

	"github.com/Biasolis/sso/internal/models"
)

type Decision int

const (
	Denied Decision = iota
	Allowed
)

func (d Decision) String() string {
	if d == Allowed {
		return "allowed"
	}
	return "denied"
}

// Gate decides whether a user may sign in to a client. A client with no
// permission rows is open to every verified user.
type Gate struct {
	Permissions PermissionStore
}

func (g *Gate) CheckAccess(ctx context.Context, user *models.User, clientID string) (Decision, error) {
	if user == nil || !user.Verified {
		return Denied, nil
	}

	restricted, err := g.Permissions.HasAnyPermission(ctx, clientID)
	if err != nil {
		return Denied, fmt.Errorf("load permissions: %w", err)
	}
	if !restricted {
		return Allowed, nil
	}

	ok, err := g.Permissions.UserPermitted(ctx, clientID, user.ID)
	if err != nil {
		return Denied, fmt.Errorf("check permission: %w", err)
	}
	if ok {
		return Allowed, nil
	}
	return Denied, nil
}
