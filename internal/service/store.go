package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Biasolis/sso/internal/models"
)

type UserStore interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
	CreateUserIfNotExists(ctx context.Context, u *models.User) (*models.User, bool, error)
	LinkDirectoryAccount(ctx context.Context, id uuid.UUID, passwordHash string) error
}

type GroupStore interface {
	ReplaceDirectoryGroups(ctx context.Context, userID uuid.UUID, dns []string) (int, error)
}

type PermissionStore interface {
	HasAnyPermission(ctx context.Context, clientID string) (bool, error)
	UserPermitted(ctx context.Context, clientID string, userID uuid.UUID) (bool, error)
}

type ClientStore interface {
	FindClient(ctx context.Context, clientID string) (*models.Client, error)
}

type CodeStore interface {
	SaveCode(ctx context.Context, code *models.AuthorizationCode) error
	ConsumeCode(ctx context.Context, codeHash, clientID, redirectURI string, now time.Time) (*models.AuthorizationCode, error)
}

type RefreshStore interface {
	SaveRefresh(ctx context.Context, t *models.RefreshToken) error
	RotateRefresh(ctx context.Context, oldHash, clientID string, now time.Time,
		next func(old models.RefreshToken) models.RefreshToken) (*models.RefreshToken, *models.RefreshToken, error)
}

type GrantRecorder interface {
	RecordGrant(ctx context.Context, userID uuid.UUID, clientID string, scopes []string) error
}

type clock func() time.Time

func (c clock) now() time.Time {
	if c == nil {
		return time.Now().UTC()
	}
	return c().UTC()
}
