package repo

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Biasolis/sso/internal/models"
	"github.com/Biasolis/sso/pkg/db"
)

func newTestRepo(t *testing.T) *GormRepo {
	t.Helper()

	ctx := context.Background()
	gdb, err := db.Open(ctx, db.MemoryDSN("repo_"+uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx, gdb))
	t.Cleanup(func() { _ = db.Close(gdb) })

	return &GormRepo{DB: gdb}
}

func seedUser(t *testing.T, r *GormRepo, email string, verified bool) *models.User {
	t.Helper()

	u := &models.User{Email: email, PasswordHash: "x", Name: "Test User", Verified: verified}
	require.NoError(t, r.CreateUser(context.Background(), u))
	return u
}

func strPtr(s string) *string { return &s }

func userGroupIDs(ctx context.Context, r *GormRepo, userID uuid.UUID) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&models.UserGroup{}).
		Where("user_id = ?", userID).
		Order("group_id ASC").
		Pluck("group_id", &ids).Error
	return ids, err
}

func findRefresh(ctx context.Context, r *GormRepo, tokenHash string) (*models.RefreshToken, error) {
	var t models.RefreshToken
	if err := r.DB.WithContext(ctx).Where("token_hash = ?", tokenHash).First(&t).Error; err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func countAccessLogs(ctx context.Context, r *GormRepo, userID uuid.UUID, clientID string) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.AccessLog{}).
		Where("user_id = ? AND client_id = ?", userID, clientID).
		Count(&n).Error
	return n, err
}
