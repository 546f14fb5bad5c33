package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/Biasolis/sso/internal/audit"
	"github.com/Biasolis/sso/internal/directory"
	"github.com/Biasolis/sso/internal/hash"
	"github.com/Biasolis/sso/internal/models"
	"github.com/Biasolis/sso/internal/repo"
	"github.com/Biasolis/sso/pkg/db"
)

type testEnv struct {
	repo   *repo.GormRepo
	auth   *AuthService
	tokens *TokenService
	codes  *CodeService
	gate   *Gate
	oauth  *OAuthService
}

func newTestEnv(t *testing.T, dir directory.Directory) *testEnv {
	t.Helper()

	ctx := context.Background()
	gdb, err := db.Open(ctx, db.MemoryDSN("svc_"+uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx, gdb))
	t.Cleanup(func() { _ = db.Close(gdb) })

	rp := &repo.GormRepo{DB: gdb}
	tokens := &TokenService{
		Refresh:       rp,
		JWTSecret:     []byte("test-jwt-secret"),
		SessionSecret: []byte("test-session-secret"),
		RefreshScopes: []string{"openid", "profile", "email"},
	}
	codes := &CodeService{Codes: rp}
	gate := &Gate{Permissions: rp}

	env := &testEnv{
		repo:   rp,
		tokens: tokens,
		codes:  codes,
		gate:   gate,
		auth: &AuthService{
			Users:     rp,
			Groups:    &GroupSync{Groups: rp},
			Directory: dir,
			Sessions:  tokens,
		},
		oauth: &OAuthService{
			Clients:     rp,
			Users:       rp,
			Gate:        gate,
			Codes:       codes,
			Tokens:      tokens,
			Audit:       &audit.Recorder{Store: rp},
			FrontendURL: "http://localhost:5173",
		},
	}
	return env
}

func (e *testEnv) seedUser(t *testing.T, email, password string, verified bool) *models.User {
	t.Helper()

	h, err := hash.HashPassword(password)
	require.NoError(t, err)
	u := &models.User{Email: email, PasswordHash: h, Name: "Ana Souza", Verified: verified}
	require.NoError(t, e.repo.CreateUser(context.Background(), u))
	return u
}

func (e *testEnv) seedClient(t *testing.T, clientID string, scopes ...string) *models.Client {
	t.Helper()

	c := &models.Client{
		ClientID:      clientID,
		ClientSecret:  clientID + "-secret",
		Name:          clientID,
		RedirectURIs:  []string{"https://" + clientID + ".example.com/callback"},
		AllowedScopes: scopes,
	}
	require.NoError(t, e.repo.CreateClient(context.Background(), c))
	return c
}

func userGroupIDs(ctx context.Context, r *repo.GormRepo, userID uuid.UUID) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&models.UserGroup{}).
		Where("user_id = ?", userID).
		Order("group_id ASC").
		Pluck("group_id", &ids).Error
	return ids, err
}

func countAccessLogs(ctx context.Context, r *repo.GormRepo, userID uuid.UUID, clientID string) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.AccessLog{}).
		Where("user_id = ? AND client_id = ?", userID, clientID).
		Count(&n).Error
	return n, err
}

func (e *testEnv) session(t *testing.T, u *models.User) string {
	t.Helper()

	tok, _, err := e.tokens.IssueSession(u)
	require.NoError(t, err)
	return tok
}
