package service

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/Biasolis/sso/internal/hash"
	"github.com/Biasolis/sso/internal/models"
)

func TestCodes_IssueAndConsumeOnce(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	ctx := context.Background()
	u := env.seedUser(t, "c@example.com", "pw", true)

	code, err := env.codes.Issue(ctx, u.ID, "c1", "https://c1.example.com/callback", []string{"openid"})
	require.NoError(t, err)
	assert.Len(t, code, 64)

	var stored models.AuthorizationCode
	require.NoError(t, env.repo.DB.First(&stored).Error)
	assert.Equal(t, hash.Sha256Hex(code), stored.CodeHash)
	assert.WithinDuration(t, time.Now().Add(CodeTTL), stored.ExpiresAt, 5*time.Second)

	got, err := env.codes.Consume(ctx, code, "c1", "https://c1.example.com/callback")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.UserID)
	assert.Equal(t, []string{"openid"}, got.Scopes)

	_, err = env.codes.Consume(ctx, code, "c1", "https://c1.example.com/callback")
	assert.ErrorIs(t, err, ErrInvalidGrant)
}

func TestCodes_ConsumeFailuresAreGeneric(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	ctx := context.Background()
	u := env.seedUser(t, "c@example.com", "pw", true)
	code, err := env.codes.Issue(ctx, u.ID, "c1", "https://c1.example.com/callback", nil)
	require.NoError(t, err)

	late := &CodeService{Codes: env.repo, Now: func() time.Time { return time.Now().Add(CodeTTL + time.Second) }}

	cases := map[string]func() error{
		"empty":        func() error { _, err := env.codes.Consume(ctx, "", "c1", "https://c1.example.com/callback"); return err },
		"unknown":      func() error { _, err := env.codes.Consume(ctx, "deadbeef", "c1", "https://c1.example.com/callback"); return err },
		"other client": func() error { _, err := env.codes.Consume(ctx, code, "c2", "https://c1.example.com/callback"); return err },
		"other uri":    func() error { _, err := env.codes.Consume(ctx, code, "c1", "https://c1.example.com/other"); return err },
		"expired":      func() error { _, err := late.Consume(ctx, code, "c1", "https://c1.example.com/callback"); return err },
	}
	for name, fn := range cases {
		err := fn()
		assert.ErrorIs(t, err, ErrInvalidGrant, name)
		assert.Equal(t, ErrInvalidGrant, err, name)
	}
}

func TestCodes_ConcurrentConsumeSingleWinner(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	ctx := context.Background()
	u := env.seedUser(t, "c@example.com", "pw", true)
	code, err := env.codes.Issue(ctx, u.ID, "c1", "https://c1.example.com/callback", []string{"openid"})
	require.NoError(t, err)

	var wins, grants atomic.Int32
	var g errgroup.Group
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			_, err := env.codes.Consume(ctx, code, "c1", "https://c1.example.com/callback")
			if err == nil {
				wins.Add(1)
				return nil
			}
			if err == ErrInvalidGrant {
				grants.Add(1)
				return nil
			}
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.EqualValues(t, 1, wins.Load())
	assert.EqualValues(t, 7, grants.Load())
}
