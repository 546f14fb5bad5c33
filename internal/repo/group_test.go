package repo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Biasolis/sso/internal/models"
)

func TestReplaceDirectoryGroups(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, r, "g@example.com", true)

	eng := &models.Group{Name: "engineering", DirectoryDN: strPtr("CN=Engineering,OU=Groups,DC=corp")}
	ops := &models.Group{Name: "ops", DirectoryDN: strPtr("cn=ops,ou=groups,dc=corp")}
	local := &models.Group{Name: "beta-testers"}
	for _, g := range []*models.Group{eng, ops, local} {
		require.NoError(t, r.CreateGroup(ctx, g))
	}
	require.NoError(t, r.AddUserToGroup(ctx, u.ID, local.ID))
	require.NoError(t, r.AddUserToGroup(ctx, u.ID, ops.ID))

	n, err := r.ReplaceDirectoryGroups(ctx, u.ID, []string{"cn=engineering,ou=groups,dc=corp", "cn=unknown,dc=corp"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ids, err := userGroupIDs(ctx, r, u.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{eng.ID, local.ID}, ids)

	// running it again changes nothing
	n, err = r.ReplaceDirectoryGroups(ctx, u.ID, []string{"CN=ENGINEERING,OU=GROUPS,DC=CORP"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	again, err := userGroupIDs(ctx, r, u.ID)
	require.NoError(t, err)
	assert.Equal(t, ids, again)

	n, err = r.ReplaceDirectoryGroups(ctx, u.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	ids, err = userGroupIDs(ctx, r, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{local.ID}, ids)
}

func TestReplaceDirectoryGroups_DuplicateDNs(t *testing.T) {
	t.Parallel()

	r := newTestRepo(t)
	ctx := context.Background()
	u := seedUser(t, r, "d@example.com", true)
	g := &models.Group{Name: "eng", DirectoryDN: strPtr("cn=eng,dc=corp")}
	require.NoError(t, r.CreateGroup(ctx, g))

	_, err := r.ReplaceDirectoryGroups(ctx, u.ID, []string{"cn=eng,dc=corp", "CN=eng,dc=corp"})
	require.NoError(t, err)

	ids, err := userGroupIDs(ctx, r, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{g.ID}, ids)
}
