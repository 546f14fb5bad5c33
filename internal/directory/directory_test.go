package directory

import (
	"context"
	"testing"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsername(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "joao.silva", Username("joao.silva@corp.example.com"))
	assert.Equal(t, "joao", Username(" joao "))
	assert.Equal(t, "a@b", Username("a@b@c"))
}

func TestInGroup(t *testing.T) {
	t.Parallel()

	groups := []string{"CN=SSO Users,OU=Groups,DC=corp,DC=example", "cn=admins,dc=corp,dc=example"}
	assert.True(t, InGroup(groups, "cn=sso users,ou=groups,dc=corp,dc=example"))
	assert.True(t, InGroup(groups, " CN=Admins,DC=corp,DC=example "))
	assert.False(t, InGroup(groups, "cn=other,dc=corp,dc=example"))
	assert.False(t, InGroup(groups, ""))
	assert.False(t, InGroup(nil, "cn=admins,dc=corp,dc=example"))
}

func TestUserFilter_EscapesInput(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "(sAMAccountName=joao)", userFilter("sAMAccountName", "joao"))
	assert.Equal(t, `(uid=\2a\29\28cn=\2a)`, userFilter("uid", "*)(cn=*"))
}

func TestIdentityFromEntry(t *testing.T) {
	t.Parallel()

	e := ldap.NewEntry("cn=joao,dc=corp,dc=example", map[string][]string{
		"mail":      {"Joao.Silva@Corp.Example"},
		"givenName": {"Joao"},
		"sn":        {"Silva"},
		"memberOf":  {"cn=a,dc=corp", "cn=b,dc=corp"},
	})
	id := identityFromEntry(e, "joao")
	assert.Equal(t, "cn=joao,dc=corp,dc=example", id.DN)
	assert.Equal(t, "joao.silva@corp.example", id.Email)
	assert.Equal(t, "Joao Silva", id.Name)
	assert.Equal(t, []string{"cn=a,dc=corp", "cn=b,dc=corp"}, id.Groups)

	bare := identityFromEntry(ldap.NewEntry("cn=x", nil), "x")
	assert.Equal(t, "x", bare.Name)
	assert.Empty(t, bare.Groups)
}

func TestLDAP_EmptyPasswordRejectedWithoutDialing(t *testing.T) {
	t.Parallel()

	d := NewLDAP(LDAPConfig{URL: "ldap://127.0.0.1:1", SearchBase: "dc=x"}, nil)
	_, err := d.Authenticate(context.Background(), "joao", "")
	assert.ErrorIs(t, err, ErrRejected)
}

func TestLDAP_UnreachableIsUnavailable(t *testing.T) {
	t.Parallel()

	d := NewLDAP(LDAPConfig{URL: "ldap://127.0.0.1:1", SearchBase: "dc=x", Timeout: 500 * time.Millisecond}, nil)
	_, err := d.Authenticate(context.Background(), "joao", "secret")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.NotErrorIs(t, err, ErrRejected)
}
