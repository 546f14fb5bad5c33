// Package directory verifies credentials against an enterprise directory.
package directory

import (
	"context"
	"errors"
	"strings"
)

//go:generate mockgen -destination=mocks/mock_directory.go -package=mocks -source=directory.go Directory

var (
	// ErrRejected means the directory answered and refused the credentials,
	// including the case where no entry matches the username.
	ErrRejected = errors.New("directory rejected credentials")
	// ErrUnavailable means the directory could not be asked at all.
	ErrUnavailable = errors.New("directory unavailable")
)

type Identity struct {
	DN     string
	Email  string
	Name   string
	Groups []string
}

type Directory interface {
	Authenticate(ctx context.Context, username, password string) (*Identity, error)
}

// Username derives the directory login name from an email address.
func Username(email string) string {
	email = strings.TrimSpace(email)
	if i := strings.LastIndex(email, "@"); i >= 0 {
		return email[:i]
	}
	return email
}

// InGroup compares DNs case-insensitively.
func InGroup(groups []string, dn string) bool {
	dn = normalizeDN(dn)
	if dn == "" {
		return false
	}
	for _, g := range groups {
		if normalizeDN(g) == dn {
			return true
		}
	}
	return false
}

func normalizeDN(dn string) string {
	return strings.ToLower(strings.TrimSpace(dn))
}
