package scope

import (
	"fmt"
	"sort"
	"strings"
)

const (
	OpenID  = "openid"
	Profile = "profile"
	Email   = "email"
)

// InvalidScopeError names every requested scope the client may not ask for.
type InvalidScopeError struct {
	Scopes []string
}

func (e *InvalidScopeError) Error() string {
	return fmt.Sprintf("invalid scope: %s", strings.Join(e.Scopes, " "))
}

// Parse splits a space-delimited scope string into a sorted, de-duplicated list.
func Parse(s string) []string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return []string{}
	}
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func Format(scopes []string) string {
	return strings.Join(scopes, " ")
}

func Contains(scopes []string, s string) bool {
	for _, v := range scopes {
		if v == s {
			return true
		}
	}
	return false
}

// ValidateRequested returns the requested scopes when every one of them is in allowed.
func ValidateRequested(allowed []string, requested string) ([]string, error) {
	scopes := Parse(requested)
	var bad []string
	for _, s := range scopes {
		if !Contains(allowed, s) {
			bad = append(bad, s)
		}
	}
	if len(bad) > 0 {
		return nil, &InvalidScopeError{Scopes: bad}
	}
	return scopes, nil
}

// Intersect keeps the scopes of want that also appear in allowed, sorted.
func Intersect(want, allowed []string) []string {
	out := make([]string, 0, len(want))
	for _, s := range Parse(Format(want)) {
		if Contains(allowed, s) {
			out = append(out, s)
		}
	}
	return out
}

// Subject is the part of a user the claim filter releases.
type Subject struct {
	ID    string
	Name  string
	Email string
}

// FilterClaims releases sub always, name with profile and email with email.
// Scopes it does not know are ignored.
func FilterClaims(u Subject, granted []string) map[string]any {
	claims := map[string]any{"sub": u.ID}
	if Contains(granted, Profile) {
		claims["name"] = u.Name
	}
	if Contains(granted, Email) {
		claims["email"] = u.Email
	}
	return claims
}
