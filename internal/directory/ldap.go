package directory

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
)

type LDAPConfig struct {
	URL           string
	BindDN        string
	BindPassword  string
	SearchBase    string
	UserAttribute string
	Timeout       time.Duration
}

// LDAP is a Directory backed by one service account. Each call opens its own
// connection so the bridge holds no shared state between logins.
type LDAP struct {
	cfg LDAPConfig
	log *slog.Logger
}

func NewLDAP(cfg LDAPConfig, log *slog.Logger) *LDAP {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.UserAttribute == "" {
		cfg.UserAttribute = "sAMAccountName"
	}
	if log == nil {
		log = slog.Default()
	}
	return &LDAP{cfg: cfg, log: log.With("component", "ldap")}
}

var searchAttributes = []string{"dn", "mail", "givenName", "sn", "displayName", "memberOf"}

func (d *LDAP) Authenticate(ctx context.Context, username, password string) (*Identity, error) {
	username = strings.TrimSpace(username)
	// An empty password would turn the user bind into an unauthenticated bind.
	if username == "" || password == "" {
		return nil, ErrRejected
	}

	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	conn, err := ldap.DialURL(d.cfg.URL, ldap.DialWithDialer(&net.Dialer{Timeout: d.cfg.Timeout}))
	if err != nil {
		d.log.Error("ldap_dial_failed", "error", err)
		return nil, fmt.Errorf("%w: dial: %w", ErrUnavailable, err)
	}
	defer conn.Close()
	conn.SetTimeout(d.cfg.Timeout)
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := conn.Bind(d.cfg.BindDN, d.cfg.BindPassword); err != nil {
		d.log.Error("ldap_service_bind_failed", "error", err)
		return nil, d.unavailable(ctx, "service bind", err)
	}

	req := ldap.NewSearchRequest(
		d.cfg.SearchBase,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases,
		2, int(d.cfg.Timeout/time.Second), false,
		userFilter(d.cfg.UserAttribute, username),
		searchAttributes,
		nil,
	)
	res, err := conn.Search(req)
	if err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultSizeLimitExceeded) {
			d.log.Warn("ldap_ambiguous_user", "username", username)
			return nil, ErrRejected
		}
		d.log.Error("ldap_search_failed", "error", err)
		return nil, d.unavailable(ctx, "search", err)
	}
	if len(res.Entries) != 1 {
		return nil, ErrRejected
	}
	entry := res.Entries[0]

	if err := conn.Bind(entry.DN, password); err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultInvalidCredentials) {
			return nil, ErrRejected
		}
		d.log.Error("ldap_user_bind_failed", "dn", entry.DN, "error", err)
		return nil, d.unavailable(ctx, "user bind", err)
	}

	return identityFromEntry(entry, username), nil
}

func (d *LDAP) unavailable(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, ctxErr)
	}
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}

func userFilter(attr, username string) string {
	return fmt.Sprintf("(%s=%s)", ldap.EscapeFilter(attr), ldap.EscapeFilter(username))
}

func identityFromEntry(e *ldap.Entry, username string) *Identity {
	name := strings.TrimSpace(e.GetAttributeValue("displayName"))
	if name == "" {
		name = strings.TrimSpace(e.GetAttributeValue("givenName") + " " + e.GetAttributeValue("sn"))
	}
	if name == "" {
		name = username
	}
	return &Identity{
		DN:     e.DN,
		Email:  strings.ToLower(strings.TrimSpace(e.GetAttributeValue("mail"))),
		Name:   name,
		Groups: e.GetAttributeValues("memberOf"),
	}
}

var _ Directory = (*LDAP)(nil)
