package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Biasolis/sso/internal/directory"
	"github.com/Biasolis/sso/internal/events"
	"github.com/Biasolis/sso/internal/hash"
	"github.com/Biasolis/sso/internal/logging"
	"github.com/Biasolis/sso/internal/models"
	"github.com/Biasolis/sso/internal/repo"
)

type AuthResult struct {
	User         *models.User
	ViaDirectory bool
}

type LoginResult struct {
	AuthResult
	SessionToken string
	ExpiresAt    time.Time
}

type SessionSigner interface {
	IssueSession(u *models.User) (string, time.Time, error)
}

// AuthService checks credentials locally first and then against the
// directory, provisioning local accounts for directory users on first login.
type AuthService struct {
	Users     UserStore
	Groups    *GroupSync
	Directory directory.Directory
	// ActivationGroupDN, when set, is required of directory users who have
	// no local account yet.
	ActivationGroupDN string
	Sessions          SessionSigner
	Events            events.Publisher
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Authenticate(ctx context.Context, email, password string) (*AuthResult, error) {
	email = NormalizeEmail(email)
	l := logging.FromContext(ctx).With("svc", "auth.authenticate", "email", email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	local, err := s.Users.FindUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repo.ErrNotFound) {
			return nil, fmt.Errorf("find user: %w", err)
		}
		local = nil
	}

	if local != nil && hash.CheckPassword(local.PasswordHash, password) {
		if !local.Verified {
			l.Warn("login_failed", "reason", "not verified")
			return nil, ErrNotVerified
		}
		return &AuthResult{User: local}, nil
	}

	if s.Directory == nil {
		return nil, ErrInvalidCredentials
	}

	ident, err := s.Directory.Authenticate(ctx, directory.Username(email), password)
	if err != nil {
		if errors.Is(err, directory.ErrRejected) {
			return nil, ErrInvalidCredentials
		}
		l.Error("directory_unavailable", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrDirectoryUnavailable, err)
	}

	if local == nil {
		if s.ActivationGroupDN != "" && !directory.InGroup(ident.Groups, s.ActivationGroupDN) {
			l.Warn("login_failed", "reason", "not in activation group", "dn", ident.DN)
			return nil, ErrAccessDenied
		}
		local, err = s.provision(ctx, email, ident)
		if err != nil {
			return nil, err
		}
	} else {
		if s.ActivationGroupDN != "" {
			l.Info("activation_group_check_skipped", "reason", "local account exists", "user_id", local.ID.String())
		}
		if !local.Verified {
			// An unverified local password is retired once the directory
			// vouches for the email.
			pwHash, err := hash.UnusableHash()
			if err != nil {
				return nil, fmt.Errorf("unusable hash: %w", err)
			}
			if err := s.Users.LinkDirectoryAccount(ctx, local.ID, pwHash); err != nil {
				return nil, fmt.Errorf("link directory account: %w", err)
			}
			local.Verified = true
			local.PasswordHash = pwHash
			l.Info("directory_account_linked", "user_id", local.ID.String())
		}
	}

	if s.Groups != nil {
		if err := s.Groups.Sync(ctx, local.ID, ident.Groups); err != nil {
			l.Warn("group_sync_failed", "user_id", local.ID.String(), "error", err)
		}
	}

	return &AuthResult{User: local, ViaDirectory: true}, nil
}

func (s *AuthService) provision(ctx context.Context, email string, ident *directory.Identity) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.provision", "email", email)

	pwHash, err := hash.UnusableHash()
	if err != nil {
		return nil, fmt.Errorf("unusable hash: %w", err)
	}
	name := ident.Name
	if name == "" {
		name = directory.Username(email)
	}

	user, created, err := s.Users.CreateUserIfNotExists(ctx, &models.User{
		Email:        email,
		PasswordHash: pwHash,
		Name:         name,
		Verified:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("provision user: %w", err)
	}
	if created {
		l.Info("user_provisioned", "user_id", user.ID.String())
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login", "email", NormalizeEmail(email))

	res, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}

	token, exp, err := s.Sessions.IssueSession(res.User)
	if err != nil {
		l.Error("login_failed", "status", 500, "error", err)
		return nil, fmt.Errorf("issue session: %w", err)
	}

	source := "local"
	if res.ViaDirectory {
		source = "directory"
	}
	s.publish(ctx, events.Event{
		Type:   events.TypeUserLoggedIn,
		UserID: res.User.ID.String(),
		Email:  res.User.Email,
		Source: source,
	})
	l.Info("login_successful", "user_id", res.User.ID.String(), "source", source)

	return &LoginResult{AuthResult: *res, SessionToken: token, ExpiresAt: exp}, nil
}

// Signup creates an unverified local account.
func (s *AuthService) Signup(ctx context.Context, email, password, name string) (*models.User, error) {
	email = NormalizeEmail(email)
	l := logging.FromContext(ctx).With("svc", "auth.signup", "email", email)
	if email == "" || password == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidInput
	}

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		l.Error("signup_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, err
	}
	user := &models.User{
		Email:        email,
		PasswordHash: pwHash,
		Name:         strings.TrimSpace(name),
	}
	if err := s.Users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			l.Warn("signup_error", "status", 409, "reason", "user already exist")
			return nil, ErrConflict
		}
		l.Error("signup_error", "status", 500, "error", err)
		return nil, err
	}

	s.publish(ctx, events.Event{Type: events.TypeUserSignedUp, UserID: user.ID.String(), Email: user.Email})
	l.Info("signup_successful", "user_id", user.ID.String())
	return user, nil
}

func (s *AuthService) publish(ctx context.Context, e events.Event) {
	if s.Events == nil {
		return
	}
	if err := s.Events.PublishEvent(ctx, e.UserID, e); err != nil {
		logging.FromContext(ctx).Warn("event_publish_failed", "type", e.Type, "error", err)
	}
}
