package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Biasolis/sso/internal/events"
	"github.com/Biasolis/sso/internal/hash"
	"github.com/Biasolis/sso/internal/logging"
	"github.com/Biasolis/sso/internal/models"
	"github.com/Biasolis/sso/internal/repo"
	"github.com/Biasolis/sso/internal/scope"
	"github.com/Biasolis/sso/pkg/tokens"
)

const (
	AccessTTL    = time.Hour
	RefreshTTL   = 30 * 24 * time.Hour
	SessionTTL   = 8 * time.Hour
	refreshBytes = 32
)

type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
	Scopes       []string
	UserID       uuid.UUID
}

type TokenService struct {
	Refresh       RefreshStore
	JWTSecret     []byte
	SessionSecret []byte
	// RefreshScopes is what a refresh grant reissues unless PreserveScopes
	// is set, in which case the scopes stored with the token are kept.
	RefreshScopes  []string
	PreserveScopes bool
	Events         events.Publisher
	Now            func() time.Time
}

func (s *TokenService) IssuePair(ctx context.Context, userID uuid.UUID, clientID string, scopes []string) (*TokenPair, error) {
	now := clock(s.Now).now()
	raw, row, err := s.newRefresh(userID, clientID, scopes, now)
	if err != nil {
		return nil, err
	}
	if err := s.Refresh.SaveRefresh(ctx, row); err != nil {
		return nil, fmt.Errorf("save refresh token: %w", err)
	}
	return s.pair(userID, clientID, scopes, raw, now)
}

// Redeem rotates a refresh token. The presented token is revoked whether or
// not it is ever presented again, so replays fail.
func (s *TokenService) Redeem(ctx context.Context, refreshToken string, client *models.Client) (*TokenPair, error) {
	if refreshToken == "" {
		return nil, ErrInvalidGrant
	}
	l := logging.FromContext(ctx).With("svc", "tokens.redeem", "client_id", client.ClientID)
	now := clock(s.Now).now()

	raw, err := hash.RandomHex(refreshBytes)
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}

	var granted []string
	_, repl, err := s.Refresh.RotateRefresh(ctx, hash.Sha256Hex(refreshToken), client.ClientID, now,
		func(old models.RefreshToken) models.RefreshToken {
			granted = s.refreshScopes(old.Scopes, client.AllowedScopes)
			return models.RefreshToken{
				TokenHash: hash.Sha256Hex(raw),
				UserID:    old.UserID,
				ClientID:  old.ClientID,
				Scopes:    granted,
				ExpiresAt: now.Add(RefreshTTL),
				CreatedAt: now,
			}
		})
	if err != nil {
		if errors.Is(err, repo.ErrUnusable) {
			l.Warn("refresh_rejected")
			return nil, ErrInvalidGrant
		}
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}

	if s.Events != nil {
		if err := s.Events.PublishEvent(ctx, repl.UserID.String(), events.Event{
			Type:     events.TypeTokenRotated,
			UserID:   repl.UserID.String(),
			ClientID: client.ClientID,
			Scopes:   granted,
			At:       now,
		}); err != nil {
			l.Warn("event_publish_failed", "error", err)
		}
	}
	return s.pair(repl.UserID, client.ClientID, granted, raw, now)
}

func (s *TokenService) refreshScopes(stored, allowed []string) []string {
	if s.PreserveScopes {
		if stored == nil {
			return []string{}
		}
		return stored
	}
	return scope.Intersect(s.RefreshScopes, allowed)
}

func (s *TokenService) newRefresh(userID uuid.UUID, clientID string, scopes []string, now time.Time) (string, *models.RefreshToken, error) {
	raw, err := hash.RandomHex(refreshBytes)
	if err != nil {
		return "", nil, fmt.Errorf("generate refresh token: %w", err)
	}
	if scopes == nil {
		scopes = []string{}
	}
	return raw, &models.RefreshToken{
		TokenHash: hash.Sha256Hex(raw),
		UserID:    userID,
		ClientID:  clientID,
		Scopes:    scopes,
		ExpiresAt: now.Add(RefreshTTL),
		CreatedAt: now,
	}, nil
}

func (s *TokenService) pair(userID uuid.UUID, clientID string, scopes []string, refresh string, now time.Time) (*TokenPair, error) {
	access, err := tokens.SignAccess(s.JWTSecret, userID.String(), clientID, scopes, now, AccessTTL)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(AccessTTL / time.Second),
		Scopes:       scopes,
		UserID:       userID,
	}, nil
}

func (s *TokenService) VerifyAccess(token string) (*tokens.AccessClaims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	claims, err := tokens.AccessClaimsFromToken(token, s.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return claims, nil
}

func (s *TokenService) IssueSession(u *models.User) (string, time.Time, error) {
	now := clock(s.Now).now()
	exp := now.Add(SessionTTL)
	tok, err := tokens.SignSession(s.SessionSecret, u.ID.String(), u.Email, now, SessionTTL)
	if err != nil {
		return "", time.Time{}, err
	}
	return tok, exp, nil
}

func (s *TokenService) VerifySession(token string) (*tokens.SessionClaims, error) {
	if token == "" {
		return nil, ErrInvalidToken
	}
	claims, err := tokens.SessionClaimsFromToken(token, s.SessionSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	return claims, nil
}
