package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"github.com/Biasolis/sso/internal/logging"
	"github.com/Biasolis/sso/internal/models"
	"github.com/Biasolis/sso/internal/repo"
	"github.com/Biasolis/sso/internal/scope"
)

// FlowState is where an authorization request stands after a step.
type FlowState string

const (
	StateStart           FlowState = "start"
	StateAwaitingLogin   FlowState = "awaiting_login"
	StateAwaitingConsent FlowState = "awaiting_consent"
	StateCodeIssued      FlowState = "code_issued"
	StateExchanged       FlowState = "exchanged"
	StateDenied          FlowState = "denied"
)

const (
	GrantAuthorizationCode = "authorization_code"
	GrantRefreshToken      = "refresh_token"
)

type AuthorizeRequest struct {
	ResponseType string
	ClientID     string
	RedirectURI  string
	Scope        string
	State        string
	SessionToken string
	// Query is forwarded untouched to the login or consent page.
	Query url.Values
}

type ApproveRequest struct {
	ClientID     string
	RedirectURI  string
	State        string
	SessionToken string
	Scopes       string
}

type TokenRequest struct {
	GrantType    string
	Code         string
	RedirectURI  string
	RefreshToken string
	ClientID     string
	ClientSecret string
}

type FlowResult struct {
	State       FlowState
	RedirectURL string
	ClientID    string
	Scopes      []string
}

type OAuthService struct {
	Clients     ClientStore
	Users       UserStore
	Gate        *Gate
	Codes       *CodeService
	Tokens      *TokenService
	Audit       GrantRecorder
	FrontendURL string
}

func (s *OAuthService) Authorize(ctx context.Context, req AuthorizeRequest) (*FlowResult, error) {
	if req.ResponseType != "code" {
		return nil, clientErr(CodeUnsupportedResponseType, `only response_type "code" is supported`)
	}
	client, scopes, err := s.validateClientRequest(ctx, req.ClientID, req.RedirectURI, req.Scope)
	if err != nil {
		return nil, err
	}

	next, page := StateAwaitingLogin, "/login"
	if req.SessionToken != "" {
		if _, err := s.Tokens.VerifySession(req.SessionToken); err == nil {
			next, page = StateAwaitingConsent, "/consent"
		} else {
			logging.FromContext(ctx).Debug("session_ignored", "error", err)
		}
	}

	target, err := frontendURL(s.FrontendURL, page, req.Query)
	if err != nil {
		return nil, err
	}
	return &FlowResult{State: next, RedirectURL: target, ClientID: client.ClientID, Scopes: scopes}, nil
}

func (s *OAuthService) Approve(ctx context.Context, req ApproveRequest) (*FlowResult, error) {
	l := logging.FromContext(ctx).With("svc", "oauth.approve", "client_id", req.ClientID)

	claims, err := s.Tokens.VerifySession(req.SessionToken)
	if err != nil {
		return nil, err
	}
	client, scopes, err := s.validateClientRequest(ctx, req.ClientID, req.RedirectURI, req.Scopes)
	if err != nil {
		return nil, err
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}
	user, err := s.Users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	decision, err := s.Gate.CheckAccess(ctx, user, client.ClientID)
	if err != nil {
		return nil, err
	}
	if decision == Denied {
		l.Warn("consent_denied", "user_id", user.ID.String())
		target, err := withParams(req.RedirectURI, "error", "access_denied", "state", req.State)
		if err != nil {
			return nil, err
		}
		return &FlowResult{State: StateDenied, RedirectURL: target, ClientID: client.ClientID}, nil
	}

	if err := s.Audit.RecordGrant(ctx, user.ID, client.ClientID, scopes); err != nil {
		return nil, err
	}
	code, err := s.Codes.Issue(ctx, user.ID, client.ClientID, req.RedirectURI, scopes)
	if err != nil {
		return nil, err
	}
	target, err := withParams(req.RedirectURI, "code", code, "state", req.State)
	if err != nil {
		return nil, err
	}
	l.Info("code_issued", "user_id", user.ID.String(), "scopes", scope.Format(scopes))
	return &FlowResult{State: StateCodeIssued, RedirectURL: target, ClientID: client.ClientID, Scopes: scopes}, nil
}

func (s *OAuthService) Exchange(ctx context.Context, req TokenRequest) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "oauth.token", "client_id", req.ClientID, "grant_type", req.GrantType)

	client, err := s.authenticateClient(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		l.Warn("client_auth_failed", "error", err)
		return nil, err
	}

	switch req.GrantType {
	case GrantAuthorizationCode:
		consumed, err := s.Codes.Consume(ctx, req.Code, client.ClientID, req.RedirectURI)
		if err != nil {
			l.Warn("code_rejected", "error", err)
			return nil, err
		}
		pair, err := s.Tokens.IssuePair(ctx, consumed.UserID, client.ClientID, consumed.Scopes)
		if err != nil {
			return nil, err
		}
		l.Info("tokens_issued", "user_id", consumed.UserID.String())
		return pair, nil
	case GrantRefreshToken:
		pair, err := s.Tokens.Redeem(ctx, req.RefreshToken, client)
		if err != nil {
			return nil, err
		}
		l.Info("tokens_refreshed", "user_id", pair.UserID.String())
		return pair, nil
	case "":
		return nil, clientErr(CodeInvalidRequest, "grant_type is required")
	default:
		return nil, clientErr(CodeUnsupportedGrantType, fmt.Sprintf("grant_type %q is not supported", req.GrantType))
	}
}

func (s *OAuthService) UserInfo(ctx context.Context, bearer string) (map[string]any, error) {
	claims, err := s.Tokens.VerifyAccess(bearer)
	if err != nil {
		return nil, err
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrInvalidToken
	}
	user, err := s.Users.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	return scope.FilterClaims(scope.Subject{
		ID:    user.ID.String(),
		Name:  user.Name,
		Email: user.Email,
	}, claims.Scopes), nil
}

func (s *OAuthService) validateClientRequest(ctx context.Context, clientID, redirectURI, scopeStr string) (*models.Client, []string, error) {
	if clientID == "" {
		return nil, nil, clientErr(CodeInvalidRequest, "client_id is required")
	}
	if redirectURI == "" {
		return nil, nil, clientErr(CodeInvalidRequest, "redirect_uri is required")
	}
	client, err := s.Clients.FindClient(ctx, clientID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, nil, clientErr(CodeUnauthorizedClient, "unknown client")
		}
		return nil, nil, fmt.Errorf("load client: %w", err)
	}
	if !scope.Contains(client.RedirectURIs, redirectURI) {
		return nil, nil, clientErr(CodeInvalidRequest, "redirect_uri is not registered for this client")
	}
	scopes, err := scope.ValidateRequested(client.AllowedScopes, scopeStr)
	if err != nil {
		var ise *scope.InvalidScopeError
		if errors.As(err, &ise) {
			return nil, nil, clientErr(CodeInvalidScope, ise.Error())
		}
		return nil, nil, err
	}
	return client, scopes, nil
}

func (s *OAuthService) authenticateClient(ctx context.Context, clientID, secret string) (*models.Client, error) {
	if clientID == "" || secret == "" {
		return nil, ErrInvalidClient
	}
	client, err := s.Clients.FindClient(ctx, clientID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrInvalidClient
		}
		return nil, fmt.Errorf("load client: %w", err)
	}
	if subtle.ConstantTimeCompare([]byte(client.ClientSecret), []byte(secret)) != 1 {
		return nil, ErrInvalidClient
	}
	return client, nil
}

func frontendURL(base, page string, query url.Values) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("frontend url: %w", err)
	}
	u.Path = strings.TrimRight(u.Path, "/") + page
	u.RawQuery = query.Encode()
	return u.String(), nil
}

// withParams sets kv pairs on raw's query, skipping empty values.
func withParams(raw string, kv ...string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", clientErr(CodeInvalidRequest, "redirect_uri is not a valid url")
	}
	q := u.Query()
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] != "" {
			q.Set(kv[i], kv[i+1])
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
