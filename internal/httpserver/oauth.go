package httpserver

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Biasolis/sso/internal/logging"
	"github.com/Biasolis/sso/internal/metrics"
	authmw "github.com/Biasolis/sso/internal/middleware/auth"
	loggingmw "github.com/Biasolis/sso/internal/middleware/logging"
	"github.com/Biasolis/sso/internal/scope"
	"github.com/Biasolis/sso/internal/service"
)

type OAuthHTTP struct {
	Svc     *service.OAuthService
	Metrics *metrics.Metrics
}

func parseUUID(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}

// clientFailure answers ClientError with a 400 body; nothing is redirected.
func clientFailure(c echo.Context, err error) error {
	var ce *service.ClientError
	if errors.As(err, &ce) {
		return writeOAuthError(c, http.StatusBadRequest, ce.Code, ce.Description)
	}
	logging.FromContext(c.Request().Context()).Error("oauth_error", "error", err)
	return serverError(c)
}

func (h *OAuthHTTP) Authorize(c echo.Context) error {
	q := c.QueryParams()
	res, err := h.Svc.Authorize(c.Request().Context(), service.AuthorizeRequest{
		ResponseType: q.Get("response_type"),
		ClientID:     q.Get("client_id"),
		RedirectURI:  q.Get("redirect_uri"),
		Scope:        q.Get("scope"),
		State:        q.Get("state"),
		SessionToken: authmw.SessionToken(c),
		Query:        q,
	})
	if err != nil {
		return clientFailure(c, err)
	}
	return c.Redirect(http.StatusFound, res.RedirectURL)
}

type approveRequest struct {
	ClientID     string `json:"client_id"`
	RedirectURI  string `json:"redirect_uri"`
	State        string `json:"state"`
	SessionToken string `json:"session_token"`
	Scopes       string `json:"scopes"`
}

func (h *OAuthHTTP) Approve(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "oauth_approve")

	var req approveRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("approve_error", "status", 400, "error", err)
		return writeOAuthError(c, http.StatusBadRequest, service.CodeInvalidRequest, "invalid body")
	}
	if req.SessionToken == "" {
		req.SessionToken = authmw.SessionToken(c)
	}

	res, err := h.Svc.Approve(ctx, service.ApproveRequest{
		ClientID:     req.ClientID,
		RedirectURI:  req.RedirectURI,
		State:        req.State,
		SessionToken: req.SessionToken,
		Scopes:       req.Scopes,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			return writeOAuthError(c, http.StatusUnauthorized, "invalid_token", "session token is invalid or expired")
		}
		return clientFailure(c, err)
	}

	decision := service.Allowed
	if res.State == service.StateDenied {
		decision = service.Denied
	}
	h.Metrics.ObserveDecision(res.ClientID, decision.String())
	return c.JSON(http.StatusOK, echo.Map{"redirectUrl": res.RedirectURL})
}

type tokenRequest struct {
	GrantType    string `json:"grant_type"    form:"grant_type"`
	Code         string `json:"code"          form:"code"`
	RedirectURI  string `json:"redirect_uri"  form:"redirect_uri"`
	RefreshToken string `json:"refresh_token" form:"refresh_token"`
	ClientID     string `json:"client_id"     form:"client_id"`
	ClientSecret string `json:"client_secret" form:"client_secret"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	Scope        string `json:"scope"`
}

func (h *OAuthHTTP) Token(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "oauth_token")

	var req tokenRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("token_error", "status", 400, "error", err)
		return writeOAuthError(c, http.StatusBadRequest, service.CodeInvalidRequest, "invalid body")
	}
	usedBasic := false
	if id, secret, ok := c.Request().BasicAuth(); ok && req.ClientID == "" && req.ClientSecret == "" {
		req.ClientID, req.ClientSecret, usedBasic = id, secret, true
	}

	c.Response().Header().Set("Cache-Control", "no-store")
	c.Response().Header().Set("Pragma", "no-cache")

	pair, err := h.Svc.Exchange(ctx, service.TokenRequest{
		GrantType:    req.GrantType,
		Code:         req.Code,
		RedirectURI:  req.RedirectURI,
		RefreshToken: req.RefreshToken,
		ClientID:     req.ClientID,
		ClientSecret: req.ClientSecret,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidGrant):
			h.Metrics.ObserveToken(req.GrantType, "invalid_grant")
			return writeOAuthError(c, http.StatusBadRequest, "invalid_grant", invalidGrantDescription)
		case errors.Is(err, service.ErrInvalidClient):
			h.Metrics.ObserveToken(req.GrantType, "invalid_client")
			if usedBasic {
				c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Basic realm="sso"`)
			}
			return writeOAuthError(c, http.StatusUnauthorized, "invalid_client", "client authentication failed")
		default:
			h.Metrics.ObserveToken(req.GrantType, "error")
			return clientFailure(c, err)
		}
	}

	h.Metrics.ObserveToken(req.GrantType, "success")
	c.Set(loggingmw.CtxUserID, pair.UserID.String())
	l.Info("grant_exchanged", "state", string(service.StateExchanged), "client_id", req.ClientID)
	return c.JSON(http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    pair.ExpiresIn,
		Scope:        scope.Format(pair.Scopes),
	})
}

func (h *OAuthHTTP) UserInfo(c echo.Context) error {
	claims, err := h.Svc.UserInfo(c.Request().Context(), authmw.BearerToken(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidToken):
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Bearer error="invalid_token"`)
			return writeOAuthError(c, http.StatusUnauthorized, "invalid_token", "access token is invalid or expired")
		case errors.Is(err, service.ErrUserNotFound):
			return writeOAuthError(c, http.StatusNotFound, "user_not_found", "")
		default:
			return clientFailure(c, err)
		}
	}
	if sub, ok := claims["sub"].(string); ok {
		c.Set(loggingmw.CtxUserID, sub)
	}
	return c.JSON(http.StatusOK, claims)
}
