package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Biasolis/sso/pkg/tokens"
)

const (
	CtxUserID = "user_id"
	CtxEmail  = "email"
)

type SessionVerifier interface {
	VerifySession(token string) (*tokens.SessionClaims, error)
}

type SessionAuth struct {
	Verifier      SessionVerifier
	SecureCookies bool
}

func NewSessionAuth(v SessionVerifier, secureCookies bool) *SessionAuth {
	return &SessionAuth{Verifier: v, SecureCookies: secureCookies}
}

// BearerToken returns the token of an "Authorization: Bearer" header.
func BearerToken(c echo.Context) string {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// SessionToken looks in the Authorization header first, then the session cookie.
func SessionToken(c echo.Context) string {
	if tok := BearerToken(c); tok != "" {
		return tok
	}
	if ck, err := c.Cookie(SessionCookie); err == nil {
		return ck.Value
	}
	return ""
}

func (m *SessionAuth) RequireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tok := SessionToken(c)
		if tok == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing session token")
		}

		claims, err := m.Verifier.VerifySession(tok)
		if err != nil || claims == nil {
			c.SetCookie(DeleteCookie(SessionCookie, "/", m.SecureCookies))
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired session")
		}

		c.Set(CtxUserID, claims.Subject)
		c.Set(CtxEmail, claims.Email)

		return next(c)
	}
}
