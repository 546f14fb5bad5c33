package httpserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Biasolis/sso/internal/logging"
	"github.com/Biasolis/sso/internal/metrics"
	authmw "github.com/Biasolis/sso/internal/middleware/auth"
	loggingmw "github.com/Biasolis/sso/internal/middleware/logging"
	"github.com/Biasolis/sso/internal/models"
	"github.com/Biasolis/sso/internal/repo"
	"github.com/Biasolis/sso/internal/service"
)

type AuthHTTP struct {
	Svc           *service.AuthService
	Users         service.UserStore
	Metrics       *metrics.Metrics
	SecureCookies bool
}

type userView struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	IsSuperadmin bool   `json:"is_superadmin"`
}

func viewOf(u *models.User) userView {
	return userView{ID: u.ID.String(), Email: u.Email, Name: u.Name, IsSuperadmin: u.Superadmin}
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req struct {
		Email    string `json:"email"    form:"email"`
		Password string `json:"password" form:"password"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("login_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if req.Email == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "email and password are required")
	}

	res, err := h.Svc.Login(ctx, req.Email, req.Password)
	if err != nil {
		code, msg, outcome := loginFailure(err)
		h.Metrics.ObserveLogin(outcome, "unknown")
		l.Warn("login_failed", "status", code, "error", err)
		return echo.NewHTTPError(code, msg)
	}

	source := "local"
	if res.ViaDirectory {
		source = "directory"
	}
	h.Metrics.ObserveLogin("success", source)
	c.Set(loggingmw.CtxUserID, res.User.ID.String())
	c.SetCookie(authmw.CreateCookie(authmw.SessionCookie, res.SessionToken, "/", res.ExpiresAt, h.SecureCookies))

	return c.JSON(http.StatusOK, echo.Map{
		"user":  viewOf(res.User),
		"token": res.SessionToken,
	})
}

func loginFailure(err error) (status int, msg, outcome string) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials", "invalid_credentials"
	case errors.Is(err, service.ErrNotVerified):
		return http.StatusForbidden, "account not verified", "not_verified"
	case errors.Is(err, service.ErrAccessDenied):
		return http.StatusForbidden, "access denied", "access_denied"
	case errors.Is(err, service.ErrDirectoryUnavailable):
		return http.StatusServiceUnavailable, "directory unavailable", "directory_unavailable"
	default:
		return http.StatusInternalServerError, "internal server error", "error"
	}
}

func (h *AuthHTTP) Signup(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_signup")

	var req struct {
		Email    string `json:"email"    form:"email"`
		Password string `json:"password" form:"password"`
		Name     string `json:"name"     form:"name"`
	}
	if err := c.Bind(&req); err != nil {
		l.Warn("signup_error", "status", 400, "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	user, err := h.Svc.Signup(ctx, req.Email, req.Password, req.Name)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			return echo.NewHTTPError(http.StatusBadRequest, "email and password are required")
		case errors.Is(err, service.ErrConflict):
			return echo.NewHTTPError(http.StatusConflict, "email already in use")
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
		}
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"id":    user.ID.String(),
		"email": user.Email,
		"name":  user.Name,
	})
}

// Me returns the user behind the session. It runs behind RequireSession.
func (h *AuthHTTP) Me(c echo.Context) error {
	ctx := c.Request().Context()
	uid, _ := c.Get(authmw.CtxUserID).(string)
	c.Set(loggingmw.CtxUserID, uid)

	id, err := parseUUID(uid)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired session")
	}
	user, err := h.Users.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired session")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
	return c.JSON(http.StatusOK, viewOf(user))
}

func (h *AuthHTTP) LogOut(c echo.Context) error {
	l := logging.FromContext(c.Request().Context()).With("handler", "auth_logout")

	c.SetCookie(authmw.DeleteCookie(authmw.SessionCookie, "/", h.SecureCookies))
	l.Info("successful_logout")
	return c.JSON(http.StatusOK, echo.Map{
		"message": "logged out",
	})
}
