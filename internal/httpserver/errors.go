package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

const invalidGrantDescription = "authorization grant is invalid, expired or already used"

type oauthError struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func writeOAuthError(c echo.Context, status int, code, desc string) error {
	return c.JSON(status, oauthError{Error: code, Description: desc})
}

func serverError(c echo.Context) error {
	return writeOAuthError(c, http.StatusInternalServerError, "server_error", "")
}
