package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrNotVerified          = errors.New("user not verified")
	ErrAccessDenied         = errors.New("access denied")
	ErrDirectoryUnavailable = errors.New("directory unavailable")
	ErrConflict             = errors.New("user already exist")
	ErrInvalidInput         = errors.New("invalid input")

	ErrInvalidGrant  = errors.New("invalid grant")
	ErrInvalidClient = errors.New("invalid client")
	ErrInvalidToken  = errors.New("invalid token")
	ErrUserNotFound  = errors.New("user not found")
)

// OAuth error codes answered with a 400 body.
const (
	CodeInvalidRequest          = "invalid_request"
	CodeUnauthorizedClient      = "unauthorized_client"
	CodeUnsupportedResponseType = "unsupported_response_type"
	CodeUnsupportedGrantType    = "unsupported_grant_type"
	CodeInvalidScope            = "invalid_scope"
)

// ClientError is a request the server refuses to act on, including any
// request whose redirect URI cannot be trusted. It is never redirected.
type ClientError struct {
	Code        string
	Description string
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

func clientErr(code, desc string) *ClientError {
	return &ClientError{Code: code, Description: desc}
}
