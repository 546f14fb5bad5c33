package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Biasolis/sso/internal/hash"
	"github.com/Biasolis/sso/internal/models"
	"github.com/Biasolis/sso/internal/repo"
)

const (
	CodeTTL   = 10 * time.Minute
	codeBytes = 32
)

type ConsumedCode struct {
	UserID uuid.UUID
	Scopes []string
}

// CodeService issues single-use authorization codes. Only their sha256 is stored.
type CodeService struct {
	Codes CodeStore
	Now   func() time.Time
}

func (s *CodeService) Issue(ctx context.Context, userID uuid.UUID, clientID, redirectURI string, scopes []string) (string, error) {
	code, err := hash.RandomHex(codeBytes)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	if scopes == nil {
		scopes = []string{}
	}

	now := clock(s.Now).now()
	if err := s.Codes.SaveCode(ctx, &models.AuthorizationCode{
		CodeHash:    hash.Sha256Hex(code),
		UserID:      userID,
		ClientID:    clientID,
		RedirectURI: redirectURI,
		Scopes:      scopes,
		ExpiresAt:   now.Add(CodeTTL),
		CreatedAt:   now,
	}); err != nil {
		return "", fmt.Errorf("save code: %w", err)
	}
	return code, nil
}

// Consume spends a code. Unknown, spent, expired or mismatched codes all
// return ErrInvalidGrant.
func (s *CodeService) Consume(ctx context.Context, code, clientID, redirectURI string) (*ConsumedCode, error) {
	if code == "" {
		return nil, ErrInvalidGrant
	}
	row, err := s.Codes.ConsumeCode(ctx, hash.Sha256Hex(code), clientID, redirectURI, clock(s.Now).now())
	if err != nil {
		if errors.Is(err, repo.ErrUnusable) {
			return nil, ErrInvalidGrant
		}
		return nil, fmt.Errorf("consume code: %w", err)
	}
	return &ConsumedCode{UserID: row.UserID, Scopes: row.Scopes}, nil
}
