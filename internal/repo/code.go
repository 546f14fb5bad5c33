package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/Biasolis/sso/internal/models"
)

func (r *GormRepo) SaveCode(ctx context.Context, code *models.AuthorizationCode) error {
	return r.DB.WithContext(ctx).Create(code).Error
}

// ConsumeCode deletes the code row and returns it when client, redirect URI
// and expiry all check out. Of several concurrent callers only the one whose
// delete affects the row succeeds; every other outcome is ErrUnusable.
func (r *GormRepo) ConsumeCode(ctx context.Context, codeHash, clientID, redirectURI string, now time.Time) (*models.AuthorizationCode, error) {
	var code models.AuthorizationCode
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("code_hash = ?", codeHash).First(&code).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUnusable
			}
			return err
		}
		if code.ClientID != clientID || code.RedirectURI != redirectURI || !now.Before(code.ExpiresAt) {
			return ErrUnusable
		}

		res := tx.Where("code_hash = ?", codeHash).Delete(&models.AuthorizationCode{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return ErrUnusable
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &code, nil
}

// DeleteExpiredCodes removes codes that can no longer be exchanged.
func (r *GormRepo) DeleteExpiredCodes(ctx context.Context, now time.Time) (int64, error) {
	res := r.DB.WithContext(ctx).Where("expires_at <= ?", now).Delete(&models.AuthorizationCode{})
	return res.RowsAffected, res.Error
}
