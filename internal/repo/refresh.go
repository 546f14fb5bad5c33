package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/Biasolis/sso/internal/models"
)

func (r *GormRepo) SaveRefresh(ctx context.Context, t *models.RefreshToken) error {
	return r.DB.WithContext(ctx).Create(t).Error
}

// RotateRefresh revokes the token with oldHash and stores the replacement
// built from it, in one transaction. The revoke is a conditional update, so a
// token already revoked, expired or held by another client yields ErrUnusable.
func (r *GormRepo) RotateRefresh(
	ctx context.Context,
	oldHash, clientID string,
	now time.Time,
	next func(old models.RefreshToken) models.RefreshToken,
) (old, replacement *models.RefreshToken, err error) {
	var prev, repl models.RefreshToken
	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("token_hash = ?", oldHash).First(&prev).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUnusable
			}
			return err
		}
		if prev.ClientID != clientID {
			return ErrUnusable
		}

		res := tx.Model(&models.RefreshToken{}).
			Where("token_hash = ? AND revoked = ? AND expires_at > ?", oldHash, false, now).
			Update("revoked", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return ErrUnusable
		}

		repl = next(prev)
		if err := tx.Create(&repl).Error; err != nil {
			return fmt.Errorf("store replacement: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	prev.Revoked = true
	return &prev, &repl, nil
}
