package repo

import (
	"context"

	"github.com/Biasolis/sso/internal/models"
)

func (r *GormRepo) AppendAccessLog(ctx context.Context, entry *models.AccessLog) error {
	return r.DB.WithContext(ctx).Create(entry).Error
}
