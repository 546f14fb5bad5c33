package repo

import (
	"context"

	"github.com/Biasolis/sso/internal/models"
)

func (r *GormRepo) FindClient(ctx context.Context, clientID string) (*models.Client, error) {
	var client models.Client
	if err := r.DB.WithContext(ctx).Where("client_id = ?", clientID).First(&client).Error; err != nil {
		return nil, notFound(err)
	}
	return &client, nil
}

func (r *GormRepo) CreateClient(ctx context.Context, c *models.Client) error {
	return r.DB.WithContext(ctx).Create(c).Error
}
