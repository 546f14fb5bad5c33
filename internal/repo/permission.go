package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/Biasolis/sso/internal/models"
)

func (r *GormRepo) GrantUser(ctx context.Context, clientID string, userID uuid.UUID) error {
	return r.DB.WithContext(ctx).Create(&models.ClientUserPermission{ClientID: clientID, UserID: userID}).Error
}

func (r *GormRepo) GrantGroup(ctx context.Context, clientID string, groupID uint) error {
	return r.DB.WithContext(ctx).Create(&models.ClientGroupPermission{ClientID: clientID, GroupID: groupID}).Error
}

// HasAnyPermission reports whether the client restricts access at all.
func (r *GormRepo) HasAnyPermission(ctx context.Context, clientID string) (bool, error) {
	var users, groups int64
	if err := r.DB.WithContext(ctx).Model(&models.ClientUserPermission{}).
		Where("client_id = ?", clientID).Count(&users).Error; err != nil {
		return false, err
	}
	if users > 0 {
		return true, nil
	}
	if err := r.DB.WithContext(ctx).Model(&models.ClientGroupPermission{}).
		Where("client_id = ?", clientID).Count(&groups).Error; err != nil {
		return false, err
	}
	return groups > 0, nil
}

// UserPermitted reports a direct grant or a grant to one of the user's groups.
func (r *GormRepo) UserPermitted(ctx context.Context, clientID string, userID uuid.UUID) (bool, error) {
	var direct int64
	if err := r.DB.WithContext(ctx).Model(&models.ClientUserPermission{}).
		Where("client_id = ? AND user_id = ?", clientID, userID).
		Count(&direct).Error; err != nil {
		return false, err
	}
	if direct > 0 {
		return true, nil
	}

	var viaGroup int64
	if err := r.DB.WithContext(ctx).Model(&models.ClientGroupPermission{}).
		Joins("JOIN user_groups ON user_groups.group_id = client_group_permissions.group_id").
		Where("client_group_permissions.client_id = ? AND user_groups.user_id = ?", clientID, userID).
		Count(&viaGroup).Error; err != nil {
		return false, err
	}
	return viaGroup > 0, nil
}
