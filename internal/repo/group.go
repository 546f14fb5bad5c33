package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Biasolis/sso/internal/models"
)

func (r *GormRepo) CreateGroup(ctx context.Context, g *models.Group) error {
	return r.DB.WithContext(ctx).Create(g).Error
}

func (r *GormRepo) AddUserToGroup(ctx context.Context, userID uuid.UUID, groupID uint) error {
	return r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.UserGroup{UserID: userID, GroupID: groupID}).Error
}

// ReplaceDirectoryGroups makes the user's directory-mapped memberships equal
// to the groups whose DN is in dns. Memberships of unmapped groups are kept.
// It returns how many memberships the user now has from the directory.
func (r *GormRepo) ReplaceDirectoryGroups(ctx context.Context, userID uuid.UUID, dns []string) (int, error) {
	lowered := make([]string, 0, len(dns))
	for _, dn := range dns {
		if dn = strings.ToLower(strings.TrimSpace(dn)); dn != "" {
			lowered = append(lowered, dn)
		}
	}

	var resolved int
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var groupIDs []uint
		if len(lowered) > 0 {
			if err := tx.Model(&models.Group{}).
				Where("directory_dn IS NOT NULL AND LOWER(directory_dn) IN ?", lowered).
				Pluck("id", &groupIDs).Error; err != nil {
				return fmt.Errorf("resolve groups: %w", err)
			}
		}

		mapped := tx.Model(&models.Group{}).Select("id").Where("directory_dn IS NOT NULL")
		if err := tx.Where("user_id = ? AND group_id IN (?)", userID, mapped).
			Delete(&models.UserGroup{}).Error; err != nil {
			return fmt.Errorf("clear memberships: %w", err)
		}

		if len(groupIDs) == 0 {
			return nil
		}
		rows := make([]models.UserGroup, 0, len(groupIDs))
		for _, id := range groupIDs {
			rows = append(rows, models.UserGroup{UserID: userID, GroupID: id})
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
			return fmt.Errorf("insert memberships: %w", err)
		}
		resolved = len(groupIDs)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return resolved, nil
}
