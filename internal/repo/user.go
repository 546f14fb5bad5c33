package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Biasolis/sso/internal/models"
)

func (r *GormRepo) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *GormRepo) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *GormRepo) CreateUser(ctx context.Context, u *models.User) error {
	res := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}).
		Create(u)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return ErrUserAlreadyExist
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserAlreadyExist
	}
	return nil
}

// CreateUserIfNotExists inserts u unless its email is taken and returns the
// stored row either way. created is false when another writer got there first.
func (r *GormRepo) CreateUserIfNotExists(ctx context.Context, u *models.User) (stored *models.User, created bool, err error) {
	res := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}).
		Create(u)
	if res.Error != nil {
		return nil, false, fmt.Errorf("insert user: %w", res.Error)
	}
	if res.RowsAffected == 1 {
		return u, true, nil
	}

	existing, err := r.FindUserByEmail(ctx, u.Email)
	if err != nil {
		return nil, false, fmt.Errorf("re-read user: %w", err)
	}
	return existing, false, nil
}

// LinkDirectoryAccount verifies an account on behalf of the directory and
// replaces its password hash in the same statement.
func (r *GormRepo) LinkDirectoryAccount(ctx context.Context, id uuid.UUID, passwordHash string) error {
	res := r.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		Updates(map[string]any{"verified": true, "password_hash": passwordHash})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
