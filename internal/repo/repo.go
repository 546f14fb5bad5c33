package repo

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrUserAlreadyExist = errors.New("user already exist")
	// ErrUnusable covers every reason a code or refresh token cannot be spent.
	ErrUnusable = errors.New("credential expired, used or mismatched")
)

type GormRepo struct {
	DB *gorm.DB
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
