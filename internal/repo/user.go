package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/fawrybook/auth-service/internal/models"
)

func (r *GormRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) FindByPhone(ctx context.Context, phone string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("phone = ?", phone).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// CreateUser inserts and lets the unique constraints close the race
// between the service's duplicate checks and the write. A constraint
// hit is re-resolved to the offending field.
func (r *GormRepo) CreateUser(ctx context.Context, u *models.User) error {
	if err := r.DB.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if _, ferr := r.FindByUsername(ctx, u.Username); ferr == nil {
				return ErrUsernameTaken
			}
			return ErrPhoneTaken
		}
		return err
	}
	return nil
}
