package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/fawrybook/auth-service/internal/models"
)

type RevocationResult int

const (
	Revoked RevocationResult = iota
	AlreadyRevoked
)

func (r *GormRepo) IsRevoked(ctx context.Context, token string) (bool, error) {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.RevokedToken{}).
		Where("token = ?", token).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Revoke records the token in the ledger. Revoking twice reports
// AlreadyRevoked without a second entry; the unique index backstops
// concurrent revocations of the same token.
func (r *GormRepo) Revoke(ctx context.Context, token string, now time.Time, expiresAt int64) (RevocationResult, error) {
	revoked, err := r.IsRevoked(ctx, token)
	if err != nil {
		return AlreadyRevoked, err
	}
	if revoked {
		return AlreadyRevoked, nil
	}

	entry := models.RevokedToken{
		Token:     token,
		RevokedAt: now,
		ExpiresAt: expiresAt,
	}
	if err := r.DB.WithContext(ctx).Create(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return AlreadyRevoked, nil
		}
		return AlreadyRevoked, err
	}
	return Revoked, nil
}

// PruneExpired drops entries whose token is past its own exp. The gate
// checks expiry before revocation, so pruning never changes an outcome.
func (r *GormRepo) PruneExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.DB.WithContext(ctx).
		Where("expires_at > 0 AND expires_at <= ?", now.Unix()).
		Delete(&models.RevokedToken{})
	return res.RowsAffected, res.Error
}
