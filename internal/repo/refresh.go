package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/NeuraClarityTech/ChiefAIInsights-API/internal/models"
)

func (r *GormRepo) StoreRefresh(ctx context.Context, userID, token string, ttl time.Duration) error {
	return r.storeRefresh(r.DB.WithContext(ctx), userID, token, ttl)
}

func (r *GormRepo) storeRefresh(db *gorm.DB, userID, token string, ttl time.Duration) error {
	rt := models.RefreshToken{
		Token:     sha256Hex(token),
		UserID:    userID,
		ExpiresAt: r.now().Add(ttl),
	}
	if err := db.Create(&rt).Error; err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: refresh token owner %s", ErrNotFound, userID)
		}
		return fmt.Errorf("%w: store refresh token: %v", ErrStorage, err)
	}
	return nil
}

// ValidateRefresh returns the owning user id when the token is known, not revoked and not expired.
// Unknown, revoked and expired tokens are indistinguishable to the caller.
func (r *GormRepo) ValidateRefresh(ctx context.Context, token string) (string, bool, error) {
	var rt models.RefreshToken
	err := r.DB.WithContext(ctx).Where("token = ?", sha256Hex(token)).Take(&rt).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: validate refresh token: %v", ErrStorage, err)
	}
	if !rt.Usable(r.now()) {
		return "", false, nil
	}
	return rt.UserID, true, nil
}

// RevokeRefresh is idempotent: revoking an unknown or already revoked token is not an error.
func (r *GormRepo) RevokeRefresh(ctx context.Context, token string) error {
	res := r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token = ?", sha256Hex(token)).
		Update("is_revoked", true)
	if res.Error != nil {
		return fmt.Errorf("%w: revoke refresh token: %v", ErrStorage, res.Error)
	}
	return nil
}

// RotateRefresh revokes oldToken and stores newToken in one transaction. The revoke is a
// conditional update, so of two concurrent rotations of the same token only one succeeds.
func (r *GormRepo) RotateRefresh(ctx context.Context, oldToken, userID, newToken string, ttl time.Duration) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.RefreshToken{}).
			Where("token = ? AND user_id = ? AND is_revoked = ? AND expires_at > ?", sha256Hex(oldToken), userID, false, r.now()).
			Update("is_revoked", true)
		if res.Error != nil {
			return fmt.Errorf("%w: revoke old refresh token: %v", ErrStorage, res.Error)
		}
		if res.RowsAffected != 1 {
			return ErrTokenNotUsable
		}
		return r.storeRefresh(tx, userID, newToken, ttl)
	})
}

func revokeAllForUser(db *gorm.DB, userID string) error {
	res := db.Model(&models.RefreshToken{}).
		Where("user_id = ? AND is_revoked = ?", userID, false).
		Update("is_revoked", true)
	if res.Error != nil {
		return fmt.Errorf("%w: revoke user refresh tokens: %v", ErrStorage, res.Error)
	}
	return nil
}

// PurgeExpired deletes rows that expired before the cutoff and returns how many were removed.
func (r *GormRepo) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	res := r.DB.WithContext(ctx).Where("expires_at < ?", before.UTC()).Delete(&models.RefreshToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("%w: purge refresh tokens: %v", ErrStorage, res.Error)
	}
	return res.RowsAffected, nil
}
