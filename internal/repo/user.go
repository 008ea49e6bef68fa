package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/NeuraClarityTech/ChiefAIInsights-API/internal/models"
)

func (r *GormRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "email = ?", email)
}

func (r *GormRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *GormRepo) findOne(ctx context.Context, query string, arg string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where(query, arg).Take(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: find user: %v", ErrStorage, err)
	}
	return &user, nil
}

// CreateUser checks the email first and still maps a unique-constraint race to ErrDuplicateEmail.
func (r *GormRepo) CreateUser(ctx context.Context, u *models.User) error {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.User{}).Where("email = ?", u.Email).Count(&count).Error; err != nil {
		return fmt.Errorf("%w: check email: %v", ErrStorage, err)
	}
	if count > 0 {
		return ErrDuplicateEmail
	}

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = models.RoleUser
	}

	if err := r.DB.WithContext(ctx).Create(u).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("%w: create user: %v", ErrStorage, err)
	}
	return nil
}

func (r *GormRepo) TouchLastLogin(ctx context.Context, id string) error {
	now := r.now()
	res := r.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("last_login", now)
	if res.Error != nil {
		return fmt.Errorf("%w: touch last login: %v", ErrStorage, res.Error)
	}
	return nil
}

func (r *GormRepo) SetActive(ctx context.Context, id string, active bool) error {
	return r.updateUser(ctx, id, "is_active", active)
}

// DeactivateUser clears is_active and revokes every refresh token of the user in one transaction.
func (r *GormRepo) DeactivateUser(ctx context.Context, id string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).Where("id = ?", id).Update("is_active", false)
		if res.Error != nil {
			return fmt.Errorf("%w: deactivate user: %v", ErrStorage, res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return revokeAllForUser(tx, id)
	})
}

func (r *GormRepo) SetRole(ctx context.Context, id, role string) error {
	return r.updateUser(ctx, id, "role", role)
}

func (r *GormRepo) updateUser(ctx context.Context, id, column string, value any) error {
	res := r.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update(column, value)
	if res.Error != nil {
		return fmt.Errorf("%w: update %s: %v", ErrStorage, column, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
