package repo

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/etutoring/internal/models"
)

type UserFilter struct {
	Role   string
	Active *bool
}

func (r *GormRepo) CreateUser(ctx context.Context, u *models.User) error {
	return r.DB.WithContext(ctx).Create(u).Error
}

// bootstrapLockKey identifies the postgres advisory lock taken by CreateFirstAdmin.
const bootstrapLockKey int64 = 0x6574757472

// CreateFirstAdmin inserts u only while no admin exists. On postgres concurrent
// callers are serialised by a transaction-scoped advisory lock.
func (r *GormRepo) CreateFirstAdmin(ctx context.Context, u *models.User) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", bootstrapLockKey).Error; err != nil {
				return err
			}
		}
		var n int64
		if err := tx.Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrAdminExists
		}
		return tx.Create(u).Error
	})
}

func (r *GormRepo) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormRepo) ListUsers(ctx context.Context, f UserFilter, offset, limit int) (int64, []models.User, error) {
	tx := r.DB.WithContext(ctx).Model(&models.User{})
	if f.Role != "" {
		tx = tx.Where("role = ?", f.Role)
	}
	if f.Active != nil {
		tx = tx.Where("active = ?", *f.Active)
	}

	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return 0, nil, err
	}
	items := make([]models.User, 0, limit)
	if err := tx.Order("created_at ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (r *GormRepo) UpdateUserProfile(ctx context.Context, id uuid.UUID, fullName, email string) (*models.User, error) {
	res := r.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		Updates(map[string]any{"full_name": fullName, "email": strings.ToLower(email)})
	if err := affected(res); err != nil {
		return nil, err
	}
	return r.GetUserByID(ctx, id)
}

func (r *GormRepo) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	return affected(r.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("password_hash", hash))
}

func (r *GormRepo) SetUserActive(ctx context.Context, id uuid.UUID, active bool) error {
	return affected(r.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("active", active))
}

// RecordLogin appends the history row and stamps LastLoginAt in two separate writes.
func (r *GormRepo) RecordLogin(ctx context.Context, userID uuid.UUID, ip, userAgent string, at time.Time) error {
	entry := models.LoginHistory{UserID: userID, IP: ip, UserAgent: userAgent}
	entry.CreatedAt = at
	if err := r.DB.WithContext(ctx).Create(&entry).Error; err != nil {
		return err
	}
	return r.DB.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("last_login_at", at).Error
}

func (r *GormRepo) ListLogins(ctx context.Context, userID uuid.UUID, offset, limit int) (int64, []models.LoginHistory, error) {
	tx := r.DB.WithContext(ctx).Model(&models.LoginHistory{}).Where("user_id = ?", userID)
	var total int64
	if err := tx.Count(&total).Error; err != nil {
		return 0, nil, err
	}
	items := make([]models.LoginHistory, 0, limit)
	if err := tx.Order("created_at DESC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (r *GormRepo) CountAdmins(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.User{}).Where("role = ?", models.RoleAdmin).Count(&n).Error
	return n, err
}
