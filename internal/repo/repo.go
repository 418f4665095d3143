package repo

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrTokenRevoked = errors.New("refresh token expired or revoked")
	ErrAdminExists  = errors.New("an admin account already exists")
)

type GormRepo struct {
	DB *gorm.DB
}

func New(db *gorm.DB) *GormRepo {
	return &GormRepo{DB: db}
}

func affected(res *gorm.DB) error {
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
