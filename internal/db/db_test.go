package db

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/etutoring/internal/models"
)

func TestOpenTestMigratesSchema(t *testing.T) {
	db, err := OpenTest()
	require.NoError(t, err)

	for _, m := range models.All() {
		assert.True(t, db.Migrator().HasTable(m), "%T table missing", m)
	}
	require.NoError(t, Ping(context.Background(), db))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "mysql", "dsn")
	require.Error(t, err)
}

func TestOpenPostgresRequiresDSN(t *testing.T) {
	_, err := Open(context.Background(), DriverPostgres, "")
	require.Error(t, err)
}

func TestDuplicateEmailIsTranslated(t *testing.T) {
	db, err := OpenTest()
	require.NoError(t, err)

	u := models.User{FullName: "A", Email: "a@uni.edu", PasswordHash: "x", Role: models.RoleStudent, Active: true}
	require.NoError(t, db.Create(&u).Error)
	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", u.ID.String())

	dup := models.User{FullName: "B", Email: "a@uni.edu", PasswordHash: "x", Role: models.RoleStudent, Active: true}
	err = db.Create(&dup).Error
	require.Error(t, err)
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey))
}
