package config_test

import (
	"context"
	"path/filepath"
	"testing"

	"bitbucket.org/mmdatafocus/tradelog_backend/appctx"
	"bitbucket.org/mmdatafocus/tradelog_backend/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type guardedRow struct {
	ID      int `gorm:"primary_key"`
	OwnerId int `gorm:"index;not null"`
	Note    string
}

type unownedRow struct {
	ID   int `gorm:"primary_key"`
	Note string
}

func openGuardedDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := config.OpenSqlite(filepath.Join(t.TempDir(), "guard.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	require.NoError(t, db.AutoMigrate(&guardedRow{}, &unownedRow{}))
	require.NoError(t, db.Create([]*guardedRow{
		{OwnerId: 1, Note: "a"},
		{OwnerId: 1, Note: "b"},
		{OwnerId: 2, Note: "c"},
	}).Error)
	require.NoError(t, db.Create(&unownedRow{Note: "shared"}).Error)
	return db
}

func ownerCtx(ownerId int) context.Context {
	return appctx.Set(context.Background(), appctx.ContextKeyOwnerId, ownerId)
}

func TestOwnerGuardScopesQueriesWithoutOwnerCondition(t *testing.T) {
	db := openGuardedDB(t)

	var rows []guardedRow
	require.NoError(t, db.WithContext(ownerCtx(1)).Order("id").Find(&rows).Error)
	require.Len(t, rows, 2)
	for _, row := range rows {
		assert.Equal(t, 1, row.OwnerId)
	}

	var count int64
	require.NoError(t, db.WithContext(ownerCtx(2)).Model(&guardedRow{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)

	// no owner in context: unscoped
	require.NoError(t, db.WithContext(context.Background()).Model(&guardedRow{}).Count(&count).Error)
	assert.EqualValues(t, 3, count)

	// tables without owner_id are left alone
	var shared []unownedRow
	require.NoError(t, db.WithContext(ownerCtx(1)).Find(&shared).Error)
	assert.Len(t, shared, 1)
}

func TestOwnerGuardDoesNotTrustConditionsForOtherOwners(t *testing.T) {
	db := openGuardedDB(t)

	var rows []guardedRow
	require.NoError(t, db.WithContext(ownerCtx(1)).Where(map[string]any{"owner_id": 2}).Find(&rows).Error)
	assert.Empty(t, rows)

	require.NoError(t, db.WithContext(ownerCtx(1)).Where("owner_id = ?", 2).Find(&rows).Error)
	assert.Empty(t, rows)

	require.NoError(t, db.WithContext(ownerCtx(2)).Where(map[string]any{"owner_id": 2}).Find(&rows).Error)
	assert.Len(t, rows, 1)
}

func TestOwnerGuardScopesUpdatesAndDeletes(t *testing.T) {
	db := openGuardedDB(t)

	result := db.WithContext(ownerCtx(2)).Model(&guardedRow{}).Where("note <> ?", "").Update("note", "edited")
	require.NoError(t, result.Error)
	assert.EqualValues(t, 1, result.RowsAffected)

	result = db.WithContext(ownerCtx(2)).Where("note = ?", "a").Delete(&guardedRow{})
	require.NoError(t, result.Error)
	assert.EqualValues(t, 0, result.RowsAffected)

	var notes []string
	require.NoError(t, db.Model(&guardedRow{}).Order("id").Pluck("note", &notes).Error)
	assert.Equal(t, []string{"a", "b", "edited"}, notes)
}

func TestOwnerGuardBypass(t *testing.T) {
	db := openGuardedDB(t)
	ctx := appctx.Set(ownerCtx(1), appctx.ContextKeySkipOwnerScope, true)

	var count int64
	require.NoError(t, db.WithContext(ctx).Model(&guardedRow{}).Count(&count).Error)
	assert.EqualValues(t, 3, count)
}
