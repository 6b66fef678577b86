package service

import (
	"testing"
	"time"

	"github.com/mayurbijarniya/nutriai/internal/model"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"))
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(model.UsageCounter{}, model.Session{}, model.ShareLink{}))

	return db
}

func TestPurgeOldCounters(t *testing.T) {
	viper.Set("quota.retention_days", 30)

	db := testDB(t)

	today := time.Now().UTC().Format("20060102")
	stale := time.Now().UTC().AddDate(0, 0, -31).Format("20060102")

	require.NoError(t, db.Create(&model.UsageCounter{Scope: "guest:a", Day: today, Feature: "analyses", Count: 3}).Error)
	require.NoError(t, db.Create(&model.UsageCounter{Scope: "guest:a", Day: stale, Feature: "analyses", Count: 9}).Error)

	purgeOldCounters(db)

	var days []string
	require.NoError(t, db.Model(model.UsageCounter{}).Select("day").Find(&days).Error)

	assert.Equal(t, []string{today}, days, "only counters past retention are removed")
}

func TestPurgeKeepsRecentCounters(t *testing.T) {
	viper.Set("quota.retention_days", 30)

	db := testDB(t)

	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format("20060102")
	require.NoError(t, db.Create(&model.UsageCounter{Scope: "user:u", Day: yesterday, Feature: "analyses", Count: 42}).Error)

	purgeOldCounters(db)

	var count int64
	require.NoError(t, db.Model(model.UsageCounter{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
