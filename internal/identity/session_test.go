package identity

import (
	"context"
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

	require.NoError(t, db.AutoMigrate(model.User{}, model.Session{}, model.LoginRecord{}, model.Analysis{}))

	return db
}

func TestSessionLifecycle(t *testing.T) {
	viper.Set("session.expiry_days", 30)

	s := NewSessions(testDB(t))
	ctx := context.Background()

	sess, err := s.Create(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, sess.ID, 64, "session IDs are 32 random bytes hex encoded")

	found, err := s.Find(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "u1", found.UserID)

	require.NoError(t, s.Destroy(ctx, sess.ID))

	_, err = s.Find(ctx, sess.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSessionExpired(t *testing.T) {
	db := testDB(t)
	s := NewSessions(db)

	stale := &model.Session{
		ID:        "deadbeef",
		UserID:    "u1",
		CreatedAt: time.Now().Add(-48 * time.Hour).Unix(),
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, db.Create(stale).Error)

	_, err := s.Find(context.Background(), stale.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestMergeGuestHistory(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	for i, rec := range []model.Analysis{
		{ID: "a1", GuestID: "g1"},
		{ID: "a2", GuestID: "g1"},
		{ID: "a3", GuestID: "g2"},
		{ID: "a4", UserID: "u2"},
	} {
		rec.CreatedAt = int64(i)
		require.NoError(t, db.Create(&rec).Error)
	}

	moved, err := MergeGuestHistory(ctx, db, "g1", "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, moved)

	var mine []model.Analysis
	require.NoError(t, db.Where("user_id = ?", "u1").Find(&mine).Error)
	assert.Len(t, mine, 2)
	for _, rec := range mine {
		assert.Empty(t, rec.GuestID, "merged rows leave the guest scope")
	}

	// The other guest and the other user keep their rows
	var others int64
	require.NoError(t, db.Model(model.Analysis{}).Where("guest_id = ?", "g2").Count(&others).Error)
	assert.EqualValues(t, 1, others)
}

func TestUpsertGoogleUser(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	gu := &GoogleUser{Sub: "sub-1", Email: "a@example.com", Name: "A", Picture: "p1"}

	created, err := UpsertGoogleUser(ctx, db, gu)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)

	// Second login with a changed profile reuses the account
	gu.Name = "A Renamed"
	again, err := UpsertGoogleUser(ctx, db, gu)
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)

	var stored model.User
	require.NoError(t, db.First(&stored, "id = ?", created.ID).Error)
	assert.Equal(t, "A Renamed", stored.Name)

	var count int64
	require.NoError(t, db.Model(model.User{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}
