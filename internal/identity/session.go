package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/mayurbijarniya/nutriai/internal/model"

	"github.com/spf13/viper"
	"gorm.io/gorm"
)

// SessionCookie holds the opaque session ID of a signed-in user
const SessionCookie = "nutriai_session"

type Sessions struct {
	db *gorm.DB
}

func NewSessions(db *gorm.DB) *Sessions {
	return &Sessions{db: db}
}

// Create starts a new session for a user. The ID is an opaque random value,
// the cookie is only as trustworthy as this table
func (s *Sessions) Create(ctx context.Context, userID string) (*model.Session, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate session ID, %w", err)
	}

	sess := &model.Session{
		ID:        hex.EncodeToString(b),
		UserID:    userID,
		CreatedAt: time.Now().Unix(),
		ExpiresAt: time.Now().Add(time.Duration(viper.GetInt("session.expiry_days")) * 24 * time.Hour),
	}

	if err := s.db.WithContext(ctx).Create(sess).Error; err != nil {
		return nil, fmt.Errorf("failed to store session, %w", err)
	}

	return sess, nil
}

// Find returns the session with the given ID if it exists and hasn't expired
// yet. Expired and unknown sessions both return gorm.ErrRecordNotFound
func (s *Sessions) Find(ctx context.Context, id string) (*model.Session, error) {
	var sess model.Session

	err := s.db.WithContext(ctx).
		Where("id = ? AND expires_at > ?", id, time.Now()).
		First(&sess).
		Error
	if err != nil {
		return nil, err
	}

	return &sess, nil
}

func (s *Sessions) Destroy(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(model.Session{}).Error
}

// RecordLogin writes an audit entry for a successful sign-in
func (s *Sessions) RecordLogin(ctx context.Context, userID, email, ip, userAgent string) error {
	return s.db.WithContext(ctx).Create(&model.LoginRecord{
		UserID:    userID,
		Email:     email,
		IP:        ip,
		UserAgent: userAgent,
		CreatedAt: time.Now().Unix(),
	}).Error
}
