package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mayurbijarniya/nutriai/internal/model"
	"github.com/mayurbijarniya/nutriai/pkg/util"

	"gorm.io/gorm"
)

// UpsertGoogleUser finds the account belonging to a Google subject or
// creates it on first sign-in. Name, email and picture refresh on every
// login because people change them on Google's side
func UpsertGoogleUser(ctx context.Context, db *gorm.DB, gu *GoogleUser) (*model.User, error) {
	now := time.Now().Unix()

	var user model.User

	err := db.WithContext(ctx).Where("google_sub = ?", gu.Sub).First(&user).Error
	if err == nil {
		err = db.WithContext(ctx).
			Model(&user).
			Updates(map[string]any{
				"email":         gu.Email,
				"name":          gu.Name,
				"picture":       gu.Picture,
				"last_login_at": now,
			}).
			Error
		if err != nil {
			return nil, fmt.Errorf("failed to refresh user profile, %w", err)
		}

		return &user, nil
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to look up user, %w", err)
	}

	id, err := util.NewID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate user ID, %w", err)
	}

	user = model.User{
		ID:          id,
		GoogleSub:   gu.Sub,
		Email:       gu.Email,
		Name:        gu.Name,
		Picture:     gu.Picture,
		CreatedAt:   now,
		LastLoginAt: now,
	}

	if err := db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user, %w", err)
	}

	return &user, nil
}
