package model

import "time"

type ShareLink struct {
	ID         string    `gorm:"primaryKey" json:"id"`
	Token      string    `gorm:"uniqueIndex;not null" json:"token"`
	AnalysisID string    `gorm:"index;not null" json:"analysis_id"`
	UserID     string    `gorm:"index;not null" json:"-"`
	IsActive   bool      `gorm:"index;default:true" json:"is_active"`
	ExpiresAt  time.Time `gorm:"index" json:"expires_at"`
	CreatedAt  int64     `gorm:"not null" json:"created_at"`
}
