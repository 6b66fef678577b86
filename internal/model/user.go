// Package model defines database models
package model

import "time"

type User struct {
	ID          string `gorm:"primaryKey" json:"id"`
	GoogleSub   string `gorm:"uniqueIndex;not null" json:"-"`
	Email       string `gorm:"uniqueIndex;not null" json:"email"`
	Name        string `json:"name"`
	Picture     string `json:"picture"`
	CreatedAt   int64  `gorm:"not null" json:"created_at"`
	LastLoginAt int64  `json:"last_login_at"`

	Sessions []Session  `gorm:"foreignKey:UserID" json:"-"`
	Analyses []Analysis `gorm:"foreignKey:UserID" json:"-"`
}

type Session struct {
	ID        string    `gorm:"primaryKey"`
	UserID    string    `gorm:"index;not null"`
	CreatedAt int64     `gorm:"not null"`
	ExpiresAt time.Time `gorm:"index"`
}

// LoginRecord is an audit entry written on every successful sign-in
type LoginRecord struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	UserID    string `gorm:"index;not null"`
	Email     string
	IP        string
	UserAgent string `gorm:"size:512"`
	CreatedAt int64  `gorm:"not null"`
}
