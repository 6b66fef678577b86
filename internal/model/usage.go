package model

// UsageCounter is one per-scope, per-feature counter for a single UTC day.
// Day is the UTC date in YYYYMMDD form, so counters reset at midnight UTC
// simply because a new day reads a fresh row.
type UsageCounter struct {
	Scope   string `gorm:"primaryKey;size:64"`
	Day     string `gorm:"primaryKey;size:8"`
	Feature string `gorm:"primaryKey;size:32"`
	Count   int64  `gorm:"not null;default:0"`
}
