package service

import (
	"time"

	"github.com/mayurbijarniya/nutriai/internal/model"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SessionCleanup periodically removes expired login sessions.
func SessionCleanup(t time.Duration, db *gorm.DB) {
	ticker := time.NewTicker(t)

	zap.L().Debug("Session cleanup attached", zap.Duration("tick_every", t))

	go func() {
		for range ticker.C {
			res := db.
				Where("expires_at < ?", time.Now()).
				Delete(model.Session{})
			if res.Error != nil {
				zap.L().Error("Failed to cleanup expired sessions", zap.Error(res.Error))
				continue
			}

			if res.RowsAffected > 0 {
				zap.L().Debug("Cleaned up expired sessions", zap.Int64("removed", res.RowsAffected))
			}
		}
	}()
}

// ShareLinkCleanup periodically deactivates share links that ran past
// their expiry, so they stop counting against the owner's ceiling.
func ShareLinkCleanup(t time.Duration, db *gorm.DB) {
	ticker := time.NewTicker(t)

	zap.L().Debug("Share link cleanup attached", zap.Duration("tick_every", t))

	go func() {
		for range ticker.C {
			res := db.
				Model(model.ShareLink{}).
				Where("is_active = ? AND expires_at < ?", true, time.Now()).
				Update("is_active", false)
			if res.Error != nil {
				zap.L().Error("Failed to deactivate expired share links", zap.Error(res.Error))
				continue
			}

			if res.RowsAffected > 0 {
				zap.L().Debug("Deactivated expired share links", zap.Int64("deactivated", res.RowsAffected))
			}
		}
	}()
}

// StartUsagePurge schedules the daily removal of usage counters older
// than quota.retention_days. It runs shortly after midnight UTC so the
// day that just ended is never touched.
func StartUsagePurge(db *gorm.DB) *cron.Cron {
	c := cron.New(cron.WithLocation(time.UTC))

	_, err := c.AddFunc("5 0 * * *", func() {
		purgeOldCounters(db)
	})
	if err != nil {
		zap.L().Error("Failed to schedule usage purge", zap.Error(err))
		return c
	}

	c.Start()
	return c
}

func purgeOldCounters(db *gorm.DB) {
	cutoff := time.Now().UTC().AddDate(0, 0, -viper.GetInt("quota.retention_days")).Format("20060102")

	res := db.
		Where("day < ?", cutoff).
		Delete(model.UsageCounter{})
	if res.Error != nil {
		zap.L().Error("Failed to purge old usage counters", zap.Error(res.Error))
		return
	}

	zap.L().Info("Purged old usage counters",
		zap.String("older_than", cutoff),
		zap.Int64("removed", res.RowsAffected))
}
