// Package share holds the share link endpoints. Links are a member
// feature with a ceiling on concurrently active links, not a daily
// counter: revoking one immediately frees a slot
package share

import (
	"errors"
	"net/http"
	"time"

	"github.com/mayurbijarniya/nutriai/internal"
	"github.com/mayurbijarniya/nutriai/internal/identity"
	"github.com/mayurbijarniya/nutriai/internal/model"
	"github.com/mayurbijarniya/nutriai/internal/quota"
	"github.com/mayurbijarniya/nutriai/pkg/util"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errCeilingReached = errors.New("share link limit reached")

type createBody struct {
	AnalysisID string `json:"analysis_id"`
}

func Create(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	var data createBody
	if err := c.ShouldBind(&data); err != nil || data.AnalysisID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "No analysis ID provided",
			"requestID": requestID,
		})
		return
	}

	id, err := util.NewID()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to generate share link ID", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	link := model.ShareLink{
		ID:         id,
		Token:      util.RandStr(32),
		AnalysisID: data.AnalysisID,
		UserID:     userID,
		IsActive:   true,
		ExpiresAt:  time.Now().Add(time.Duration(viper.GetInt("share.expiry_days")) * 24 * time.Hour),
		CreatedAt:  time.Now().Unix(),
	}

	ceiling := quota.Limit(identity.UserScope(userID), quota.FeatureShareLinks)

	// Count and create inside one transaction so two concurrent creates
	// can't both squeeze past the ceiling
	err = d.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		// Postgres runs read committed, so the count below alone doesn't
		// stop two transactions from both seeing a free slot. Holding the
		// member's row lock serializes creates per user. Sqlite has a
		// single writer and no FOR UPDATE syntax
		if tx.Dialector.Name() == "postgres" {
			err := tx.
				Clauses(clause.Locking{Strength: "UPDATE"}).
				Select("id").
				First(&model.User{}, "id = ?", userID).
				Error
			if err != nil {
				return err
			}
		}

		var rec model.Analysis

		err := tx.
			Where("user_id = ? AND id = ?", userID, data.AnalysisID).
			First(&rec).
			Error
		if err != nil {
			return err
		}

		var active int64

		err = tx.
			Model(model.ShareLink{}).
			Where("user_id = ? AND is_active = ? AND expires_at > ?", userID, true, time.Now()).
			Count(&active).
			Error
		if err != nil {
			return err
		}

		if active >= ceiling {
			return errCeilingReached
		}

		return tx.Create(&link).Error
	})
	if err != nil {
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error":     "Analysis not found",
				"requestID": requestID,
			})
		case errors.Is(err, errCeilingReached):
			c.JSON(http.StatusConflict, gin.H{
				"error":     "You've reached your active share link limit, revoke one first",
				"requestID": requestID,
				"limit":     ceiling,
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to create share link", zap.Error(err), zap.String("requestID", requestID))
		}
		return
	}

	d.Metrics.RecordShareCreated()
	refreshActiveGauge(c, d)

	c.JSON(http.StatusOK, link)
}

// refreshActiveGauge recounts active links across all members. Cheap
// enough to do inline on the rare create/revoke calls
func refreshActiveGauge(c *gin.Context, d *internal.Deps) {
	var active int64

	err := d.DB.WithContext(c.Request.Context()).
		Model(model.ShareLink{}).
		Where("is_active = ? AND expires_at > ?", true, time.Now()).
		Count(&active).
		Error
	if err != nil {
		zap.L().Warn("Failed to count active share links", zap.Error(err))
		return
	}

	d.Metrics.SetActiveShares(active)
}
