package share

import (
	"errors"
	"net/http"
	"time"

	"github.com/mayurbijarniya/nutriai/internal"
	"github.com/mayurbijarniya/nutriai/internal/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Resolve serves a shared analysis to anyone holding the link token.
// The owner's identity is never part of the answer
func Resolve(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var link model.ShareLink

	err := d.DB.WithContext(c.Request.Context()).
		Where("token = ? AND is_active = ? AND expires_at > ?", c.Param("token"), true, time.Now()).
		First(&link).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":     "This share link doesn't exist or has expired",
				"requestID": requestID,
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to resolve share link", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	var rec model.Analysis

	err = d.DB.WithContext(c.Request.Context()).
		Where("id = ?", link.AnalysisID).
		First(&rec).
		Error
	if err != nil {
		// The analysis behind an active link should exist, deletes
		// deactivate links in the same transaction
		c.JSON(http.StatusNotFound, gin.H{
			"error":     "This share link doesn't exist or has expired",
			"requestID": requestID,
		})

		zap.L().Warn("Active share link points at a missing analysis", zap.String("link", link.ID), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"analysis":   rec,
		"shared_at":  link.CreatedAt,
		"expires_at": link.ExpiresAt,
	})
}
