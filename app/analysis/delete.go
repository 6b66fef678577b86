package analysis

import (
	"errors"
	"net/http"

	"github.com/mayurbijarniya/nutriai/internal"
	"github.com/mayurbijarniya/nutriai/internal/model"
	"github.com/mayurbijarniya/nutriai/internal/storage"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func Delete(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "No analysis ID provided",
			"requestID": requestID,
		})
		return
	}

	var rec model.Analysis

	err := scoped(d.DB.WithContext(c.Request.Context()), c).
		Where("id = ?", id).
		First(&rec).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":     "Analysis not found",
				"requestID": requestID,
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to fetch analysis", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	err = d.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(model.Analysis{}, "id = ?", rec.ID).Error; err != nil {
			return err
		}

		// Share links pointing at a deleted analysis stop resolving and
		// stop counting against the owner's ceiling
		return tx.
			Model(model.ShareLink{}).
			Where("analysis_id = ?", rec.ID).
			Update("is_active", false).
			Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to delete analysis", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if rec.ImageKey != "" {
		if err := d.Store.Delete(c.Request.Context(), rec.ImageKey); err != nil && !errors.Is(err, storage.ErrDisabled) {
			zap.L().Warn("Failed to delete stored image", zap.Error(err), zap.String("requestID", requestID))
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"deleted": rec.ID,
	})
}
