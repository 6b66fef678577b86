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

// Clear wipes the caller's entire analysis history
func Clear(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var keys []string

	err := scoped(d.DB.WithContext(c.Request.Context()), c).
		Model(model.Analysis{}).
		Where("image_key != ''").
		Pluck("image_key", &keys).
		Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to collect image keys", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	var removed int64

	err = d.DB.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		var ids []string

		if err := scoped(tx, c).Model(model.Analysis{}).Pluck("id", &ids).Error; err != nil {
			return err
		}

		if len(ids) == 0 {
			return nil
		}

		if err := tx.
			Model(model.ShareLink{}).
			Where("analysis_id IN ?", ids).
			Update("is_active", false).
			Error; err != nil {
			return err
		}

		res := scoped(tx, c).Delete(model.Analysis{})
		removed = res.RowsAffected

		return res.Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to clear analysis history", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if len(keys) > 0 {
		if err := d.Store.Delete(c.Request.Context(), keys...); err != nil && !errors.Is(err, storage.ErrDisabled) {
			zap.L().Warn("Failed to delete stored images", zap.Error(err), zap.Int("count", len(keys)), zap.String("requestID", requestID))
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"removed": removed,
	})
}
