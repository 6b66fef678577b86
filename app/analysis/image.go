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

// Image streams the stored meal photo of an analysis the caller owns
func Image(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var rec model.Analysis

	err := scoped(d.DB.WithContext(c.Request.Context()), c).
		Where("id = ?", c.Param("id")).
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

	if rec.ImageKey == "" {
		c.JSON(http.StatusNotFound, gin.H{
			"error":     "No image was stored for this analysis",
			"requestID": requestID,
		})
		return
	}

	body, contentType, err := d.Store.Get(c.Request.Context(), rec.ImageKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrDisabled) {
			c.JSON(http.StatusNotFound, gin.H{
				"error":     "No image was stored for this analysis",
				"requestID": requestID,
			})
			return
		}

		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to fetch image from storage", zap.Error(err), zap.String("requestID", requestID))
		return
	}
	defer body.Close()

	if contentType == "" {
		contentType = "image/jpeg"
	}

	c.Header("Cache-Control", "private, max-age=86400")
	c.DataFromReader(http.StatusOK, -1, contentType, body, nil)
}
