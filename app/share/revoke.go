package share

import (
	"net/http"

	"github.com/mayurbijarniya/nutriai/internal"
	"github.com/mayurbijarniya/nutriai/internal/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func Revoke(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	userID := c.MustGet("userID").(string)

	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "No share link ID provided",
			"requestID": requestID,
		})
		return
	}

	res := d.DB.WithContext(c.Request.Context()).
		Model(model.ShareLink{}).
		Where("user_id = ? AND id = ? AND is_active = ?", userID, id, true).
		Update("is_active", false)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to revoke share link", zap.Error(res.Error), zap.String("requestID", requestID))
		return
	}

	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{
			"error":     "Share link not found",
			"requestID": requestID,
		})
		return
	}

	refreshActiveGauge(c, d)

	c.JSON(http.StatusOK, gin.H{
		"revoked": id,
	})
}
