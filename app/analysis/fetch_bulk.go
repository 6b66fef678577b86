package analysis

import (
	"net/http"
	"strconv"

	"github.com/mayurbijarniya/nutriai/internal"
	"github.com/mayurbijarniya/nutriai/internal/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// FetchBulk returns the caller's analysis history, newest first
func FetchBulk(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	limit := defaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     "Invalid limit provided",
				"requestID": requestID,
			})
			return
		}

		limit = min(v, maxHistoryLimit)
	}

	var recs []model.Analysis

	err := scoped(d.DB.WithContext(c.Request.Context()), c).
		Order("created_at DESC").
		Limit(limit).
		Find(&recs).
		Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to fetch analysis history", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"analyses": recs,
		"count":    len(recs),
	})
}
