package root

import (
	"net/http"
	"time"

	"github.com/mayurbijarniya/nutriai/internal"
	"github.com/mayurbijarniya/nutriai/internal/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Stats reports service-wide counters. The route sits behind the
// response cache, so the counts may lag by the cache TTL
func Stats(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	var users, analyses, activeShares int64

	db := d.DB.WithContext(c.Request.Context())

	if err := db.Model(model.User{}).Count(&users).Error; err != nil {
		statsError(c, requestID, err)
		return
	}

	if err := db.Model(model.Analysis{}).Count(&analyses).Error; err != nil {
		statsError(c, requestID, err)
		return
	}

	err := db.Model(model.ShareLink{}).
		Where("is_active = ? AND expires_at > ?", true, time.Now()).
		Count(&activeShares).
		Error
	if err != nil {
		statsError(c, requestID, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users":         users,
		"analyses":      analyses,
		"active_shares": activeShares,
		"jobs_running":  d.JobQueue.Running(),
	})
}

func statsError(c *gin.Context, requestID string, err error) {
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":     "Internal server error",
		"requestID": requestID,
	})

	zap.L().Error("Failed to collect stats", zap.Error(err), zap.String("requestID", requestID))
}
