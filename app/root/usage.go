package root

import (
	"net/http"

	"github.com/mayurbijarniya/nutriai/internal"
	"github.com/mayurbijarniya/nutriai/internal/identity"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Usage reports today's used/limit pairs for the calling identity
func Usage(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)
	scope := c.MustGet("scope").(string)

	usage, err := d.Gate.Snapshot(c.Request.Context(), scope)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to read usage snapshot", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tier":  identity.Tier(scope),
		"usage": usage,
	})
}
