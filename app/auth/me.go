package auth

import (
	"net/http"

	"github.com/mayurbijarniya/nutriai/internal"
	"github.com/mayurbijarniya/nutriai/internal/identity"
	"github.com/mayurbijarniya/nutriai/internal/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Me reports who the caller currently is plus their usage for today
func Me(c *gin.Context, d *internal.Deps) {
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

	userID, signedIn := c.Get("userID")
	if !signedIn {
		c.JSON(http.StatusOK, gin.H{
			"tier":  identity.TierGuest,
			"usage": usage,
		})
		return
	}

	var user model.User

	err = d.DB.WithContext(c.Request.Context()).
		Where("id = ?", userID).
		First(&user).
		Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to fetch user", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tier":  identity.TierUser,
		"user":  user,
		"usage": usage,
	})
}
