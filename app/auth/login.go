// Package auth holds the Google sign-in flow and the identity endpoints
package auth

import (
	"net/http"

	"github.com/mayurbijarniya/nutriai/internal"
	"github.com/mayurbijarniya/nutriai/internal/identity"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func Login(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	if d.Google.ClientID == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":     "Sign-in is not configured on this server",
			"requestID": requestID,
		})
		return
	}

	state, err := identity.MintStateToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to mint oauth state", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	c.Redirect(http.StatusTemporaryRedirect, d.Google.LoginURL(state))
}
