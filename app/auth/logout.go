package auth

import (
	"net/http"

	"github.com/mayurbijarniya/nutriai/internal"
	"github.com/mayurbijarniya/nutriai/internal/identity"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func Logout(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	if sessionID, err := c.Cookie(identity.SessionCookie); err == nil && sessionID != "" {
		if err := d.Sessions.Destroy(c.Request.Context(), sessionID); err != nil {
			zap.L().Error("Failed to destroy session", zap.Error(err), zap.String("requestID", requestID))
		}
	}

	// Always hand out a brand new guest identity. Reusing the pre-login
	// one would leak the merged account history back to the logged-out
	// browser
	_, token, err := identity.MintGuestToken()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to mint guest token", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	ssl := viper.GetBool("host.ssl.enabled")

	c.SetCookie(identity.SessionCookie, "", -1, "/", "", ssl, true)
	c.SetCookie(identity.GuestCookie, token, int(identity.GuestCookieMaxAge.Seconds()), "/", "", ssl, true)

	c.JSON(http.StatusOK, gin.H{
		"logged_out": true,
	})
}
