package auth

import (
	"net/http"

	"github.com/mayurbijarniya/nutriai/internal"
	"github.com/mayurbijarniya/nutriai/internal/identity"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func Callback(c *gin.Context, d *internal.Deps) {
	requestID := c.MustGet("requestID").(string)

	if err := identity.VerifyStateToken(c.Query("state")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "Invalid or expired sign-in attempt, please try again",
			"requestID": requestID,
		})
		return
	}

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "No authorization code provided",
			"requestID": requestID,
		})
		return
	}

	accessToken, err := d.Google.Exchange(c.Request.Context(), code)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":     "Sign-in failed, please try again",
			"requestID": requestID,
		})

		zap.L().Error("OAuth code exchange failed", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	gu, err := d.Google.FetchUser(c.Request.Context(), accessToken)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":     "Sign-in failed, please try again",
			"requestID": requestID,
		})

		zap.L().Error("OAuth userinfo fetch failed", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	user, err := identity.UpsertGoogleUser(c.Request.Context(), d.DB, gu)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to upsert user", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	// The visitor may have analyzed meals as a guest before signing in.
	// Those rows follow them onto the account, their spent guest quota
	// doesn't
	if token, err := c.Cookie(identity.GuestCookie); err == nil && token != "" {
		if guestID, err := identity.ParseGuestToken(token); err == nil {
			moved, err := identity.MergeGuestHistory(c.Request.Context(), d.DB, guestID, user.ID)
			if err != nil {
				zap.L().Error("Failed to merge guest history", zap.Error(err), zap.String("requestID", requestID), zap.String("userID", user.ID))
			} else if moved > 0 {
				zap.L().Info("Merged guest history into account",
					zap.Int64("analyses", moved),
					zap.String("userID", user.ID),
					zap.String("requestID", requestID))
			}
		}
	}

	sess, err := d.Sessions.Create(c.Request.Context(), user.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":     "Internal server error",
			"requestID": requestID,
		})

		zap.L().Error("Failed to create session", zap.Error(err), zap.String("requestID", requestID))
		return
	}

	if err := d.Sessions.RecordLogin(c.Request.Context(), user.ID, user.Email, c.ClientIP(), c.Request.UserAgent()); err != nil {
		// Audit only, the sign-in itself already succeeded
		zap.L().Warn("Failed to record login", zap.Error(err), zap.String("userID", user.ID))
	}

	ssl := viper.GetBool("host.ssl.enabled")
	maxAge := viper.GetInt("session.expiry_days") * 24 * 60 * 60

	c.SetCookie(identity.SessionCookie, sess.ID, maxAge, "/", "", ssl, true)
	c.SetCookie(identity.GuestCookie, "", -1, "/", "", ssl, true)

	c.Redirect(http.StatusTemporaryRedirect, viper.GetString("app.frontend_url"))
}
