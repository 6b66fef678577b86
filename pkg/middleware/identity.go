package middleware

import (
	"net/http"

	"github.com/mayurbijarniya/nutriai/internal/identity"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// NewIdentityMiddleware figures out who is calling. A valid session
// cookie makes the request a signed-in user, a valid guest cookie makes
// it a guest, and anyone else gets a fresh guest identity minted on the
// spot. Every request downstream can rely on the scope key being set.
func NewIdentityMiddleware(sessions *identity.Sessions) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.MustGet("requestID").(string)

		if sessionID, err := c.Cookie(identity.SessionCookie); err == nil && sessionID != "" {
			sess, err := sessions.Find(c.Request.Context(), sessionID)
			if err == nil {
				c.Set("userID", sess.UserID)
				c.Set("scope", identity.UserScope(sess.UserID))
				c.Next()
				return
			}

			// Expired or unknown session, fall back to guest
			zap.L().Debug("Stale session cookie", zap.String("requestID", requestID))
		}

		if token, err := c.Cookie(identity.GuestCookie); err == nil && token != "" {
			guestID, err := identity.ParseGuestToken(token)
			if err == nil {
				c.Set("scope", identity.GuestScope(guestID))
				c.Next()
				return
			}

			zap.L().Debug("Invalid guest cookie", zap.String("requestID", requestID), zap.Error(err))
		}

		guestID, token, err := identity.MintGuestToken()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":     "Internal server error",
				"requestID": requestID,
			})

			zap.L().Error("Failed to mint guest token", zap.Error(err), zap.String("requestID", requestID))
			return
		}

		c.SetCookie(identity.GuestCookie, token, int(identity.GuestCookieMaxAge.Seconds()), "/", "", viper.GetBool("host.ssl.enabled"), true)
		c.Set("scope", identity.GuestScope(guestID))
		c.Next()
	}
}

// RequireUser rejects guests. It must run after the identity middleware.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.MustGet("requestID").(string)

		if _, ok := c.Get("userID"); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":     "You need to sign in to use this feature",
				"requestID": requestID,
			})
			return
		}

		c.Next()
	}
}
